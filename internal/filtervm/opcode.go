// Package filtervm implements the bytecode filter machine from spec.md
// §4.5/§6.4: a 16-bit-opcode instruction set operating over a small
// accumulator stack, a constant pool, and up to four borrowed trie
// references, driven one instruction per step by a dense-switch
// interpreter (the "match over computed-goto" port choice noted in
// spec.md §9).
package filtervm

// Op is one 16-bit instruction word: high byte opcode, low byte immediate.
type Op uint16

func (op Op) Code() byte { return byte(op >> 8) }
func (op Op) Imm() byte  { return byte(op) }

func MakeOp(code, imm byte) Op { return Op(code)<<8 | Op(imm) }

// Opcodes, grouped as in spec.md §4.5's opcode table.
const (
	// control
	OpNOP = iota
	OpBLK
	OpENDBLK
	OpCPASS
	OpCFAIL
	OpNOT
	OpSETTLE
	OpEXARG

	// load/store
	OpLOAD
	OpLOADK
	OpSTORE
	OpDISCARD
	OpUNPACK

	// attribute
	OpHASATTR

	// prefix match
	OpEXACT
	OpSUBNET
	OpSUPERNET
	OpRELATED
	OpPFXCONTAINS
	OpADDRCONTAINS
	OpASCONTAINS

	// path match
	OpASPMATCH
	OpASPSTARTS
	OpASPENDS
	OpASPEXACT

	// communities
	OpCOMMEXACT

	// call
	OpCALL

	// trie slots
	OpSETTRIE
	OpSETTRIE6
	OpCLRTRIE
	OpCLRTRIE6

	// comparators
	OpASCMP
	OpADDRCMP
	OpPFXCMP

	opCount
)

// AccessMask bits select region/scope/path-variant for prefix-match and
// path-match opcodes (spec.md GLOSSARY "Access mask").
type AccessMask byte

const (
	MaskWithdrawn AccessMask = 1 << iota // NLRI (0) vs withdrawn (1)
	MaskAll                              // local region only (0) vs extend into MP_REACH/MP_UNREACH (1)
	MaskAS4                              // AS_PATH (0) vs AS4_PATH (1), when MaskReal is clear
	MaskReal                             // use the real (merged) AS path instead
	MaskSettleFirst                      // flush the accumulator before evaluating this op
)

func (m AccessMask) has(bit AccessMask) bool { return m&bit != 0 }

// Community-kind discriminants used by COMMEXACT's constant-pool operand.
const (
	CommRegular = iota
	CommExtended
	CommExtendedV6
	CommLarge
)

// Function-table indices for CALL, matching spec.md §6.4's access
// routines exactly.
const (
	FnWithdrawnInsert = iota
	FnWithdrawnAccumulate
	FnEveryWithdrawnInsert
	FnEveryWithdrawnAccumulate
	FnNLRIInsert
	FnNLRIAccumulate
	FnEveryNLRIInsert
	FnEveryNLRIAccumulate

	fnCount
)
