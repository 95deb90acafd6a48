package filtervm

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yanet-platform/mrtfilter/prefix"
)

// assemblyConst is the YAML shape of one constant-pool entry. Only the
// fields relevant to Kind are populated by the author of an image file.
type assemblyConst struct {
	Kind     string   `yaml:"kind"`
	Int      uint32   `yaml:"int"`
	Prefix   string   `yaml:"prefix"`
	Family   string   `yaml:"family"`
	AS       uint32   `yaml:"as"`
	PathID   uint32   `yaml:"path_id"`
	ASVec    []uint32 `yaml:"as_vector"`
	Comms    []string `yaml:"communities"`
	CommKind string   `yaml:"comm_kind"`
}

// assemblyOp is one instruction word: a mnemonic plus its immediate.
type assemblyOp struct {
	Op  string `yaml:"op"`
	Imm byte   `yaml:"imm"`
}

// assemblyImage is the on-disk shape of a pre-assembled filter image
// (spec.md §6.4's tuple, minus the function table and trie slots:
// LoadImage always installs the eight fixed access routines and leaves
// the four trie slots empty). This is a direct 1:1
// assembly of opcodes and constants, not a filter source language: there
// is no expression syntax, no labels, no jumps to resolve.
type assemblyImage struct {
	Code   []assemblyOp    `yaml:"code"`
	Consts []assemblyConst `yaml:"consts"`
}

var mnemonics = map[string]byte{
	"NOP": OpNOP, "BLK": OpBLK, "ENDBLK": OpENDBLK, "CPASS": OpCPASS,
	"CFAIL": OpCFAIL, "NOT": OpNOT, "SETTLE": OpSETTLE, "EXARG": OpEXARG,
	"LOAD": OpLOAD, "LOADK": OpLOADK, "STORE": OpSTORE, "DISCARD": OpDISCARD,
	"UNPACK": OpUNPACK, "HASATTR": OpHASATTR,
	"EXACT": OpEXACT, "SUBNET": OpSUBNET, "SUPERNET": OpSUPERNET,
	"RELATED": OpRELATED, "PFXCONTAINS": OpPFXCONTAINS,
	"ADDRCONTAINS": OpADDRCONTAINS, "ASCONTAINS": OpASCONTAINS,
	"ASPMATCH": OpASPMATCH, "ASPSTARTS": OpASPSTARTS, "ASPENDS": OpASPENDS,
	"ASPEXACT": OpASPEXACT, "COMMEXACT": OpCOMMEXACT, "CALL": OpCALL,
	"SETTRIE": OpSETTRIE, "SETTRIE6": OpSETTRIE6, "CLRTRIE": OpCLRTRIE,
	"CLRTRIE6": OpCLRTRIE6, "ASCMP": OpASCMP, "ADDRCMP": OpADDRCMP,
	"PFXCMP": OpPFXCMP,
}

var commKinds = map[string]int{
	"regular": CommRegular, "extended": CommExtended,
	"extended-v6": CommExtendedV6, "large": CommLarge,
}

// LoadImage reads a pre-assembled filter image from a YAML file (spec.md
// §6.4's external collaborator), as wired by the command-line front-end.
// The filter source language itself is out of scope; this is an
// assembler for an already-compiled instruction/constant list, not a
// parser for boolean filter expressions.
func LoadImage(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("filtervm: load image %q: %w", path, err)
	}

	var a assemblyImage
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("filtervm: parse image %q: %w", path, err)
	}

	code := make([]Op, len(a.Code))
	for i, op := range a.Code {
		c, ok := mnemonics[op.Op]
		if !ok {
			return nil, fmt.Errorf("filtervm: %q: unknown opcode mnemonic %q at index %d", path, op.Op, i)
		}
		code[i] = MakeOp(c, op.Imm)
	}

	consts := make(ConstPool, len(a.Consts))
	for i, c := range a.Consts {
		v, err := assembleConst(c)
		if err != nil {
			return nil, fmt.Errorf("filtervm: %q: constant %d: %w", path, i, err)
		}
		consts[i] = v
	}

	return &Image{Code: code, Consts: consts, Functions: DefaultFunctions()}, nil
}

func assembleConst(c assemblyConst) (ConstValue, error) {
	switch c.Kind {
	case "int":
		return ConstValue{Kind: ConstInt, Int: c.Int}, nil
	case "prefix":
		p, err := prefix.FromString(c.Prefix)
		if err != nil {
			return ConstValue{}, fmt.Errorf("bad prefix %q: %w", c.Prefix, err)
		}
		return ConstValue{Kind: ConstPrefix, Prefix: p}, nil
	case "family":
		fam, err := parseFamily(c.Family)
		if err != nil {
			return ConstValue{}, err
		}
		return ConstValue{Kind: ConstFamily, Family: fam}, nil
	case "as":
		return ConstValue{Kind: ConstAS, Int: c.AS}, nil
	case "path_id":
		return ConstValue{Kind: ConstPathID, Int: c.PathID}, nil
	case "as_vector":
		return ConstValue{Kind: ConstASVector, ASVec: c.ASVec}, nil
	case "community_set":
		kind, ok := commKinds[c.CommKind]
		if !ok {
			return ConstValue{}, fmt.Errorf("unknown comm_kind %q", c.CommKind)
		}
		return ConstValue{Kind: ConstCommunitySet, Comms: c.Comms, CommKind: kind}, nil
	default:
		return ConstValue{}, fmt.Errorf("unknown constant kind %q", c.Kind)
	}
}

func parseFamily(s string) (prefix.Family, error) {
	switch s {
	case "v4", "ipv4":
		return prefix.V4, nil
	case "v6", "ipv6":
		return prefix.V6, nil
	default:
		return 0, fmt.Errorf("unknown address family %q", s)
	}
}
