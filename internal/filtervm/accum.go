package filtervm

import "github.com/yanet-platform/mrtfilter/prefix"

// ValueKind tags one accumulator slot (spec.md §3: "a small accumulator
// stack... a boolean result").
type ValueKind byte

const (
	ValInt ValueKind = iota
	ValPrefix
	ValAS
	ValBool
)

// Value is one tagged accumulator entry.
type Value struct {
	Kind   ValueKind
	Int    uint32
	Prefix prefix.Prefix
	AS     uint32
	Bool   bool
}

// accumStackLimit bounds the accumulator stack (spec.md §5: "the filter
// VM's stacks are fixed-size ... no dynamic allocation occurs during
// execution").
const accumStackLimit = 64

// accumulator is the per-message execution state described in spec.md
// §3's "Filter VM image... execution state per message".
type accumulator struct {
	stack   [accumStackLimit]Value
	depth   int
	settled bool
	result  bool
}

func (a *accumulator) reset() {
	a.depth = 0
	a.settled = false
	a.result = false
}

func (a *accumulator) push(v Value) error {
	if a.depth >= accumStackLimit {
		return ErrBadPacket
	}
	a.stack[a.depth] = v
	a.depth++
	return nil
}

func (a *accumulator) pop() (Value, error) {
	if a.depth == 0 {
		return Value{}, ErrBadPacket
	}
	a.depth--
	return a.stack[a.depth], nil
}

// commit folds a boolean verdict into the result per the op that produced
// it: CPASS/CFAIL set the result directly via the control ops; prefix-
// match and path-match ops commit their own pass/fail the same way.
func (a *accumulator) commit(pass bool) {
	a.result = pass
	a.settled = true
}

// settle materializes any pending accumulator contents into the boolean
// result, per the SETTLE opcode's semantics (spec.md §4.5: "SETTLE
// collapses pending accumulator contents into the boolean per the
// last-seen op semantics").
func (a *accumulator) settle() {
	if a.depth == 0 {
		return
	}
	v := a.stack[a.depth-1]
	if v.Kind == ValBool {
		a.result = v.Bool
	} else {
		a.result = true
	}
	a.settled = true
}

func (a *accumulator) invert() {
	a.result = !a.result
}
