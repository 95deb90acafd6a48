package filtervm

import (
	"github.com/yanet-platform/mrtfilter/internal/bgpmsg"
	"github.com/yanet-platform/mrtfilter/prefix"
)

// AccessFn is a built-in access routine invoked by CALL (spec.md §6.4): it
// resolves one of NLRI / every-NLRI / WITHDRAWN / every-WITHDRAWN against
// the message and pushes its prefixes onto the accumulator.
type AccessFn func(msg Message, acc *accumulator) error

func collectNLRI(msg Message, acc *accumulator, all bool) error {
	var err error
	if all {
		err = msg.StartAllNLRI()
	} else {
		err = msg.StartNLRI()
	}
	if err != nil {
		return err
	}
	for {
		v, ok, err := msg.NextNLRI()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if e := acc.push(Value{Kind: ValPrefix, Prefix: asPrefix(v)}); e != nil {
			return e
		}
	}
}

func collectWithdrawn(msg Message, acc *accumulator, all bool) error {
	var err error
	if all {
		err = msg.StartAllWithdrawn()
	} else {
		err = msg.StartWithdrawn()
	}
	if err != nil {
		return err
	}
	for {
		v, ok, err := msg.NextWithdrawn()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if e := acc.push(Value{Kind: ValPrefix, Prefix: asPrefix(v)}); e != nil {
			return e
		}
	}
}

func asPrefix(v any) prefix.Prefix {
	switch t := v.(type) {
	case prefix.Prefix:
		return t
	case *prefix.AddPathPrefix:
		return t.Prefix
	default:
		return prefix.Prefix{}
	}
}

// DefaultFunctions builds the eight access routines named in spec.md
// §6.4. "insert" and "accumulate" are the same resolution in this port:
// both push every matching prefix onto the accumulator, since nothing in
// the image format distinguishes a single-slot insert from a growing
// accumulation once the accumulator is itself just a stack.
func DefaultFunctions() [fnCount]AccessFn {
	return [fnCount]AccessFn{
		FnWithdrawnInsert:          func(m Message, a *accumulator) error { return collectWithdrawn(m, a, false) },
		FnWithdrawnAccumulate:      func(m Message, a *accumulator) error { return collectWithdrawn(m, a, false) },
		FnEveryWithdrawnInsert:     func(m Message, a *accumulator) error { return collectWithdrawn(m, a, true) },
		FnEveryWithdrawnAccumulate: func(m Message, a *accumulator) error { return collectWithdrawn(m, a, true) },
		FnNLRIInsert:               func(m Message, a *accumulator) error { return collectNLRI(m, a, false) },
		FnNLRIAccumulate:           func(m Message, a *accumulator) error { return collectNLRI(m, a, false) },
		FnEveryNLRIInsert:          func(m Message, a *accumulator) error { return collectNLRI(m, a, true) },
		FnEveryNLRIAccumulate:      func(m Message, a *accumulator) error { return collectNLRI(m, a, true) },
	}
}

// Message is the typed-accessor surface the VM reads a reconstructed
// update through (spec.md §4.5: "the filter VM reads from the update
// codec via typed accessors, no secondary copy"). *bgpmsg.Message
// satisfies this directly.
type Message interface {
	GetAttribute(code byte) ([]byte, bool, error)

	StartNLRI() error
	StartAllNLRI() error
	NextNLRI() (any, bool, error)

	StartWithdrawn() error
	StartAllWithdrawn() error
	NextWithdrawn() (any, bool, error)

	StartASPath() error
	StartAS4Path() error
	StartRealASPath() error
	NextAS() (uint32, bool, error)

	StartCommunity(kind bgpmsg.CommunityKind) error
	NextCommunity() (any, bool, error)
}
