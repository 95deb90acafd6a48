package bgpmsg

import (
	"fmt"

	"github.com/yanet-platform/mrtfilter/internal/bgpattr"
)

// asPathIter holds a flattened, already-widened AS list plus a cursor;
// it backs all three AS-path start modes (spec.md §4.4.1: plain,
// AS4-only, and the merged "real" path).
type asPathIter struct {
	ases []uint32
	pos  int
}

func (m *Message) asWidth() int {
	if m.fl.has(FlagASN32) {
		return 4
	}
	return 2
}

// StartASPath iterates the AS_PATH attribute as-is, widened to 32 bits.
func (m *Message) StartASPath() error {
	payload, present, err := m.GetAttribute(bgpattr.ASPath)
	if err != nil {
		return err
	}
	var ases []uint32
	if present {
		ases, err = bgpattr.FlattenASes(payload, m.asWidth())
		if err != nil {
			return m.latch(fmt.Errorf("bgpmsg: %w: %v", ErrBadAttr, err))
		}
	}
	return m.startASIter(ases)
}

// StartAS4Path iterates the AS4_PATH attribute (always 4-byte ASes).
func (m *Message) StartAS4Path() error {
	payload, present, err := m.GetAttribute(bgpattr.AS4Path)
	if err != nil {
		return err
	}
	var ases []uint32
	if present {
		ases, err = bgpattr.FlattenASes(payload, 4)
		if err != nil {
			return m.latch(fmt.Errorf("bgpmsg: %w: %v", ErrBadAttr, err))
		}
	}
	return m.startASIter(ases)
}

// StartRealASPath iterates the merge of AS_PATH and AS4_PATH computed by
// bgpattr.MergeRealASPath: AS4_PATH, whenever present, replaces the
// trailing ASes of AS_PATH; AGGREGATOR and AS4_AGGREGATOR are not
// consulted.
func (m *Message) StartRealASPath() error {
	asPath, _, err := m.GetAttribute(bgpattr.ASPath)
	if err != nil {
		return err
	}
	as4Path, _, err := m.GetAttribute(bgpattr.AS4Path)
	if err != nil {
		return err
	}
	merged, err := bgpattr.MergeRealASPath(asPath, as4Path, m.asWidth())
	if err != nil {
		return m.latch(fmt.Errorf("bgpmsg: %w: %v", ErrBadAttr, err))
	}
	return m.startASIter(merged)
}

func (m *Message) startASIter(ases []uint32) error {
	if m.mod != modeRead {
		return m.latch(fmt.Errorf("bgpmsg: %w: as-path iteration requires read mode", ErrInvalidOp))
	}
	m.closeIterator()
	m.iter = iterASPath
	m.asIter = asPathIter{ases: ases}
	return nil
}

// NextAS returns the next AS number in the currently open AS-path
// iterator, or ok=false at the end.
func (m *Message) NextAS() (uint32, bool, error) {
	if m.iter != iterASPath {
		return 0, false, m.latch(fmt.Errorf("bgpmsg: %w: no as-path iterator open", ErrInvalidOp))
	}
	it := &m.asIter
	if it.pos >= len(it.ases) {
		return 0, false, nil
	}
	as := it.ases[it.pos]
	it.pos++
	return as, true, nil
}
