package bgpmsg

import (
	"fmt"

	"github.com/yanet-platform/mrtfilter/internal/bgpattr"
	"github.com/yanet-platform/mrtfilter/prefix"
)

// nextHopIter holds the ordered list of next-hop addresses a message
// carries: the classic NEXT_HOP attribute (if any) followed by the
// MP_REACH_NLRI next-hop field's one or two addresses (global, and for
// IPv6 optionally a link-local address alongside it).
type nextHopIter struct {
	hops []prefix.Prefix
	pos  int
}

// StartNextHop begins iterating NEXT_HOP followed by MP_REACH's
// next-hop addresses (spec.md §4.4.1).
func (m *Message) StartNextHop() error {
	if m.mod != modeRead {
		return m.latch(fmt.Errorf("bgpmsg: %w: next-hop iteration requires read mode", ErrInvalidOp))
	}

	var hops []prefix.Prefix

	if payload, present, err := m.GetAttribute(bgpattr.NextHop); err != nil {
		return err
	} else if present {
		if len(payload) != 4 {
			return m.latch(fmt.Errorf("bgpmsg: %w: next_hop attribute is %d bytes, want 4", ErrBadAttr, len(payload)))
		}
		p, err := prefix.FromBytes(prefix.V4, 32, payload)
		if err != nil {
			return m.latch(fmt.Errorf("bgpmsg: %w: %v", ErrBadAttr, err))
		}
		hops = append(hops, p)
	}

	if payload, present, err := m.GetAttribute(bgpattr.MPReachNLRI); err != nil {
		return err
	} else if present {
		hdr, err := bgpattr.ParseMPReachHeader(payload)
		if err != nil {
			return m.latch(fmt.Errorf("bgpmsg: %w: %v", ErrBadNLRI, err))
		}
		fam := afiFamily(hdr.AFI)
		width := fam.MaxBitLen() / 8
		for off := 0; off+width <= len(hdr.NextHop); off += width {
			p, err := prefix.FromBytes(fam, fam.MaxBitLen(), hdr.NextHop[off:off+width])
			if err != nil {
				return m.latch(fmt.Errorf("bgpmsg: %w: %v", ErrBadNLRI, err))
			}
			hops = append(hops, p)
		}
	}

	m.closeIterator()
	m.iter = iterNextHop
	m.nhIter = nextHopIter{hops: hops}
	return nil
}

// NextHop returns the next next-hop address, or ok=false at the end.
func (m *Message) NextHop() (prefix.Prefix, bool, error) {
	if m.iter != iterNextHop {
		return prefix.Prefix{}, false, m.latch(fmt.Errorf("bgpmsg: %w: no next-hop iterator open", ErrInvalidOp))
	}
	it := &m.nhIter
	if it.pos >= len(it.hops) {
		return prefix.Prefix{}, false, nil
	}
	p := it.hops[it.pos]
	it.pos++
	return p, true, nil
}
