package bgpmsg

import (
	"fmt"

	"github.com/yanet-platform/mrtfilter/internal/bgpattr"
)

// CommunityKind selects which community attribute a community iterator
// walks (spec.md §4.4.1: regular, extended, extended-v6, or large).
type CommunityKind int

const (
	CommunityRegular CommunityKind = iota
	CommunityExtended
	CommunityExtendedV6
	CommunityLarge
)

// communityIter stores the decoded entries for whichever kind was
// requested; exactly one of the four slices is populated.
type communityIter struct {
	kind     CommunityKind
	regular  []bgpattr.Community
	extended []bgpattr.ExtCommunity
	extV6    []bgpattr.ExtCommunityV6
	large    []bgpattr.LargeCommunity
	pos      int
}

func communityAttrCode(kind CommunityKind) (byte, error) {
	switch kind {
	case CommunityRegular:
		return bgpattr.CommunityCode, nil
	case CommunityExtended:
		return bgpattr.ExtendedCommunity, nil
	case CommunityExtendedV6:
		return bgpattr.ExtendedCommunityV6, nil
	case CommunityLarge:
		return bgpattr.LargeCommunityCode, nil
	default:
		return 0, fmt.Errorf("bgpmsg: unknown community kind %d", kind)
	}
}

// StartCommunity begins iterating the community attribute of the given
// kind. A missing attribute yields a valid, empty iterator rather than
// an error.
func (m *Message) StartCommunity(kind CommunityKind) error {
	if m.mod != modeRead {
		return m.latch(fmt.Errorf("bgpmsg: %w: community iteration requires read mode", ErrInvalidOp))
	}
	code, err := communityAttrCode(kind)
	if err != nil {
		return m.latch(err)
	}
	payload, present, err := m.GetAttribute(code)
	if err != nil {
		return err
	}

	it := communityIter{kind: kind}
	if present {
		switch kind {
		case CommunityRegular:
			err = bgpattr.WalkCommunities(payload, func(c bgpattr.Community) bool {
				it.regular = append(it.regular, c)
				return true
			})
		case CommunityExtended:
			err = bgpattr.WalkExtCommunities(payload, func(c bgpattr.ExtCommunity) bool {
				it.extended = append(it.extended, c)
				return true
			})
		case CommunityExtendedV6:
			err = bgpattr.WalkExtCommunitiesV6(payload, func(c bgpattr.ExtCommunityV6) bool {
				it.extV6 = append(it.extV6, c)
				return true
			})
		case CommunityLarge:
			err = bgpattr.WalkLargeCommunities(payload, func(c bgpattr.LargeCommunity) bool {
				it.large = append(it.large, c)
				return true
			})
		}
		if err != nil {
			return m.latch(fmt.Errorf("bgpmsg: %w: %v", ErrBadAttr, err))
		}
	}

	m.closeIterator()
	m.iter = iterCommunity
	m.commIter = it
	return nil
}

// NextCommunity returns the next entry as whichever concrete type
// matches the iterator's kind (bgpattr.Community, bgpattr.ExtCommunity,
// bgpattr.ExtCommunityV6, or bgpattr.LargeCommunity), or ok=false at the
// end.
func (m *Message) NextCommunity() (any, bool, error) {
	if m.iter != iterCommunity {
		return nil, false, m.latch(fmt.Errorf("bgpmsg: %w: no community iterator open", ErrInvalidOp))
	}
	it := &m.commIter
	switch it.kind {
	case CommunityRegular:
		if it.pos >= len(it.regular) {
			return nil, false, nil
		}
		v := it.regular[it.pos]
		it.pos++
		return v, true, nil
	case CommunityExtended:
		if it.pos >= len(it.extended) {
			return nil, false, nil
		}
		v := it.extended[it.pos]
		it.pos++
		return v, true, nil
	case CommunityExtendedV6:
		if it.pos >= len(it.extV6) {
			return nil, false, nil
		}
		v := it.extV6[it.pos]
		it.pos++
		return v, true, nil
	case CommunityLarge:
		if it.pos >= len(it.large) {
			return nil, false, nil
		}
		v := it.large[it.pos]
		it.pos++
		return v, true, nil
	default:
		return nil, false, nil
	}
}
