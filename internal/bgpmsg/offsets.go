package bgpmsg

import "github.com/yanet-platform/mrtfilter/internal/bgpattr"

// offsetState is the three-way state of a notable attribute's cached
// offset, per spec.md §9: "Unknown, Missing, At(u16)" rather than the
// source's zero/sentinel u16 encoding.
type offsetState int8

const (
	offUnknown offsetState = iota
	offMissing
	offAt
)

// notableCodes lists the 16 attribute type codes whose offsets are
// cached on first sight (spec.md §3 "Notable attribute").
var notableCodes = [16]byte{
	bgpattr.Origin, bgpattr.ASPath, bgpattr.NextHop, bgpattr.MultiExitDisc,
	bgpattr.LocalPref, bgpattr.AtomicAggregate, bgpattr.Aggregator, bgpattr.CommunityCode,
	bgpattr.OriginatorID, bgpattr.ClusterList, bgpattr.MPReachNLRI, bgpattr.MPUnreachNLRI,
	bgpattr.ExtendedCommunity, bgpattr.AS4Path, bgpattr.AS4Aggregator, bgpattr.LargeCommunityCode,
}

func notableIndex(code byte) (int, bool) {
	for i, c := range notableCodes {
		if c == code {
			return i, true
		}
	}
	return 0, false
}

type offsetCache struct {
	state [16]offsetState
	at    [16]int
}

func (c *offsetCache) reset() {
	for i := range c.state {
		c.state[i] = offUnknown
		c.at[i] = 0
	}
}

// note records that the attribute at byte offset off (the offset of its
// header, within the message buffer) was seen for type code.
func (c *offsetCache) note(code byte, off int) {
	idx, ok := notableIndex(code)
	if !ok {
		return
	}
	c.state[idx] = offAt
	c.at[idx] = off
}

// markAllMissing marks every notable code not yet seen as definitively
// absent; called once a full linear scan of the attributes has
// completed without opening a fresh scan every time.
func (c *offsetCache) markAllMissing() {
	for i := range c.state {
		if c.state[i] == offUnknown {
			c.state[i] = offMissing
		}
	}
}

// lookup returns (offset, true) if code is cached as present, (0, false)
// and known==true if cached as missing, or known==false if the cache has
// no information yet (a scan is required).
func (c *offsetCache) lookup(code byte) (offset int, present bool, known bool) {
	idx, ok := notableIndex(code)
	if !ok {
		return 0, false, false
	}
	switch c.state[idx] {
	case offAt:
		return c.at[idx], true, true
	case offMissing:
		return 0, false, true
	default:
		return 0, false, false
	}
}
