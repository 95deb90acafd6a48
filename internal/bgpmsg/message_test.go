package bgpmsg

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanet-platform/mrtfilter/internal/bgpattr"
	"github.com/yanet-platform/mrtfilter/prefix"
)

func mustPrefix(t *testing.T, s string) prefix.Prefix {
	t.Helper()
	p, err := prefix.FromString(s)
	require.NoError(t, err)
	return p
}

func buildUpdate(t *testing.T) *Message {
	t.Helper()
	m, err := OpenWrite(TypeUpdate, 0)
	require.NoError(t, err)

	require.NoError(t, m.BeginWithdrawn())
	require.NoError(t, m.EndWithdrawn())

	require.NoError(t, m.BeginAttributes())
	require.NoError(t, m.PutAttribute(bgpattr.FlagTransitive, bgpattr.Origin, []byte{bgpattr.OriginIGP}))
	segs := []bgpattr.Segment{{Type: bgpattr.SegSequence, ASes: []uint32{65001, 65002}}}
	require.NoError(t, m.PutAttribute(bgpattr.FlagTransitive, bgpattr.ASPath, bgpattr.EncodeSegments(segs, 2)))
	require.NoError(t, m.PutAttribute(bgpattr.FlagTransitive, bgpattr.NextHop, []byte{10, 0, 0, 1}))
	require.NoError(t, m.EndAttributes())

	p := mustPrefix(t, "192.0.2.0/24")
	require.NoError(t, m.PutNLRI(p, 0))

	_, err = m.Finish()
	require.NoError(t, err)
	return m
}

func TestWriteReadRoundTrip(t *testing.T) {
	built := buildUpdate(t)
	data, err := built.Data()
	require.NoError(t, err)

	m, err := OpenRead(data, 0)
	require.NoError(t, err)

	typ, err := m.Type()
	require.NoError(t, err)
	require.Equal(t, byte(TypeUpdate), typ)

	require.NoError(t, m.StartNLRI())
	v, ok, err := m.NextNLRI()
	require.NoError(t, err)
	require.True(t, ok)
	p := v.(prefix.Prefix)
	require.Equal(t, "192.0.2.0/24", p.String())
	_, ok, err = m.NextNLRI()
	require.NoError(t, err)
	require.False(t, ok)

	origin, present, err := m.GetAttribute(bgpattr.Origin)
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, []byte{bgpattr.OriginIGP}, origin)

	// second lookup, for an attribute the first scan stopped short of
	nh, present, err := m.GetAttribute(bgpattr.NextHop)
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, []byte{10, 0, 0, 1}, nh)

	require.NoError(t, m.StartASPath())
	var ases []uint32
	for {
		as, ok, err := m.NextAS()
		require.NoError(t, err)
		if !ok {
			break
		}
		ases = append(ases, as)
	}
	require.Equal(t, []uint32{65001, 65002}, ases)
}

func TestOffsetCacheMissingAttribute(t *testing.T) {
	built := buildUpdate(t)
	data, err := built.Data()
	require.NoError(t, err)
	m, err := OpenRead(data, 0)
	require.NoError(t, err)

	_, present, err := m.GetAttribute(bgpattr.MultiExitDisc)
	require.NoError(t, err)
	require.False(t, present)

	// repeat: should be answered from the "missing" cache state, not a rescan
	_, present, err = m.GetAttribute(bgpattr.MultiExitDisc)
	require.NoError(t, err)
	require.False(t, present)
}

func TestAllWithdrawnContinuesIntoMPUnreach(t *testing.T) {
	m, err := OpenWrite(TypeUpdate, 0)
	require.NoError(t, err)
	require.NoError(t, m.BeginWithdrawn())
	require.NoError(t, m.PutWithdrawn(mustPrefix(t, "198.51.100.0/24"), 0))
	require.NoError(t, m.EndWithdrawn())

	require.NoError(t, m.BeginAttributes())
	v6 := mustPrefix(t, "2001:db8::/32")
	var mpUnreach []byte
	mpUnreach = append(mpUnreach, 0x00, byte(bgpattr.AFIIPv6), byte(bgpattr.SAFIUnicast))
	mpUnreach = append(mpUnreach, byte(v6.BitLen))
	mpUnreach = append(mpUnreach, v6.Bytes[:v6.ByteLen()]...)
	require.NoError(t, m.PutAttribute(bgpattr.FlagOptional, bgpattr.MPUnreachNLRI, mpUnreach))
	require.NoError(t, m.EndAttributes())
	_, err = m.Finish()
	require.NoError(t, err)

	data, err := m.Data()
	require.NoError(t, err)
	rm, err := OpenRead(data, 0)
	require.NoError(t, err)

	require.NoError(t, rm.StartAllWithdrawn())
	var got []string
	for {
		v, ok, err := rm.NextWithdrawn()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, v.(prefix.Prefix).String())
	}
	require.Equal(t, []string{"198.51.100.0/24", "2001:db8::/32"}, got)
}

func TestRebuildFromDumpV4NarrowsASPath(t *testing.T) {
	var attrs []byte
	origin := []byte{bgpattr.OriginIGP}
	hdr := make([]byte, 3)
	n, err := bgpattr.PutHeader(hdr, bgpattr.FlagTransitive, bgpattr.Origin, len(origin))
	require.NoError(t, err)
	attrs = append(attrs, hdr[:n]...)
	attrs = append(attrs, origin...)

	segs := []bgpattr.Segment{{Type: bgpattr.SegSequence, ASes: []uint32{65001, 65002}}}
	asPayload := bgpattr.EncodeSegments(segs, 4)
	hdr2 := make([]byte, 4)
	n, err = bgpattr.PutHeader(hdr2, bgpattr.FlagTransitive, bgpattr.ASPath, len(asPayload))
	require.NoError(t, err)
	attrs = append(attrs, hdr2[:n]...)
	attrs = append(attrs, asPayload...)

	nlri := mustPrefix(t, "203.0.113.0/24")
	m, err := RebuildFromDump(nlri, attrs, 0, 0)
	require.NoError(t, err)
	data, err := m.Finish()
	require.NoError(t, err)

	rm, err := OpenRead(data, 0)
	require.NoError(t, err)
	require.NoError(t, rm.StartASPath())
	var ases []uint32
	for {
		as, ok, err := rm.NextAS()
		require.NoError(t, err)
		if !ok {
			break
		}
		ases = append(ases, as)
	}
	require.Equal(t, []uint32{65001, 65002}, ases)

	require.NoError(t, rm.StartNLRI())
	v, ok, err := rm.NextNLRI()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "203.0.113.0/24", v.(prefix.Prefix).String())
}

func TestRebuildFromDumpGuessMRT(t *testing.T) {
	// S7: truncated MP_REACH source; guess-mrt detects it and rebuilds a
	// full MP_REACH_NLRI carrying the NLRI, with no standalone IPv4 NLRI.
	nextHop := make([]byte, 16)
	nextHop[0], nextHop[1] = 0x20, 0x01
	source := append([]byte{0x00, byte(bgpattr.AFIIPv6), byte(bgpattr.SAFIUnicast), 16}, nextHop...)

	hdr := make([]byte, 4)
	n, err := bgpattr.PutHeader(hdr, bgpattr.FlagOptional, bgpattr.MPReachNLRI, len(source))
	require.NoError(t, err)
	var attrs []byte
	attrs = append(attrs, hdr[:n]...)
	attrs = append(attrs, source...)

	nlri := mustPrefix(t, "2001:db8::/32")
	m, err := RebuildFromDump(nlri, attrs, 0, 0)
	require.NoError(t, err)
	data, err := m.Finish()
	require.NoError(t, err)

	rm, err := OpenRead(data, 0)
	require.NoError(t, err)
	payload, present, err := rm.GetAttribute(bgpattr.MPReachNLRI)
	require.NoError(t, err)
	require.True(t, present)

	parsedHdr, err := bgpattr.ParseMPReachHeader(payload)
	require.NoError(t, err)
	require.Equal(t, nextHop, parsedHdr.NextHop)

	// The rebuilt NLRI entry follows immediately after the header.
	rest := payload[parsedHdr.HeaderLen:]
	require.Equal(t, byte(32), rest[0])
}

func TestNextHopAndCommunityIterators(t *testing.T) {
	m, err := OpenWrite(TypeUpdate, 0)
	require.NoError(t, err)
	require.NoError(t, m.BeginWithdrawn())
	require.NoError(t, m.EndWithdrawn())
	require.NoError(t, m.BeginAttributes())
	require.NoError(t, m.PutAttribute(bgpattr.FlagTransitive, bgpattr.NextHop, []byte{172, 16, 0, 1}))
	require.NoError(t, m.PutAttribute(bgpattr.FlagOptional|bgpattr.FlagTransitive, bgpattr.CommunityCode,
		[]byte{0, 0, 0, 1, 0, 0, 0, 2}))
	require.NoError(t, m.EndAttributes())
	p := mustPrefix(t, "192.0.2.0/24")
	require.NoError(t, m.PutNLRI(p, 0))
	data, err := m.Finish()
	require.NoError(t, err)

	rm, err := OpenRead(data, 0)
	require.NoError(t, err)

	require.NoError(t, rm.StartNextHop())
	hop, ok, err := rm.NextHop()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "172.16.0.1/32", hop.String())
	_, ok, err = rm.NextHop()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, rm.StartCommunity(CommunityRegular))
	var seen []bgpattr.Community
	for {
		v, ok, err := rm.NextCommunity()
		require.NoError(t, err)
		if !ok {
			break
		}
		seen = append(seen, v.(bgpattr.Community))
	}
	require.Equal(t, []bgpattr.Community{1, 2}, seen)
}

func TestRebuildFromDumpRequiresMPReachForV6(t *testing.T) {
	nlri := mustPrefix(t, "2001:db8::/32")
	_, err := RebuildFromDump(nlri, nil, 0, 0)
	require.ErrorIs(t, err, ErrBadAttr)
}
