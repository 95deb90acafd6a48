package bgpattr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	buf := make([]byte, 8)
	n, err := PutHeader(buf, FlagTransitive, ASPath, 5)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	flags, code, plen, hlen, err := Header(buf)
	require.NoError(t, err)
	require.Equal(t, byte(FlagTransitive), flags)
	require.Equal(t, byte(ASPath), code)
	require.Equal(t, 5, plen)
	require.Equal(t, 3, hlen)
}

func TestHeaderExtendedLength(t *testing.T) {
	buf := make([]byte, 8)
	n, err := PutHeader(buf, FlagOptional, CommunityCode, 300)
	require.NoError(t, err)
	require.Equal(t, 4, n)

	flags, _, plen, hlen, err := Header(buf)
	require.NoError(t, err)
	require.True(t, flags&FlagExtendedLength != 0)
	require.Equal(t, 300, plen)
	require.Equal(t, 4, hlen)
}

func TestASPathS4Scenario(t *testing.T) {
	seq := []uint32{1, 2, 3, 4, 5, 6, 7, 9, 11}
	set := []uint32{22, 0x11111, 93495}
	segs := []Segment{
		{Type: SegSequence, ASes: seq},
		{Type: SegSet, ASes: set},
	}
	payload := EncodeSegments(segs, 4)

	got, err := ParseSegments(payload, 4)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, seq, got[0].ASes)
	require.ElementsMatch(t, set, got[1].ASes)

	n, err := CountASes(payload, 4)
	require.NoError(t, err)
	require.Equal(t, len(seq)+1, n)
}

func TestNarrow32To16(t *testing.T) {
	segs := []Segment{{Type: SegSequence, ASes: []uint32{1, 2, 65535}}}
	payload := EncodeSegments(segs, 4)

	narrow, err := Narrow32To16(payload)
	require.NoError(t, err)

	got, err := ParseSegments(narrow, 2)
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 2, 65535}, got[0].ASes)
}

func TestNarrow32To16RejectsHighBits(t *testing.T) {
	segs := []Segment{{Type: SegSequence, ASes: []uint32{1, 70000}}}
	payload := EncodeSegments(segs, 4)

	_, err := Narrow32To16(payload)
	require.Error(t, err)
}

func TestCommunityWalk(t *testing.T) {
	var seen []Community
	payload := []byte{0, 0, 0, 1, 0, 0, 0, 2}
	err := WalkCommunities(payload, func(c Community) bool {
		seen = append(seen, c)
		return true
	})
	require.NoError(t, err)
	require.Equal(t, []Community{1, 2}, seen)
}

func TestMPReachGuessMRT(t *testing.T) {
	// S7: AFI=v6, SAFI=unicast leading bytes (0x00, 0x02, 0x01), the
	// shape guess-mrt recognizes as the dump-format truncated encoding.
	nextHop := []byte{0x20, 0x01, 0x0d, 0xb8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x01}
	require.Len(t, nextHop, 16)

	truncated := append([]byte{0x00, 0x02, 0x01, 16}, nextHop...)
	require.True(t, LooksTruncated(truncated))

	full := append(append([]byte{}, truncated...), 0x00) // + reserved byte
	hdr, err := ParseMPReachHeader(full)
	require.NoError(t, err)
	require.Equal(t, uint16(AFIIPv6), hdr.AFI)
	require.Equal(t, byte(SAFIUnicast), hdr.SAFI)
	require.Equal(t, nextHop, hdr.NextHop)
}
