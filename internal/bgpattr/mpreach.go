package bgpattr

import (
	"fmt"

	"github.com/yanet-platform/mrtfilter/bitmath"
)

// Address family identifiers (AFI) and subsequent address family
// identifiers (SAFI) used by MP_REACH_NLRI/MP_UNREACH_NLRI.
const (
	AFIIPv4 = 1
	AFIIPv6 = 2

	SAFIUnicast   = 1
	SAFIMulticast = 2
)

// MPReachHeader is the fixed-shape prefix of an MP_REACH_NLRI payload
// (spec.md §6.2): AFI, SAFI, next-hop length, next-hop bytes, one
// reserved byte, then NLRI. HeaderLen reports the offset where NLRI (or,
// in the dump-format "truncated" encoding, nothing) begins.
type MPReachHeader struct {
	AFI        uint16
	SAFI       byte
	NextHop    []byte
	HeaderLen  int
}

// ParseMPReachHeader decodes the fixed header of an MP_REACH_NLRI
// payload. It does not require NLRI bytes to follow, so it is safe to
// call on the "truncated" dump-format encoding described in spec.md
// §4.4.4.
func ParseMPReachHeader(payload []byte) (MPReachHeader, error) {
	if len(payload) < 4 {
		return MPReachHeader{}, fmt.Errorf("bgpattr: short mp_reach_nlri header")
	}
	afi := bitmath.Uint16(payload[0:2])
	safi := payload[2]
	nhLen := int(payload[3])
	if len(payload) < 4+nhLen+1 {
		return MPReachHeader{}, fmt.Errorf("bgpattr: mp_reach_nlri next-hop overruns payload")
	}
	nh := payload[4 : 4+nhLen]
	headerLen := 4 + nhLen + 1 // + reserved byte
	return MPReachHeader{AFI: afi, SAFI: safi, NextHop: nh, HeaderLen: headerLen}, nil
}

// LooksTruncated implements the guess-mrt heuristic from spec.md §4.4.4:
// the leading three bytes match AFI=IPv6, SAFI=unicast exactly, the most
// common shape of the dump-format "truncated" MP_REACH_NLRI encoding.
func LooksTruncated(payload []byte) bool {
	return len(payload) >= 3 && payload[0] == 0x00 && payload[1] == byte(AFIIPv6) && payload[2] == byte(SAFIUnicast)
}

// MPUnreachHeader is the fixed-shape prefix of an MP_UNREACH_NLRI
// payload: AFI, SAFI, then withdrawn NLRI.
type MPUnreachHeader struct {
	AFI       uint16
	SAFI      byte
	HeaderLen int
}

func ParseMPUnreachHeader(payload []byte) (MPUnreachHeader, error) {
	if len(payload) < 3 {
		return MPUnreachHeader{}, fmt.Errorf("bgpattr: short mp_unreach_nlri header")
	}
	return MPUnreachHeader{
		AFI:       bitmath.Uint16(payload[0:2]),
		SAFI:      payload[2],
		HeaderLen: 3,
	}, nil
}
