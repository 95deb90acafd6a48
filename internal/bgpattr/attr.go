// Package bgpattr implements the typed path-attribute codec from
// spec.md §3/§4.4: attribute header parsing, AS-path segment iteration,
// community variants, and the MP_REACH/MP_UNREACH header shapes that the
// update message codec and rebuild_from_dump build on.
package bgpattr

import (
	"fmt"

	"github.com/yanet-platform/mrtfilter/bitmath"
)

// Well-known attribute type codes (spec.md §3).
const (
	Origin              = 1
	ASPath              = 2
	NextHop             = 3
	MultiExitDisc       = 4
	LocalPref           = 5
	AtomicAggregate     = 6
	Aggregator          = 7
	CommunityCode       = 8
	OriginatorID        = 9
	ClusterList         = 10
	MPReachNLRI         = 14
	MPUnreachNLRI       = 15
	ExtendedCommunity   = 16
	AS4Path             = 17
	AS4Aggregator       = 18
	ExtendedCommunityV6 = 25
	LargeCommunityCode  = 32
)

// Flags bit positions (spec.md §3/§6.2).
const (
	FlagExtendedLength = 1 << 4
	FlagPartial        = 1 << 5
	FlagTransitive     = 1 << 6
	FlagOptional       = 1 << 7
)

// ASTrans is the reserved AS number signalling "path attribute carries
// AS_TRANS" in the AGGREGATOR attribute of an ASN32-unaware speaker
// (RFC 6793), used by the real-AS-path reconstruction rule.
const ASTrans = 23456

// Origin attribute values.
const (
	OriginIGP        = 0
	OriginEGP        = 1
	OriginIncomplete = 2
)

// AS-path segment types.
const (
	SegSet      = 1
	SegSequence = 2
)

// Header decodes an attribute's flags/type/length fields from the start
// of data, returning the length of the header itself (3 bytes, or 4 if
// the extended-length flag is set) and the declared payload length.
func Header(data []byte) (flags, code byte, payloadLen, headerLen int, err error) {
	if len(data) < 3 {
		return 0, 0, 0, 0, fmt.Errorf("bgpattr: short attribute header (%d bytes)", len(data))
	}
	flags, code = data[0], data[1]
	if flags&FlagExtendedLength != 0 {
		if len(data) < 4 {
			return 0, 0, 0, 0, fmt.Errorf("bgpattr: short extended attribute header")
		}
		payloadLen = int(bitmath.Uint16(data[2:4]))
		headerLen = 4
	} else {
		payloadLen = int(data[2])
		headerLen = 3
	}
	return flags, code, payloadLen, headerLen, nil
}

// MaxPayloadLen returns the maximum payload length representable given
// whether the extended-length flag is set (spec.md §4.4.2: "bound-checking
// against the attribute's maximum length: 255 or 65535").
func MaxPayloadLen(extended bool) int {
	if extended {
		return 65535
	}
	return 255
}

// PutHeader writes an attribute header (flags auto-adjusted for
// extended-length based on payloadLen) and returns the header length.
func PutHeader(dst []byte, flags, code byte, payloadLen int) (int, error) {
	if payloadLen > 255 {
		flags |= FlagExtendedLength
	}
	if flags&FlagExtendedLength != 0 {
		if len(dst) < 4 {
			return 0, fmt.Errorf("bgpattr: dst too small for extended header")
		}
		dst[0], dst[1] = flags, code
		bitmath.PutUint16(dst[2:4], uint16(payloadLen))
		return 4, nil
	}
	if len(dst) < 3 {
		return 0, fmt.Errorf("bgpattr: dst too small for header")
	}
	dst[0], dst[1], dst[2] = flags, code, byte(payloadLen)
	return 3, nil
}
