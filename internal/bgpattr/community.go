package bgpattr

import (
	"fmt"

	"github.com/yanet-platform/mrtfilter/bitmath"
)

// Community is a regular (32-bit) community (spec.md §3).
type Community uint32

func (c Community) String() string {
	return fmt.Sprintf("%d:%d", uint32(c)>>16, uint32(c)&0xffff)
}

// ExtCommunity is an 8-byte extended community: a high-type/low-type
// discriminant followed by 6 bytes of value.
type ExtCommunity [8]byte

func (c ExtCommunity) HighType() byte { return c[0] }
func (c ExtCommunity) LowType() byte  { return c[1] }

// ExtCommunityV6 is the IPv6-specific extended community variant, 20
// bytes wide (2-byte type + 16-byte address + 2-byte local admin).
type ExtCommunityV6 [20]byte

// LargeCommunity is the three-field large community (RFC 8092).
type LargeCommunity struct {
	GlobalAdministrator uint32
	LocalDataPart1      uint32
	LocalDataPart2      uint32
}

func (c LargeCommunity) String() string {
	return fmt.Sprintf("%d:%d:%d", c.GlobalAdministrator, c.LocalDataPart1, c.LocalDataPart2)
}

// WalkCommunities iterates a COMMUNITY attribute payload (4 bytes per
// entry).
func WalkCommunities(payload []byte, yield func(Community) bool) error {
	if len(payload)%4 != 0 {
		return fmt.Errorf("bgpattr: community payload length %d not a multiple of 4", len(payload))
	}
	for i := 0; i+4 <= len(payload); i += 4 {
		if !yield(Community(bitmath.Uint32(payload[i : i+4]))) {
			return nil
		}
	}
	return nil
}

// WalkExtCommunities iterates an EXTENDED_COMMUNITY attribute payload (8
// bytes per entry).
func WalkExtCommunities(payload []byte, yield func(ExtCommunity) bool) error {
	if len(payload)%8 != 0 {
		return fmt.Errorf("bgpattr: extended community payload length %d not a multiple of 8", len(payload))
	}
	for i := 0; i+8 <= len(payload); i += 8 {
		var c ExtCommunity
		copy(c[:], payload[i:i+8])
		if !yield(c) {
			return nil
		}
	}
	return nil
}

// WalkExtCommunitiesV6 iterates an IPv6-address-specific extended
// community payload (20 bytes per entry).
func WalkExtCommunitiesV6(payload []byte, yield func(ExtCommunityV6) bool) error {
	if len(payload)%20 != 0 {
		return fmt.Errorf("bgpattr: ipv6 extended community payload length %d not a multiple of 20", len(payload))
	}
	for i := 0; i+20 <= len(payload); i += 20 {
		var c ExtCommunityV6
		copy(c[:], payload[i:i+20])
		if !yield(c) {
			return nil
		}
	}
	return nil
}

// WalkLargeCommunities iterates a LARGE_COMMUNITY attribute payload (12
// bytes per entry).
func WalkLargeCommunities(payload []byte, yield func(LargeCommunity) bool) error {
	if len(payload)%12 != 0 {
		return fmt.Errorf("bgpattr: large community payload length %d not a multiple of 12", len(payload))
	}
	for i := 0; i+12 <= len(payload); i += 12 {
		c := LargeCommunity{
			GlobalAdministrator: bitmath.Uint32(payload[i : i+4]),
			LocalDataPart1:      bitmath.Uint32(payload[i+4 : i+8]),
			LocalDataPart2:      bitmath.Uint32(payload[i+8 : i+12]),
		}
		if !yield(c) {
			return nil
		}
	}
	return nil
}
