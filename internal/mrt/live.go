package mrt

import (
	"fmt"

	"github.com/yanet-platform/mrtfilter/bitmath"
	"github.com/yanet-platform/mrtfilter/prefix"
)

// LiveHeader is the BGP4MP/BGP4MP_ET/Zebra-BGP sub-header preceding the
// wrapped BGP message or state-change codes (spec.md §4.7: "extract peer
// AS/address from sub-header").
type LiveHeader struct {
	PeerAS    uint32
	LocalAS   uint32
	IfIndex   uint16
	PeerAddr  prefix.Prefix
	LocalAddr prefix.Prefix
	Rest      []byte // wrapped BGP message bytes, or state-change old/new codes
}

// ParseLiveHeader decodes r's sub-header. r must be a BGP4MP/BGP4MP_ET or
// Zebra-BGP record (r.IsLiveFormat()).
func ParseLiveHeader(r *Record) (LiveHeader, error) {
	p := r.Payload
	asLen := 2
	if r.Flags.AS32 {
		asLen = 4
	}
	need := asLen*2 + 2 + 2
	if len(p) < need {
		return LiveHeader{}, fmt.Errorf("%w: short live sub-header", ErrBadHeader)
	}
	pos := 0
	readAS := func() uint32 {
		var v uint32
		if asLen == 4 {
			v = bitmath.Uint32(p[pos : pos+4])
		} else {
			v = uint32(bitmath.Uint16(p[pos : pos+2]))
		}
		pos += asLen
		return v
	}
	peerAS := readAS()
	localAS := readAS()

	ifIndex := bitmath.Uint16(p[pos : pos+2])
	pos += 2
	afi := bitmath.Uint16(p[pos : pos+2])
	pos += 2

	fam := prefix.V4
	addrLen := 4
	if afi == 2 {
		fam = prefix.V6
		addrLen = 16
	}
	if len(p) < pos+addrLen*2 {
		return LiveHeader{}, fmt.Errorf("%w: addresses overrun live sub-header", ErrBadHeader)
	}
	peerAddr, err := prefix.FromBytes(fam, addrLen*8, p[pos:pos+addrLen])
	if err != nil {
		return LiveHeader{}, fmt.Errorf("%w: %v", ErrBadHeader, err)
	}
	pos += addrLen
	localAddr, err := prefix.FromBytes(fam, addrLen*8, p[pos:pos+addrLen])
	if err != nil {
		return LiveHeader{}, fmt.Errorf("%w: %v", ErrBadHeader, err)
	}
	pos += addrLen

	return LiveHeader{
		PeerAS:    peerAS,
		LocalAS:   localAS,
		IfIndex:   ifIndex,
		PeerAddr:  peerAddr,
		LocalAddr: localAddr,
		Rest:      p[pos:],
	}, nil
}
