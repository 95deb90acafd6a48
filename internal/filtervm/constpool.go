package filtervm

import "github.com/yanet-platform/mrtfilter/prefix"

// ConstKind tags a ConstValue's variant, mirroring spec.md §3's "variant-
// typed values: 32-bit integers, prefixes, address-families, AS numbers,
// path-ids".
type ConstKind byte

const (
	ConstInt ConstKind = iota
	ConstPrefix
	ConstFamily
	ConstAS
	ConstPathID
	ConstASVector     // unpacked onto the accumulator for the ASPMATCH family
	ConstCommunitySet
)

// ConstValue is one entry of the image's constant pool.
type ConstValue struct {
	Kind    ConstKind
	Int     uint32
	Prefix  prefix.Prefix
	Family  prefix.Family
	ASVec   []uint32
	Comms   []string // communities packed as a comparable byte-string per entry
	CommKind int     // CommRegular/CommExtended/CommExtendedV6/CommLarge, for ConstCommunitySet
}

// ConstPool is an ordered, indexable set of constants, referenced by
// LOADK/ASCMP/ADDRCMP/PFXCMP/PFXCONTAINS/ADDRCONTAINS/ASCONTAINS/COMMEXACT
// operands.
type ConstPool []ConstValue

func (p ConstPool) At(i int) (ConstValue, bool) {
	if i < 0 || i >= len(p) {
		return ConstValue{}, false
	}
	return p[i], true
}
