package bgpattr

import (
	"fmt"

	"github.com/yanet-platform/mrtfilter/bitmath"
)

// ASPathEntry is a single (segment-type, segment-index, AS) tuple yielded
// by the AS-path iterator (spec.md §4.4.1).
type ASPathEntry struct {
	SegType  byte
	SegIndex int
	AS       uint32
}

// WalkASPath iterates the segments of an AS_PATH/AS4_PATH attribute
// payload, yielding one ASPathEntry per AS number. asWidth is 2 or 4
// (bytes per AS in the wire encoding); the returned AS is always widened
// to uint32.
func WalkASPath(payload []byte, asWidth int, yield func(ASPathEntry) bool) error {
	i := 0
	segIndex := 0
	for i < len(payload) {
		if i+2 > len(payload) {
			return fmt.Errorf("bgpattr: truncated as-path segment header")
		}
		segType := payload[i]
		count := int(payload[i+1])
		i += 2
		need := count * asWidth
		if i+need > len(payload) {
			return fmt.Errorf("bgpattr: truncated as-path segment body")
		}
		for j := 0; j < count; j++ {
			var as uint32
			if asWidth == 4 {
				as = bitmath.Uint32(payload[i : i+4])
			} else {
				as = uint32(bitmath.Uint16(payload[i : i+2]))
			}
			i += asWidth
			if !yield(ASPathEntry{SegType: segType, SegIndex: segIndex, AS: as}) {
				return nil
			}
		}
		segIndex++
	}
	return nil
}

// CountASes sums the AS count across all segments of an AS_PATH payload,
// counting a SET segment as exactly 1 (the rule used by the real-AS-path
// length computation in spec.md §4.4.1).
func CountASes(payload []byte, asWidth int) (int, error) {
	i, total := 0, 0
	for i < len(payload) {
		if i+2 > len(payload) {
			return 0, fmt.Errorf("bgpattr: truncated as-path segment header")
		}
		segType := payload[i]
		count := int(payload[i+1])
		i += 2 + count*asWidth
		if i > len(payload) {
			return 0, fmt.Errorf("bgpattr: truncated as-path segment body")
		}
		if segType == SegSet {
			total++
		} else {
			total += count
		}
	}
	return total, nil
}

// Segments splits an AS_PATH payload into its ordered list of
// (type, ases) segments.
type Segment struct {
	Type byte
	ASes []uint32
}

func ParseSegments(payload []byte, asWidth int) ([]Segment, error) {
	var segs []Segment
	i := 0
	for i < len(payload) {
		if i+2 > len(payload) {
			return nil, fmt.Errorf("bgpattr: truncated as-path segment header")
		}
		segType := payload[i]
		count := int(payload[i+1])
		i += 2
		need := count * asWidth
		if i+need > len(payload) {
			return nil, fmt.Errorf("bgpattr: truncated as-path segment body")
		}
		seg := Segment{Type: segType}
		for j := 0; j < count; j++ {
			var as uint32
			if asWidth == 4 {
				as = bitmath.Uint32(payload[i : i+4])
			} else {
				as = uint32(bitmath.Uint16(payload[i : i+2]))
			}
			i += asWidth
			seg.ASes = append(seg.ASes, as)
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

// EncodeSegments renders segments back into AS_PATH wire bytes with the
// given per-AS width.
func EncodeSegments(segs []Segment, asWidth int) []byte {
	var out []byte
	for _, s := range segs {
		out = append(out, s.Type, byte(len(s.ASes)))
		for _, as := range s.ASes {
			var buf [4]byte
			if asWidth == 4 {
				bitmath.PutUint32(buf[:4], as)
				out = append(out, buf[:4]...)
			} else {
				bitmath.PutUint16(buf[:2], uint16(as))
				out = append(out, buf[:2]...)
			}
		}
	}
	return out
}

// FlattenASes widens payload's AS numbers into a single slice, in wire
// order, counting every entry of every segment (including SET members)
// individually.
func FlattenASes(payload []byte, asWidth int) ([]uint32, error) {
	var out []uint32
	err := WalkASPath(payload, asWidth, func(e ASPathEntry) bool {
		out = append(out, e.AS)
		return true
	})
	return out, err
}

// MergeRealASPath reconstructs the "real" AS path from an AS_PATH
// (asPathWidth-byte ASes, AS_TRANS where needed) and an AS4_PATH
// (4-byte ASes) recorded separately: the trailing entries of the
// flattened AS_PATH are replaced by the flattened AS4_PATH. AS4_PATH is
// applied whenever it is non-empty; AGGREGATOR and AS4_AGGREGATOR are
// not consulted, and both lengths count every AS individually, AS_SET
// members included. If AS4_PATH has at least as many ASes as AS_PATH,
// the flattened AS4_PATH alone is returned. If as4Path is empty, the
// widened AS_PATH is returned unchanged.
func MergeRealASPath(asPath []byte, as4Path []byte, asPathWidth int) ([]uint32, error) {
	old, err := FlattenASes(asPath, asPathWidth)
	if err != nil {
		return nil, err
	}
	if len(as4Path) == 0 {
		return old, nil
	}
	add, err := FlattenASes(as4Path, 4)
	if err != nil {
		return nil, err
	}
	if len(add) >= len(old) {
		return add, nil
	}
	merged := make([]uint32, 0, len(old))
	merged = append(merged, old[:len(old)-len(add)]...)
	merged = append(merged, add...)
	return merged, nil
}

// Narrow32To16 rewrites a 32-bit-AS-width AS_PATH payload into 16-bit
// width, verifying every AS's high 16 bits are zero (spec.md §4.4.4
// rebuild_from_dump step 2, AS_PATH handling). It fails with an error
// identifying the offending AS otherwise.
func Narrow32To16(payload []byte) ([]byte, error) {
	segs, err := ParseSegments(payload, 4)
	if err != nil {
		return nil, err
	}
	for _, s := range segs {
		for _, as := range s.ASes {
			if as > 0xffff {
				return nil, fmt.Errorf("bgpattr: as-path entry %d does not fit in 16 bits", as)
			}
		}
	}
	return EncodeSegments(segs, 2), nil
}
