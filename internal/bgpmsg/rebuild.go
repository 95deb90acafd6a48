package bgpmsg

import (
	"fmt"

	"github.com/yanet-platform/mrtfilter/internal/bgpattr"
	"github.com/yanet-platform/mrtfilter/prefix"
)

// RebuildFlags controls rebuild_from_dump's handling of the source
// attribute list (spec.md §4.4.4).
type RebuildFlags uint8

const (
	// RebuildStdMRT forces the MP_REACH_NLRI source payload to be
	// treated as the truncated dump encoding, overriding the guess.
	RebuildStdMRT RebuildFlags = 1 << iota
	// RebuildFullMPReach forces the MP_REACH_NLRI source payload to be
	// treated as a full, wire-shaped payload.
	RebuildFullMPReach
	// RebuildStripUnreach discards any MP_UNREACH_NLRI from the
	// rebuilt attributes and suppresses its offset-table entry.
	RebuildStripUnreach
	// RebuildLegacyMRT marks the source as a legacy table-dump entry;
	// implies RebuildFullMPReach and disables ASN-32/add-path.
	RebuildLegacyMRT
)

func (f RebuildFlags) has(bit RebuildFlags) bool { return f&bit != 0 }

// nlriValue extracts the plain prefix and add-path identifier (0 if
// none) from whatever readPrefixItem-shaped value the caller passed.
func nlriValue(nlri any) (prefix.Prefix, uint32, error) {
	switch v := nlri.(type) {
	case prefix.Prefix:
		return v, 0, nil
	case *prefix.AddPathPrefix:
		return v.Prefix, v.PathID, nil
	case prefix.AddPathPrefix:
		return v.Prefix, v.PathID, nil
	default:
		return prefix.Prefix{}, 0, fmt.Errorf("bgpmsg: rebuild_from_dump: unsupported nlri value type %T", nlri)
	}
}

// RebuildFromDump constructs a full update message from a table-dump
// RIB entry's attribute list and NLRI, per spec.md §4.4.4. msgFlags
// governs the resulting Message's ASN-32 / add-path interpretation
// (RebuildLegacyMRT overrides both to off regardless of what is
// passed).
func RebuildFromDump(nlri any, attributeBytes []byte, msgFlags OpenFlags, flags RebuildFlags) (*Message, error) {
	if flags.has(RebuildLegacyMRT) {
		msgFlags &^= FlagASN32 | FlagAddPath
		flags |= RebuildFullMPReach
	}

	np, pathID, err := nlriValue(nlri)
	if err != nil {
		return nil, err
	}

	m, err := OpenWrite(TypeUpdate, msgFlags)
	if err != nil {
		return nil, err
	}
	if err := m.BeginWithdrawn(); err != nil {
		return nil, err
	}
	if err := m.EndWithdrawn(); err != nil {
		return nil, err
	}
	if err := m.BeginAttributes(); err != nil {
		return nil, err
	}

	sawMPReach := false

	pos := 0
	for pos < len(attributeBytes) {
		flagsByte, code, plen, hlen, err := bgpattr.Header(attributeBytes[pos:])
		if err != nil {
			return nil, fmt.Errorf("bgpmsg: rebuild_from_dump: %w: %v", ErrBadAttr, err)
		}
		payloadStart := pos + hlen
		payloadEnd := payloadStart + plen
		if payloadEnd > len(attributeBytes) {
			return nil, fmt.Errorf("bgpmsg: rebuild_from_dump: %w: attribute length overruns source", ErrBadAttr)
		}
		payload := attributeBytes[payloadStart:payloadEnd]
		pos = payloadEnd

		switch code {
		case bgpattr.MPReachNLRI:
			sawMPReach = true
			rebuilt, err := rebuildMPReach(payload, np, pathID, msgFlags.has(FlagAddPath), flags)
			if err != nil {
				return nil, fmt.Errorf("bgpmsg: rebuild_from_dump: %w: %v", ErrBadAttr, err)
			}
			if err := m.PutAttribute(flagsByte, code, rebuilt); err != nil {
				return nil, err
			}

		case bgpattr.MPUnreachNLRI:
			if flags.has(RebuildStripUnreach) {
				continue
			}
			if err := m.PutAttribute(flagsByte, code, payload); err != nil {
				return nil, err
			}

		case bgpattr.ASPath:
			if !msgFlags.has(FlagASN32) && !flags.has(RebuildLegacyMRT) {
				narrow, err := bgpattr.Narrow32To16(payload)
				if err != nil {
					return nil, fmt.Errorf("bgpmsg: rebuild_from_dump: %w: %v", ErrBadAttr, err)
				}
				if err := m.PutAttribute(flagsByte, code, narrow); err != nil {
					return nil, err
				}
				continue
			}
			if err := m.PutAttribute(flagsByte, code, payload); err != nil {
				return nil, err
			}

		default:
			if err := m.PutAttribute(flagsByte, code, payload); err != nil {
				return nil, err
			}
		}
	}

	m.offsets.markAllMissing()

	if err := m.EndAttributes(); err != nil {
		return nil, err
	}

	if np.Family == prefix.V4 {
		if err := m.PutNLRI(np, pathID); err != nil {
			return nil, err
		}
	} else if !sawMPReach {
		return nil, fmt.Errorf("bgpmsg: rebuild_from_dump: %w: v6 nlri without mp_reach_nlri in source", ErrBadAttr)
	}

	return m, nil
}

// rebuildMPReach reconstructs an MP_REACH_NLRI payload from a source
// payload that is either the dump's truncated encoding (AFI, SAFI,
// next-hop-length, next-hop bytes only) or a full wire-shaped payload,
// appending the rebuilt NLRI entry for np/pathID.
func rebuildMPReach(source []byte, np prefix.Prefix, pathID uint32, addPath bool, flags RebuildFlags) ([]byte, error) {
	truncated := bgpattr.LooksTruncated(source)
	if flags.has(RebuildStdMRT) {
		truncated = true
	} else if flags.has(RebuildFullMPReach) {
		truncated = false
	}

	var afi, safi, nhLen, nh []byte
	var out []byte

	if truncated {
		if len(source) < 4 {
			return nil, fmt.Errorf("short truncated mp_reach_nlri source")
		}
		nhLength := int(source[3])
		if len(source) < 4+nhLength {
			return nil, fmt.Errorf("truncated mp_reach_nlri next-hop overruns source")
		}
		afi = source[0:2]
		safi = source[2:3]
		nhLen = source[3:4]
		nh = source[4 : 4+nhLength]
		out = append(out, afi...)
		out = append(out, safi...)
		out = append(out, nhLen...)
		out = append(out, nh...)
		out = append(out, 0) // reserved
	} else {
		hdr, err := bgpattr.ParseMPReachHeader(source)
		if err != nil {
			return nil, err
		}
		if len(source) < hdr.HeaderLen {
			return nil, fmt.Errorf("mp_reach_nlri source shorter than its own header")
		}
		out = append(out, source[:hdr.HeaderLen]...)
	}

	out = append(out, encodePrefixItem(np, pathID, addPath)...)
	return out, nil
}
