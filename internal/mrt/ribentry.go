package mrt

import (
	"fmt"

	"github.com/yanet-platform/mrtfilter/bitmath"
	"github.com/yanet-platform/mrtfilter/prefix"
)

// RIBEntry is one route within a table-dump-v2 RIB record or a fully
// decoded legacy table-dump record (spec.md §3 "RIB entry").
type RIBEntry struct {
	PeerIndex      uint16 // only meaningful for table-dump-v2 entries
	OriginatedTime uint32
	Prefix         prefix.Prefix
	PathID         uint32 // add-path identifier, 0 if not in use
	Attributes     []byte
}

func ribFamily(subtype uint16) prefix.Family {
	switch subtype {
	case TableDumpV2RIBIPv6Unicast, TableDumpV2RIBIPv6Multicast, TableDumpV2RIBIPv6UnicastAddPath, TableDumpV2RIBIPv6MulticastAddPath:
		return prefix.V6
	default:
		return prefix.V4
	}
}

// RIBRecordEntries decodes every entry of a table-dump-v2 RIB record
// (TABLE_DUMP_V2 RIB_* subtypes), applying r.Flags.HasAddPath as needed.
func RIBRecordEntries(r *Record) ([]RIBEntry, error) {
	if r.Type != TypeTableDumpV2 || !r.Flags.Valid || r.Flags.IsPeerIndex {
		return nil, fmt.Errorf("%w: not a table-dump-v2 rib record", ErrBadRIBEntry)
	}
	fam := ribFamily(r.Subtype)

	payload := r.Payload
	if len(payload) < 4 {
		return nil, fmt.Errorf("%w: short rib record header", ErrBadRIBEntry)
	}
	pos := 4 // sequence number, unused by callers
	if len(payload) < pos+1 {
		return nil, fmt.Errorf("%w: missing prefix length", ErrBadRIBEntry)
	}
	bitLen := int(payload[pos])
	pos++
	byteLen := (bitLen + 7) / 8
	if len(payload) < pos+byteLen {
		return nil, fmt.Errorf("%w: prefix bytes overrun payload", ErrBadRIBEntry)
	}
	base, err := prefix.FromBytes(fam, bitLen, payload[pos:pos+byteLen])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRIBEntry, err)
	}
	pos += byteLen

	if len(payload) < pos+2 {
		return nil, fmt.Errorf("%w: missing entry count", ErrBadRIBEntry)
	}
	count := int(bitmath.Uint16(payload[pos : pos+2]))
	pos += 2

	entries := make([]RIBEntry, 0, count)
	for i := 0; i < count; i++ {
		if len(payload) < pos+2 {
			return nil, fmt.Errorf("%w: truncated entry %d header", ErrBadRIBEntry, i)
		}
		peerIdx := bitmath.Uint16(payload[pos : pos+2])
		pos += 2

		if len(payload) < pos+4 {
			return nil, fmt.Errorf("%w: truncated entry %d time", ErrBadRIBEntry, i)
		}
		originated := bitmath.Uint32(payload[pos : pos+4])
		pos += 4

		var pathID uint32
		if r.Flags.HasAddPath {
			if len(payload) < pos+4 {
				return nil, fmt.Errorf("%w: truncated entry %d path id", ErrBadRIBEntry, i)
			}
			pathID = bitmath.Uint32(payload[pos : pos+4])
			pos += 4
		}

		if len(payload) < pos+2 {
			return nil, fmt.Errorf("%w: truncated entry %d attr length", ErrBadRIBEntry, i)
		}
		attrLen := int(bitmath.Uint16(payload[pos : pos+2]))
		pos += 2
		if len(payload) < pos+attrLen {
			return nil, fmt.Errorf("%w: entry %d attributes overrun payload", ErrBadRIBEntry, i)
		}
		attrs := payload[pos : pos+attrLen]
		pos += attrLen

		entries = append(entries, RIBEntry{
			PeerIndex:      peerIdx,
			OriginatedTime: originated,
			Prefix:         base,
			PathID:         pathID,
			Attributes:     attrs,
		})
	}
	return entries, nil
}

// LegacyTableDumpEntry decodes a single legacy table-dump record
// (TYPE_TABLE_DUMP), which packs one route and its inline peer
// information per record rather than indexing into a shared peer table.
type LegacyTableDumpEntry struct {
	ViewNumber uint16
	SeqNumber  uint16
	Prefix     prefix.Prefix
	Status     byte
	Originated uint32
	PeerAddr   prefix.Prefix
	PeerAS     uint16
	Attributes []byte
}

// ParseLegacyTableDump decodes a TYPE_TABLE_DUMP record payload. Peer AS
// numbers in this legacy format are always 16-bit (spec.md §4.6).
func ParseLegacyTableDump(r *Record) (*LegacyTableDumpEntry, error) {
	if r.Type != TypeTableDump {
		return nil, fmt.Errorf("%w: not a legacy table-dump record", ErrBadRIBEntry)
	}
	fam := prefix.V4
	if r.Subtype == TableDumpAFIIPv6 {
		fam = prefix.V6
	}
	addrLen := 4
	if fam == prefix.V6 {
		addrLen = 16
	}

	p := r.Payload
	need := 2 + 2 + addrLen + 1 + 1 + 4 + addrLen + 2 + 2
	if len(p) < need {
		return nil, fmt.Errorf("%w: short legacy table-dump record", ErrBadRIBEntry)
	}
	pos := 0
	viewNum := bitmath.Uint16(p[pos : pos+2])
	pos += 2
	seq := bitmath.Uint16(p[pos : pos+2])
	pos += 2

	addr, err := prefix.FromBytes(fam, addrLen*8, p[pos:pos+addrLen])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRIBEntry, err)
	}
	pos += addrLen

	bitLen := int(p[pos])
	pos++
	pfx, err := prefix.FromBytes(fam, bitLen, addr.Bytes[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRIBEntry, err)
	}

	status := p[pos]
	pos++
	originated := bitmath.Uint32(p[pos : pos+4])
	pos += 4

	peerAddr, err := prefix.FromBytes(fam, addrLen*8, p[pos:pos+addrLen])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRIBEntry, err)
	}
	pos += addrLen

	peerAS := bitmath.Uint16(p[pos : pos+2])
	pos += 2

	attrLen := int(bitmath.Uint16(p[pos : pos+2]))
	pos += 2
	if len(p) < pos+attrLen {
		return nil, fmt.Errorf("%w: attributes overrun legacy record", ErrBadRIBEntry)
	}
	attrs := p[pos : pos+attrLen]

	return &LegacyTableDumpEntry{
		ViewNumber: viewNum,
		SeqNumber:  seq,
		Prefix:     pfx,
		Status:     status,
		Originated: originated,
		PeerAddr:   peerAddr,
		PeerAS:     peerAS,
		Attributes: attrs,
	}, nil
}
