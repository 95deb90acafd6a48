// Package mrt implements the container record codec from spec.md §3/§4.6:
// per-record header parsing, type/subtype validation against a static mask
// table, and the peer-index/RIB-entry views table-dump-v2 files are built
// from. It hands attribute lists and prefixes up to bgpmsg for message
// reconstruction; it does not call rebuild_from_dump itself (spec.md §4.7
// assigns that to the pipeline).
package mrt

import (
	"fmt"
	"io"

	"github.com/yanet-platform/mrtfilter/bitmath"
	"github.com/yanet-platform/mrtfilter/ioh"
)

// Record types recognized by the core (spec.md §3), using the wire values
// from the container format this library reads.
const (
	TypeZebraBGP    = 5  // deprecated Zebra-BGP dump
	TypeTableDump   = 12 // legacy table-dump
	TypeTableDumpV2 = 13
	TypeBGP4MP      = 16 // live-format routing
	TypeBGP4MPExt   = 17 // live-format routing, extended timestamp
)

// Subtypes, namespaced per type.
const (
	TableDumpAFIIPv4 = 1
	TableDumpAFIIPv6 = 2
)

const (
	TableDumpV2PeerIndex          = 1
	TableDumpV2RIBIPv4Unicast     = 2
	TableDumpV2RIBIPv4Multicast   = 3
	TableDumpV2RIBIPv6Unicast     = 4
	TableDumpV2RIBIPv6Multicast   = 5
	TableDumpV2RIBGeneric         = 6
	TableDumpV2RIBIPv4UnicastAddPath   = 8
	TableDumpV2RIBIPv4MulticastAddPath = 9
	TableDumpV2RIBIPv6UnicastAddPath   = 10
	TableDumpV2RIBIPv6MulticastAddPath = 11
)

const (
	BGP4MPStateChange        = 0
	BGP4MPMessage            = 1
	BGP4MPMessageAS4         = 4
	BGP4MPStateChangeAS4     = 5
	BGP4MPMessageLocal       = 6
	BGP4MPMessageAS4Local    = 7
	BGP4MPMessageAddPath     = 8
	BGP4MPMessageAS4AddPath  = 9
)

const (
	ZebraBGPStateChange = 2
	ZebraBGPMessage     = 1
)

// subtypeFlags records the per-(type,subtype) constellation spec.md §4.6
// asks the codec to validate and act on.
type subtypeFlags struct {
	Valid          bool
	WrapsBGP       bool // payload is (a view of) a wire BGP message
	AS32           bool
	HasState       bool // state-change record, not an update
	NeedsPeerIndex bool
	IsPeerIndex    bool
	HasAddPath     bool
}

type subtypeKey struct {
	typ     uint16
	subtype uint16
}

var subtypeTable = map[subtypeKey]subtypeFlags{
	{TypeTableDump, TableDumpAFIIPv4}: {Valid: true},
	{TypeTableDump, TableDumpAFIIPv6}: {Valid: true},

	{TypeTableDumpV2, TableDumpV2PeerIndex}:        {Valid: true, IsPeerIndex: true},
	{TypeTableDumpV2, TableDumpV2RIBIPv4Unicast}:   {Valid: true, NeedsPeerIndex: true},
	{TypeTableDumpV2, TableDumpV2RIBIPv4Multicast}: {Valid: true, NeedsPeerIndex: true},
	{TypeTableDumpV2, TableDumpV2RIBIPv6Unicast}:   {Valid: true, NeedsPeerIndex: true},
	{TypeTableDumpV2, TableDumpV2RIBIPv6Multicast}: {Valid: true, NeedsPeerIndex: true},
	{TypeTableDumpV2, TableDumpV2RIBGeneric}:       {Valid: true, NeedsPeerIndex: true, AS32: true},
	{TypeTableDumpV2, TableDumpV2RIBIPv4UnicastAddPath}:   {Valid: true, NeedsPeerIndex: true, HasAddPath: true},
	{TypeTableDumpV2, TableDumpV2RIBIPv4MulticastAddPath}: {Valid: true, NeedsPeerIndex: true, HasAddPath: true},
	{TypeTableDumpV2, TableDumpV2RIBIPv6UnicastAddPath}:   {Valid: true, NeedsPeerIndex: true, HasAddPath: true},
	{TypeTableDumpV2, TableDumpV2RIBIPv6MulticastAddPath}: {Valid: true, NeedsPeerIndex: true, HasAddPath: true},

	{TypeBGP4MP, BGP4MPStateChange}:       {Valid: true, HasState: true},
	{TypeBGP4MP, BGP4MPMessage}:           {Valid: true, WrapsBGP: true},
	{TypeBGP4MP, BGP4MPMessageAS4}:        {Valid: true, WrapsBGP: true, AS32: true},
	{TypeBGP4MP, BGP4MPStateChangeAS4}:    {Valid: true, HasState: true, AS32: true},
	{TypeBGP4MP, BGP4MPMessageLocal}:      {Valid: true, WrapsBGP: true},
	{TypeBGP4MP, BGP4MPMessageAS4Local}:   {Valid: true, WrapsBGP: true, AS32: true},
	{TypeBGP4MP, BGP4MPMessageAddPath}:    {Valid: true, WrapsBGP: true, HasAddPath: true},
	{TypeBGP4MP, BGP4MPMessageAS4AddPath}: {Valid: true, WrapsBGP: true, AS32: true, HasAddPath: true},

	{TypeZebraBGP, ZebraBGPMessage}:     {Valid: true, WrapsBGP: true},
	{TypeZebraBGP, ZebraBGPStateChange}: {Valid: true, HasState: true},
}

// extendedTypes records which record types carry a 4-byte microseconds
// field between the header and the payload (spec.md §6.1).
var extendedTypes = map[uint16]bool{
	TypeBGP4MPExt: true,
}

// Record is one parsed container record: header fields plus its raw
// payload view (spec.md §3 "Container record").
type Record struct {
	Timestamp uint32
	Micros    uint32
	Type      uint16
	Subtype   uint16
	Payload   []byte
	Flags     subtypeFlags
}

func readFull(h ioh.Handle, buf []byte) error {
	total := 0
	for total < len(buf) {
		n, err := h.Read(buf[total:])
		total += n
		if err != nil {
			if err == io.EOF && total == len(buf) {
				return nil
			}
			return err
		}
		if n == 0 {
			return fmt.Errorf("mrt: short read (%d of %d bytes)", total, len(buf))
		}
	}
	return nil
}

// ReadRecord reads and validates one record from h. io.EOF (unwrapped) is
// returned when there is no more data at a record boundary.
func ReadRecord(h ioh.Handle) (*Record, error) {
	var hdr [12]byte
	if err := readFull(h, hdr[:]); err != nil {
		return nil, err
	}

	r := &Record{
		Timestamp: bitmath.Uint32(hdr[0:4]),
		Type:      bitmath.Uint16(hdr[4:6]),
		Subtype:   bitmath.Uint16(hdr[6:8]),
	}
	length := bitmath.Uint32(hdr[8:12])

	flags, ok := subtypeTable[subtypeKey{r.Type, r.Subtype}]
	if !ok || !flags.Valid {
		return nil, fmt.Errorf("mrt: %w: type %d subtype %d", ErrBadType, r.Type, r.Subtype)
	}
	r.Flags = flags

	payloadLen := length
	if extendedTypes[r.Type] {
		var micros [4]byte
		if err := readFull(h, micros[:]); err != nil {
			return nil, err
		}
		r.Micros = bitmath.Uint32(micros[:])
		if payloadLen < 4 {
			return nil, fmt.Errorf("mrt: %w: extended record shorter than its microseconds field", ErrBadHeader)
		}
		payloadLen -= 4
	}

	payload := make([]byte, payloadLen)
	if err := readFull(h, payload); err != nil {
		return nil, err
	}
	r.Payload = payload
	return r, nil
}
