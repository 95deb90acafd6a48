package mrt

// Kind classifies a Record for the processing pipeline's subtype dispatch
// (spec.md §4.7): peer-index vs. RIB-or-legacy-table vs. live-format
// routing vs. a state-change record.
type Kind int

const (
	KindUnknown Kind = iota
	KindPeerIndex
	KindTableRIB   // table-dump-v2 RIB record or legacy table-dump record
	KindUpdate     // live-format or Zebra-BGP record wrapping a BGP message
	KindStateChange
)

// Classify reports what r is for pipeline dispatch purposes.
func (r *Record) Classify() Kind {
	switch {
	case r.Flags.IsPeerIndex:
		return KindPeerIndex
	case r.Type == TypeTableDumpV2 || r.Type == TypeTableDump:
		return KindTableRIB
	case r.Flags.HasState:
		return KindStateChange
	case r.Flags.WrapsBGP:
		return KindUpdate
	default:
		return KindUnknown
	}
}

// IsLiveFormat reports whether r came from a live-routing stream
// (BGP4MP/BGP4MP_ET or the deprecated Zebra-BGP type), as opposed to a
// point-in-time table dump.
func (r *Record) IsLiveFormat() bool {
	return r.Type == TypeBGP4MP || r.Type == TypeBGP4MPExt || r.Type == TypeZebraBGP
}
