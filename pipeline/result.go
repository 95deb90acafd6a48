package pipeline

import (
	"github.com/yanet-platform/mrtfilter/internal/mrt"
	"github.com/yanet-platform/mrtfilter/prefix"
)

// Result is one value the pipeline hands to its caller: either a
// surviving message's rendered text plus the prefix it carried, or (at
// end of file) one retained peer-index entry (spec.md §4.7 step 4).
type Result struct {
	File string

	// Set for a surviving message.
	Timestamp uint32
	Prefix    prefix.Prefix
	Text      string

	// Set for an end-of-file peer-index emission; Peer.AS is zero and
	// Peer.Addr is the zero Prefix for message-carrying results.
	Peer mrt.PeerEntry
}
