package mrt

import (
	"fmt"
	"sync/atomic"

	"github.com/yanet-platform/mrtfilter/bitmath"
	"github.com/yanet-platform/mrtfilter/prefix"
)

// PeerEntry is one row of a table-dump-v2 peer-index table (spec.md §3).
type PeerEntry struct {
	Type int // bit 0: address family, bit 1: AS size (4 when set)
	ID   uint32
	Addr prefix.Prefix
	AS   uint32
}

const (
	peerFlagV6    = 1 << 0
	peerFlagAS4   = 1 << 1
)

// PeerIndexTable is the parsed peer-index record for one table-dump-v2
// file. RIB records reference it by 16-bit index; ParsePeerIndex decodes
// every peer entry up front, so Peer is a direct slice lookup with no
// offset index. spec.md §5 allows a host to process many RIB records
// against one table concurrently, so the table itself is
// reference-counted across concurrent owners.
type PeerIndexTable struct {
	CollectorID uint32
	ViewName    string
	Peers       []PeerEntry

	refs int32
}

// ParsePeerIndex decodes a table-dump-v2 peer-index record payload. The
// returned table holds one reference, owned by the caller.
func ParsePeerIndex(payload []byte) (*PeerIndexTable, error) {
	if len(payload) < 6 {
		return nil, fmt.Errorf("%w: short peer-index payload", ErrBadPeerIndex)
	}
	pos := 0
	collectorID := bitmath.Uint32(payload[pos : pos+4])
	pos += 4
	viewLen := int(bitmath.Uint16(payload[pos : pos+2]))
	pos += 2
	if pos+viewLen > len(payload) {
		return nil, fmt.Errorf("%w: view name overruns payload", ErrBadPeerIndex)
	}
	viewName := string(payload[pos : pos+viewLen])
	pos += viewLen

	if pos+2 > len(payload) {
		return nil, fmt.Errorf("%w: missing peer count", ErrBadPeerIndex)
	}
	count := int(bitmath.Uint16(payload[pos : pos+2]))
	pos += 2

	peers := make([]PeerEntry, 0, count)
	for i := 0; i < count; i++ {
		if pos+1 > len(payload) {
			return nil, fmt.Errorf("%w: truncated peer entry %d", ErrBadPeerIndex, i)
		}
		peerType := int(payload[pos])
		pos++

		if pos+4 > len(payload) {
			return nil, fmt.Errorf("%w: truncated peer id in entry %d", ErrBadPeerIndex, i)
		}
		id := bitmath.Uint32(payload[pos : pos+4])
		pos += 4

		fam := prefix.V4
		addrLen := 4
		if peerType&peerFlagV6 != 0 {
			fam = prefix.V6
			addrLen = 16
		}
		if pos+addrLen > len(payload) {
			return nil, fmt.Errorf("%w: truncated peer address in entry %d", ErrBadPeerIndex, i)
		}
		addr, err := prefix.FromBytes(fam, addrLen*8, payload[pos:pos+addrLen])
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrBadPeerIndex, i, err)
		}
		pos += addrLen

		asLen := 2
		if peerType&peerFlagAS4 != 0 {
			asLen = 4
		}
		if pos+asLen > len(payload) {
			return nil, fmt.Errorf("%w: truncated peer AS in entry %d", ErrBadPeerIndex, i)
		}
		var as uint32
		if asLen == 4 {
			as = bitmath.Uint32(payload[pos : pos+4])
		} else {
			as = uint32(bitmath.Uint16(payload[pos : pos+2]))
		}
		pos += asLen

		peers = append(peers, PeerEntry{Type: peerType, ID: id, Addr: addr, AS: as})
	}

	return &PeerIndexTable{CollectorID: collectorID, ViewName: viewName, Peers: peers, refs: 1}, nil
}

// Peer looks up a peer by its 16-bit index, as referenced from a RIB entry.
func (t *PeerIndexTable) Peer(index uint16) (PeerEntry, bool) {
	if int(index) >= len(t.Peers) {
		return PeerEntry{}, false
	}
	return t.Peers[index], true
}

// Retain increments the reference count RIB records processed against
// this table hold, per spec.md §5's concurrent-RIB-processing model.
func (t *PeerIndexTable) Retain() {
	atomic.AddInt32(&t.refs, 1)
}

// Release decrements the reference count, returning true if this call
// dropped it to zero (the table is no longer needed by any RIB record).
func (t *PeerIndexTable) Release() bool {
	return atomic.AddInt32(&t.refs, -1) == 0
}
