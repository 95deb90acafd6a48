package mrt

import "errors"

// Sentinel errors matching the record-level error kinds in spec.md §7.
var (
	ErrBadHeader     = errors.New("mrt: malformed record header")
	ErrBadType       = errors.New("mrt: unrecognized type/subtype combination")
	ErrNoPeerIndex   = errors.New("mrt: rib record seen before any peer-index record")
	ErrDupPeerIndex  = errors.New("mrt: duplicate peer-index record")
	ErrBadPeerIndex  = errors.New("mrt: malformed peer-index record")
	ErrBadRIBEntry   = errors.New("mrt: malformed rib entry")
	ErrPeerIndexGone = errors.New("mrt: peer-index table already released")
)
