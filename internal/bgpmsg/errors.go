package bgpmsg

import "errors"

// Sentinel errors matching the kinds enumerated in spec.md §7. They are
// wrapped with fmt.Errorf("...: %w", ...) at call sites and latched onto
// the Message once set (see Message.latch in message.go).
var (
	ErrInvalidOp    = errors.New("bgpmsg: operation not valid in current mode/state")
	ErrBadHeader    = errors.New("bgpmsg: malformed message header")
	ErrBadType      = errors.New("bgpmsg: unrecognized message type")
	ErrBadParams    = errors.New("bgpmsg: inconsistent open parameters")
	ErrBadWithdrawn = errors.New("bgpmsg: malformed withdrawn-routes region")
	ErrBadAttr      = errors.New("bgpmsg: malformed attribute")
	ErrBadNLRI      = errors.New("bgpmsg: malformed nlri region")
)
