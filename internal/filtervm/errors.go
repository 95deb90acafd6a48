package filtervm

import "errors"

// ErrBadPacket is vm-bad-packet (spec.md §4.5): the message being
// evaluated is malformed in a way the VM can detect mid-execution.
// Recoverable — the pipeline discards the message and continues.
var ErrBadPacket = errors.New("filtervm: message malformed for this op")

// ErrIllegalOpcode is vm-illegal-opcode: the image itself is corrupt.
// Fatal for the image; the pipeline should not keep evaluating it.
var ErrIllegalOpcode = errors.New("filtervm: illegal opcode")
