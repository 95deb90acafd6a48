// Package bgpmsg implements the update-message codec from spec.md §3/§4.4:
// a streaming decoder/encoder for the wire update message plus the
// rebuild_from_dump reconstruction that turns a table-dump attribute list
// into a full message the same decoder can iterate.
package bgpmsg

import (
	"fmt"

	"github.com/c2h5oh/datasize"

	"github.com/yanet-platform/mrtfilter/bitmath"
	"github.com/yanet-platform/mrtfilter/prefix"
)

// Message type codes (spec.md §6.2).
const (
	TypeOpen         = 1
	TypeUpdate       = 2
	TypeNotification = 3
	TypeKeepalive    = 4
	TypeRouteRefresh = 5
	TypeClose        = 255
)

const markerLen = 16

// OpenFlags control how a Message is opened, mirroring spec.md §4.4.1.
type OpenFlags uint8

const (
	FlagNoCopy OpenFlags = 1 << iota
	FlagAddPath
	FlagASN32
	FlagSharedBuffer
	FlagPreserveOffsets
)

func (f OpenFlags) has(bit OpenFlags) bool { return f&bit != 0 }

// mode tracks whether the Message is being read, written, or is idle.
type mode int

const (
	modeClosed mode = iota
	modeRead
	modeWrite
)

// iterKind identifies which sub-iterator, if any, currently owns the
// Message's cursor (spec.md §3: "at most one sub-iterator is open at any
// time; opening a second silently closes the first").
type iterKind int

const (
	iterNone iterKind = iota
	iterWithdrawn
	iterAttributes
	iterNLRI
	iterASPath
	iterNextHop
	iterCommunity
)

// growthStep and growthCap implement the coarse buffer growth policy
// from spec.md §5: "grow by a coarse step (at least 256 bytes) and are
// capped at 65535."
const (
	growthStep = datasize.ByteSize(256)
	growthCap  = datasize.ByteSize(65535)
)

// Message is the codec state described in spec.md §3: a growable buffer,
// open-mode flags, a latched error, and at most one open sub-iterator.
type Message struct {
	buf  []byte
	fl   OpenFlags
	mod  mode
	err  error

	iter     iterKind
	pos, end int // raw cursor for withdrawn/attributes/nlri iteration
	inMP     bool
	allMode  bool          // whether the current withdrawn/nlri iterator continues into MP_UNREACH/MP_REACH
	mpBuf    []byte        // MP_REACH/MP_UNREACH payload, once entered
	mpFamily prefix.Family // address family of the MP-extended phase

	asIter   asPathIter
	nhIter   nextHopIter
	commIter communityIter

	offsets offsetCache

	// write-mode region bookkeeping: headerAt points at the 2-byte
	// length prefix to backfill on close; start is where the region's
	// content begins.
	regionHeaderAt int
	regionStart    int
}

// Flags returns the flags the Message was opened with.
func (m *Message) Flags() OpenFlags { return m.fl }

// latch records err as the Message's sticky error if none is set yet,
// and returns the first error latched. Every later call that fails
// returns that first error and Err reports it; calls that succeed do not
// consult it, and Close does not clear it.
func (m *Message) latch(err error) error {
	if m.err == nil {
		m.err = err
	}
	return m.err
}

// Err returns the latched error, if any.
func (m *Message) Err() error { return m.err }

// OpenRead attaches buf to a blank Message for reading. With FlagNoCopy
// the slice is referenced directly (the caller must not mutate it while
// the Message is open); otherwise it is copied.
func OpenRead(buf []byte, flags OpenFlags) (*Message, error) {
	if len(buf) < markerLen+2+1 {
		return nil, fmt.Errorf("bgpmsg: %w: message shorter than fixed header", ErrBadHeader)
	}
	for i := 0; i < markerLen; i++ {
		if buf[i] != 0xff {
			return nil, fmt.Errorf("bgpmsg: %w: bad marker", ErrBadHeader)
		}
	}
	declared := int(bitmath.Uint16(buf[markerLen : markerLen+2]))
	if declared < markerLen+2+1 || declared > len(buf) {
		return nil, fmt.Errorf("bgpmsg: %w: declared length %d inconsistent with %d available bytes", ErrBadHeader, declared, len(buf))
	}

	m := &Message{fl: flags, mod: modeRead}
	data := buf[:declared]
	if flags.has(FlagNoCopy) {
		m.buf = data
	} else {
		m.buf = append([]byte(nil), data...)
	}
	m.offsets.reset()
	return m, nil
}

// Length returns the message's total declared length, including the
// 16-byte marker.
func (m *Message) Length() (int, error) {
	if m.mod != modeRead {
		return 0, m.latch(fmt.Errorf("bgpmsg: %w: Length requires read mode", ErrInvalidOp))
	}
	return len(m.buf), nil
}

// Type returns the message type code.
func (m *Message) Type() (byte, error) {
	if m.mod != modeRead {
		return 0, m.latch(fmt.Errorf("bgpmsg: %w: Type requires read mode", ErrInvalidOp))
	}
	return m.buf[markerLen+2], nil
}

// Data returns the raw message bytes (marker included).
func (m *Message) Data() ([]byte, error) {
	if m.mod != modeRead {
		return nil, m.latch(fmt.Errorf("bgpmsg: %w: Data requires read mode", ErrInvalidOp))
	}
	return m.buf, nil
}

// OpenWrite prepares a blank Message for building a new message of the
// given type from scratch, as rebuild_from_dump does (spec.md §4.4.4).
func OpenWrite(msgType byte, flags OpenFlags) (*Message, error) {
	m := &Message{fl: flags, mod: modeWrite}
	m.buf = make([]byte, bodyOffset, int(growthStep))
	for i := 0; i < markerLen; i++ {
		m.buf[i] = 0xff
	}
	m.buf[markerLen+2] = msgType
	m.offsets.reset()
	return m, nil
}

// appendBytes grows the buffer by b, enforcing the coarse growth-step
// policy and the hard cap from spec.md §5.
func (m *Message) appendBytes(b []byte) error {
	if len(m.buf)+len(b) > int(growthCap) {
		return fmt.Errorf("bgpmsg: message would exceed %d-byte cap", growthCap)
	}
	if need := len(m.buf) + len(b) - cap(m.buf); need > 0 {
		grown := make([]byte, len(m.buf), cap(m.buf)+max(need, int(growthStep)))
		copy(grown, m.buf)
		m.buf = grown
	}
	m.buf = append(m.buf, b...)
	return nil
}

// Finish backfills the total-length field, switches the Message to read
// mode and returns the completed wire bytes. The Message must not have
// an open region.
func (m *Message) Finish() ([]byte, error) {
	if m.mod != modeWrite {
		return nil, m.latch(fmt.Errorf("bgpmsg: %w: Finish requires write mode", ErrInvalidOp))
	}
	if m.regionHeaderAt != 0 {
		return nil, m.latch(fmt.Errorf("bgpmsg: %w: Finish called with an open region", ErrInvalidOp))
	}
	bitmath.PutUint16(m.buf[markerLen:markerLen+2], uint16(len(m.buf)))
	m.mod = modeRead
	return m.buf, nil
}

// bodyOffset is the offset of the first byte after the fixed header
// (marker + length + type), i.e. where withdrawn-length begins for an
// update message.
const bodyOffset = markerLen + 2 + 1

// withdrawnLenOffset (equal to bodyOffset) and the other update-specific
// layout helpers live in regions.go.

// closeIterator resets sub-iterator state; called whenever a new
// iterator is started or the message is closed, implementing the
// at-most-one-open invariant.
func (m *Message) closeIterator() {
	m.iter = iterNone
	m.pos, m.end = 0, 0
	m.inMP = false
	m.allMode = false
	m.mpBuf = nil
	m.mpFamily = prefix.Unspec
	m.asIter = asPathIter{}
	m.nhIter = nextHopIter{}
	m.commIter = communityIter{}
}

// Close releases the Message. Re-opening requires a fresh OpenRead /
// OpenWrite call (spec.md §9: "a port should ... document that a fresh
// handle must be opened per message").
func (m *Message) Close() error {
	m.closeIterator()
	m.mod = modeClosed
	m.buf = nil
	return nil
}
