package bgpmsg

import (
	"fmt"

	"github.com/yanet-platform/mrtfilter/bitmath"
	"github.com/yanet-platform/mrtfilter/internal/bgpattr"
	"github.com/yanet-platform/mrtfilter/prefix"
)

// withdrawnLenOffset is the update message's withdrawn-length field
// offset (spec.md §6.2).
const withdrawnLenOffset = bodyOffset

func (m *Message) withdrawnBounds() (start, end int, err error) {
	if len(m.buf) < withdrawnLenOffset+2 {
		return 0, 0, fmt.Errorf("bgpmsg: %w: message too short for withdrawn-length", ErrBadHeader)
	}
	wlen := int(bitmath.Uint16(m.buf[withdrawnLenOffset : withdrawnLenOffset+2]))
	start = withdrawnLenOffset + 2
	end = start + wlen
	if end > len(m.buf) {
		return 0, 0, fmt.Errorf("bgpmsg: %w: withdrawn-length %d overruns message", ErrBadWithdrawn, wlen)
	}
	return start, end, nil
}

func (m *Message) attrBounds() (start, end int, err error) {
	_, wEnd, err := m.withdrawnBounds()
	if err != nil {
		return 0, 0, err
	}
	if len(m.buf) < wEnd+2 {
		return 0, 0, fmt.Errorf("bgpmsg: %w: message too short for attribute-length", ErrBadHeader)
	}
	alen := int(bitmath.Uint16(m.buf[wEnd : wEnd+2]))
	start = wEnd + 2
	end = start + alen
	if end > len(m.buf) {
		return 0, 0, fmt.Errorf("bgpmsg: %w: attribute-length %d overruns message", ErrBadAttr, alen)
	}
	return start, end, nil
}

func (m *Message) nlriBounds() (start, end int, err error) {
	_, aEnd, err := m.attrBounds()
	if err != nil {
		return 0, 0, err
	}
	return aEnd, len(m.buf), nil
}

// --- withdrawn / NLRI prefix item parsing -------------------------------

// readPrefixItem parses one prefix-in-NLRI entry at buf[pos:], per
// spec.md §6.2, returning either a prefix.Prefix or *prefix.AddPathPrefix
// and the number of bytes consumed.
func readPrefixItem(buf []byte, pos int, fam prefix.Family, addPath bool) (any, int, error) {
	start := pos
	var pathID uint32
	if addPath {
		if pos+4 > len(buf) {
			return nil, 0, fmt.Errorf("bgpmsg: truncated add-path identifier")
		}
		pathID = bitmath.Uint32(buf[pos : pos+4])
		pos += 4
	}
	if pos+1 > len(buf) {
		return nil, 0, fmt.Errorf("bgpmsg: truncated prefix length")
	}
	bitLen := int(buf[pos])
	pos++
	byteLen := (bitLen + 7) / 8
	if pos+byteLen > len(buf) {
		return nil, 0, fmt.Errorf("bgpmsg: truncated prefix payload")
	}
	p, err := prefix.FromBytes(fam, bitLen, buf[pos:pos+byteLen])
	if err != nil {
		return nil, 0, err
	}
	pos += byteLen
	if addPath {
		return &prefix.AddPathPrefix{Prefix: p, PathID: pathID}, pos - start, nil
	}
	return p, pos - start, nil
}

// --- withdrawn iterator --------------------------------------------------

// StartWithdrawn begins iterating the local (always-IPv4) withdrawn
// region only.
func (m *Message) StartWithdrawn() error {
	return m.startWithdrawn(false, false)
}

// StartAllWithdrawn additionally continues into the MP_UNREACH payload
// once the local region is exhausted (spec.md §4.4.1).
func (m *Message) StartAllWithdrawn() error {
	return m.startWithdrawn(true, false)
}

// StartMPUnreach begins directly in the MP_UNREACH payload (empty local
// region).
func (m *Message) StartMPUnreach() error {
	return m.startWithdrawn(false, true)
}

func (m *Message) startWithdrawn(all, mpOnly bool) error {
	if m.mod != modeRead {
		return m.latch(fmt.Errorf("bgpmsg: %w: withdrawn iteration requires read mode", ErrInvalidOp))
	}
	m.closeIterator()
	m.iter = iterWithdrawn
	m.allMode = all || mpOnly
	if mpOnly {
		return m.enterMPUnreach()
	}
	start, end, err := m.withdrawnBounds()
	if err != nil {
		return m.latch(err)
	}
	m.pos, m.end = start, end
	return nil
}

func (m *Message) enterMPUnreach() error {
	_, payload, present, err := m.findAttribute(bgpattr.MPUnreachNLRI)
	if err != nil {
		return m.latch(err)
	}
	m.inMP = true
	if !present {
		m.pos, m.end = 0, 0
		return nil
	}
	hdr, err := bgpattr.ParseMPUnreachHeader(payload)
	if err != nil {
		return m.latch(fmt.Errorf("bgpmsg: %w: %v", ErrBadWithdrawn, err))
	}
	if hdr.SAFI != bgpattr.SAFIUnicast && hdr.SAFI != bgpattr.SAFIMulticast {
		return m.latch(fmt.Errorf("bgpmsg: %w: unsupported safi %d in mp_unreach_nlri", ErrBadWithdrawn, hdr.SAFI))
	}
	m.mpFamily = afiFamily(hdr.AFI)
	m.mpBuf = payload
	m.pos, m.end = hdr.HeaderLen, len(payload)
	return nil
}

func afiFamily(afi uint16) prefix.Family {
	if afi == bgpattr.AFIIPv6 {
		return prefix.V6
	}
	return prefix.V4
}

// NextWithdrawn returns the next withdrawn prefix (or add-path prefix if
// the Message was opened with FlagAddPath), or ok=false at end of
// iteration.
func (m *Message) NextWithdrawn() (any, bool, error) {
	if m.iter != iterWithdrawn {
		return nil, false, m.latch(fmt.Errorf("bgpmsg: %w: no withdrawn iterator open", ErrInvalidOp))
	}
	buf := m.buf
	fam := prefix.V4
	if m.inMP {
		buf = m.mpBuf
		fam = m.mpFamily
	}
	if m.pos >= m.end {
		if !m.inMP && m.allMode {
			if err := m.enterMPUnreach(); err != nil {
				return nil, false, err
			}
			return m.NextWithdrawn()
		}
		return nil, false, nil
	}
	v, n, err := readPrefixItem(buf, m.pos, fam, m.fl.has(FlagAddPath))
	if err != nil {
		return nil, false, m.latch(fmt.Errorf("bgpmsg: %w: %v", ErrBadWithdrawn, err))
	}
	m.pos += n
	return v, true, nil
}

// --- NLRI iterator --------------------------------------------------------

func (m *Message) StartNLRI() error      { return m.startNLRI(false, false) }
func (m *Message) StartAllNLRI() error   { return m.startNLRI(true, false) }
func (m *Message) StartMPReach() error   { return m.startNLRI(false, true) }

func (m *Message) startNLRI(all, mpOnly bool) error {
	if m.mod != modeRead {
		return m.latch(fmt.Errorf("bgpmsg: %w: nlri iteration requires read mode", ErrInvalidOp))
	}
	m.closeIterator()
	m.iter = iterNLRI
	m.allMode = all || mpOnly
	if mpOnly {
		return m.enterMPReach()
	}
	start, end, err := m.nlriBounds()
	if err != nil {
		return m.latch(err)
	}
	m.pos, m.end = start, end
	return nil
}

func (m *Message) enterMPReach() error {
	_, payload, present, err := m.findAttribute(bgpattr.MPReachNLRI)
	if err != nil {
		return m.latch(err)
	}
	m.inMP = true
	if !present {
		m.pos, m.end = 0, 0
		return nil
	}
	hdr, err := bgpattr.ParseMPReachHeader(payload)
	if err != nil {
		return m.latch(fmt.Errorf("bgpmsg: %w: %v", ErrBadNLRI, err))
	}
	if hdr.SAFI != bgpattr.SAFIUnicast && hdr.SAFI != bgpattr.SAFIMulticast {
		return m.latch(fmt.Errorf("bgpmsg: %w: unsupported safi %d in mp_reach_nlri", ErrBadNLRI, hdr.SAFI))
	}
	m.mpFamily = afiFamily(hdr.AFI)
	m.mpBuf = payload
	m.pos, m.end = hdr.HeaderLen, len(payload)
	return nil
}

// NextNLRI returns the next advertised prefix, ok=false at end.
func (m *Message) NextNLRI() (any, bool, error) {
	if m.iter != iterNLRI {
		return nil, false, m.latch(fmt.Errorf("bgpmsg: %w: no nlri iterator open", ErrInvalidOp))
	}
	buf := m.buf
	fam := prefix.V4
	if m.inMP {
		buf = m.mpBuf
		fam = m.mpFamily
	}
	if m.pos >= m.end {
		if !m.inMP && m.allMode {
			if err := m.enterMPReach(); err != nil {
				return nil, false, err
			}
			return m.NextNLRI()
		}
		return nil, false, nil
	}
	v, n, err := readPrefixItem(buf, m.pos, fam, m.fl.has(FlagAddPath))
	if err != nil {
		return nil, false, m.latch(fmt.Errorf("bgpmsg: %w: %v", ErrBadNLRI, err))
	}
	m.pos += n
	return v, true, nil
}

// --- attribute iterator ---------------------------------------------------

// RawAttribute is one decoded attribute header plus its payload slice
// (a view into the message buffer, not a copy).
type RawAttribute struct {
	Flags   byte
	Code    byte
	Payload []byte
	Offset  int // offset of the attribute's header within the message buffer
}

func (m *Message) StartAttributes() error {
	if m.mod != modeRead {
		return m.latch(fmt.Errorf("bgpmsg: %w: attribute iteration requires read mode", ErrInvalidOp))
	}
	m.closeIterator()
	m.iter = iterAttributes
	start, end, err := m.attrBounds()
	if err != nil {
		return m.latch(err)
	}
	m.pos, m.end = start, end
	return nil
}

// NextAttribute returns the next attribute, caching its offset if it is
// one of the notable codes (spec.md §4.4.1).
func (m *Message) NextAttribute() (RawAttribute, bool, error) {
	if m.iter != iterAttributes {
		return RawAttribute{}, false, m.latch(fmt.Errorf("bgpmsg: %w: no attribute iterator open", ErrInvalidOp))
	}
	if m.pos >= m.end {
		m.offsets.markAllMissing()
		return RawAttribute{}, false, nil
	}
	hdrOffset := m.pos
	flags, code, plen, hlen, err := bgpattr.Header(m.buf[m.pos:m.end])
	if err != nil {
		return RawAttribute{}, false, m.latch(fmt.Errorf("bgpmsg: %w: %v", ErrBadAttr, err))
	}
	payloadStart := m.pos + hlen
	payloadEnd := payloadStart + plen
	if payloadEnd > m.end {
		return RawAttribute{}, false, m.latch(fmt.Errorf("bgpmsg: %w: attribute length overruns attribute section", ErrBadAttr))
	}
	m.offsets.note(code, hdrOffset)
	m.pos = payloadEnd
	return RawAttribute{Flags: flags, Code: code, Payload: m.buf[payloadStart:payloadEnd], Offset: hdrOffset}, true, nil
}

// findAttribute locates the first attribute of the given code, using the
// notable-offset cache when available and falling back to a full linear
// scan otherwise (populating the cache as it goes). It does not disturb
// any currently-open sub-iterator.
func (m *Message) findAttribute(code byte) (RawAttribute, []byte, bool, error) {
	if off, present, known := m.offsets.lookup(code); known {
		if !present {
			return RawAttribute{}, nil, false, nil
		}
		flags, c, plen, hlen, err := bgpattr.Header(m.buf[off:])
		if err != nil {
			return RawAttribute{}, nil, false, fmt.Errorf("bgpmsg: %w: %v", ErrBadAttr, err)
		}
		payload := m.buf[off+hlen : off+hlen+plen]
		return RawAttribute{Flags: flags, Code: c, Payload: payload, Offset: off}, payload, true, nil
	}

	start, end, err := m.attrBounds()
	if err != nil {
		return RawAttribute{}, nil, false, err
	}
	pos := start
	for pos < end {
		hdrOffset := pos
		flags, c, plen, hlen, err := bgpattr.Header(m.buf[pos:end])
		if err != nil {
			return RawAttribute{}, nil, false, fmt.Errorf("bgpmsg: %w: %v", ErrBadAttr, err)
		}
		payloadStart := pos + hlen
		payloadEnd := payloadStart + plen
		if payloadEnd > end {
			return RawAttribute{}, nil, false, fmt.Errorf("bgpmsg: %w: attribute length overruns attribute section", ErrBadAttr)
		}
		m.offsets.note(c, hdrOffset)
		if c == code {
			payload := m.buf[payloadStart:payloadEnd]
			return RawAttribute{Flags: flags, Code: c, Payload: payload, Offset: hdrOffset}, payload, true, nil
		}
		pos = payloadEnd
	}
	m.offsets.markAllMissing()
	return RawAttribute{}, nil, false, nil
}

// GetAttribute is the public, cache-backed O(1)-after-first-pass
// accessor for a single attribute by type code.
func (m *Message) GetAttribute(code byte) ([]byte, bool, error) {
	if m.mod != modeRead {
		return nil, false, m.latch(fmt.Errorf("bgpmsg: %w: GetAttribute requires read mode", ErrInvalidOp))
	}
	_, payload, present, err := m.findAttribute(code)
	if err != nil {
		return nil, false, m.latch(err)
	}
	return payload, present, nil
}

// --- write-mode region construction ---------------------------------------
//
// An update message has exactly two length-prefixed regions, in order:
// withdrawn routes, then path attributes. NLRI is unframed and simply
// runs to the end of the message. BeginWithdrawn/BeginAttributes reserve
// a 2-byte placeholder that End* backfills once the region's content is
// known, mirroring how OpenRead's withdrawnBounds/attrBounds read it
// back (spec.md §6.2).

func (m *Message) beginRegion() error {
	if m.mod != modeWrite {
		return m.latch(fmt.Errorf("bgpmsg: %w: region construction requires write mode", ErrInvalidOp))
	}
	if m.regionHeaderAt != 0 {
		return m.latch(fmt.Errorf("bgpmsg: %w: a region is already open", ErrInvalidOp))
	}
	m.regionHeaderAt = len(m.buf)
	if err := m.appendBytes([]byte{0, 0}); err != nil {
		return m.latch(err)
	}
	m.regionStart = len(m.buf)
	return nil
}

func (m *Message) endRegion() error {
	if m.regionHeaderAt == 0 {
		return m.latch(fmt.Errorf("bgpmsg: %w: no region is open", ErrInvalidOp))
	}
	n := len(m.buf) - m.regionStart
	if n > 0xffff {
		return m.latch(fmt.Errorf("bgpmsg: region length %d exceeds 16 bits", n))
	}
	bitmath.PutUint16(m.buf[m.regionHeaderAt:m.regionHeaderAt+2], uint16(n))
	m.regionHeaderAt, m.regionStart = 0, 0
	return nil
}

// BeginWithdrawn opens the withdrawn-routes region. Must be called
// before BeginAttributes.
func (m *Message) BeginWithdrawn() error { return m.beginRegion() }

// EndWithdrawn closes the withdrawn-routes region, backfilling its
// length.
func (m *Message) EndWithdrawn() error { return m.endRegion() }

// PutWithdrawn appends one withdrawn prefix entry.
func (m *Message) PutWithdrawn(p prefix.Prefix, pathID uint32) error {
	return m.appendBytes(encodePrefixItem(p, pathID, m.fl.has(FlagAddPath)))
}

// BeginAttributes opens the path-attributes region.
func (m *Message) BeginAttributes() error { return m.beginRegion() }

// EndAttributes closes the path-attributes region, backfilling its
// length.
func (m *Message) EndAttributes() error { return m.endRegion() }

// PutAttribute appends one attribute (header plus payload) and notes
// its offset in the cache, so GetAttribute is consistent for a message
// built and then read back without closing it.
func (m *Message) PutAttribute(flags, code byte, payload []byte) error {
	if m.mod != modeWrite {
		return m.latch(fmt.Errorf("bgpmsg: %w: PutAttribute requires write mode", ErrInvalidOp))
	}
	hdrOffset := len(m.buf)
	var hdr [4]byte
	n, err := bgpattr.PutHeader(hdr[:], flags, code, len(payload))
	if err != nil {
		return m.latch(fmt.Errorf("bgpmsg: %w: %v", ErrBadAttr, err))
	}
	if err := m.appendBytes(hdr[:n]); err != nil {
		return m.latch(err)
	}
	if err := m.appendBytes(payload); err != nil {
		return m.latch(err)
	}
	m.offsets.note(code, hdrOffset)
	return nil
}

// PutNLRI appends one advertised-prefix entry to the unframed NLRI
// tail. Must be called after EndAttributes.
func (m *Message) PutNLRI(p prefix.Prefix, pathID uint32) error {
	if m.mod != modeWrite {
		return m.latch(fmt.Errorf("bgpmsg: %w: PutNLRI requires write mode", ErrInvalidOp))
	}
	return m.appendBytes(encodePrefixItem(p, pathID, m.fl.has(FlagAddPath)))
}

func encodePrefixItem(p prefix.Prefix, pathID uint32, addPath bool) []byte {
	var out []byte
	if addPath {
		var idBuf [4]byte
		bitmath.PutUint32(idBuf[:], pathID)
		out = append(out, idBuf[:]...)
	}
	out = append(out, byte(p.BitLen))
	out = append(out, p.Bytes[:p.ByteLen()]...)
	return out
}
