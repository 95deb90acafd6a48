// Package ioh is the byte-oriented I/O abstraction from spec.md §3/§6.3: a
// small polymorphic handle over memory, file, and compressed streams that
// the record codec and message codec read and write through. The codec
// never touches a concrete stream type directly.
package ioh

import "io"

// Handle is the four-operation surface spec.md §6.3 describes: read,
// write, error, close. Compression wrappers (gzip, bzip2, ...) implement
// the same surface; the core is agnostic to which concrete Handle it is
// driving.
type Handle interface {
	Read(dst []byte) (n int, err error)
	Write(src []byte) (n int, err error)
	Err() error
	Close() error
}

// FromReader adapts a plain io.Reader (e.g. the result of a compression
// wrapper) into a Handle. Write always fails.
func FromReader(r io.Reader) Handle {
	return &readerHandle{r: r}
}

type readerHandle struct {
	r   io.Reader
	err error
}

func (h *readerHandle) Read(dst []byte) (int, error) {
	n, err := h.r.Read(dst)
	if err != nil && err != io.EOF {
		h.err = err
	}
	return n, err
}

func (h *readerHandle) Write([]byte) (int, error) { return 0, errWriteUnsupported }
func (h *readerHandle) Err() error                { return h.err }
func (h *readerHandle) Close() error {
	if c, ok := h.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

var errWriteUnsupported = writeUnsupportedError{}

type writeUnsupportedError struct{}

func (writeUnsupportedError) Error() string { return "ioh: handle does not support writing" }
