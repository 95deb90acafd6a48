package ioh

import "os"

// File adapts an *os.File into a Handle.
type File struct {
	f   *os.File
	err error
}

// OpenFile opens path for reading and wraps it as a Handle.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &File{f: f}, nil
}

// NewFile wraps an already-open file.
func NewFile(f *os.File) *File { return &File{f: f} }

func (h *File) Read(dst []byte) (int, error) {
	n, err := h.f.Read(dst)
	if err != nil {
		h.err = err
	}
	return n, err
}

func (h *File) Write(src []byte) (int, error) {
	n, err := h.f.Write(src)
	if err != nil {
		h.err = err
	}
	return n, err
}

func (h *File) Err() error   { return h.err }
func (h *File) Close() error { return h.f.Close() }
