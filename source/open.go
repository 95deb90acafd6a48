package source

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/klauspost/compress/gzip"

	"github.com/yanet-platform/mrtfilter/ioh"
)

var (
	gzipMagic  = []byte{0x1f, 0x8b}
	bzip2Magic = []byte{'B', 'Z', 'h'}
)

// Open opens path, sniffing gzip/bzip2 compression from the leading bytes
// (falling back to the plain file if neither magic matches), and retries
// the initial os.Open with bounded exponential backoff to ride out a
// transient failure against a still-being-written collector file or a
// remote-mounted filesystem (spec.md §7 codec.io).
func Open(path string, cfg *Config) (ioh.Handle, error) {
	f, err := openWithRetry(path, cfg)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReaderSize(f, int(cfg.ReadBufSize))
	peek, _ := br.Peek(3)

	switch {
	case bytes.HasPrefix(peek, gzipMagic):
		gz, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("source: open gzip %q: %w", path, err)
		}
		return &closingHandle{Handle: ioh.FromReader(gz), closer: f}, nil

	case bytes.HasPrefix(peek, bzip2Magic):
		return &closingHandle{Handle: ioh.FromReader(bzip2.NewReader(br)), closer: f}, nil

	default:
		return &closingHandle{Handle: ioh.FromReader(br), closer: f}, nil
	}
}

func openWithRetry(path string, cfg *Config) (*os.File, error) {
	b := backoff.ExponentialBackOff{
		InitialInterval:     cfg.RetryInitialInterval,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         cfg.RetryMaxInterval,
	}
	b.Reset()

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		f, err := os.Open(path)
		if err == nil {
			return f, nil
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("source: open %q: %w", path, err)
		}
		lastErr = err
		time.Sleep(b.NextBackOff())
	}
	return nil, fmt.Errorf("source: open %q after %d retries: %w", path, cfg.MaxRetries, lastErr)
}

// closingHandle pairs a Handle with the underlying *os.File so Close
// releases both the decompression layer's resources (if any) and the
// file descriptor.
type closingHandle struct {
	ioh.Handle
	closer *os.File
}

func (h *closingHandle) Close() error {
	err := h.Handle.Close()
	if cerr := h.closer.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
