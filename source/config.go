// Package source discovers archive files on disk and opens them as
// ioh.Handle values, sniffing compression and retrying transient I/O
// errors before handing a stream to the container record codec.
package source

import (
	"time"

	"github.com/c2h5oh/datasize"
)

// Config controls file discovery and open-retry behaviour.
type Config struct {
	// Glob is a shell-glob-like pattern (github.com/gobwas/glob syntax)
	// matched against each entry's base name under the discovery root,
	// e.g. "rib.*.bz2" or "updates.20*".
	Glob string `yaml:"glob"`
	// ReadBufSize sizes the buffered reader placed in front of each
	// opened file.
	ReadBufSize datasize.ByteSize `yaml:"read_buf_size"`
	// MaxRetries bounds how many times Open retries a transient open
	// failure before giving up.
	MaxRetries int `yaml:"max_retries"`
	// RetryInitialInterval seeds the exponential backoff between retries.
	RetryInitialInterval time.Duration `yaml:"retry_initial_interval"`
	// RetryMaxInterval caps the exponential backoff.
	RetryMaxInterval time.Duration `yaml:"retry_max_interval"`
}

// DefaultConfig returns the default discovery/open configuration.
func DefaultConfig() *Config {
	return &Config{
		Glob:                 "*",
		ReadBufSize:          64 * datasize.KB,
		MaxRetries:           5,
		RetryInitialInterval: 100 * time.Millisecond,
		RetryMaxInterval:     10 * time.Second,
	}
}
