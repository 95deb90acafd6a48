package pipeline

import "github.com/yanet-platform/mrtfilter/pipeline/format"

// Config controls one pipeline's output format and dump-reconstruction
// behaviour, in the teacher's exported-fields-plus-DefaultConfig idiom.
type Config struct {
	// Format selects the output formatter (spec.md §6.5: row, c-hex, or
	// no-dump).
	Format format.Tag `yaml:"format"`
}

// DefaultConfig returns the pipeline's default configuration.
func DefaultConfig() *Config {
	return &Config{Format: format.TagRow}
}
