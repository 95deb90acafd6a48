package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yanet-platform/mrtfilter/logging"
	"github.com/yanet-platform/mrtfilter/pipeline"
	"github.com/yanet-platform/mrtfilter/source"
)

// Config is the top-level configuration for the mrtfilter binary.
type Config struct {
	// Logging configuration.
	Logging logging.Config `yaml:"logging"`
	// Source controls file discovery, compression sniffing, and retry.
	Source source.Config `yaml:"source"`
	// Pipeline controls output format.
	Pipeline pipeline.Config `yaml:"pipeline"`
	// FilterImage is the path to a pre-assembled filter image (see
	// internal/filtervm.LoadImage); empty means "always pass".
	FilterImage string `yaml:"filter_image"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Logging:  *logging.DefaultConfig(),
		Source:   *source.DefaultConfig(),
		Pipeline: *pipeline.DefaultConfig(),
	}
}

// LoadConfig loads configuration from a YAML file at the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %w", err)
	}
	return cfg, nil
}
