package batch

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Config holds all configuration for a batch verification run.
type Config struct {
	Workers         int
	ContinueOnError bool

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Output settings
	Format     string
	OutputFile string

	// Progress settings
	ShowProgress     bool
	Quiet            bool
	ShowStats        bool
	ProgressInterval time.Duration
}

// Formats lists the supported output formats.
var Formats = []string{"text", "json", "csv", "yaml"}

// DefaultConfig returns the settings used when none are given.
func DefaultConfig() *Config {
	return &Config{
		Workers:          4,
		ContinueOnError:  true,
		Format:           "text",
		ShowProgress:     true,
		ProgressInterval: 100 * time.Millisecond,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("batch config is nil")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("invalid workers: %d (must be positive)", c.Workers)
	}
	if c.Format != "" && !slices.Contains(Formats, c.Format) {
		return fmt.Errorf("invalid format: %s (must be one of: text, json, csv, yaml)", c.Format)
	}
	if c.ProgressInterval < 0 {
		return fmt.Errorf("invalid progress interval: %v", c.ProgressInterval)
	}
	return nil
}
