// Package batch verifies many image files against the registry with a
// bounded worker pool and reports the outcome per file.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// Summary counts outcomes.
type Summary struct {
	Total      int           `json:"total" yaml:"total"`
	Verified   int           `json:"verified" yaml:"verified"`
	Unverified int           `json:"unverified" yaml:"unverified"`
	NoCode     int           `json:"noCode" yaml:"no_code"`
	Failed     int           `json:"failed" yaml:"failed"`
	Duration   time.Duration `json:"durationNs" yaml:"duration"`
	Workers    int           `json:"workers" yaml:"workers"`
}

// Result holds the result of a batch run.
type Result struct {
	Results  []FileResult
	Duration time.Duration
	Workers  int
}

// ProcessBatch discovers images under paths and verifies each one.
func ProcessBatch(ctx context.Context, v Verifier, paths []string, config *Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	files, err := discoverImageFiles(paths, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no image files found")
	}

	var progress ProgressCallback
	if config.ShowProgress && !config.Quiet {
		progress = NewConsoleProgressCallback(os.Stderr, "Verifying: ").WithUpdateInterval(config.ProgressInterval)
	}

	start := time.Now()
	results, err := verifyAll(ctx, v, files, config.Workers, config.ContinueOnError, progress)
	if err != nil {
		return nil, fmt.Errorf("batch verification failed: %w", err)
	}

	return &Result{Results: results, Duration: time.Since(start), Workers: config.Workers}, nil
}

// Summary counts the outcomes.
func (r *Result) Summary() Summary {
	s := Summary{Total: len(r.Results), Duration: r.Duration, Workers: r.Workers}
	for _, fr := range r.Results {
		switch fr.Status {
		case StatusVerified:
			s.Verified++
		case StatusUnverified:
			s.Unverified++
		case StatusNoCode:
			s.NoCode++
		case StatusError:
			s.Failed++
		}
	}
	return s
}

// FormatResults formats the results in the given format.
func (r *Result) FormatResults(format string) (string, error) {
	return formatResults(r.Results, r.Summary(), format)
}

// SaveResults writes the formatted results to outputFile, or to w when
// outputFile is empty.
func (r *Result) SaveResults(w io.Writer, format, outputFile string) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile == "" {
		_, err = io.WriteString(w, output)
		return err
	}
	if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
