package batch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MeKo-Tech/checkcode/internal/barcode"
	"github.com/MeKo-Tech/checkcode/internal/utils"
	"github.com/MeKo-Tech/checkcode/internal/verify"
)

// Verifier decodes an image and classifies its payload.
type Verifier interface {
	Verify(ctx context.Context, img image.Image) (verify.Classification, error)
}

// Status is the per-file outcome.
type Status string

const (
	StatusVerified   Status = "verified"
	StatusUnverified Status = "unverified"
	StatusNoCode     Status = "no_code"
	StatusError      Status = "error"
)

// FileResult is the outcome for one image.
type FileResult struct {
	Path       string        `json:"path" yaml:"path"`
	Status     Status        `json:"status" yaml:"status"`
	Content    string        `json:"content,omitempty" yaml:"content,omitempty"`
	Action     verify.Action `json:"action,omitzero" yaml:"action,omitempty"`
	RecordID   string        `json:"recordId,omitempty" yaml:"record_id,omitempty"`
	RecordName string        `json:"recordName,omitempty" yaml:"record_name,omitempty"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration   time.Duration `json:"durationNs" yaml:"duration"`
}

// verifyFile loads and verifies one image. Failures are reported in the
// result; the returned error is non-nil only for StatusError.
func verifyFile(ctx context.Context, v Verifier, path string) (res FileResult, err error) {
	start := time.Now()
	res.Path = path
	defer func() { res.Duration = time.Since(start) }()

	img, _, err := utils.LoadImage(path)
	if err != nil {
		res.Status, res.Error = StatusError, err.Error()
		return res, fmt.Errorf("load %s: %w", path, err)
	}

	c, err := v.Verify(ctx, img)
	switch {
	case errors.Is(err, barcode.ErrNotFound):
		res.Status = StatusNoCode
		return res, nil
	case err != nil:
		res.Status, res.Error = StatusError, err.Error()
		return res, fmt.Errorf("verify %s: %w", path, err)
	}

	res.Status = StatusUnverified
	if c.IsVerified() {
		res.Status = StatusVerified
	}
	res.Content = c.Content
	res.Action = c.Action
	if c.Record != nil {
		res.RecordID = c.Record.ID
		res.RecordName = c.Record.Name
	}
	return res, nil
}

// verifyAll verifies files with a bounded worker pool. Results keep the
// order of files. Without continueOnError the first failing file cancels
// the remaining work and its error is returned.
func verifyAll(ctx context.Context, v Verifier, files []string, workers int,
	continueOnError bool, progress ProgressCallback) ([]FileResult, error) {
	if progress == nil {
		progress = NoOpProgressCallback{}
	}
	results := make([]FileResult, len(files))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	progress.OnStart(len(files))
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := verifyFile(gctx, v, path)
			results[i] = res
			progress.OnProgress(int(done.Add(1)), len(files))
			if err == nil {
				return nil
			}
			progress.OnError(path, err)
			slog.Debug("Batch item failed", "file", path, "error", err)
			if continueOnError {
				return nil
			}
			return err
		})
	}

	err := g.Wait()
	progress.OnComplete()
	if err != nil {
		return nil, err
	}
	return results, nil
}
