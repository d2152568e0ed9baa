// Package scan reads QR payloads from camera-like frame streams, image
// files and PDFs.
package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sync"

	"github.com/MeKo-Tech/checkcode/internal/barcode"
)

var (
	// ErrExhausted is reported when a source ran out of frames before any
	// decoded.
	ErrExhausted = errors.New("frame source exhausted without a QR code")
	// ErrSessionActive is returned by Start on a running session.
	ErrSessionActive = errors.New("scan session already started")
	// ErrStopped is reported when Stop ended the session.
	ErrStopped = errors.New("scan session stopped")
)

// FrameSource yields frames until it returns io.EOF.
type FrameSource interface {
	Next(ctx context.Context) (image.Image, error)
	Close() error
}

// Opener acquires a frame source, e.g. a camera device.
type Opener func(ctx context.Context) (FrameSource, error)

// CameraAccessError reports that a frame source could not be acquired.
// Callers should fall back to file upload.
type CameraAccessError struct {
	Err error
}

func (e *CameraAccessError) Error() string { return fmt.Sprintf("camera access failed: %v", e.Err) }

func (e *CameraAccessError) Unwrap() error { return e.Err }

// Open acquires a source, wrapping any failure in *CameraAccessError.
func Open(ctx context.Context, open Opener) (FrameSource, error) {
	if open == nil {
		return nil, &CameraAccessError{Err: errors.New("no camera available")}
	}
	src, err := open(ctx)
	if err != nil {
		return nil, &CameraAccessError{Err: err}
	}
	if src == nil {
		return nil, &CameraAccessError{Err: errors.New("camera returned no source")}
	}
	return src, nil
}

// PanicError is reported when the decode loop panicked.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic in scan loop: %v", e.Value) }

// Stats summarizes a finished session.
type Stats struct {
	Frames int
	Text   string
	Err    error
}

// Session scans one frame source on its own goroutine. The first decoded
// payload is delivered once and ends the session. The source is closed
// exactly once however the session ends.
type Session struct {
	dec *barcode.Decoder

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	stats   Stats
}

// NewSession creates a session decoding with dec.
func NewSession(dec *barcode.Decoder) *Session {
	return &Session{dec: dec, done: make(chan struct{})}
}

// Start begins scanning src. onDecode runs on the session goroutine.
func (s *Session) Start(ctx context.Context, src FrameSource, onDecode func(text string)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrSessionActive
	}
	s.started = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.loop(ctx, src, onDecode)
	return nil
}

// Stop ends the session and waits for the goroutine to exit. It is safe to
// call more than once and before Start.
func (s *Session) Stop() {
	s.mu.Lock()
	started, cancel := s.started, s.cancel
	s.mu.Unlock()
	if !started {
		return
	}
	cancel()
	<-s.done
}

// Done is closed when the session has ended.
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until the session ends and returns its stats.
func (s *Session) Wait() Stats {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Session) loop(ctx context.Context, src FrameSource, onDecode func(string)) {
	var closeOnce sync.Once
	release := func() {
		closeOnce.Do(func() {
			if err := src.Close(); err != nil {
				slog.Debug("Closing frame source failed", "error", err)
			}
		})
	}

	var stats Stats
	defer func() {
		if v := recover(); v != nil {
			slog.Error("Recovered panic in scan session", "panic", v)
			stats.Err = &PanicError{Value: v}
		}
		release()
		s.cancel()
		s.mu.Lock()
		s.stats = stats
		s.mu.Unlock()
		close(s.done)
	}()

	for {
		if ctx.Err() != nil {
			stats.Err = ErrStopped
			return
		}
		frame, err := src.Next(ctx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				stats.Err = ErrExhausted
			case ctx.Err() != nil:
				stats.Err = ErrStopped
			default:
				stats.Err = err
			}
			return
		}
		stats.Frames++

		text, err := s.dec.Decode(ctx, frame)
		if errors.Is(err, barcode.ErrNotFound) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				stats.Err = ErrStopped
			} else {
				stats.Err = err
			}
			return
		}

		stats.Text = text
		release()
		if onDecode != nil {
			onDecode(text)
		}
		slog.Debug("Scan session decoded payload", "frames", stats.Frames)
		return
	}
}

// Run scans src to completion and returns the first payload. The source is
// closed before Run returns.
func Run(ctx context.Context, dec *barcode.Decoder, src FrameSource) (string, Stats, error) {
	s := NewSession(dec)
	if err := s.Start(ctx, src, nil); err != nil {
		return "", Stats{}, err
	}
	stats := s.Wait()
	if stats.Text != "" || stats.Err == nil {
		return stats.Text, stats, nil
	}
	if errors.Is(stats.Err, ErrStopped) && ctx.Err() != nil {
		return "", stats, ctx.Err()
	}
	return "", stats, stats.Err
}
