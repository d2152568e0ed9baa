// Package verify classifies decoded payloads against the registry.
// A payload is verified when a record with exactly that content exists;
// nothing is signed.
//
// A Resolver is a small state machine owned by one scan session:
//
//	Idle -> Decoding -> Verified | Unverified
//
// Registry faults keep it in Decoding so the same payload can be retried.
package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MeKo-Tech/checkcode/internal/registry"
)

// State is the resolver state.
type State string

const (
	StateIdle       State = "idle"
	StateDecoding   State = "decoding"
	StateVerified   State = "verified"
	StateUnverified State = "unverified"
)

// Status is the outcome of a classification.
type Status string

const (
	Verified   Status = "verified"
	Unverified Status = "unverified"
)

var (
	// ErrBusy is returned by Begin outside the Idle state.
	ErrBusy = errors.New("resolver is busy")
	// ErrNothingToRetry is returned by Retry when no resolution failed.
	ErrNothingToRetry = errors.New("no pending resolution to retry")
)

// Classification is the result shown to the user.
type Classification struct {
	Status  Status           `json:"status"`
	Content string           `json:"content"`
	Record  *registry.Record `json:"-"`
	Action  Action           `json:"action"`
}

// IsVerified reports whether the content is registered.
func (c Classification) IsVerified() bool { return c.Status == Verified }

// Resolver classifies one payload at a time. It is safe for concurrent use,
// though a session normally drives it from a single goroutine.
type Resolver struct {
	reg registry.Registry

	mu      sync.Mutex
	state   State
	pending string
	result  *Classification
}

// NewResolver returns an Idle resolver backed by reg.
func NewResolver(reg registry.Registry) *Resolver {
	return &Resolver{reg: reg, state: StateIdle}
}

// State returns the current state.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Result returns the last classification, if the resolver is in a final
// state.
func (r *Resolver) Result() (Classification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.result == nil {
		return Classification{}, false
	}
	return *r.result, true
}

// Begin moves Idle to Decoding.
func (r *Resolver) Begin() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateIdle {
		return fmt.Errorf("%w: state %s", ErrBusy, r.state)
	}
	r.state = StateDecoding
	return nil
}

// Resolve classifies text. From Idle it begins implicitly. A missing
// record is an Unverified classification, not an error. A registry fault is
// returned as is and leaves the resolver in Decoding with text pending.
func (r *Resolver) Resolve(ctx context.Context, text string) (Classification, error) {
	r.mu.Lock()
	switch r.state {
	case StateIdle:
		r.state = StateDecoding
	case StateDecoding:
	default:
		state := r.state
		r.mu.Unlock()
		return Classification{}, fmt.Errorf("%w: state %s", ErrBusy, state)
	}
	r.pending = text
	r.mu.Unlock()

	return r.lookup(ctx, text)
}

// Retry re-runs the lookup for the payload whose resolution failed.
func (r *Resolver) Retry(ctx context.Context) (Classification, error) {
	r.mu.Lock()
	if r.state != StateDecoding || r.pending == "" {
		r.mu.Unlock()
		return Classification{}, ErrNothingToRetry
	}
	text := r.pending
	r.mu.Unlock()

	return r.lookup(ctx, text)
}

// Fail records a decode failure: the resolver returns to Idle so the user
// can try another image.
func (r *Resolver) Fail() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateDecoding {
		r.state = StateIdle
		r.pending = ""
	}
}

// Reset returns to Idle from any state and drops the classification.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = StateIdle
	r.pending = ""
	r.result = nil
}

func (r *Resolver) lookup(ctx context.Context, text string) (Classification, error) {
	rec, err := r.reg.FindByContent(ctx, text)
	c := Classification{Content: text, Action: ActionFor(text)}
	switch {
	case err == nil:
		c.Status = Verified
		c.Record = &rec
	case errors.Is(err, registry.ErrNotFound):
		c.Status = Unverified
	default:
		slog.Debug("Registry lookup failed; resolution pending", "error", err)
		return Classification{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateDecoding || r.pending != text {
		// Reset raced with the lookup; the result is stale.
		return c, nil
	}
	if c.IsVerified() {
		r.state = StateVerified
	} else {
		r.state = StateUnverified
	}
	r.pending = ""
	r.result = &c
	return c, nil
}

// PanicError is returned by Safely when fn panicked.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic during resolution: %v", e.Value) }

// Safely runs fn and converts a panic into a *PanicError.
func Safely(fn func() (Classification, error)) (c Classification, err error) {
	defer func() {
		if v := recover(); v != nil {
			slog.Error("Recovered panic in resolver", "panic", v)
			c, err = Classification{}, &PanicError{Value: v}
		}
	}()
	return fn()
}
