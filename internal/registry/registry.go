// Package registry stores the codes this system has generated. A scanned
// payload is "verified" exactly when the registry holds a record with that
// content.
//
// Records are immutable: they are created once and never updated or
// deleted. Backends live in subpackages (memdb, postgres, remote) and all
// satisfy Registry.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MeKo-Tech/checkcode/internal/style"
)

// ErrNotFound is returned by FindByContent when no record matches.
var ErrNotFound = errors.New("record not found")

// ErrInvalidRecord is returned by Create for records that can never be
// rendered or looked up.
var ErrInvalidRecord = errors.New("invalid record")

// Registry is the verification store.
type Registry interface {
	Create(ctx context.Context, in NewRecord) (Record, error)
	List(ctx context.Context) ([]Record, error)
	ListPublic(ctx context.Context) ([]Record, error)
	// FindByContent is an exact, case-sensitive lookup. When several
	// records share the content, the earliest created one is returned.
	FindByContent(ctx context.Context, content string) (Record, error)
	// Search matches public records only.
	Search(ctx context.Context, q Query) ([]Record, error)
}

// Visibility controls whether a record shows up in public listings.
type Visibility string

const (
	Public  Visibility = "public"
	Private Visibility = "private"
)

// IsPublic reports whether v is Public.
func (v Visibility) IsPublic() bool { return v == Public }

// VisibilityOf maps a boolean public flag onto a Visibility.
func VisibilityOf(public bool) Visibility {
	if public {
		return Public
	}
	return Private
}

// Record is one registered code.
type Record struct {
	ID          string
	Name        string
	ContentType style.ContentType
	Content     string
	Author      string
	Style       style.Style
	CreatedAt   time.Time
	Visibility  Visibility
}

// NewRecord is the caller-supplied part of a Record.
type NewRecord struct {
	Name        string
	ContentType style.ContentType
	Content     string
	Author      string
	Style       style.Style
	Visibility  Visibility
}

// Validate checks the fields every backend relies on.
func (n NewRecord) Validate() error {
	if n.Content == "" {
		return fmt.Errorf("%w: content is empty", ErrInvalidRecord)
	}
	switch n.Visibility {
	case Public, Private:
	default:
		return fmt.Errorf("%w: visibility %q", ErrInvalidRecord, n.Visibility)
	}
	if _, err := style.ParseContentType(string(n.ContentType)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	if err := n.Style.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	return nil
}

// Stamp assigns a fresh ID and creation time and copies every other field.
func (n NewRecord) Stamp(now time.Time) Record {
	ct := n.ContentType
	if ct == "" {
		ct = style.DetectContentType(n.Content)
	}
	return Record{
		ID:          uuid.NewString(),
		Name:        n.Name,
		ContentType: ct,
		Content:     n.Content,
		Author:      n.Author,
		Style:       n.Style,
		CreatedAt:   now.UTC(),
		Visibility:  n.Visibility,
	}
}

// PersistenceError reports a store fault. It is always retryable.
type PersistenceError struct {
	Op      string
	Backend string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("registry %s %s failed: %v", e.Backend, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Retryable is always true; the store may recover.
func (e *PersistenceError) Retryable() bool { return true }

// IsPersistence reports whether err is or wraps a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// Field narrows a search to one record field.
type Field string

const (
	FieldAll     Field = "all"
	FieldName    Field = "name"
	FieldAuthor  Field = "author"
	FieldContent Field = "content"
)

// ParseField parses a search field; empty means FieldAll.
func ParseField(s string) (Field, error) {
	switch f := Field(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FieldAll:
		return FieldAll, nil
	case FieldName, FieldAuthor, FieldContent:
		return f, nil
	}
	return "", fmt.Errorf("invalid search field %q (must be one of: all, name, author, content)", s)
}

// Query is a public search request. An empty Text matches everything.
type Query struct {
	Text  string
	Field Field
}
