// Package memdb is the embedded registry backend. Records live in a
// go-memdb table and, when a path is configured, are appended to a JSON
// lines file that is replayed on open.
package memdb

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-memdb"

	"github.com/MeKo-Tech/checkcode/internal/registry"
)

const (
	backendName = "memdb"
	tableName   = "records"
)

// row is the stored form of a record. seq preserves insertion order.
type row struct {
	Seq    uint64              `json:"seq"`
	Record registry.WireRecord `json:"record"`

	rec registry.Record
}

// The memdb indexers read these exported fields by name.
type indexed struct {
	ID      string
	Content string
	Name    string
	Author  string
	SeqKey  string
	Seq     uint64
	row     *row
}

// seqKey keeps lexical index order equal to numeric order.
func seqKey(seq uint64) string { return fmt.Sprintf("%020d", seq) }

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableName: {
				Name: tableName,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					"content": {
						Name:    "content",
						Indexer: &memdb.StringFieldIndex{Field: "Content"},
					},
					"name": {
						Name:         "name",
						AllowMissing: true,
						Indexer:      &memdb.StringFieldIndex{Field: "Name", Lowercase: true},
					},
					"author": {
						Name:         "author",
						AllowMissing: true,
						Indexer:      &memdb.StringFieldIndex{Field: "Author", Lowercase: true},
					},
					"seq": {
						Name:    "seq",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "SeqKey"},
					},
				},
			},
		},
	}
}

// Options configures the store.
type Options struct {
	// Path is the JSON lines journal. Empty keeps records in memory only.
	Path string
	// Now overrides the creation clock.
	Now func() time.Time
}

// Store is a go-memdb registry. Writers are serialized; readers see
// consistent snapshots.
type Store struct {
	db  *memdb.MemDB
	now func() time.Time

	mu      sync.Mutex // guards seq and journal
	seq     uint64
	journal *os.File
}

var _ registry.Registry = (*Store)(nil)

// New creates an empty in-memory store.
func New() (*Store, error) {
	return Open(Options{})
}

// Open creates a store and replays the journal at opts.Path if present.
func Open(opts Options) (*Store, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, fmt.Errorf("create memdb: %w", err)
	}
	s := &Store{db: db, now: opts.Now}
	if s.now == nil {
		s.now = time.Now
	}
	if opts.Path == "" {
		return s, nil
	}

	if err := s.replay(opts.Path); err != nil {
		return nil, &registry.PersistenceError{Op: "open", Backend: backendName, Err: err}
	}
	if dir := filepath.Dir(opts.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, &registry.PersistenceError{Op: "open", Backend: backendName, Err: err}
		}
	}
	f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // G304: configured journal path
	if err != nil {
		return nil, &registry.PersistenceError{Op: "open", Backend: backendName, Err: err}
	}
	s.journal = f
	slog.Info("Opened registry journal", "path", opts.Path, "records", s.seq)
	return s, nil
}

func (s *Store) replay(path string) error {
	f, err := os.Open(path) //nolint:gosec // G304: configured journal path
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	txn := s.db.Txn(true)
	defer txn.Abort()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var r row
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			return fmt.Errorf("journal line %d: %w", line, err)
		}
		rec, err := r.Record.Record()
		if err != nil {
			return fmt.Errorf("journal line %d: %w", line, err)
		}
		r.rec = rec
		if err := txn.Insert(tableName, toIndexed(&r)); err != nil {
			return fmt.Errorf("journal line %d: %w", line, err)
		}
		s.seq = max(s.seq, r.Seq)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func toIndexed(r *row) *indexed {
	return &indexed{
		ID:      r.rec.ID,
		Content: r.rec.Content,
		Name:    r.rec.Name,
		Author:  r.rec.Author,
		SeqKey:  seqKey(r.Seq),
		Seq:     r.Seq,
		row:     r,
	}
}

// Close flushes and closes the journal.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journal == nil {
		return nil
	}
	err := s.journal.Close()
	s.journal = nil
	return err
}

// Create inserts a new record and appends it to the journal.
func (s *Store) Create(ctx context.Context, in registry.NewRecord) (registry.Record, error) {
	if err := ctx.Err(); err != nil {
		return registry.Record{}, err
	}
	if err := in.Validate(); err != nil {
		return registry.Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := in.Stamp(s.now())
	r := &row{Seq: s.seq + 1, Record: registry.ToWire(rec), rec: rec}

	if s.journal != nil {
		line, err := json.Marshal(r)
		if err != nil {
			return registry.Record{}, &registry.PersistenceError{Op: "create", Backend: backendName, Err: err}
		}
		if _, err := s.journal.Write(append(line, '\n')); err != nil {
			return registry.Record{}, &registry.PersistenceError{Op: "create", Backend: backendName, Err: err}
		}
	}

	txn := s.db.Txn(true)
	if err := txn.Insert(tableName, toIndexed(r)); err != nil {
		txn.Abort()
		return registry.Record{}, &registry.PersistenceError{Op: "create", Backend: backendName, Err: err}
	}
	txn.Commit()
	s.seq = r.Seq

	slog.Debug("Registered record", "id", rec.ID, "backend", backendName)
	return rec, nil
}

// List returns every record in insertion order.
func (s *Store) List(ctx context.Context) ([]registry.Record, error) {
	return s.scan(ctx, func(registry.Record) bool { return true })
}

// ListPublic returns public records in insertion order.
func (s *Store) ListPublic(ctx context.Context) ([]registry.Record, error) {
	return s.scan(ctx, func(r registry.Record) bool { return r.Visibility.IsPublic() })
}

// FindByContent uses the content index.
func (s *Store) FindByContent(ctx context.Context, content string) (registry.Record, error) {
	if err := ctx.Err(); err != nil {
		return registry.Record{}, err
	}
	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableName, "content", content)
	if err != nil {
		return registry.Record{}, &registry.PersistenceError{Op: "find", Backend: backendName, Err: err}
	}
	var matches []*indexed
	for obj := it.Next(); obj != nil; obj = it.Next() {
		matches = append(matches, obj.(*indexed))
	}
	if len(matches) == 0 {
		return registry.Record{}, registry.ErrNotFound
	}
	// Duplicates come back in id order; restore insertion order.
	sort.Slice(matches, func(i, j int) bool { return matches[i].Seq < matches[j].Seq })
	recs := make([]registry.Record, len(matches))
	for i, m := range matches {
		recs[i] = m.row.rec
	}
	rec, _ := registry.Earliest(recs)
	return rec, nil
}

// FindByField returns every record whose name or author equals value,
// ignoring ASCII case, in insertion order. Private records are included.
func (s *Store) FindByField(ctx context.Context, field registry.Field, value string) ([]registry.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if field != registry.FieldName && field != registry.FieldAuthor {
		return nil, fmt.Errorf("field %q has no exact index", field)
	}
	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableName, string(field), value)
	if err != nil {
		return nil, &registry.PersistenceError{Op: "find", Backend: backendName, Err: err}
	}
	var matches []*indexed
	for obj := it.Next(); obj != nil; obj = it.Next() {
		matches = append(matches, obj.(*indexed))
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Seq < matches[j].Seq })
	out := make([]registry.Record, len(matches))
	for i, m := range matches {
		out[i] = m.row.rec
	}
	return out, nil
}

// Search filters public records with case folding.
func (s *Store) Search(ctx context.Context, q registry.Query) ([]registry.Record, error) {
	m := registry.NewMatcher(q)
	return s.scan(ctx, func(r registry.Record) bool { return r.Visibility.IsPublic() && m.Match(r) })
}

func (s *Store) scan(ctx context.Context, keep func(registry.Record) bool) ([]registry.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableName, "seq")
	if err != nil {
		return nil, &registry.PersistenceError{Op: "list", Backend: backendName, Err: err}
	}
	out := []registry.Record{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		rec := obj.(*indexed).row.rec
		if keep(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}
