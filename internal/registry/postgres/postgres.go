// Package postgres is the PostgreSQL registry backend. It talks to the
// database through database/sql with the pgx driver and applies its schema
// with embedded goose migrations.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/MeKo-Tech/checkcode/internal/registry"
	"github.com/MeKo-Tech/checkcode/internal/registry/postgres/migrations"
	"github.com/MeKo-Tech/checkcode/internal/style"
)

const backendName = "postgres"

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements registry.Registry over a DBTX.
type Store struct {
	db  DBTX
	now func() time.Time
}

var _ registry.Registry = (*Store)(nil)

// New binds a store to db. The schema must already exist.
func New(db DBTX) *Store {
	return &Store{db: db, now: time.Now}
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// Open connects to dsn, migrates the schema and returns the store with its
// connection pool, which the caller must close.
func Open(ctx context.Context, dsn string) (*Store, *sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, nil, &registry.PersistenceError{Op: "open", Backend: backendName, Err: err}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, &registry.PersistenceError{Op: "open", Backend: backendName, Err: err}
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, &registry.PersistenceError{Op: "migrate", Backend: backendName, Err: err}
	}
	slog.Info("Connected registry database", "backend", backendName)
	return New(db), db, nil
}

const selectColumns = `SELECT id, name, content_type, content, author, color1, color2,
	eye_style, dot_style, logo_image, created_at, is_public FROM records`

// Create inserts a record.
func (s *Store) Create(ctx context.Context, in registry.NewRecord) (registry.Record, error) {
	if err := in.Validate(); err != nil {
		return registry.Record{}, err
	}
	rec := in.Stamp(s.now())

	var color2 sql.NullString
	if rec.Style.Secondary != nil {
		color2 = sql.NullString{String: rec.Style.Secondary.Hex(), Valid: true}
	}
	query := `
		INSERT INTO records (id, name, content_type, content, author, color1, color2,
			eye_style, dot_style, logo_image, created_at, is_public)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Name, string(rec.ContentType), rec.Content, rec.Author,
		rec.Style.Primary.Hex(), color2, string(rec.Style.EyeShape), string(rec.Style.DotShape),
		rec.Style.Logo, rec.CreatedAt, rec.Visibility.IsPublic())
	if err != nil {
		return registry.Record{}, &registry.PersistenceError{Op: "create", Backend: backendName, Err: err}
	}
	return rec, nil
}

// List returns every record in insertion order.
func (s *Store) List(ctx context.Context) ([]registry.Record, error) {
	return s.query(ctx, "list", selectColumns+` ORDER BY seq`)
}

// ListPublic returns public records in insertion order.
func (s *Store) ListPublic(ctx context.Context) ([]registry.Record, error) {
	return s.query(ctx, "list_public", selectColumns+` WHERE is_public ORDER BY seq`)
}

// FindByContent returns the earliest record with exactly this content.
func (s *Store) FindByContent(ctx context.Context, content string) (registry.Record, error) {
	row := s.db.QueryRowContext(ctx,
		selectColumns+` WHERE content = $1 ORDER BY created_at, seq LIMIT 1`, content)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return registry.Record{}, registry.ErrNotFound
	}
	if err != nil {
		return registry.Record{}, &registry.PersistenceError{Op: "find", Backend: backendName, Err: err}
	}
	return rec, nil
}

// Search folds case in Go so matching agrees with the other backends.
func (s *Store) Search(ctx context.Context, q registry.Query) ([]registry.Record, error) {
	public, err := s.ListPublic(ctx)
	if err != nil {
		return nil, err
	}
	return registry.FilterPublic(public, q), nil
}

func (s *Store) query(ctx context.Context, op, query string, args ...any) ([]registry.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &registry.PersistenceError{Op: op, Backend: backendName, Err: err}
	}
	defer func() { _ = rows.Close() }()

	result := []registry.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, &registry.PersistenceError{Op: op, Backend: backendName, Err: err}
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &registry.PersistenceError{Op: op, Backend: backendName, Err: err}
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (registry.Record, error) {
	var (
		w                  registry.WireRecord
		contentType        string
		eyeStyle, dotStyle string
		color2             sql.NullString
		createdAt          time.Time
	)
	if err := sc.Scan(&w.ID, &w.Name, &contentType, &w.Content, &w.Author, &w.Color1, &color2,
		&eyeStyle, &dotStyle, &w.LogoImage, &createdAt, &w.IsPublic); err != nil {
		return registry.Record{}, err
	}
	ct, err := style.ParseContentType(contentType)
	if err != nil {
		return registry.Record{}, err
	}
	eye, err := style.ParseShape(eyeStyle)
	if err != nil {
		return registry.Record{}, err
	}
	dot, err := style.ParseShape(dotStyle)
	if err != nil {
		return registry.Record{}, err
	}
	w.Type, w.EyeStyle, w.DotStyle = ct, eye, dot
	w.Color2 = color2.String
	w.CreatedAt = &createdAt

	rec, err := w.Record()
	if err != nil {
		return registry.Record{}, fmt.Errorf("decode row %s: %w", w.ID, err)
	}
	return rec, nil
}
