package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/checkcode/internal/registry"
	"github.com/MeKo-Tech/checkcode/internal/registry/postgres/migrations"
	"github.com/MeKo-Tech/checkcode/internal/style"
)

var columns = []string{
	"id", "name", "content_type", "content", "author", "color1", "color2",
	"eye_style", "dot_style", "logo_image", "created_at", "is_public",
}

func newStoreWithMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

var created = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func TestCreate_Success(t *testing.T) {
	s, mock := newStoreWithMock(t)
	s.now = func() time.Time { return created }

	mock.ExpectExec(`INSERT INTO records .* VALUES \(\$1, .* \$12\)`).
		WithArgs(sqlmock.AnyArg(), "Site", "url", "https://example.com", "me",
			"#000000", "#1D4ED8", "circle", "square", "", created, true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	st := style.Default().WithSecondary(style.MustParseColor("#1D4ED8"))
	st.EyeShape = style.ShapeCircle
	rec, err := s.Create(context.Background(), registry.NewRecord{
		Name:       "Site",
		Content:    "https://example.com",
		Author:     "me",
		Style:      st,
		Visibility: registry.Public,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, created, rec.CreatedAt)
	assert.Equal(t, style.ContentURL, rec.ContentType)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_Invalid(t *testing.T) {
	s, mock := newStoreWithMock(t)
	_, err := s.Create(context.Background(), registry.NewRecord{Visibility: registry.Public, Style: style.Default()})
	assert.ErrorIs(t, err, registry.ErrInvalidRecord)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DBError(t *testing.T) {
	s, mock := newStoreWithMock(t)
	mock.ExpectExec(`INSERT INTO records`).WillReturnError(errors.New("db is down"))

	_, err := s.Create(context.Background(), registry.NewRecord{
		Content: "x", Style: style.Default(), Visibility: registry.Private,
	})
	var pe *registry.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "create", pe.Op)
	assert.Equal(t, "postgres", pe.Backend)
	assert.EqualError(t, pe.Err, "db is down")
}

func TestFindByContent(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM records WHERE content = \$1 ORDER BY created_at, seq LIMIT 1`).
		WithArgs("dup").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			"11111111-1111-4111-8111-111111111111", "First", "text", "dup", "a",
			"#111827", nil, "rounded", "circle", "", created, false))

	rec, err := s.FindByContent(context.Background(), "dup")
	require.NoError(t, err)
	assert.Equal(t, "First", rec.Name)
	assert.Equal(t, registry.Private, rec.Visibility)
	assert.Nil(t, rec.Style.Secondary)
	assert.Equal(t, style.ShapeRounded, rec.Style.EyeShape)
	assert.Equal(t, style.ShapeCircle, rec.Style.DotShape)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByContent_NotFound(t *testing.T) {
	s, mock := newStoreWithMock(t)
	mock.ExpectQuery(`SELECT .* WHERE content = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(columns))

	_, err := s.FindByContent(context.Background(), "missing")
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestFindByContent_DBError(t *testing.T) {
	s, mock := newStoreWithMock(t)
	mock.ExpectQuery(`SELECT .* WHERE content = \$1`).WillReturnError(errors.New("timeout"))

	_, err := s.FindByContent(context.Background(), "x")
	assert.True(t, registry.IsPersistence(err))
}

func TestListPublicAndSearch(t *testing.T) {
	s, mock := newStoreWithMock(t)
	rows := func() *sqlmock.Rows {
		return sqlmock.NewRows(columns).
			AddRow("11111111-1111-4111-8111-111111111111", "Café", "url", "https://cafe.example", "Jürgen",
				"#000000", "#1D4ED8", "square", "square", "", created, true).
			AddRow("22222222-2222-4222-8222-222222222222", "Bakery", "phone", "+4930", "Ana",
				"#000000", nil, "square", "square", "", created.Add(time.Minute), true)
	}
	q := regexp.QuoteMeta(`FROM records WHERE is_public ORDER BY seq`)
	mock.ExpectQuery(q).WillReturnRows(rows())
	mock.ExpectQuery(q).WillReturnRows(rows())

	public, err := s.ListPublic(context.Background())
	require.NoError(t, err)
	require.Len(t, public, 2)
	assert.Equal(t, "Café", public[0].Name)
	require.NotNil(t, public[0].Style.Secondary)

	found, err := s.Search(context.Background(), registry.Query{Text: "JÜRGEN", Field: registry.FieldAuthor})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Café", found[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestList_BadRow(t *testing.T) {
	s, mock := newStoreWithMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM records ORDER BY seq`)).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			"11111111-1111-4111-8111-111111111111", "x", "text", "x", "",
			"#000000", nil, "hexagon", "square", "", created, true))

	_, err := s.List(context.Background())
	var pe *registry.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "list", pe.Op)
	assert.ErrorIs(t, err, style.ErrInvalidShape)
}

func TestRunMigrations(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	var gotDir string
	gooseUpContext = func(_ context.Context, _ *sql.DB, dir string, _ ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}
	require.NoError(t, RunMigrations(context.Background(), db))
	assert.Equal(t, ".", gotDir)

	gooseUpContext = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		return errors.New("migrate failed")
	}
	assert.EqualError(t, RunMigrations(context.Background(), db), "migrate failed")
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrations.Migrations.ReadDir(".")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Regexp(t, `^\d{5}_.*\.sql$`, entries[0].Name())
}
