package memdb

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/checkcode/internal/registry"
	"github.com/MeKo-Tech/checkcode/internal/registry/registrytest"
)

func TestStore_Contract(t *testing.T) {
	registrytest.Run(t, func(t *testing.T) registry.Registry {
		s, err := New()
		require.NoError(t, err)
		return s
	})
}

func TestStore_JournalContract(t *testing.T) {
	registrytest.Run(t, func(t *testing.T) registry.Registry {
		s, err := Open(Options{Path: filepath.Join(t.TempDir(), "registry.jsonl")})
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestStore_JournalReplay(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "registry.jsonl")

	s, err := Open(Options{Path: path})
	require.NoError(t, err)
	first, err := s.Create(ctx, registrytest.Sample("One", "https://one.example"))
	require.NoError(t, err)
	private := registrytest.Sample("Two", "two")
	private.Visibility = registry.Private
	_, err = s.Create(ctx, private)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(Options{Path: path})
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	all, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)
	assert.True(t, first.CreatedAt.Equal(all[0].CreatedAt))
	assert.Equal(t, first.Style, all[0].Style)

	// New records continue the sequence after replay.
	third, err := reopened.Create(ctx, registrytest.Sample("Three", "three"))
	require.NoError(t, err)
	all, err = reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, third.ID, all[2].ID)
}

func TestStore_CorruptJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{not json}\n"), 0o600))

	_, err := Open(Options{Path: path})
	var pe *registry.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "open", pe.Op)
	assert.True(t, pe.Retryable())
}

func TestStore_EarliestByTimestamp(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	times := []time.Time{base.Add(time.Hour), base}
	i := 0
	s, err := Open(Options{Now: func() time.Time {
		ts := times[i]
		i++
		return ts
	}})
	require.NoError(t, err)

	_, err = s.Create(ctx, registrytest.Sample("Later", "dup"))
	require.NoError(t, err)
	earlier, err := s.Create(ctx, registrytest.Sample("Earlier", "dup"))
	require.NoError(t, err)

	got, err := s.FindByContent(ctx, "dup")
	require.NoError(t, err)
	assert.Equal(t, earlier.ID, got.ID)
}

func TestStore_ConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	s, err := New()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Create(ctx, registrytest.Sample("c", "concurrent"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 50)
}

func TestStore_CanceledContext(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Create(ctx, registrytest.Sample("x", "x"))
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_FindByField(t *testing.T) {
	ctx := context.Background()
	s, err := New()
	require.NoError(t, err)

	first, err := s.Create(ctx, registrytest.Sample("Menu", "https://menu.example"))
	require.NoError(t, err)
	anonymous := registrytest.Sample("Anonymous", "anon")
	anonymous.Author = ""
	_, err = s.Create(ctx, anonymous)
	require.NoError(t, err)
	hidden := registrytest.Sample("menu", "https://menu.example/private")
	hidden.Author = "Owner"
	hidden.Visibility = registry.Private
	second, err := s.Create(ctx, hidden)
	require.NoError(t, err)

	tests := []struct {
		name  string
		field registry.Field
		value string
		want  []string
	}{
		{"name ignores case", registry.FieldName, "MENU", []string{first.ID, second.ID}},
		{"author", registry.FieldAuthor, "owner", []string{second.ID}},
		{"author shared", registry.FieldAuthor, "tester", []string{first.ID}},
		{"no substring match", registry.FieldName, "Men", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.FindByField(ctx, tt.field, tt.value)
			require.NoError(t, err)
			ids := make([]string, 0, len(got))
			for _, r := range got {
				ids = append(ids, r.ID)
			}
			if tt.want == nil {
				assert.Empty(t, ids)
				return
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	_, err = s.FindByField(ctx, registry.FieldContent, "anon")
	assert.Error(t, err)
}
