package batch

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/checkcode/internal/testutil"
)

func setupTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"a.png", "b.jpg", "notes.txt", "skip_me.png", "sub/c.png", "sub/deep/d.webp"} {
		testutil.WriteFile(t, dir, name, []byte("x"))
	}
	return dir
}

func relative(t *testing.T, root string, paths []string) []string {
	t.Helper()
	out := make([]string, len(paths))
	for i, p := range paths {
		rel, err := filepath.Rel(root, p)
		require.NoError(t, err)
		out[i] = filepath.ToSlash(rel)
	}
	return out
}

func TestDiscoverImageFiles(t *testing.T) {
	dir := setupTree(t)

	tests := []struct {
		name      string
		recursive bool
		include   []string
		exclude   []string
		want      []string
	}{
		{name: "flat", want: []string{"a.png", "b.jpg", "skip_me.png"}},
		{name: "recursive", recursive: true, want: []string{"a.png", "b.jpg", "skip_me.png", "sub/c.png", "sub/deep/d.webp"}},
		{name: "include", recursive: true, include: []string{"*.png"}, want: []string{"a.png", "skip_me.png", "sub/c.png"}},
		{name: "exclude", include: []string{"*.png"}, exclude: []string{"skip_*"}, want: []string{"a.png"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := discoverImageFiles([]string{dir}, tt.recursive, tt.include, tt.exclude)
			require.NoError(t, err)
			assert.Equal(t, tt.want, relative(t, dir, files))
		})
	}
}

func TestDiscoverImageFiles_ExplicitFiles(t *testing.T) {
	dir := setupTree(t)

	// Explicit files are kept even with an unsupported extension.
	files, err := discoverImageFiles([]string{filepath.Join(dir, "notes.txt"), filepath.Join(dir, "a.png")}, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"notes.txt", "a.png"}, relative(t, dir, files))

	_, err = discoverImageFiles([]string{filepath.Join(dir, "missing.png")}, false, nil, nil)
	assert.ErrorContains(t, err, "cannot access")
}

func TestMatchesAnyPattern(t *testing.T) {
	assert.True(t, matchesAnyPattern("/x/y/photo.PNG", []string{"*.PNG"}))
	assert.False(t, matchesAnyPattern("/x/y/photo.png", nil))
	assert.False(t, matchesAnyPattern("/x/y/photo.png", []string{"[bad"}))
}

func TestDiscoverImageFiles_OverlappingArgs(t *testing.T) {
	dir := setupTree(t)

	files, err := discoverImageFiles([]string{
		filepath.Join(dir, "sub", "c.png"),
		dir,
		dir + string(filepath.Separator),
	}, true, []string{"*.png"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"sub/c.png", "a.png", "skip_me.png"}, relative(t, dir, files))
}

func TestFileFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter fileFilter
		path   string
		want   bool
	}{
		{"no patterns", fileFilter{}, "/x/a.png", true},
		{"include hit", fileFilter{include: []string{"*.png"}}, "/x/a.png", true},
		{"include miss", fileFilter{include: []string{"*.jpg"}}, "/x/a.png", false},
		{"exclude wins", fileFilter{include: []string{"*.png"}, exclude: []string{"a*"}}, "/x/a.png", false},
		{"directory part ignored", fileFilter{exclude: []string{"x*"}}, "/x/a.png", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.allows(tt.path))
		})
	}
}
