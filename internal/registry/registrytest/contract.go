// Package registrytest holds the behavior every registry backend must share.
package registrytest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/checkcode/internal/registry"
	"github.com/MeKo-Tech/checkcode/internal/style"
)

// Factory returns an empty registry for one subtest.
type Factory func(t *testing.T) registry.Registry

// Sample returns a valid public record input.
func Sample(name, content string) registry.NewRecord {
	return registry.NewRecord{
		Name:        name,
		ContentType: style.DetectContentType(content),
		Content:     content,
		Author:      "tester",
		Style:       style.Default().WithSecondary(style.MustParseColor("#1D4ED8")),
		Visibility:  registry.Public,
	}
}

// Run exercises the Registry contract against backends built by newRegistry.
func Run(t *testing.T, newRegistry Factory) {
	t.Helper()
	ctx := context.Background()

	t.Run("create assigns id and time", func(t *testing.T) {
		r := newRegistry(t)
		in := Sample("Site", "https://example.com")
		in.Style.EyeShape = style.ShapeCircle
		in.Style.Logo = "data:image/png;base64,AAAA"

		rec, err := r.Create(ctx, in)
		require.NoError(t, err)
		assert.NotEmpty(t, rec.ID)
		assert.False(t, rec.CreatedAt.IsZero())
		assert.Equal(t, "UTC", rec.CreatedAt.Location().String())
		assert.Equal(t, in.Name, rec.Name)
		assert.Equal(t, in.Content, rec.Content)
		assert.Equal(t, in.Author, rec.Author)
		assert.Equal(t, in.Style, rec.Style)
		assert.Equal(t, style.ContentURL, rec.ContentType)
		assert.Equal(t, registry.Public, rec.Visibility)

		other, err := r.Create(ctx, Sample("Other", "other"))
		require.NoError(t, err)
		assert.NotEqual(t, rec.ID, other.ID)
	})

	t.Run("create rejects invalid input", func(t *testing.T) {
		r := newRegistry(t)
		_, err := r.Create(ctx, Sample("Empty", ""))
		assert.ErrorIs(t, err, registry.ErrInvalidRecord)

		all, err := r.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("find by content", func(t *testing.T) {
		r := newRegistry(t)
		created, err := r.Create(ctx, Sample("Mail", "hello@example.com"))
		require.NoError(t, err)

		got, err := r.FindByContent(ctx, "hello@example.com")
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)

		_, err = r.FindByContent(ctx, "HELLO@example.com")
		assert.ErrorIs(t, err, registry.ErrNotFound)
		_, err = r.FindByContent(ctx, "hello@example")
		assert.ErrorIs(t, err, registry.ErrNotFound)
	})

	t.Run("find by content returns earliest duplicate", func(t *testing.T) {
		r := newRegistry(t)
		first, err := r.Create(ctx, Sample("First", "dup"))
		require.NoError(t, err)
		_, err = r.Create(ctx, Sample("Second", "dup"))
		require.NoError(t, err)

		got, err := r.FindByContent(ctx, "dup")
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)
	})

	t.Run("list and list public keep insertion order", func(t *testing.T) {
		r := newRegistry(t)
		var ids []string
		for i, name := range []string{"a", "b", "c", "d"} {
			in := Sample(name, "content-"+name)
			if i%2 == 1 {
				in.Visibility = registry.Private
			}
			rec, err := r.Create(ctx, in)
			require.NoError(t, err)
			ids = append(ids, rec.ID)
		}

		all, err := r.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 4)
		for i, rec := range all {
			assert.Equal(t, ids[i], rec.ID)
		}

		public, err := r.ListPublic(ctx)
		require.NoError(t, err)
		require.Len(t, public, 2)
		assert.Equal(t, ids[0], public[0].ID)
		assert.Equal(t, ids[2], public[1].ID)
	})

	t.Run("search", func(t *testing.T) {
		r := newRegistry(t)
		in := Sample("Straße Café", "https://cafe.example")
		in.Author = "Jürgen"
		_, err := r.Create(ctx, in)
		require.NoError(t, err)
		_, err = r.Create(ctx, Sample("Bakery", "tel:+4930"))
		require.NoError(t, err)
		hidden := Sample("Secret Café", "hidden")
		hidden.Visibility = registry.Private
		_, err = r.Create(ctx, hidden)
		require.NoError(t, err)

		tests := []struct {
			q    registry.Query
			want []string
		}{
			{registry.Query{Text: "café"}, []string{"Straße Café"}},
			{registry.Query{Text: "STRASSE"}, []string{"Straße Café"}},
			{registry.Query{Text: "jürgen", Field: registry.FieldAuthor}, []string{"Straße Café"}},
			{registry.Query{Text: "jürgen", Field: registry.FieldName}, nil},
			{registry.Query{Text: "4930", Field: registry.FieldContent}, []string{"Bakery"}},
			{registry.Query{Text: "EXAMPLE"}, []string{"Straße Café"}},
			{registry.Query{}, []string{"Straße Café", "Bakery"}},
			{registry.Query{Text: "secret"}, nil},
		}
		for _, tt := range tests {
			got, err := r.Search(ctx, tt.q)
			require.NoError(t, err)
			var names []string
			for _, rec := range got {
				names = append(names, rec.Name)
			}
			assert.Equal(t, tt.want, names, "query %+v", tt.q)
		}
	})
}
