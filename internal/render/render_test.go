package render

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/checkcode/internal/style"
	"github.com/MeKo-Tech/checkcode/internal/symbol"
)

func center(r image.Rectangle) image.Point {
	return image.Pt((r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2)
}

func encode(t *testing.T, content string) *symbol.Symbol {
	t.Helper()
	sym, err := symbol.Encode(content, symbol.LevelH)
	require.NoError(t, err)
	return sym
}

func TestNewLayout(t *testing.T) {
	tests := []struct {
		modules    int
		wantModule int
	}{
		{21, 13},
		{29, 10},
		{41, 7},
		{177, 1},
	}
	for _, tt := range tests {
		l, err := NewLayout(DefaultSize, tt.modules)
		require.NoError(t, err)
		assert.Equal(t, tt.wantModule, l.ModuleSize, "modules=%d", tt.modules)
		assert.GreaterOrEqual(t, l.Offset.X, MarkReserve)
		assert.GreaterOrEqual(t, l.Offset.X, QuietModules*l.ModuleSize)
		assert.LessOrEqual(t, l.SymbolRect().Max.X, DefaultSize-MarkReserve)
	}

	_, err := NewLayout(100, 177)
	assert.ErrorIs(t, err, ErrCanvasTooSmall)
	var renderErr *RenderError
	require.True(t, errors.As(err, &renderErr))
	assert.Equal(t, "layout", renderErr.Stage)
}

func TestRender_FlatColoring(t *testing.T) {
	sym := encode(t, "https://example.com")
	st := style.Default()
	img, layout, err := RenderLayout(sym, st, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, DefaultSize, DefaultSize), img.Bounds())

	// Background and quiet zone stay white.
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, img.RGBAAt(DefaultSize-1, DefaultSize-1))

	// Finder core is dark, the ring inside the finder is light.
	core := center(layout.ModuleRect(3, 3))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(core.X, core.Y))
	gap := center(layout.ModuleRect(1, 1))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, img.RGBAAt(gap.X, gap.Y))

	// Every data module center matches the symbol.
	n := sym.Size()
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			if sym.InFinder(x, y) {
				continue
			}
			p := center(layout.ModuleRect(x, y))
			dark := img.RGBAAt(p.X, p.Y).R == 0
			require.Equal(t, sym.Dark(x, y), dark, "module (%d,%d)", x, y)
		}
	}
}

func TestRender_GradientColoring(t *testing.T) {
	sym := encode(t, "gradient")
	blue := style.MustParseColor("#1E40AF")
	st := style.Default().WithSecondary(blue)

	img, layout, err := RenderLayout(sym, st, DefaultOptions())
	require.NoError(t, err)

	topLeft := center(layout.ModuleRect(3, 3))
	far := sym.Finders()[1]
	topRight := center(layout.ModuleRect(far.X+3, far.Y+3))

	want := func(p image.Point) color.RGBA {
		return style.Black.Lerp(blue, float64(p.X+p.Y)/float64(2*(DefaultSize-1))).RGBA()
	}
	assert.Equal(t, want(topLeft), img.RGBAAt(topLeft.X, topLeft.Y))
	assert.Equal(t, want(topRight), img.RGBAAt(topRight.X, topRight.Y))
	assert.NotEqual(t, img.RGBAAt(topLeft.X, topLeft.Y), img.RGBAAt(topRight.X, topRight.Y))
}

func TestRender_EqualSecondaryIsFlat(t *testing.T) {
	sym := encode(t, "flat")
	primary := style.MustParseColor("#7C3AED")
	st := style.Style{Primary: primary, EyeShape: style.ShapeSquare, DotShape: style.ShapeSquare}
	flat, err := Render(sym, st, DefaultOptions())
	require.NoError(t, err)

	same, err := Render(sym, st.WithSecondary(primary), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, flat.Pix, same.Pix)
}

func TestRender_ShapesDiffer(t *testing.T) {
	sym := encode(t, "shapes")
	base := style.Default()

	square, err := Render(sym, base, DefaultOptions())
	require.NoError(t, err)

	for _, shape := range []style.Shape{style.ShapeCircle, style.ShapeRounded} {
		st := base
		st.DotShape = shape
		st.EyeShape = shape
		img, err := Render(sym, st, DefaultOptions())
		require.NoError(t, err)
		assert.NotEqual(t, square.Pix, img.Pix, "shape %s", shape)
	}
}

func TestRender_CircleEyeKeepsFinderRatios(t *testing.T) {
	sym := encode(t, "eyes")
	st := style.Default()
	st.EyeShape = style.ShapeCircle
	img, layout, err := RenderLayout(sym, st, DefaultOptions())
	require.NoError(t, err)

	// Along the finder's middle row: dark, light, dark core, light, dark.
	row := center(layout.ModuleRect(0, 3)).Y
	for mx, dark := range []bool{true, false, true, true, true, false, true} {
		p := center(layout.ModuleRect(mx, 3))
		assert.Equal(t, dark, img.RGBAAt(p.X, row).R == 0, "module %d", mx)
	}
}

func TestRender_Deterministic(t *testing.T) {
	sym := encode(t, "same")
	st := style.Default().WithSecondary(style.MustParseColor("#0F766E"))
	st.DotShape = style.ShapeRounded
	a, err := Render(sym, st, DefaultOptions())
	require.NoError(t, err)
	b, err := Render(sym, st, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, a.Pix, b.Pix)
}

func TestRender_Errors(t *testing.T) {
	sym := encode(t, "errors")

	_, err := Render(nil, style.Default(), DefaultOptions())
	assert.Error(t, err)

	bad := style.Default()
	bad.Primary = style.MustParseColor("#FFFFAA")
	_, err = Render(sym, bad, DefaultOptions())
	var renderErr *RenderError
	require.True(t, errors.As(err, &renderErr))
	assert.Equal(t, "style", renderErr.Stage)
	assert.ErrorIs(t, err, style.ErrLowContrast)

	_, err = Render(sym, style.Default(), Options{Size: DefaultSize, Background: style.Black})
	require.True(t, errors.As(err, &renderErr))

	_, err = Render(sym, style.Default(), Options{Size: 60, Background: style.White})
	assert.ErrorIs(t, err, ErrCanvasTooSmall)
}
