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

func TestStampMark(t *testing.T) {
	sym := encode(t, "mark")
	img, layout, err := RenderLayout(sym, style.Default(), DefaultOptions())
	require.NoError(t, err)
	assert.False(t, HasMark(img))

	before := image.NewRGBA(img.Bounds())
	copy(before.Pix, img.Pix)

	StampMark(img)
	assert.True(t, HasMark(img))

	// The mark stays out of the symbol area.
	assert.False(t, MarkBounds().Overlaps(layout.SymbolRect()))
	sr := layout.SymbolRect()
	for y := sr.Min.Y; y < sr.Max.Y; y++ {
		for x := sr.Min.X; x < sr.Max.X; x++ {
			require.Equal(t, before.RGBAAt(x, y), img.RGBAAt(x, y))
		}
	}
}

func TestStampMark_IndependentOfStyle(t *testing.T) {
	a, err := Render(encode(t, "one"), style.Default(), DefaultOptions())
	require.NoError(t, err)
	st := style.Default().WithSecondary(style.MustParseColor("#9D174D"))
	st.EyeShape = style.ShapeCircle
	b, err := Render(encode(t, "a much longer payload that needs a bigger symbol"), st, DefaultOptions())
	require.NoError(t, err)

	StampMark(a)
	StampMark(b)
	r := MarkBounds()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			require.Equal(t, a.RGBAAt(x, y), b.RGBAAt(x, y))
		}
	}
}

func TestHasMark_SmallImage(t *testing.T) {
	assert.False(t, HasMark(image.NewRGBA(image.Rect(0, 0, 10, 10))))
}

func solidLogo(w, h int, c color.Color) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestMaxLogoRatio(t *testing.T) {
	tests := []struct {
		level symbol.Level
		want  float64
	}{
		{symbol.LevelL, 0.10},
		{symbol.LevelM, 0.15},
		{symbol.LevelQ, 0.20},
		{symbol.LevelH, 0.25},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, MaxLogoRatio(tt.level), 1e-9, "level %s", tt.level)
	}

	assert.Less(t, MaxLogoRatio(symbol.LevelL), MaxLogoRatio(symbol.LevelM))
	assert.Less(t, MaxLogoRatio(symbol.LevelM), MaxLogoRatio(symbol.LevelQ))
	assert.Less(t, MaxLogoRatio(symbol.LevelQ), MaxLogoRatio(symbol.LevelH))
	assert.LessOrEqual(t, DefaultLogoRatio, MaxLogoRatio(symbol.LevelH))
}

func TestCompositeLogo(t *testing.T) {
	sym := encode(t, "https://example.com/logo")
	img, layout, err := RenderLayout(sym, style.Default(), DefaultOptions())
	require.NoError(t, err)

	red := color.NRGBA{R: 220, A: 255}
	p, err := CompositeLogo(img, layout, solidLogo(64, 32, red), LogoOptions{
		Level:      symbol.LevelH,
		Background: style.White,
	})
	require.NoError(t, err)

	assert.False(t, p.Clamped)
	assert.InDelta(t, DefaultLogoRatio, p.Ratio, 1e-9)
	assert.Equal(t, layout.Center(), p.Center)
	assert.Equal(t, p.Diameter/2+LogoPadding, p.HaloRadius)

	c := img.RGBAAt(p.Center.X, p.Center.Y)
	assert.Equal(t, uint8(220), c.R)

	// Inside the halo but outside the logo circle is background.
	halo := img.RGBAAt(p.Center.X+p.Diameter/2+LogoPadding/2, p.Center.Y)
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, halo)

	// Corners of the logo's bounding box are clipped away.
	corner := img.RGBAAt(p.Center.X-p.Diameter/2+1, p.Center.Y-p.Diameter/2+1)
	assert.NotEqual(t, uint8(220), corner.R)
}

func TestCompositeLogo_Policies(t *testing.T) {
	sym := encode(t, "policy")

	t.Run("clamp", func(t *testing.T) {
		img, layout, err := RenderLayout(sym, style.Default(), DefaultOptions())
		require.NoError(t, err)
		p, err := CompositeLogo(img, layout, solidLogo(10, 10, color.Black), LogoOptions{
			Ratio: 0.6, Level: symbol.LevelH, Policy: LogoClamp, Background: style.White,
		})
		require.NoError(t, err)
		assert.True(t, p.Clamped)
		assert.InDelta(t, MaxLogoRatio(symbol.LevelH), p.Ratio, 1e-9)
	})

	t.Run("reject", func(t *testing.T) {
		img, layout, err := RenderLayout(sym, style.Default(), DefaultOptions())
		require.NoError(t, err)
		_, err = CompositeLogo(img, layout, solidLogo(10, 10, color.Black), LogoOptions{
			Ratio: 0.6, Level: symbol.LevelH, Policy: LogoReject, Background: style.White,
		})
		assert.ErrorIs(t, err, ErrLogoTooLarge)
		var renderErr *RenderError
		require.True(t, errors.As(err, &renderErr))
		assert.Equal(t, "logo", renderErr.Stage)
	})

	t.Run("level scales limit", func(t *testing.T) {
		img, layout, err := RenderLayout(sym, style.Default(), DefaultOptions())
		require.NoError(t, err)
		_, err = CompositeLogo(img, layout, solidLogo(10, 10, color.Black), LogoOptions{
			Ratio: 0.2, Level: symbol.LevelL, Policy: LogoReject, Background: style.White,
		})
		assert.ErrorIs(t, err, ErrLogoTooLarge)
	})

	t.Run("empty logo", func(t *testing.T) {
		img, layout, err := RenderLayout(sym, style.Default(), DefaultOptions())
		require.NoError(t, err)
		_, err = CompositeLogo(img, layout, image.NewNRGBA(image.Rect(0, 0, 0, 0)), LogoOptions{Level: symbol.LevelH})
		var renderErr *RenderError
		assert.True(t, errors.As(err, &renderErr))
	})
}
