// Package render draws styled QR symbols: dots, finder eyes, gradient
// coloring, the verification mark and an optional centered logo.
// All drawing is deterministic; the same input always yields the same
// pixels.
package render

import (
	"errors"
	"image"
	"image/color"

	"github.com/MeKo-Tech/checkcode/internal/style"
	"github.com/MeKo-Tech/checkcode/internal/symbol"
)

// MinBackgroundLuminance keeps the background light enough for scanners.
const MinBackgroundLuminance = 200

// Options controls the canvas.
type Options struct {
	Size       int
	Background style.Color
}

// DefaultOptions returns the canonical 400x400 white canvas.
func DefaultOptions() Options {
	return Options{Size: DefaultSize, Background: style.White}
}

// Render draws sym with st onto a new canvas. Light modules are left as
// background; only dark modules and eyes are styled.
func Render(sym *symbol.Symbol, st style.Style, opts Options) (*image.RGBA, error) {
	img, _, err := RenderLayout(sym, st, opts)
	return img, err
}

// RenderLayout is Render that also returns the layout used, which later
// stages need to place the logo.
func RenderLayout(sym *symbol.Symbol, st style.Style, opts Options) (*image.RGBA, Layout, error) {
	if sym == nil {
		return nil, Layout{}, &RenderError{Stage: "symbol", Err: errors.New("symbol is nil")}
	}
	if opts.Size == 0 {
		opts.Size = DefaultSize
	}
	if err := st.Validate(); err != nil {
		return nil, Layout{}, &RenderError{Stage: "style", Err: err}
	}
	if opts.Background.Luminance() < MinBackgroundLuminance {
		return nil, Layout{}, &RenderError{Stage: "style", Err: errors.New("background too dark")}
	}
	layout, err := NewLayout(opts.Size, sym.Size())
	if err != nil {
		return nil, Layout{}, err
	}

	img := image.NewRGBA(image.Rect(0, 0, opts.Size, opts.Size))
	bg := opts.Background.RGBA()
	fill(img, img.Bounds(), square(float64(opts.Size), float64(opts.Size)), func(int, int) color.RGBA { return bg })

	paint := gradientPainter(st, opts.Size)
	m := float64(layout.ModuleSize)
	dot := dotCoverage(st.DotShape, m)

	n := sym.Size()
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			if !sym.Dark(x, y) || sym.InFinder(x, y) {
				continue
			}
			fill(img, layout.ModuleRect(x, y), dot, paint)
		}
	}

	eye := eyeCoverage(st.EyeShape, m)
	for _, f := range sym.Finders() {
		r := layout.ModuleRect(f.X, f.Y)
		r.Max = r.Min.Add(image.Pt(symbol.FinderSize*layout.ModuleSize, symbol.FinderSize*layout.ModuleSize))
		fill(img, r, eye, paint)
	}

	return img, layout, nil
}

// gradientPainter colors pixels with a diagonal linear gradient from the
// top-left to the bottom-right corner of the canvas, or flat when the style
// has no distinct secondary color.
func gradientPainter(st style.Style, size int) painter {
	from, to, ok := st.Gradient()
	if !ok {
		flat := from.RGBA()
		return func(int, int) color.RGBA { return flat }
	}
	span := float64(2 * (size - 1))
	if span <= 0 {
		span = 1
	}
	return func(x, y int) color.RGBA {
		return from.Lerp(to, float64(x+y)/span).RGBA()
	}
}
