package render

import (
	"errors"
	"fmt"
	"image"
)

const (
	// DefaultSize is the canonical canvas side in pixels.
	DefaultSize = 400

	// QuietModules is the minimum quiet zone in modules on every side.
	QuietModules = 4

	// MarkReserve is the minimum margin in pixels on every side. The
	// verification mark lives inside it.
	MarkReserve = 40
)

// ErrCanvasTooSmall is returned when a symbol does not fit the canvas.
var ErrCanvasTooSmall = errors.New("canvas too small for symbol")

// RenderError reports a failure in one stage of drawing.
type RenderError struct {
	Stage string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render error in %s: %v", e.Stage, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Layout maps module coordinates to canvas pixels.
type Layout struct {
	Size       int
	Modules    int
	ModuleSize int
	Offset     image.Point
}

// NewLayout fits a symbol of the given module count onto a square canvas,
// centered, keeping at least QuietModules modules and MarkReserve pixels
// of margin.
func NewLayout(size, modules int) (Layout, error) {
	if modules <= 0 {
		return Layout{}, &RenderError{Stage: "layout", Err: fmt.Errorf("invalid module count %d", modules)}
	}
	m := min(size/(modules+2*QuietModules), (size-2*MarkReserve)/modules)
	if m < 1 {
		return Layout{}, &RenderError{
			Stage: "layout",
			Err:   fmt.Errorf("%w: %d modules on %dpx", ErrCanvasTooSmall, modules, size),
		}
	}
	side := modules * m
	off := (size - side) / 2
	return Layout{Size: size, Modules: modules, ModuleSize: m, Offset: image.Pt(off, off)}, nil
}

// SymbolSide is the symbol's side in pixels, without quiet zone.
func (l Layout) SymbolSide() int { return l.Modules * l.ModuleSize }

// SymbolRect is the pixel area covered by modules.
func (l Layout) SymbolRect() image.Rectangle {
	return image.Rectangle{Min: l.Offset, Max: l.Offset.Add(image.Pt(l.SymbolSide(), l.SymbolSide()))}
}

// ModuleRect is the pixel area of the module at (x, y).
func (l Layout) ModuleRect(x, y int) image.Rectangle {
	origin := l.Offset.Add(image.Pt(x*l.ModuleSize, y*l.ModuleSize))
	return image.Rectangle{Min: origin, Max: origin.Add(image.Pt(l.ModuleSize, l.ModuleSize))}
}

// Center is the pixel center of the symbol.
func (l Layout) Center() image.Point {
	half := l.SymbolSide() / 2
	return l.Offset.Add(image.Pt(half, half))
}
