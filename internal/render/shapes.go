package render

import (
	"image"
	"image/color"

	"github.com/MeKo-Tech/checkcode/internal/style"
	"github.com/MeKo-Tech/checkcode/internal/symbol"
)

// minShapedModule is the smallest module size in pixels that gets a
// non-square shape. Below it every shape falls back to solid squares.
const minShapedModule = 3

// painter returns the foreground color for a canvas pixel.
type painter func(x, y int) color.RGBA

// coverage reports whether a pixel center, relative to a shape's origin,
// lies inside the shape.
type coverage func(x, y float64) bool

// fill paints every pixel of rect whose center is covered.
func fill(dst *image.RGBA, rect image.Rectangle, inside coverage, paint painter) {
	rect = rect.Intersect(dst.Bounds())
	for py := rect.Min.Y; py < rect.Max.Y; py++ {
		for px := rect.Min.X; px < rect.Max.X; px++ {
			fx := float64(px-rect.Min.X) + 0.5
			fy := float64(py-rect.Min.Y) + 0.5
			if inside(fx, fy) {
				dst.SetRGBA(px, py, paint(px, py))
			}
		}
	}
}

func square(w, h float64) coverage {
	return func(x, y float64) bool { return x >= 0 && y >= 0 && x <= w && y <= h }
}

func disc(cx, cy, r float64) coverage {
	return func(x, y float64) bool {
		dx, dy := x-cx, y-cy
		return dx*dx+dy*dy <= r*r
	}
}

func roundedRect(x0, y0, w, h, r float64) coverage {
	return func(x, y float64) bool {
		x, y = x-x0, y-y0
		if x < 0 || y < 0 || x > w || y > h {
			return false
		}
		cx := clampF(x, r, w-r)
		cy := clampF(y, r, h-r)
		dx, dy := x-cx, y-cy
		return dx*dx+dy*dy <= r*r
	}
}

func offsetRect(x0, y0, w, h float64) coverage {
	inner := square(w, h)
	return func(x, y float64) bool { return inner(x-x0, y-y0) }
}

func ring(outer, inner coverage) coverage {
	return func(x, y float64) bool { return outer(x, y) && !inner(x, y) }
}

func union(a, b coverage) coverage {
	return func(x, y float64) bool { return a(x, y) || b(x, y) }
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// dotCoverage is the shape of one ordinary dark module of side m.
func dotCoverage(shape style.Shape, m float64) coverage {
	if m < minShapedModule {
		shape = style.ShapeSquare
	}
	switch shape {
	case style.ShapeCircle:
		return disc(m/2, m/2, m/2)
	case style.ShapeRounded:
		return roundedRect(0, 0, m, m, 0.3*m)
	default:
		return square(m, m)
	}
}

// eyeCoverage is the shape of a whole 7x7 finder pattern with module size m:
// an outer ring one module thick around a light ring, and a 3x3 core.
func eyeCoverage(shape style.Shape, m float64) coverage {
	if m < minShapedModule {
		shape = style.ShapeSquare
	}
	n := float64(symbol.FinderSize) * m
	c := n / 2
	switch shape {
	case style.ShapeCircle:
		return union(
			ring(disc(c, c, 3.5*m), disc(c, c, 2.5*m)),
			disc(c, c, 1.5*m),
		)
	case style.ShapeRounded:
		return union(
			ring(roundedRect(0, 0, n, n, 2*m), roundedRect(m, m, n-2*m, n-2*m, 1.2*m)),
			roundedRect(2*m, 2*m, 3*m, 3*m, 0.8*m),
		)
	default:
		return union(
			ring(square(n, n), offsetRect(m, m, n-2*m, n-2*m)),
			offsetRect(2*m, 2*m, 3*m, 3*m),
		)
	}
}
