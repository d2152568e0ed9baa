package render

import (
	"image"
	"image/color"

	"github.com/MeKo-Tech/checkcode/internal/style"
	"github.com/MeKo-Tech/checkcode/internal/utils"
)

// Verification mark geometry, in canvas pixels. These never depend on
// content or style. The glyph sits inside the MarkReserve margin, in the
// quiet zone next to the top-left finder, so it never covers a module.
var (
	MarkCenter      = image.Pt(20, 20)
	MarkRadius      = 13
	MarkFill        = style.MustParseColor("#16A34A")
	MarkStroke      = style.White
	MarkStrokeWidth = 3
	markCheck       = []image.Point{{13, 20}, {18, 25}, {27, 15}}
)

// MarkBounds is the rectangle the mark may touch.
func MarkBounds() image.Rectangle {
	r := MarkRadius
	return image.Rect(MarkCenter.X-r, MarkCenter.Y-r, MarkCenter.X+r+1, MarkCenter.Y+r+1)
}

// StampMark draws the verification glyph: a green disc with a white check.
func StampMark(img *image.RGBA) {
	fillColor := MarkFill.RGBA()
	r := float64(MarkRadius) + 0.5
	origin := MarkBounds().Min
	c := MarkCenter.Sub(origin)
	fill(img, MarkBounds(), disc(float64(c.X)+0.5, float64(c.Y)+0.5, r), func(int, int) color.RGBA { return fillColor })
	utils.DrawPolyline(img, markCheck, MarkStroke.RGBA(), MarkStrokeWidth)
}

// HasMark reports whether img carries the verification glyph at its fixed
// position. It is cosmetic evidence only; verification is by registry
// lookup.
func HasMark(img image.Image) bool {
	if !MarkBounds().In(img.Bounds()) {
		return false
	}
	same := func(p image.Point, want style.Color) bool {
		r, g, b, _ := img.At(p.X, p.Y).RGBA()
		return uint8(r>>8) == want.R && uint8(g>>8) == want.G && uint8(b>>8) == want.B
	}
	return same(image.Pt(MarkCenter.X, MarkCenter.Y+10), MarkFill) &&
		same(image.Pt(MarkCenter.X-10, MarkCenter.Y+4), MarkFill) &&
		same(markCheck[1], MarkStroke)
}
