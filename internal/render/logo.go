package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"

	"github.com/MeKo-Tech/checkcode/internal/style"
	"github.com/MeKo-Tech/checkcode/internal/symbol"
)

const (
	// DefaultLogoRatio is the logo diameter relative to the symbol side.
	DefaultLogoRatio = 0.2

	// LogoPadding is the halo width around the logo in pixels.
	LogoPadding = 6

	minLogoDiameter = 8
)

// LogoPolicy decides what happens to logos above the supported ratio.
type LogoPolicy string

const (
	LogoClamp  LogoPolicy = "clamp"
	LogoReject LogoPolicy = "reject"
)

// ErrLogoTooLarge is returned under LogoReject for oversized logos.
var ErrLogoTooLarge = errors.New("logo exceeds supported size")

// MaxLogoRatio is the largest logo diameter, as a fraction of the symbol
// side, that stays within the damage the level's error correction absorbs.
func MaxLogoRatio(level symbol.Level) float64 {
	switch level {
	case symbol.LevelL:
		return 0.10
	case symbol.LevelM:
		return 0.15
	case symbol.LevelQ:
		return 0.20
	default:
		return 0.25
	}
}

// LogoOptions controls logo placement.
type LogoOptions struct {
	Ratio      float64
	Level      symbol.Level
	Policy     LogoPolicy
	Background style.Color
}

// LogoPlacement describes where a logo ended up.
type LogoPlacement struct {
	Center     image.Point
	Diameter   int
	HaloRadius int
	Ratio      float64
	Clamped    bool
}

// CompositeLogo centers logo on the symbol, clipped to a circle and laid
// on a solid halo that blanks the modules underneath.
func CompositeLogo(img *image.RGBA, layout Layout, logo image.Image, opts LogoOptions) (LogoPlacement, error) {
	if logo == nil || logo.Bounds().Empty() {
		return LogoPlacement{}, &RenderError{Stage: "logo", Err: errors.New("logo image is empty")}
	}

	ratio := opts.Ratio
	if ratio <= 0 {
		ratio = DefaultLogoRatio
	}
	placement := LogoPlacement{Center: layout.Center()}
	if limit := MaxLogoRatio(opts.Level); ratio > limit {
		if opts.Policy == LogoReject {
			return LogoPlacement{}, &RenderError{
				Stage: "logo",
				Err:   fmt.Errorf("%w: ratio %.2f above %.2f at level %s", ErrLogoTooLarge, ratio, limit, opts.Level),
			}
		}
		ratio = limit
		placement.Clamped = true
	}
	placement.Ratio = ratio

	d := int(math.Round(ratio * float64(layout.SymbolSide())))
	if d < minLogoDiameter {
		return LogoPlacement{}, &RenderError{Stage: "logo", Err: fmt.Errorf("logo diameter %dpx too small", d)}
	}
	placement.Diameter = d
	placement.HaloRadius = d/2 + LogoPadding

	c := placement.Center
	halo := placement.HaloRadius
	haloRect := image.Rect(c.X-halo, c.Y-halo, c.X+halo, c.Y+halo)
	bg := opts.Background.RGBA()
	fill(img, haloRect, disc(float64(halo), float64(halo), float64(halo)), func(int, int) color.RGBA { return bg })

	scaled := imaging.Fill(logo, d, d, imaging.Center, imaging.Lanczos)
	mask := circleMask(d)
	dst := image.Rect(c.X-d/2, c.Y-d/2, c.X-d/2+d, c.Y-d/2+d)
	xdraw.DrawMask(img, dst, scaled, image.Point{}, mask, image.Point{}, xdraw.Over)

	return placement, nil
}

func circleMask(d int) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, d, d))
	r := float64(d) / 2
	inside := disc(r, r, r)
	for y := 0; y < d; y++ {
		for x := 0; x < d; x++ {
			if inside(float64(x)+0.5, float64(y)+0.5) {
				mask.SetAlpha(x, y, color.Alpha{A: 255})
			}
		}
	}
	return mask
}
