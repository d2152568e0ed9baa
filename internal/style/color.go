package style

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// MaxLuminance is the brightest foreground luminance accepted against a
// white background. Lighter colors are rejected by Validate.
const MaxLuminance = 180

var (
	// ErrInvalidColor is returned for strings that are not #RGB or #RRGGBB.
	ErrInvalidColor = errors.New("invalid hex color")
	// ErrLowContrast is returned when a foreground color is too light to scan.
	ErrLowContrast = errors.New("color too light for scanner contrast")
)

// Color is an opaque sRGB color.
type Color struct {
	R, G, B uint8
}

// Common colors.
var (
	Black = Color{0, 0, 0}
	White = Color{255, 255, 255}
)

// ParseColor parses colors like "#RRGGBB", "RRGGBB" or "#RGB".
func ParseColor(s string) (Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return Color{uint8(v >> 16), uint8(v >> 8), uint8(v)}, nil //nolint:gosec // G115: six hex digits fit in 24 bits
}

// MustParseColor is ParseColor for constants; it panics on malformed input.
func MustParseColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex formats the color as "#RRGGBB".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

func (c Color) String() string { return c.Hex() }

// RGBA converts to an opaque color.RGBA.
func (c Color) RGBA() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// Luminance approximates perceived brightness the way QR binarizers do,
// (r + 2g + b) / 4.
func (c Color) Luminance() int {
	return (int(c.R) + 2*int(c.G) + int(c.B)) / 4
}

// Lerp interpolates between c and to, t in [0,1].
func (c Color) Lerp(to Color, t float64) Color {
	if t <= 0 {
		return c
	}
	if t >= 1 {
		return to
	}
	mix := func(a, b uint8) uint8 {
		return uint8(float64(a) + (float64(b)-float64(a))*t + 0.5)
	}
	return Color{mix(c.R, to.R), mix(c.G, to.G), mix(c.B, to.B)}
}

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Color) UnmarshalText(b []byte) error {
	parsed, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
