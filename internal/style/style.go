// Package style holds the closed, validated style descriptor used to
// render QR codes, plus the advisory content type of a payload.
package style

import (
	"errors"
	"fmt"
	"strings"
)

// Shape is the drawing primitive for dots or finder eyes.
type Shape string

const (
	ShapeSquare  Shape = "square"
	ShapeCircle  Shape = "circle"
	ShapeRounded Shape = "rounded"
)

// ErrInvalidShape is returned for shapes outside the closed set.
var ErrInvalidShape = errors.New("invalid shape")

// Shapes lists every supported shape.
func Shapes() []Shape {
	return []Shape{ShapeSquare, ShapeCircle, ShapeRounded}
}

// ParseShape parses a shape name case-insensitively.
func ParseShape(s string) (Shape, error) {
	switch Shape(strings.ToLower(strings.TrimSpace(s))) {
	case ShapeSquare:
		return ShapeSquare, nil
	case ShapeCircle:
		return ShapeCircle, nil
	case ShapeRounded:
		return ShapeRounded, nil
	}
	return "", fmt.Errorf("%w: %q (must be one of: square, circle, rounded)", ErrInvalidShape, s)
}

// Valid reports whether s is one of the supported shapes.
func (s Shape) Valid() bool {
	switch s {
	case ShapeSquare, ShapeCircle, ShapeRounded:
		return true
	}
	return false
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Shape) UnmarshalText(b []byte) error {
	parsed, err := ParseShape(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Style is the rendering descriptor stored with every record. It is not
// derivable from the rendered bitmap.
type Style struct {
	Primary   Color  `json:"primary"`
	Secondary *Color `json:"secondary,omitempty"`
	EyeShape  Shape  `json:"eyeShape"`
	DotShape  Shape  `json:"dotShape"`
	// Logo is an optional image data URL composited at the center.
	Logo string `json:"logo,omitempty"`
}

// Default returns the plain black square style.
func Default() Style {
	return Style{
		Primary:  Black,
		EyeShape: ShapeSquare,
		DotShape: ShapeSquare,
	}
}

// WithSecondary returns a copy of s using a gradient towards c.
func (s Style) WithSecondary(c Color) Style {
	s.Secondary = &c
	return s
}

// Gradient reports the gradient endpoints. ok is false when the style should
// be rendered flat, which is the case when Secondary is absent or equal to
// Primary.
func (s Style) Gradient() (from, to Color, ok bool) {
	if s.Secondary == nil || *s.Secondary == s.Primary {
		return s.Primary, s.Primary, false
	}
	return s.Primary, *s.Secondary, true
}

// HasLogo reports whether a logo should be composited.
func (s Style) HasLogo() bool {
	return strings.TrimSpace(s.Logo) != ""
}

// Validate checks shapes and foreground contrast.
func (s Style) Validate() error {
	if !s.EyeShape.Valid() {
		return fmt.Errorf("eye shape: %w: %q", ErrInvalidShape, s.EyeShape)
	}
	if !s.DotShape.Valid() {
		return fmt.Errorf("dot shape: %w: %q", ErrInvalidShape, s.DotShape)
	}
	if s.Primary.Luminance() >= MaxLuminance {
		return fmt.Errorf("primary color %s: %w", s.Primary, ErrLowContrast)
	}
	if s.Secondary != nil && s.Secondary.Luminance() >= MaxLuminance {
		return fmt.Errorf("secondary color %s: %w", *s.Secondary, ErrLowContrast)
	}
	return nil
}
