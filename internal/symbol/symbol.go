// Package symbol turns text into a QR module grid using the gozxing
// encoder. The grid is what the renderer styles.
package symbol

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode/decoder"
	"github.com/makiuchi-d/gozxing/qrcode/encoder"
)

// FinderSize is the side of a finder pattern in modules.
const FinderSize = 7

// Level is a QR error-correction level.
type Level string

const (
	LevelL Level = "L"
	LevelM Level = "M"
	LevelQ Level = "Q"
	LevelH Level = "H"
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = LevelH

// ErrEmptyContent is returned when there is nothing to encode.
var ErrEmptyContent = errors.New("content is empty")

// ParseLevel parses "L", "M", "Q" or "H" case-insensitively.
func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToUpper(strings.TrimSpace(s))) {
	case LevelL:
		return LevelL, nil
	case LevelM:
		return LevelM, nil
	case LevelQ:
		return LevelQ, nil
	case LevelH, "":
		return LevelH, nil
	}
	return "", fmt.Errorf("invalid error correction level %q (must be one of: L, M, Q, H)", s)
}

func (l Level) zxing() decoder.ErrorCorrectionLevel {
	switch l {
	case LevelL:
		return decoder.ErrorCorrectionLevel_L
	case LevelM:
		return decoder.ErrorCorrectionLevel_M
	case LevelQ:
		return decoder.ErrorCorrectionLevel_Q
	default:
		return decoder.ErrorCorrectionLevel_H
	}
}

// EncodingError reports content that cannot be encoded at a level.
type EncodingError struct {
	Level  Level
	Length int
	Err    error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("cannot encode %d bytes at level %s: %v", e.Length, e.Level, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// Symbol is an immutable square module grid.
type Symbol struct {
	size    int
	version int
	level   Level
	dark    []bool
}

// Encode encodes content at the given level. Content outside ISO-8859-1 is
// encoded as UTF-8 with an ECI marker.
func Encode(content string, level Level) (*Symbol, error) {
	if level == "" {
		level = DefaultLevel
	}
	if content == "" {
		return nil, &EncodingError{Level: level, Err: ErrEmptyContent}
	}

	hints := map[gozxing.EncodeHintType]interface{}{}
	if needsUTF8(content) {
		hints[gozxing.EncodeHintType_CHARACTER_SET] = "UTF-8"
	}

	code, err := encoder.Encoder_encode(content, level.zxing(), hints)
	if err != nil {
		return nil, &EncodingError{Level: level, Length: len(content), Err: err}
	}

	matrix := code.GetMatrix()
	n := matrix.GetWidth()
	sym := &Symbol{
		size:    n,
		version: code.GetVersion().GetVersionNumber(),
		level:   level,
		dark:    make([]bool, n*n),
	}
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			sym.dark[y*n+x] = matrix.Get(x, y) == 1
		}
	}
	return sym, nil
}

// FromModules builds a symbol from an explicit grid. Rows must be square.
func FromModules(rows [][]bool, level Level) (*Symbol, error) {
	n := len(rows)
	if n < FinderSize*2+1 {
		return nil, fmt.Errorf("grid too small: %d modules", n)
	}
	sym := &Symbol{size: n, version: (n - 17) / 4, level: level, dark: make([]bool, n*n)}
	for y, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("row %d has %d modules, want %d", y, len(row), n)
		}
		copy(sym.dark[y*n:], row)
	}
	return sym, nil
}

func needsUTF8(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return true
		}
	}
	return false
}

// Size is the module count per side.
func (s *Symbol) Size() int { return s.size }

// Version is the QR version, 1 to 40.
func (s *Symbol) Version() int { return s.version }

// Level is the error-correction level the symbol was encoded at.
func (s *Symbol) Level() Level { return s.level }

// Dark reports whether the module at (x, y) is dark. Out-of-range
// coordinates are light.
func (s *Symbol) Dark(x, y int) bool {
	if x < 0 || y < 0 || x >= s.size || y >= s.size {
		return false
	}
	return s.dark[y*s.size+x]
}

// Finders returns the top-left module of the three finder patterns:
// top-left, top-right and bottom-left.
func (s *Symbol) Finders() [3]image.Point {
	far := s.size - FinderSize
	return [3]image.Point{{0, 0}, {far, 0}, {0, far}}
}

// InFinder reports whether (x, y) lies inside a finder pattern.
func (s *Symbol) InFinder(x, y int) bool {
	for _, f := range s.Finders() {
		if x >= f.X && x < f.X+FinderSize && y >= f.Y && y < f.Y+FinderSize {
			return true
		}
	}
	return false
}

// DarkCount returns the number of dark modules.
func (s *Symbol) DarkCount() int {
	n := 0
	for _, d := range s.dark {
		if d {
			n++
		}
	}
	return n
}
