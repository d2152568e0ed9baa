package render

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genModules generates module counts of QR versions 1 to 40.
func genModules() gopter.Gen {
	return gen.IntRange(1, 40).Map(func(v int) int { return 17 + 4*v })
}

func TestNewLayout_KeepsMargins(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("every side keeps the quiet zone and mark reserve", prop.ForAll(
		func(size, modules int) bool {
			l, err := NewLayout(size, modules)
			if err != nil {
				return true
			}
			rect := l.SymbolRect()
			left, top := rect.Min.X, rect.Min.Y
			right, bottom := size-rect.Max.X, size-rect.Max.Y
			for _, margin := range []int{left, top, right, bottom} {
				if margin < QuietModules*l.ModuleSize || margin < MarkReserve {
					return false
				}
			}
			return true
		},
		gen.IntRange(100, 1600),
		genModules(),
	))

	properties.TestingRun(t)
}

func TestNewLayout_FailsOnlyWhenModulesDoNotFit(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("an error means not even one pixel per module fits", prop.ForAll(
		func(size, modules int) bool {
			_, err := NewLayout(size, modules)
			fits := size >= modules+2*QuietModules && size-2*MarkReserve >= modules
			return (err == nil) == fits
		},
		gen.IntRange(20, 600),
		genModules(),
	))

	properties.TestingRun(t)
}

func TestNewLayout_Centered(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("symbol is centered to within one pixel", prop.ForAll(
		func(size, modules int) bool {
			l, err := NewLayout(size, modules)
			if err != nil {
				return true
			}
			rect := l.SymbolRect()
			diff := (size - rect.Max.X) - rect.Min.X
			return diff == 0 || diff == 1
		},
		gen.IntRange(100, 1600),
		genModules(),
	))

	properties.TestingRun(t)
}
