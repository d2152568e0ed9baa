// Package pipeline runs the generation path: encode, style, stamp the
// verification mark, composite the logo, check the result still scans,
// and export PNG.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/checkcode/internal/barcode"
	"github.com/MeKo-Tech/checkcode/internal/render"
	"github.com/MeKo-Tech/checkcode/internal/style"
	"github.com/MeKo-Tech/checkcode/internal/symbol"
	"github.com/MeKo-Tech/checkcode/internal/utils"
)

// ErrVerifyMismatch is returned when a rendered code does not decode back
// to its content.
var ErrVerifyMismatch = errors.New("rendered code does not decode to its content")

// Config holds configuration for the generation pipeline.
type Config struct {
	Size       int
	Level      symbol.Level
	Background style.Color
	LogoRatio  float64
	LogoPolicy render.LogoPolicy

	// VerifyOutput decodes every final bitmap and fails on mismatch.
	VerifyOutput bool
	Decode       barcode.Options
}

// DefaultConfig returns the canonical 400px, level H, white-background
// configuration with output verification enabled.
func DefaultConfig() Config {
	return Config{
		Size:         render.DefaultSize,
		Level:        symbol.DefaultLevel,
		Background:   style.White,
		LogoRatio:    render.DefaultLogoRatio,
		LogoPolicy:   render.LogoClamp,
		VerifyOutput: true,
		Decode:       barcode.DefaultOptions(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Size < 2*render.MarkReserve+21 {
		return fmt.Errorf("invalid size %d (must be at least %d)", c.Size, 2*render.MarkReserve+21)
	}
	if _, err := symbol.ParseLevel(string(c.Level)); err != nil {
		return err
	}
	if c.LogoRatio < 0 || c.LogoRatio > 1 {
		return fmt.Errorf("invalid logo ratio %.2f (must be between 0.0 and 1.0)", c.LogoRatio)
	}
	switch c.LogoPolicy {
	case render.LogoClamp, render.LogoReject:
	default:
		return fmt.Errorf("invalid logo policy %q (must be clamp or reject)", c.LogoPolicy)
	}
	if c.Background.Luminance() < render.MinBackgroundLuminance {
		return fmt.Errorf("background %s too dark", c.Background)
	}
	return nil
}

// Pipeline renders styled QR codes. It is safe for concurrent use.
type Pipeline struct {
	cfg     Config
	decoder *barcode.Decoder
}

// Result is one rendered code.
type Result struct {
	Image    *image.RGBA
	PNG      []byte
	Version  int
	Modules  int
	Level    symbol.Level
	Logo     *render.LogoPlacement
	Duration time.Duration
}

// DataURL returns the PNG as a data URL.
func (r *Result) DataURL() string {
	return utils.PNGDataURL(r.PNG)
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Generate renders content with st. A logo in st is decoded from its data
// URL. Encoding failures return *symbol.EncodingError; every later failure
// returns *render.RenderError.
func (p *Pipeline) Generate(ctx context.Context, content string, st style.Style) (*Result, error) {
	var logo image.Image
	if st.HasLogo() {
		img, err := utils.DecodeDataURL(st.Logo)
		if err != nil {
			return nil, &render.RenderError{Stage: "logo", Err: err}
		}
		logo = img
	}
	return p.GenerateWithLogo(ctx, content, st, logo)
}

// GenerateWithLogo is Generate with an already decoded logo, which takes
// precedence over st.Logo. A nil logo renders without one.
func (p *Pipeline) GenerateWithLogo(ctx context.Context, content string, st style.Style, logo image.Image) (*Result, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sym, err := symbol.Encode(content, p.cfg.Level)
	if err != nil {
		return nil, err
	}

	img, layout, err := render.RenderLayout(sym, st, render.Options{Size: p.cfg.Size, Background: p.cfg.Background})
	if err != nil {
		return nil, err
	}
	render.StampMark(img)

	res := &Result{Image: img, Version: sym.Version(), Modules: sym.Size(), Level: sym.Level()}
	if logo != nil {
		placement, err := render.CompositeLogo(img, layout, logo, render.LogoOptions{
			Ratio:      p.cfg.LogoRatio,
			Level:      sym.Level(),
			Policy:     p.cfg.LogoPolicy,
			Background: p.cfg.Background,
		})
		if err != nil {
			return nil, err
		}
		if placement.Clamped {
			slog.Info("Logo clamped to supported size", "ratio", placement.Ratio, "level", sym.Level())
		}
		res.Logo = &placement
	}

	if p.cfg.VerifyOutput {
		if err := p.verify(ctx, img, content); err != nil {
			return nil, err
		}
	}

	data, err := utils.EncodePNG(img)
	if err != nil {
		return nil, &render.RenderError{Stage: "encode_png", Err: err}
	}
	res.PNG = data
	res.Duration = time.Since(start)

	slog.Debug("Rendered QR code",
		"version", res.Version,
		"modules", res.Modules,
		"logo", res.Logo != nil,
		"duration_ms", res.Duration.Milliseconds())
	return res, nil
}

func (p *Pipeline) verify(ctx context.Context, img image.Image, content string) error {
	got, err := p.decoder.Decode(ctx, img)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &render.RenderError{Stage: "verify", Err: fmt.Errorf("%w: %w", ErrVerifyMismatch, err)}
	}
	if got != content {
		return &render.RenderError{Stage: "verify", Err: fmt.Errorf("%w: got %q", ErrVerifyMismatch, got)}
	}
	return nil
}
