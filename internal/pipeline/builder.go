package pipeline

import (
	"github.com/MeKo-Tech/checkcode/internal/barcode"
	"github.com/MeKo-Tech/checkcode/internal/render"
	"github.com/MeKo-Tech/checkcode/internal/style"
	"github.com/MeKo-Tech/checkcode/internal/symbol"
)

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg     Config
	decoder *barcode.Decoder
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithSize sets the canvas side in pixels.
func (b *Builder) WithSize(size int) *Builder {
	if size > 0 {
		b.cfg.Size = size
	}
	return b
}

// WithLevel sets the error-correction level.
func (b *Builder) WithLevel(level symbol.Level) *Builder {
	if level != "" {
		b.cfg.Level = level
	}
	return b
}

// WithBackground sets the light module color.
func (b *Builder) WithBackground(c style.Color) *Builder {
	b.cfg.Background = c
	return b
}

// WithLogo sets the requested logo ratio and the policy for oversized logos.
func (b *Builder) WithLogo(ratio float64, policy render.LogoPolicy) *Builder {
	if ratio > 0 {
		b.cfg.LogoRatio = ratio
	}
	if policy != "" {
		b.cfg.LogoPolicy = policy
	}
	return b
}

// WithVerifyOutput toggles decoding every rendered code.
func (b *Builder) WithVerifyOutput(enabled bool) *Builder {
	b.cfg.VerifyOutput = enabled
	return b
}

// WithDecoder overrides the decoder used for output verification.
func (b *Builder) WithDecoder(d *barcode.Decoder) *Builder {
	b.decoder = d
	return b
}

// Config returns the current builder configuration.
func (b *Builder) Config() Config { return b.cfg }

// Build validates the configuration and returns the pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}
	dec := b.decoder
	if dec == nil {
		dec = barcode.NewDecoder(b.cfg.Decode)
	}
	return &Pipeline{cfg: b.cfg, decoder: dec}, nil
}
