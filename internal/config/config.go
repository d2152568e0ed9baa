package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/MeKo-Tech/checkcode/internal/barcode"
	"github.com/MeKo-Tech/checkcode/internal/pipeline"
	"github.com/MeKo-Tech/checkcode/internal/registry/backends"
	"github.com/MeKo-Tech/checkcode/internal/render"
	"github.com/MeKo-Tech/checkcode/internal/server"
	"github.com/MeKo-Tech/checkcode/internal/style"
	"github.com/MeKo-Tech/checkcode/internal/symbol"
)

const megabyte = 1 << 20

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	pc := pipeline.DefaultConfig()
	dec := barcode.DefaultOptions()
	return Config{
		LogLevel: "info",
		Render: RenderConfig{
			Size:            pc.Size,
			ErrorCorrection: string(pc.Level),
			LogoRatio:       pc.LogoRatio,
			LogoPolicy:      string(pc.LogoPolicy),
			VerifyOutput:    pc.VerifyOutput,
			Background:      pc.Background.Hex(),
		},
		Registry: RegistryConfig{
			Backend:    backends.Memory,
			TimeoutSec: 10,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     10,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 60,
				RequestsPerHour:   1000,
			},
		},
		Scan: ScanConfig{
			TryHarder:   dec.TryHarder,
			QuietZone:   dec.QuietZone,
			FrameBuffer: 4,
		},
		Batch: BatchConfig{
			Workers:         4,
			ContinueOnError: true,
		},
		Output: OutputConfig{
			Format: "text",
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validFormats := []string{"text", "json", "csv", "yaml"}
	if c.Output.Format != "" && !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	if _, err := c.ToPipelineConfig(); err != nil {
		return fmt.Errorf("invalid render settings: %w", err)
	}

	if !slices.Contains(backends.Names, c.Registry.Backend) {
		return fmt.Errorf("invalid registry backend: %s (must be one of: %s)", c.Registry.Backend, strings.Join(backends.Names, ", "))
	}
	switch {
	case c.Registry.Backend == backends.Postgres && c.Registry.DSN == "":
		return fmt.Errorf("registry.dsn is required for the postgres backend")
	case c.Registry.Backend == backends.Remote && c.Registry.URL == "":
		return fmt.Errorf("registry.url is required for the remote backend")
	case c.Registry.TimeoutSec < 0:
		return fmt.Errorf("invalid registry timeout: %d (must not be negative)", c.Registry.TimeoutSec)
	case c.Registry.CacheTTL < 0:
		return fmt.Errorf("invalid registry cache ttl: %d (must not be negative)", c.Registry.CacheTTL)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	rl := c.Server.RateLimit
	if rl.RequestsPerMinute < 0 || rl.RequestsPerHour < 0 || rl.MaxRequestsPerDay < 0 || rl.MaxDataPerDayMB < 0 {
		return fmt.Errorf("invalid rate limit: limits must not be negative")
	}

	if c.Scan.FrameBuffer <= 0 {
		return fmt.Errorf("invalid frame buffer: %d (must be positive)", c.Scan.FrameBuffer)
	}
	if c.Scan.QuietZone < 0 {
		return fmt.Errorf("invalid quiet zone: %d (must not be negative)", c.Scan.QuietZone)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}

	return nil
}

// ToPipelineConfig converts the render and scan settings to a pipeline configuration.
func (c *Config) ToPipelineConfig() (pipeline.Config, error) {
	cfg := pipeline.DefaultConfig()
	cfg.Size = c.Render.Size
	cfg.LogoRatio = c.Render.LogoRatio
	cfg.VerifyOutput = c.Render.VerifyOutput
	cfg.Decode = c.ToDecodeOptions()

	level, err := symbol.ParseLevel(c.Render.ErrorCorrection)
	if err != nil {
		return pipeline.Config{}, err
	}
	cfg.Level = level

	if c.Render.LogoPolicy != "" {
		cfg.LogoPolicy = render.LogoPolicy(strings.ToLower(c.Render.LogoPolicy))
	}
	if c.Render.Background != "" {
		bg, err := style.ParseColor(c.Render.Background)
		if err != nil {
			return pipeline.Config{}, fmt.Errorf("background: %w", err)
		}
		cfg.Background = bg
	}

	if err := cfg.Validate(); err != nil {
		return pipeline.Config{}, err
	}
	return cfg, nil
}

// ToDecodeOptions converts the scan settings to decoder options.
func (c *Config) ToDecodeOptions() barcode.Options {
	return barcode.Options{
		TryHarder: c.Scan.TryHarder,
		QuietZone: c.Scan.QuietZone,
	}
}

// ToRegistryOptions converts the registry settings to backend options.
func (c *Config) ToRegistryOptions() backends.Options {
	return backends.Options{
		Backend:  c.Registry.Backend,
		Path:     c.Registry.Path,
		DSN:      c.Registry.DSN,
		URL:      c.Registry.URL,
		Timeout:  time.Duration(c.Registry.TimeoutSec) * time.Second,
		CacheTTL: time.Duration(c.Registry.CacheTTL) * time.Second,
	}
}

// ToServerConfig converts the server settings to the HTTP server configuration.
func (c *Config) ToServerConfig() server.Config {
	rl := c.Server.RateLimit
	return server.Config{
		Host:        c.Server.Host,
		Port:        c.Server.Port,
		CORSOrigin:  c.Server.CORSOrigin,
		MaxUploadMB: int64(c.Server.MaxUploadMB),
		TimeoutSec:  c.Server.TimeoutSec,
		FrameBuffer: c.Scan.FrameBuffer,
		RateLimit: server.RateLimitConfig{
			Enabled:           rl.Enabled,
			RequestsPerMinute: rl.RequestsPerMinute,
			RequestsPerHour:   rl.RequestsPerHour,
			MaxRequestsPerDay: rl.MaxRequestsPerDay,
			MaxDataPerDay:     int64(rl.MaxDataPerDayMB) * megabyte,
		},
	}
}
