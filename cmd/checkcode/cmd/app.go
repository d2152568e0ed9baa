package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/checkcode/internal/barcode"
	"github.com/MeKo-Tech/checkcode/internal/config"
	"github.com/MeKo-Tech/checkcode/internal/pipeline"
	"github.com/MeKo-Tech/checkcode/internal/registry/backends"
	"github.com/MeKo-Tech/checkcode/internal/service"
	"github.com/MeKo-Tech/checkcode/internal/style"
	"github.com/MeKo-Tech/checkcode/internal/utils"
)

const (
	outputFormatText = "text"
	outputFormatJSON = "json"
	outputFormatYAML = "yaml"
)

// openService wires the pipeline, the configured registry backend and the
// decoder. The returned function closes the registry.
func openService(ctx context.Context, cfg *config.Config) (*service.Service, func() error, error) {
	pCfg, err := cfg.ToPipelineConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid render configuration: %w", err)
	}
	p, err := pipeline.NewBuilder().WithConfig(pCfg).Build()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	reg, closeFn, err := backends.Open(ctx, cfg.ToRegistryOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open registry: %w", err)
	}
	slog.Debug("Opened registry", "backend", cfg.Registry.Backend, "cache_ttl", cfg.Registry.CacheTTL)

	return service.New(p, reg, barcode.NewDecoder(cfg.ToDecodeOptions())), closeFn, nil
}

// closeQuietly logs a failed close instead of masking the command's error.
func closeQuietly(closeFn func() error) {
	if err := closeFn(); err != nil {
		slog.Warn("Closing registry failed", "error", err)
	}
}

// outputFormat returns the --format flag when set and the configured format otherwise.
func outputFormat(cmd *cobra.Command, cfg *config.Config, allowed ...string) (string, error) {
	format := cfg.Output.Format
	if cmd.Flags().Changed("format") {
		format, _ = cmd.Flags().GetString("format")
	}
	for _, f := range allowed {
		if f == format {
			return format, nil
		}
	}
	// csv is only meaningful for batch reports; fall back for the rest.
	if format == "csv" {
		return outputFormatText, nil
	}
	return "", fmt.Errorf("invalid format %q (must be one of: %v)", format, allowed)
}

// writeStructured writes v as indented JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case outputFormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case outputFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return enc.Close()
	}
	return errors.New("unsupported structured format: " + format)
}

// addStyleFlags registers the styling flags shared by generate and render.
func addStyleFlags(cmd *cobra.Command) {
	cmd.Flags().String("color", style.Black.Hex(), "primary color (#RRGGBB)")
	cmd.Flags().String("color2", "", "secondary color; draws a diagonal gradient from --color")
	cmd.Flags().String("eye", string(style.ShapeSquare), "finder eye shape (square, circle, rounded)")
	cmd.Flags().String("dot", string(style.ShapeSquare), "data module shape (square, circle, rounded)")
	cmd.Flags().String("logo", "", "image file composited at the center of the code")
}

// styleFromFlags builds a style from the styling flags.
func styleFromFlags(cmd *cobra.Command) (style.Style, error) {
	st := style.Default()

	primary, _ := cmd.Flags().GetString("color")
	c, err := style.ParseColor(primary)
	if err != nil {
		return style.Style{}, fmt.Errorf("invalid --color: %w", err)
	}
	st.Primary = c

	if secondary, _ := cmd.Flags().GetString("color2"); secondary != "" {
		c2, err := style.ParseColor(secondary)
		if err != nil {
			return style.Style{}, fmt.Errorf("invalid --color2: %w", err)
		}
		st = st.WithSecondary(c2)
	}

	eye, _ := cmd.Flags().GetString("eye")
	if st.EyeShape, err = style.ParseShape(eye); err != nil {
		return style.Style{}, fmt.Errorf("invalid --eye: %w", err)
	}
	dot, _ := cmd.Flags().GetString("dot")
	if st.DotShape, err = style.ParseShape(dot); err != nil {
		return style.Style{}, fmt.Errorf("invalid --dot: %w", err)
	}

	if path, _ := cmd.Flags().GetString("logo"); path != "" {
		img, _, err := utils.LoadImage(path)
		if err != nil {
			return style.Style{}, fmt.Errorf("failed to load logo: %w", err)
		}
		data, err := utils.EncodePNG(img)
		if err != nil {
			return style.Style{}, fmt.Errorf("failed to encode logo: %w", err)
		}
		st.Logo = utils.PNGDataURL(data)
	}

	if err := st.Validate(); err != nil {
		return style.Style{}, err
	}
	return st, nil
}
