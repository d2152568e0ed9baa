package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/checkcode/internal/pipeline"
	"github.com/MeKo-Tech/checkcode/internal/registry"
	"github.com/MeKo-Tech/checkcode/internal/service"
	"github.com/MeKo-Tech/checkcode/internal/style"
)

// generateCmd renders a code, registers it and writes the PNG.
var generateCmd = &cobra.Command{
	Use:   "generate CONTENT",
	Short: "Generate and register a styled QR code",
	Long: `Render CONTENT as a styled QR code carrying the verification mark, register it
in the configured registry and write the PNG.

The content type (url, email, phone, text) is detected when --type is not given.
It is stored as metadata only and never changes what is encoded.

Examples:
  checkcode generate https://example.com --name Example --author "Jane Doe"
  checkcode generate mail@example.com --name Contact --public --color "#1A237E" --color2 "#00838F"
  checkcode generate "+1 555 0100" --name Hotline --eye rounded --dot circle --logo logo.png -o hotline.png`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

// renderCmd renders a code without touching the registry.
var renderCmd = &cobra.Command{
	Use:   "render CONTENT",
	Short: "Render a styled QR code without registering it",
	Long: `Render CONTENT as a styled QR code and write the PNG. Nothing is registered, so
scanning the result reports it as unverified.

Without --output the PNG is written to standard output.

Examples:
  checkcode render https://example.com -o example.png
  checkcode render "hello world" --dot circle > hello.png`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(renderCmd)

	addStyleFlags(generateCmd)
	generateCmd.Flags().String("name", "", "display name of the code (required)")
	_ = generateCmd.MarkFlagRequired("name")
	generateCmd.Flags().String("author", "", "author recorded with the code")
	generateCmd.Flags().String("type", "", "content type: url, email, phone or text (default: detected)")
	generateCmd.Flags().Bool("public", false, "list the code publicly and make it searchable")
	generateCmd.Flags().StringP("output", "o", "", "output PNG file (default: <id>.png)")
	generateCmd.Flags().StringP("format", "f", outputFormatText, "record output format (text, json, yaml)")

	addStyleFlags(renderCmd)
	renderCmd.Flags().StringP("output", "o", "", "output PNG file (default: stdout)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	format, err := outputFormat(cmd, cfg, outputFormatText, outputFormatJSON, outputFormatYAML)
	if err != nil {
		return err
	}

	req := service.GenerateRequest{Content: args[0]}
	req.Name, _ = cmd.Flags().GetString("name")
	req.Author, _ = cmd.Flags().GetString("author")
	if req.Name == "" {
		return errors.New("--name must not be empty")
	}
	if t, _ := cmd.Flags().GetString("type"); t != "" {
		if req.ContentType, err = style.ParseContentType(t); err != nil {
			return err
		}
	}
	public, _ := cmd.Flags().GetBool("public")
	req.Visibility = registry.VisibilityOf(public)
	if req.Style, err = styleFromFlags(cmd); err != nil {
		return err
	}

	svc, closeFn, err := openService(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeQuietly(closeFn)

	rec, res, err := svc.Generate(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}

	outPath, _ := cmd.Flags().GetString("output")
	if outPath == "" {
		outPath = rec.ID + ".png"
	}
	if err := writePNG(outPath, res); err != nil {
		return err
	}
	slog.Info("Wrote QR code", "file", outPath, "id", rec.ID)

	return writeRecord(cmd.OutOrStdout(), format, rec)
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	st, err := styleFromFlags(cmd)
	if err != nil {
		return err
	}

	svc, closeFn, err := openService(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeQuietly(closeFn)

	res, err := svc.Render(cmd.Context(), args[0], st)
	if err != nil {
		return fmt.Errorf("failed to render code: %w", err)
	}

	outPath, _ := cmd.Flags().GetString("output")
	if outPath == "" {
		_, err := cmd.OutOrStdout().Write(res.PNG)
		return err
	}
	if err := writePNG(outPath, res); err != nil {
		return err
	}
	slog.Info("Wrote QR code", "file", outPath, "version", res.Version, "modules", res.Modules)
	return nil
}

func writePNG(path string, res *pipeline.Result) error {
	if err := os.WriteFile(path, res.PNG, 0o644); err != nil { //nolint:gosec // G306: images are meant to be shared
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
