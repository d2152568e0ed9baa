package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/MeKo-Tech/checkcode/internal/pipeline"
	"github.com/MeKo-Tech/checkcode/internal/testutil"
)

func main() {
	// Set up structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		outDir  = flag.String("out", "testdata/codes", "Output directory, relative to the project root")
		withPDF = flag.Bool("pdf", true, "Also bundle the codes into a multi-page PDF")
		verbose = flag.Bool("v", false, "Verbose output")
		help    = flag.Bool("h", false, "Show help")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Render the sample codes used by checkcode tests.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEXAMPLES:\n")
		fmt.Fprintf(os.Stderr, "  %s                 # Render every fixture and codes.pdf\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -pdf=false      # Render only the PNG fixtures\n", os.Args[0])
	}

	flag.Parse()

	if *help {
		flag.Usage()
		return
	}

	// Get project root to ensure we're in the right place
	root, err := testutil.GetProjectRoot()
	if err != nil {
		slog.Error("Failed to find project root", "error", err)
		os.Exit(1)
	}
	if *verbose {
		slog.Info("Project root", "path", root)
	}

	dir := *outDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}

	if err := run(context.Background(), dir, *withPDF); err != nil {
		slog.Error("Test data generation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Test data generation completed successfully", "dir", dir)
}

func run(ctx context.Context, dir string, withPDF bool) error {
	p, err := pipeline.NewBuilder().Build()
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	slog.Info("Rendering fixtures...")
	fixtures, err := testutil.WriteFixtures(ctx, p, dir)
	if err != nil {
		return err
	}
	slog.Info("Rendered fixtures", "count", len(fixtures))

	if !withPDF {
		return nil
	}

	files := make([]string, 0, len(fixtures))
	for _, f := range fixtures {
		files = append(files, filepath.Join(dir, f.File))
	}
	out := filepath.Join(dir, "codes.pdf")
	if err := api.ImportImagesFile(files, out, nil, nil); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	slog.Info("Wrote PDF", "path", out, "pages", len(files))
	return nil
}
