package cmd

import (
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/checkcode/internal/batch"
	"github.com/MeKo-Tech/checkcode/internal/config"
)

// batchCmd verifies many images in parallel.
var batchCmd = &cobra.Command{
	Use:   "batch [files or directories...]",
	Short: "Verify many images in parallel",
	Long: `Verify every QR code image under the given files and directories against the
registry using a pool of parallel workers. Each file is reported as verified,
unverified, no_code or error.

Supported formats: PNG, JPEG, GIF, BMP, WebP

Examples:
  checkcode batch scans/
  checkcode batch scans/ --recursive --workers 8
  checkcode batch a.png b.jpg --format csv --output report.csv
  checkcode batch scans/ --include "*.png" --exclude "thumb_*"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatchCommand,
}

// configToBatchConfig maps centralized configuration to batch.Config.
// Changed flags override configuration values.
func configToBatchConfig(cfg *config.Config, cmd *cobra.Command) *batch.Config {
	batchConfig := batch.DefaultConfig()

	batchConfig.Workers = cfg.Batch.Workers
	if cmd.Flags().Changed("workers") {
		batchConfig.Workers, _ = cmd.Flags().GetInt("workers")
	}

	batchConfig.ContinueOnError = cfg.Batch.ContinueOnError
	if cmd.Flags().Changed("continue-on-error") {
		batchConfig.ContinueOnError, _ = cmd.Flags().GetBool("continue-on-error")
	}

	batchConfig.Recursive = cfg.Batch.Recursive
	if cmd.Flags().Changed("recursive") {
		batchConfig.Recursive, _ = cmd.Flags().GetBool("recursive")
	}

	batchConfig.IncludePatterns = cfg.Batch.Include
	if cmd.Flags().Changed("include") {
		batchConfig.IncludePatterns, _ = cmd.Flags().GetStringSlice("include")
	}

	batchConfig.ExcludePatterns = cfg.Batch.Exclude
	if cmd.Flags().Changed("exclude") {
		batchConfig.ExcludePatterns, _ = cmd.Flags().GetStringSlice("exclude")
	}

	batchConfig.Format = cfg.Output.Format
	if cmd.Flags().Changed("format") {
		batchConfig.Format, _ = cmd.Flags().GetString("format")
	}

	batchConfig.OutputFile = cfg.Output.File
	if cmd.Flags().Changed("output") {
		batchConfig.OutputFile, _ = cmd.Flags().GetString("output")
	}

	// Progress settings are CLI-only.
	batchConfig.ShowProgress, _ = cmd.Flags().GetBool("progress")
	batchConfig.Quiet, _ = cmd.Flags().GetBool("quiet")
	batchConfig.ShowStats, _ = cmd.Flags().GetBool("stats")
	batchConfig.ProgressInterval, _ = cmd.Flags().GetDuration("progress-interval")

	return batchConfig
}

func runBatchCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	batchConfig := configToBatchConfig(cfg, cmd)

	svc, closeFn, err := openService(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeQuietly(closeFn)

	result, err := batch.ProcessBatch(cmd.Context(), svc, args, batchConfig)
	if err != nil {
		return fmt.Errorf("batch verification failed: %w", err)
	}

	if err := result.SaveResults(cmd.OutOrStdout(), batchConfig.Format, batchConfig.OutputFile); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	summary := result.Summary()
	if batchConfig.ShowStats && !batchConfig.Quiet {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(),
			"Verified %d of %d files (%d unverified, %d without code, %d failed) in %s with %d workers\n",
			summary.Verified, summary.Total, summary.Unverified, summary.NoCode, summary.Failed,
			summary.Duration.Round(time.Millisecond), summary.Workers)
	}
	slog.Debug("Batch finished", "total", summary.Total, "verified", summary.Verified, "failed", summary.Failed)
	return nil
}

func init() {
	rootCmd.AddCommand(batchCmd)

	// Output flags
	batchCmd.Flags().StringP("format", "f", "text", "output format: text, json, csv, yaml")
	batchCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")

	// Parallel processing flags
	batchCmd.Flags().IntP("workers", "w", 4, fmt.Sprintf("number of parallel workers (this machine has %d CPUs)", runtime.NumCPU()))
	batchCmd.Flags().Bool("continue-on-error", true, "keep going when a file cannot be read")

	// File discovery flags
	batchCmd.Flags().BoolP("recursive", "r", false, "process directories recursively")
	batchCmd.Flags().StringSlice("include", nil, "include file patterns (e.g., *.png,*.jpg)")
	batchCmd.Flags().StringSlice("exclude", nil, "exclude file patterns")

	// Progress flags
	batchCmd.Flags().Bool("progress", true, "show a progress bar on stderr")
	batchCmd.Flags().BoolP("quiet", "q", false, "suppress progress and statistics")
	batchCmd.Flags().Bool("stats", false, "print a summary line on stderr")
	batchCmd.Flags().Duration("progress-interval", batch.DefaultConfig().ProgressInterval, "progress update interval")
}
