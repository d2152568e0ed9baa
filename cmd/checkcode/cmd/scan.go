package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/checkcode/internal/barcode"
	"github.com/MeKo-Tech/checkcode/internal/pdf"
	"github.com/MeKo-Tech/checkcode/internal/scan"
	"github.com/MeKo-Tech/checkcode/internal/service"
	"github.com/MeKo-Tech/checkcode/internal/utils"
)

// errNotVerified is returned with --require-verified when a scan is not verified.
var errNotVerified = errors.New("code is not verified")

// scanCmd groups the scan inputs.
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Decode a QR code and check it against the registry",
	Long: `Decode a QR code from an image, a PDF or a sequence of camera frames and report
whether it was issued by the registry.

A verified code shows who registered it and when. An unverified code is shown
with its content and a suggested action, and is otherwise untrusted.

Examples:
  checkcode scan image poster.png
  checkcode scan pdf flyer.pdf --pages 1-2 --format json
  checkcode scan frames ./camera-dump`,
}

var scanImageCmd = &cobra.Command{
	Use:   "image FILE",
	Short: "Scan an image file",
	Long: `Scan an image file for a QR code.

Supported formats: PNG, JPEG, GIF, BMP, WebP`,
	Args: cobra.ExactArgs(1),
	RunE: runScanImage,
}

var scanPDFCmd = &cobra.Command{
	Use:   "pdf FILE",
	Short: "Scan the embedded images of a PDF",
	Long: `Scan the images embedded in a PDF in page order and verify the first QR code
found.`,
	Args: cobra.ExactArgs(1),
	RunE: runScanPDF,
}

var scanFramesCmd = &cobra.Command{
	Use:   "frames DIR",
	Short: "Replay a directory of camera frames",
	Long: `Replay the images of DIR in name order as a camera stream. The session stops at
the first frame holding a QR code.`,
	Args: cobra.ExactArgs(1),
	RunE: runScanFrames,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.AddCommand(scanImageCmd, scanPDFCmd, scanFramesCmd)

	scanCmd.PersistentFlags().StringP("format", "f", outputFormatText, "output format (text, json, yaml)")
	scanCmd.PersistentFlags().Bool("require-verified", false, "exit with an error unless the code is verified")

	scanPDFCmd.Flags().String("pages", "", "page selection like 1-3,5 (default: all pages)")
	scanPDFCmd.Flags().String("password", "", "password for encrypted PDFs")
}

func runScanImage(cmd *cobra.Command, args []string) error {
	path := args[0]
	if !utils.IsSupportedImage(path) {
		return fmt.Errorf("unsupported image format: %s", path)
	}
	img, _, err := utils.LoadImage(path)
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}

	return runScan(cmd, func(svc *service.Service) (scanReport, error) {
		c, err := svc.Verify(cmd.Context(), img)
		if errors.Is(err, barcode.ErrNotFound) {
			return noCodeReport(path), nil
		}
		if err != nil {
			return scanReport{}, err
		}
		return newScanReport(path, c), nil
	})
}

func runScanPDF(cmd *cobra.Command, args []string) error {
	path := args[0]
	var opts pdf.Options
	opts.Pages, _ = cmd.Flags().GetString("pages")
	opts.Password, _ = cmd.Flags().GetString("password")

	return runScan(cmd, func(svc *service.Service) (scanReport, error) {
		c, hit, err := svc.VerifyPDF(cmd.Context(), path, opts)
		if errors.Is(err, barcode.ErrNotFound) {
			return noCodeReport(path), nil
		}
		if err != nil {
			return scanReport{}, err
		}
		r := newScanReport(path, c)
		r.Page = hit.Page
		return r, nil
	})
}

func runScanFrames(cmd *cobra.Command, args []string) error {
	dir := args[0]
	src, err := scan.NewDirectorySource(dir)
	if err != nil {
		return err
	}
	slog.Debug("Replaying frames", "dir", dir, "frames", src.Len())

	return runScan(cmd, func(svc *service.Service) (scanReport, error) {
		text, stats, err := scan.Run(cmd.Context(), svc.Decoder(), src)
		if errors.Is(err, scan.ErrExhausted) {
			r := noCodeReport(dir)
			r.Frames = stats.Frames
			return r, nil
		}
		if err != nil {
			return scanReport{}, err
		}
		c, err := svc.Lookup(cmd.Context(), text)
		if err != nil {
			return scanReport{}, err
		}
		r := newScanReport(dir, c)
		r.Frames = stats.Frames
		return r, nil
	})
}

// runScan opens the service, runs fn and prints its report.
func runScan(cmd *cobra.Command, fn func(*service.Service) (scanReport, error)) error {
	cfg := GetConfig()
	format, err := outputFormat(cmd, cfg, outputFormatText, outputFormatJSON, outputFormatYAML)
	if err != nil {
		return err
	}

	svc, closeFn, err := openService(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeQuietly(closeFn)

	report, err := fn(svc)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	slog.Debug("Scan finished", "source", report.Source, "status", report.Status)

	if err := writeScanReport(cmd.OutOrStdout(), format, report); err != nil {
		return err
	}
	if strict, _ := cmd.Flags().GetBool("require-verified"); strict && !report.verified() {
		return errNotVerified
	}
	return nil
}
