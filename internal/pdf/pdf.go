// Package pdf pulls embedded raster images out of PDF files so they can be
// scanned for QR codes.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/MeKo-Tech/checkcode/internal/utils"
)

// ErrNoImages is returned when a PDF contains no decodable images.
var ErrNoImages = errors.New("pdf contains no images")

// InputError reports a document or page selection that cannot be read.
type InputError struct {
	Op  string
	Err error
}

func (e *InputError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *InputError) Unwrap() error { return e.Err }

// Options controls extraction.
type Options struct {
	// Pages is a page selection like "1-3,5". Empty means all pages.
	Pages string
	// Password unlocks encrypted documents.
	Password string
}

// Page is the set of images found on one page.
type Page struct {
	Number int
	Images []image.Image
}

// ExtractImages extracts every embedded image, grouped by page in page
// order.
func ExtractImages(ctx context.Context, filename string, opts Options) ([]Page, error) {
	pageNumbers, err := parsePageRange(opts.Pages)
	if err != nil {
		return nil, &InputError{Op: fmt.Sprintf("invalid page range %q", opts.Pages), Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tempDir, err := os.MkdirTemp("", "checkcode-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	var pageStrings []string
	for _, n := range pageNumbers {
		pageStrings = append(pageStrings, strconv.Itoa(n))
	}

	conf := model.NewDefaultConfiguration()
	if opts.Password != "" {
		conf.UserPW = opts.Password
		conf.OwnerPW = opts.Password
	}
	if err := api.ExtractImagesFile(filename, tempDir, pageStrings, conf); err != nil {
		return nil, &InputError{Op: "failed to extract images from PDF", Err: err}
	}

	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	pages, err := collectExtractedImages(tempDir, base)
	if err != nil {
		return nil, fmt.Errorf("failed to process extracted images: %w", err)
	}
	if len(pages) == 0 {
		return nil, ErrNoImages
	}
	return pages, nil
}

// collectExtractedImages loads the images in dir and groups them by page.
// Unreadable files are skipped; images whose name carries no page number
// are grouped under page 0.
func collectExtractedImages(dir, base string) ([]Page, error) {
	byPage := make(map[int][]image.Image)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	// Stable order within a page.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		pageNum, err := parsePageFromFilename(e.Name(), base)
		if err != nil {
			pageNum = 0
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name())) //nolint:gosec // G304: file in our temp dir
		if err != nil {
			continue
		}
		img, _, err := utils.DecodeImageBytes(data)
		if err != nil {
			continue
		}
		byPage[pageNum] = append(byPage[pageNum], img)
	}

	pages := make([]Page, 0, len(byPage))
	for n, imgs := range byPage {
		pages = append(pages, Page{Number: n, Images: imgs})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Number < pages[j].Number })
	return pages, nil
}

// parsePageFromFilename reads the page number from an extracted image name.
// Both "page_<n>_..." and "<base>_<n>_..." are understood.
func parsePageFromFilename(filename, base string) (int, error) {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	switch {
	case strings.HasPrefix(name, "page_"):
		name = strings.TrimPrefix(name, "page_")
	case base != "" && strings.HasPrefix(name, base+"_"):
		name = strings.TrimPrefix(name, base+"_")
	default:
		return 0, errors.New("not a page file")
	}

	token, _, _ := strings.Cut(name, "_")
	pageNum, err := strconv.Atoi(token)
	if err != nil || pageNum < 0 {
		return 0, errors.New("invalid page number")
	}
	return pageNum, nil
}

// parsePageRange parses a page range string like "1-5" or "1,3,5".
func parsePageRange(pageRange string) ([]int, error) {
	if strings.TrimSpace(pageRange) == "" {
		return nil, nil
	}

	var pages []int
	for _, part := range strings.Split(pageRange, ",") {
		tokenPages, err := parseRangeToken(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		pages = append(pages, tokenPages...)
	}
	return pages, nil
}

// parseRangeToken parses either a single page token (e.g., "3") or a range token (e.g., "1-5").
func parseRangeToken(part string) ([]int, error) {
	if strings.Contains(part, "-") {
		rangeParts := strings.Split(part, "-")
		if len(rangeParts) != 2 {
			return nil, fmt.Errorf("invalid range format: %s", part)
		}
		start, err := strconv.Atoi(strings.TrimSpace(rangeParts[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid start page: %s", rangeParts[0])
		}
		end, err := strconv.Atoi(strings.TrimSpace(rangeParts[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid end page: %s", rangeParts[1])
		}
		if start > end {
			return nil, fmt.Errorf("start page %d greater than end page %d", start, end)
		}
		out := make([]int, 0, end-start+1)
		for i := start; i <= end; i++ {
			out = append(out, i)
		}
		return out, nil
	}
	page, err := strconv.Atoi(part)
	if err != nil {
		return nil, fmt.Errorf("invalid page number: %s", part)
	}
	return []int{page}, nil
}
