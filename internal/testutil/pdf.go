package testutil

import (
	"image"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/require"
)

// WritePDF writes a PDF with one page per image into dir and returns its path.
func WritePDF(t *testing.T, dir, name string, pages ...image.Image) string {
	t.Helper()
	require.NotEmpty(t, pages, "a PDF needs at least one page")

	imgFiles := make([]string, 0, len(pages))
	for i, img := range pages {
		imgFiles = append(imgFiles, WriteFile(t, dir, "page-"+strconv.Itoa(i+1)+".png", PNGBytes(t, img)))
	}

	out := filepath.Join(dir, name)
	require.NoError(t, api.ImportImagesFile(imgFiles, out, nil, nil))
	return out
}
