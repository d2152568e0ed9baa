package scan

import (
	"context"
	"errors"

	"github.com/MeKo-Tech/checkcode/internal/barcode"
	"github.com/MeKo-Tech/checkcode/internal/pdf"
	"github.com/MeKo-Tech/checkcode/internal/utils"
)

// DecodeFile decodes the QR code in an image file.
func DecodeFile(ctx context.Context, dec *barcode.Decoder, path string) (string, error) {
	img, _, err := utils.LoadImage(path)
	if err != nil {
		return "", err
	}
	return dec.Decode(ctx, img)
}

// PDFHit locates the first QR code found in a PDF.
type PDFHit struct {
	Page  int
	Index int
	Text  string
}

// DecodePDF scans the images of a PDF in page order and returns the first
// payload. It returns barcode.ErrNotFound when no image holds a code.
func DecodePDF(ctx context.Context, dec *barcode.Decoder, path string, opts pdf.Options) (PDFHit, error) {
	pages, err := pdf.ExtractImages(ctx, path, opts)
	if errors.Is(err, pdf.ErrNoImages) {
		return PDFHit{}, barcode.ErrNotFound
	}
	if err != nil {
		return PDFHit{}, err
	}
	for _, p := range pages {
		for i, img := range p.Images {
			text, err := dec.Decode(ctx, img)
			if errors.Is(err, barcode.ErrNotFound) {
				continue
			}
			if err != nil {
				return PDFHit{}, err
			}
			return PDFHit{Page: p.Number, Index: i, Text: text}, nil
		}
	}
	return PDFHit{}, barcode.ErrNotFound
}
