package utils

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// ImageProcessingError represents errors that can occur during image processing.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// PadImage surrounds img with a solid border of the given width. Scanners
// need a quiet zone; photos cropped tight to the symbol often lack one.
func PadImage(img image.Image, border int, bg color.Color) (*image.NRGBA, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "pad", Err: errors.New("input image is nil")}
	}
	if border < 0 {
		return nil, &ImageProcessingError{Operation: "pad", Err: fmt.Errorf("negative border %d", border)}
	}
	b := img.Bounds()
	canvas := imaging.New(b.Dx()+2*border, b.Dy()+2*border, bg)
	return imaging.Paste(canvas, img, image.Pt(border, border)), nil
}

// Flatten composites img over an opaque background, dropping transparency.
func Flatten(img image.Image, bg color.Color) *image.NRGBA {
	b := img.Bounds()
	canvas := imaging.New(b.Dx(), b.Dy(), bg)
	return imaging.Overlay(canvas, img, image.Pt(0, 0), 1.0)
}
