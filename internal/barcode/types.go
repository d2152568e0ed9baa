package barcode

import (
	"context"
	"errors"
	"image"
)

// ErrNotFound means no readable QR code was found in the image.
var ErrNotFound = errors.New("no QR code found")

// Options controls backend decoding behavior.
type Options struct {
	// TryHarder enables more exhaustive search (slower but more robust).
	TryHarder bool

	// ROI optionally restricts decoding to a sub-rectangle of the image.
	// If zero-sized or out of bounds, backends should ignore it.
	ROI image.Rectangle

	// QuietZone is the white border in pixels added for a second attempt
	// when the first one finds nothing. Zero disables the retry.
	QuietZone int
}

// DefaultOptions enables TRY_HARDER and a padded retry.
func DefaultOptions() Options {
	return Options{TryHarder: true, QuietZone: 32}
}

// Result represents a decoded QR code.
type Result struct {
	Value  string
	Points []image.Point   // Finder and alignment centers if available
	BBox   image.Rectangle // Bounding box derived from points
}

// Backend is a pluggable QR decoder implementation.
type Backend interface {
	Decode(ctx context.Context, img image.Image, opts Options) (Result, error)
}

// Decoder is the single-image decode entry point used by scanners and the
// server.
type Decoder struct {
	backend Backend
	opts    Options
}

// NewDecoder returns a decoder on the gozxing backend.
func NewDecoder(opts Options) *Decoder {
	return &Decoder{backend: &gozxingBackend{}, opts: opts}
}

// NewDecoderWithBackend returns a decoder on a custom backend.
func NewDecoderWithBackend(b Backend, opts Options) *Decoder {
	return &Decoder{backend: b, opts: opts}
}

// Decode returns the payload of the QR code in img, or ErrNotFound.
func (d *Decoder) Decode(ctx context.Context, img image.Image) (string, error) {
	res, err := d.DecodeResult(ctx, img)
	if err != nil {
		return "", err
	}
	return res.Value, nil
}

// DecodeResult is Decode with location details.
func (d *Decoder) DecodeResult(ctx context.Context, img image.Image) (Result, error) {
	if img == nil || img.Bounds().Empty() {
		return Result{}, ErrNotFound
	}
	return d.backend.Decode(ctx, img, d.opts)
}
