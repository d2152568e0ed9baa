// Package barcode decodes QR codes from still images using gozxing.
//
// Decoding is single-shot: an image yields at most one payload or
// ErrNotFound. Continuous camera scanning is built on top of this in the
// scan package.
package barcode
