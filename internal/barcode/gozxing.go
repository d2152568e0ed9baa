package barcode

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/MeKo-Tech/checkcode/internal/utils"
)

type gozxingBackend struct{}

func (b *gozxingBackend) Decode(ctx context.Context, img image.Image, opts Options) (Result, error) {
	// Apply ROI if requested and valid
	if !opts.ROI.Empty() {
		if roiImg, ok := subImage(img, opts.ROI); ok {
			img = roiImg
		}
	}

	// Transparent pixels read as black; composite over white first.
	if !opaque(img) {
		img = utils.Flatten(img, color.White)
	}

	hints := make(map[gozxing.DecodeHintType]interface{})
	if opts.TryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}

	res, err := decodeOnce(ctx, img, hints)
	if err == nil || opts.QuietZone <= 0 {
		return res, err
	}

	// Tight crops lack a quiet zone; retry once on a padded copy.
	padded, perr := utils.PadImage(img, opts.QuietZone, color.White)
	if perr != nil {
		return Result{}, err
	}
	res, err = decodeOnce(ctx, padded, hints)
	if err != nil {
		return Result{}, err
	}
	for i := range res.Points {
		res.Points[i] = res.Points[i].Sub(image.Pt(opts.QuietZone, opts.QuietZone))
	}
	res.BBox = rectFromPoints(res.Points)
	return res, nil
}

func decodeOnce(ctx context.Context, img image.Image, hints map[gozxing.DecodeHintType]interface{}) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	bitmap, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return Result{}, fmt.Errorf("prepare bitmap: %w", err)
	}

	reader := qrcode.NewQRCodeReader()
	r, err := reader.Decode(bitmap, hints)
	if err != nil {
		// NotFound, checksum and format failures all mean nothing usable.
		slog.Debug("QR decode attempt failed", "error", err)
		return Result{}, ErrNotFound
	}

	pts := r.GetResultPoints()
	points := make([]image.Point, 0, len(pts))
	for _, p := range pts {
		points = append(points, image.Pt(int(p.GetX()), int(p.GetY())))
	}
	return Result{
		Value:  r.GetText(),
		Points: points,
		BBox:   rectFromPoints(points),
	}, nil
}

func rectFromPoints(pts []image.Point) image.Rectangle {
	if len(pts) == 0 {
		return image.Rectangle{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := pts[0].X, pts[0].Y
	for _, p := range pts[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

func opaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return true
}

// subImage returns a sub-image if supported by the image implementation.
func subImage(img image.Image, r image.Rectangle) (image.Image, bool) {
	rb := r.Intersect(img.Bounds())
	if rb.Empty() {
		return nil, false
	}
	type subImager interface{ SubImage(r image.Rectangle) image.Image }
	if s, ok := img.(subImager); ok {
		return s.SubImage(rb), true
	}
	dst := image.NewRGBA(image.Rect(0, 0, rb.Dx(), rb.Dy()))
	draw.Draw(dst, dst.Bounds(), img, rb.Min, draw.Src)
	return dst, true
}
