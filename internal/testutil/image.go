package testutil

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/MeKo-Tech/checkcode/internal/pipeline"
	"github.com/MeKo-Tech/checkcode/internal/style"
	"github.com/MeKo-Tech/checkcode/internal/utils"
)

// CreateTestImage creates a uniformly colored image.
func CreateTestImage(width, height int, background color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{background}, image.Point{}, draw.Src)
	return img
}

// LabelImage draws text centered on a white canvas. It has structure but
// no QR code, which makes it a realistic negative sample.
func LabelImage(text string, width, height int) *image.RGBA {
	img := CreateTestImage(width, height, color.White)
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Src: image.Black, Face: face}

	textWidth := font.MeasureString(face, text).Ceil()
	textHeight := face.Metrics().Height.Ceil()
	drawer.Dot = fixed.P((width-textWidth)/2, (height+textHeight)/2)
	drawer.DrawString(text)
	return img
}

// RenderQR renders content with st through a default pipeline.
func RenderQR(t *testing.T, content string, st style.Style) *pipeline.Result {
	t.Helper()

	p, err := pipeline.NewBuilder().Build()
	require.NoError(t, err)
	res, err := p.Generate(context.Background(), content, st)
	require.NoError(t, err)
	return res
}

// QRPNG returns a plain rendered code as PNG bytes.
func QRPNG(t *testing.T, content string) []byte {
	t.Helper()
	return RenderQR(t, content, style.Default()).PNG
}

// Photographed places a rendered code on a larger gray canvas, slightly
// rotated, to imitate a camera frame.
func Photographed(t *testing.T, content string, angle float64) image.Image {
	t.Helper()

	code := RenderQR(t, content, style.Default()).Image
	rotated := imaging.Rotate(code, angle, color.White)
	canvas := imaging.New(rotated.Bounds().Dx()+160, rotated.Bounds().Dy()+120, color.Gray{Y: 200})
	return imaging.Paste(canvas, rotated, image.Pt(80, 60))
}

// PNGBytes encodes img as PNG.
func PNGBytes(t *testing.T, img image.Image) []byte {
	t.Helper()

	data, err := utils.EncodePNG(img)
	require.NoError(t, err)
	return data
}
