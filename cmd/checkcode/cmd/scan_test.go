package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/checkcode/internal/testutil"
	"github.com/MeKo-Tech/checkcode/internal/utils"
	"github.com/MeKo-Tech/checkcode/internal/verify"
)

// register generates a code through the CLI and returns its PNG path.
func register(t *testing.T, reg []string, dir, content, name string) string {
	t.Helper()
	out := filepath.Join(dir, name+".png")
	_, _, err := execute(t, args(reg, "generate", content, "--name", name, "-o", out)...)
	require.NoError(t, err)
	return out
}

func TestScanImage_Outcomes(t *testing.T) {
	dir, reg := workspace(t)
	verified := register(t, reg, dir, "https://poster.example", "Poster")
	unverified := testutil.WriteFile(t, dir, "phone.png", testutil.QRPNG(t, "+1 555 0100"))
	noCode := testutil.WriteFile(t, dir, "label.png", testutil.PNGBytes(t, testutil.LabelImage("no code here", 300, 120)))

	tests := []struct {
		name       string
		path       string
		wantStatus string
		wantAction verify.ActionKind
	}{
		{name: "verified", path: verified, wantStatus: "verified", wantAction: verify.ActionOpen},
		{name: "unverified", path: unverified, wantStatus: "unverified", wantAction: verify.ActionCall},
		{name: "no code", path: noCode, wantStatus: statusNoCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, args(reg, "scan", "image", tt.path, "-f", "json")...)
			require.NoError(t, err)

			report := decodeJSON[scanReport](t, stdout)
			assert.Equal(t, tt.wantStatus, report.Status)
			assert.Equal(t, tt.path, report.Source)
			if tt.wantAction != "" {
				require.NotNil(t, report.Action)
				assert.Equal(t, tt.wantAction, report.Action.Kind)
			}
			assert.Equal(t, tt.wantStatus == "verified", report.Record != nil)
		})
	}
}

func TestScanImage_TextOutput(t *testing.T) {
	dir, reg := workspace(t)
	phone := testutil.WriteFile(t, dir, "phone.png", testutil.QRPNG(t, "+1 555 0100"))
	label := testutil.WriteFile(t, dir, "label.png", testutil.PNGBytes(t, testutil.LabelImage("nothing", 200, 100)))

	stdout, _, err := execute(t, args(reg, "scan", "image", phone)...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "unverified (not issued by this registry)")
	assert.Contains(t, stdout, "call tel:+1 555 0100")

	stdout, _, err = execute(t, args(reg, "scan", "image", label)...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "no QR code found")
}

func TestScanImage_RequireVerified(t *testing.T) {
	dir, reg := workspace(t)
	verified := register(t, reg, dir, "https://ok.example", "OK")
	unverified := testutil.WriteFile(t, dir, "other.png", testutil.QRPNG(t, "https://other.example"))

	_, _, err := execute(t, args(reg, "scan", "image", verified, "--require-verified")...)
	require.NoError(t, err)

	stdout, _, err := execute(t, args(reg, "scan", "image", unverified, "--require-verified")...)
	assert.ErrorIs(t, err, errNotVerified)
	assert.Contains(t, stdout, "unverified")
}

func TestScanImage_Errors(t *testing.T) {
	dir, reg := workspace(t)
	notes := testutil.WriteFile(t, dir, "notes.txt", []byte("hello"))
	corrupt := testutil.WriteFile(t, dir, "broken.png", []byte("not a png"))

	_, _, err := execute(t, args(reg, "scan", "image", notes)...)
	assert.ErrorContains(t, err, "unsupported image format")

	_, _, err = execute(t, args(reg, "scan", "image", corrupt)...)
	assert.ErrorContains(t, err, "failed to load image")

	_, _, err = execute(t, args(reg, "scan", "image")...)
	assert.Error(t, err)
}

func TestScanPDF(t *testing.T) {
	dir, reg := workspace(t)
	code := register(t, reg, dir, "https://flyer.example", "Flyer")
	img, err := os.ReadFile(code) //nolint:gosec // test temp path
	require.NoError(t, err)
	decoded, _, err := utils.DecodeImageBytes(img)
	require.NoError(t, err)

	doc := testutil.WritePDF(t, dir, "flyer.pdf", testutil.LabelImage("cover", 300, 200), decoded)

	stdout, _, err := execute(t, args(reg, "scan", "pdf", doc, "--format", "json")...)
	require.NoError(t, err)
	report := decodeJSON[scanReport](t, stdout)
	assert.Equal(t, "verified", report.Status)
	assert.Equal(t, 2, report.Page)
	require.NotNil(t, report.Record)
	assert.Equal(t, "Flyer", report.Record.Name)

	stdout, _, err = execute(t, args(reg, "scan", "pdf", doc, "--pages", "1", "--format", "json")...)
	require.NoError(t, err)
	assert.Equal(t, statusNoCode, decodeJSON[scanReport](t, stdout).Status)

	_, _, err = execute(t, args(reg, "scan", "pdf", doc, "--pages", "3-1")...)
	assert.ErrorContains(t, err, "invalid page range")
}

func TestScanFrames(t *testing.T) {
	dir, reg := workspace(t)
	register(t, reg, dir, "https://camera.example", "Camera")

	frames := filepath.Join(dir, "frames")
	require.NoError(t, os.Mkdir(frames, 0o750))
	for i := range 3 {
		testutil.WriteFile(t, frames, fmt.Sprintf("%03d.png", i),
			testutil.PNGBytes(t, testutil.LabelImage(fmt.Sprintf("frame %d", i), 320, 240)))
	}
	testutil.WriteFile(t, frames, "003.png", testutil.PNGBytes(t, testutil.Photographed(t, "https://camera.example", 4)))
	testutil.WriteFile(t, frames, "004.png", testutil.QRPNG(t, "https://never-reached.example"))

	stdout, _, err := execute(t, args(reg, "scan", "frames", frames, "-f", "json")...)
	require.NoError(t, err)
	report := decodeJSON[scanReport](t, stdout)
	assert.Equal(t, "verified", report.Status)
	assert.Equal(t, "https://camera.example", report.Content)
	assert.Equal(t, 4, report.Frames)
}

func TestScanFrames_Exhausted(t *testing.T) {
	dir, reg := workspace(t)
	for i := range 2 {
		testutil.WriteFile(t, dir, fmt.Sprintf("%03d.png", i), testutil.PNGBytes(t, testutil.LabelImage("blank", 200, 200)))
	}

	stdout, _, err := execute(t, args(reg, "scan", "frames", dir, "-f", "yaml")...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "status: no_code")
	assert.Contains(t, stdout, "frames: 2")

	_, _, err = execute(t, args(reg, "scan", "frames", filepath.Join(dir, "missing"))...)
	assert.ErrorContains(t, err, "read frame directory")
}
