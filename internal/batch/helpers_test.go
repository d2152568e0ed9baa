package batch

import (
	"context"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/MeKo-Tech/checkcode/internal/barcode"
	"github.com/MeKo-Tech/checkcode/internal/registry"
	"github.com/MeKo-Tech/checkcode/internal/testutil"
	"github.com/MeKo-Tech/checkcode/internal/verify"
)

// stubVerifier classifies images by their width: 10 verified, 20
// unverified, 30 no code, anything else fails.
type stubVerifier struct {
	mu    sync.Mutex
	calls int
}

func (s *stubVerifier) Verify(_ context.Context, img image.Image) (verify.Classification, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	switch img.Bounds().Dx() {
	case 10:
		return verify.Classification{
			Status:  verify.Verified,
			Content: "https://example.com",
			Record:  &registry.Record{ID: "id-1", Name: "Site"},
			Action:  verify.ActionFor("https://example.com"),
		}, nil
	case 20:
		return verify.Classification{Status: verify.Unverified, Content: "hello", Action: verify.ActionFor("hello")}, nil
	case 30:
		return verify.Classification{}, barcode.ErrNotFound
	}
	return verify.Classification{}, &registry.PersistenceError{Op: "find", Backend: "test", Err: errStoreDown}
}

var errStoreDown = errString("store down")

type errString string

func (e errString) Error() string { return string(e) }

// sizedPNG writes a blank PNG of the given width.
func sizedPNG(t *testing.T, dir, name string, width int) string {
	t.Helper()
	return testutil.WriteFile(t, dir, name, testutil.PNGBytes(t, testutil.CreateTestImage(width, 10, color.White)))
}
