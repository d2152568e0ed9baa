package batch

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/checkcode/internal/testutil"
	"github.com/MeKo-Tech/checkcode/internal/verify"
)

func TestVerifyFile(t *testing.T) {
	dir := t.TempDir()
	broken := testutil.WriteFile(t, dir, "broken.png", []byte("not a png"))

	tests := []struct {
		name       string
		path       string
		wantStatus Status
		wantErr    bool
	}{
		{name: "verified", path: sizedPNG(t, dir, "v.png", 10), wantStatus: StatusVerified},
		{name: "unverified", path: sizedPNG(t, dir, "u.png", 20), wantStatus: StatusUnverified},
		{name: "no code", path: sizedPNG(t, dir, "n.png", 30), wantStatus: StatusNoCode},
		{name: "store failure", path: sizedPNG(t, dir, "e.png", 40), wantStatus: StatusError, wantErr: true},
		{name: "corrupt image", path: broken, wantStatus: StatusError, wantErr: true},
		{name: "missing file", path: filepath.Join(dir, "gone.png"), wantStatus: StatusError, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := verifyFile(context.Background(), &stubVerifier{}, tt.path)
			assert.Equal(t, tt.wantStatus, res.Status)
			assert.Equal(t, tt.path, res.Path)
			if tt.wantErr {
				require.Error(t, err)
				assert.NotEmpty(t, res.Error)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, res.Error)
		})
	}
}

func TestVerifyFile_Details(t *testing.T) {
	dir := t.TempDir()
	res, err := verifyFile(context.Background(), &stubVerifier{}, sizedPNG(t, dir, "v.png", 10))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", res.Content)
	assert.Equal(t, verify.ActionOpen, res.Action.Kind)
	assert.Equal(t, "id-1", res.RecordID)
	assert.Equal(t, "Site", res.RecordName)
}

type recordingProgress struct {
	mu       sync.Mutex
	started  int
	updates  []int
	errors   []string
	complete bool
}

func (r *recordingProgress) OnStart(total int) { r.started = total }
func (r *recordingProgress) OnProgress(current, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, current)
}
func (r *recordingProgress) OnComplete() { r.complete = true }
func (r *recordingProgress) OnError(path string, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, filepath.Base(path))
}

func TestVerifyAll_KeepsOrder(t *testing.T) {
	dir := t.TempDir()
	widths := []int{10, 20, 30, 10, 40, 20, 30, 10}
	files := make([]string, len(widths))
	for i, w := range widths {
		files[i] = sizedPNG(t, dir, filepath.Join("f", string(rune('a'+i))+".png"), w)
	}

	progress := &recordingProgress{}
	v := &stubVerifier{}
	results, err := verifyAll(context.Background(), v, files, 3, true, progress)
	require.NoError(t, err)
	require.Len(t, results, len(files))

	want := []Status{StatusVerified, StatusUnverified, StatusNoCode, StatusVerified, StatusError, StatusUnverified, StatusNoCode, StatusVerified}
	for i, r := range results {
		assert.Equal(t, files[i], r.Path)
		assert.Equal(t, want[i], r.Status, r.Path)
	}
	assert.Equal(t, len(files), v.calls)

	assert.Equal(t, len(files), progress.started)
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, progress.updates)
	assert.Equal(t, []string{"e.png"}, progress.errors)
	assert.True(t, progress.complete)
}

func TestVerifyAll_StopsOnError(t *testing.T) {
	dir := t.TempDir()
	files := []string{sizedPNG(t, dir, "bad.png", 40)}
	for i := range 20 {
		files = append(files, sizedPNG(t, dir, filepath.Join("ok", string(rune('a'+i))+".png"), 10))
	}

	results, err := verifyAll(context.Background(), &stubVerifier{}, files, 1, false, nil)
	require.Error(t, err)
	assert.Nil(t, results)
	assert.Contains(t, err.Error(), "bad.png")
}

func TestVerifyAll_Cancelled(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v := &stubVerifier{}
	_, err := verifyAll(ctx, v, []string{sizedPNG(t, dir, "a.png", 10)}, 2, true, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, v.calls)
}
