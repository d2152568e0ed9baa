package scan

import (
	"context"
	"errors"
	"image"
	"io"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/checkcode/internal/barcode"
	"github.com/MeKo-Tech/checkcode/internal/render"
	"github.com/MeKo-Tech/checkcode/internal/style"
	"github.com/MeKo-Tech/checkcode/internal/symbol"
	"github.com/MeKo-Tech/checkcode/internal/utils"
)

func qrFrame(t *testing.T, content string) image.Image {
	t.Helper()
	sym, err := symbol.Encode(content, symbol.LevelH)
	require.NoError(t, err)
	img, err := render.Render(sym, style.Default(), render.DefaultOptions())
	require.NoError(t, err)
	return img
}

func blankFrame() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 120, 120))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

// fakeSource serves frames, then err (io.EOF by default), counting Close calls.
type fakeSource struct {
	frames []image.Image
	err    error
	block  bool
	panics bool
	closes atomic.Int32
}

func (f *fakeSource) Next(ctx context.Context) (image.Image, error) {
	if f.panics {
		panic("camera driver crashed")
	}
	if len(f.frames) > 0 {
		img := f.frames[0]
		f.frames = f.frames[1:]
		return img, nil
	}
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return nil, io.EOF
}

func (f *fakeSource) Close() error {
	f.closes.Add(1)
	return nil
}

func newDecoder() *barcode.Decoder { return barcode.NewDecoder(barcode.DefaultOptions()) }

func TestSession_DecodesOnceAndAutoStops(t *testing.T) {
	src := &fakeSource{frames: []image.Image{blankFrame(), qrFrame(t, "first"), qrFrame(t, "second")}}
	var calls atomic.Int32
	var got string

	s := NewSession(newDecoder())
	require.NoError(t, s.Start(context.Background(), src, func(text string) {
		calls.Add(1)
		got = text
	}))
	stats := s.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "first", got)
	assert.Equal(t, "first", stats.Text)
	assert.Equal(t, 2, stats.Frames)
	assert.NoError(t, stats.Err)
	assert.Equal(t, int32(1), src.closes.Load())

	s.Stop()
	assert.Equal(t, int32(1), src.closes.Load())
	assert.ErrorIs(t, s.Start(context.Background(), src, nil), ErrSessionActive)
}

func TestSession_ReleasesSourceOnEveryExit(t *testing.T) {
	tests := []struct {
		name    string
		src     *fakeSource
		stop    bool
		cancel  bool
		wantErr error
	}{
		{name: "exhausted", src: &fakeSource{frames: []image.Image{blankFrame()}}, wantErr: ErrExhausted},
		{name: "source error", src: &fakeSource{err: errors.New("usb unplugged")}},
		{name: "stop", src: &fakeSource{block: true}, stop: true, wantErr: ErrStopped},
		{name: "context canceled", src: &fakeSource{block: true}, cancel: true, wantErr: ErrStopped},
		{name: "panic", src: &fakeSource{panics: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			var calls atomic.Int32
			s := NewSession(newDecoder())
			require.NoError(t, s.Start(ctx, tt.src, func(string) { calls.Add(1) }))

			if tt.stop {
				s.Stop()
			}
			if tt.cancel {
				cancel()
			}
			select {
			case <-s.Done():
			case <-time.After(5 * time.Second):
				t.Fatal("session did not end")
			}
			stats := s.Wait()

			assert.Equal(t, int32(1), tt.src.closes.Load())
			assert.Equal(t, int32(0), calls.Load())
			assert.Error(t, stats.Err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, stats.Err, tt.wantErr)
			}
			if tt.src.panics {
				var pe *PanicError
				assert.ErrorAs(t, stats.Err, &pe)
			}
		})
	}
}

func TestSession_StopBeforeStart(t *testing.T) {
	s := NewSession(newDecoder())
	s.Stop()
}

func TestRun(t *testing.T) {
	text, stats, err := Run(context.Background(), newDecoder(), &fakeSource{frames: []image.Image{qrFrame(t, "run")}})
	require.NoError(t, err)
	assert.Equal(t, "run", text)
	assert.Equal(t, 1, stats.Frames)

	_, _, err = Run(context.Background(), newDecoder(), &fakeSource{})
	assert.ErrorIs(t, err, ErrExhausted)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = Run(ctx, newDecoder(), &fakeSource{block: true})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpen(t *testing.T) {
	denied := errors.New("permission denied")
	_, err := Open(context.Background(), func(context.Context) (FrameSource, error) { return nil, denied })
	var ce *CameraAccessError
	require.ErrorAs(t, err, &ce)
	assert.ErrorIs(t, err, denied)

	_, err = Open(context.Background(), nil)
	assert.ErrorAs(t, err, &ce)

	src, err := Open(context.Background(), func(context.Context) (FrameSource, error) { return &fakeSource{}, nil })
	require.NoError(t, err)
	assert.NotNil(t, src)
}

func TestDirectorySource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, utils.SavePNG(filepath.Join(dir, "001.png"), blankFrame()))
	require.NoError(t, utils.SavePNG(filepath.Join(dir, "002.png"), qrFrame(t, "from disk")))

	src, err := NewDirectorySource(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, src.Len())

	text, stats, err := Run(context.Background(), newDecoder(), src)
	require.NoError(t, err)
	assert.Equal(t, "from disk", text)
	assert.Equal(t, 2, stats.Frames)

	_, err = NewDirectorySource(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestChannelSource(t *testing.T) {
	frames := make(chan image.Image, 2)
	var closed atomic.Int32
	src := NewChannelSource(frames, func() { closed.Add(1) })

	frames <- qrFrame(t, "over the wire")
	text, _, err := Run(context.Background(), newDecoder(), src)
	require.NoError(t, err)
	assert.Equal(t, "over the wire", text)
	assert.Equal(t, int32(1), closed.Load())

	close(frames)
	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
	require.NoError(t, src.Close())
	assert.Equal(t, int32(1), closed.Load())
}

func TestDecodeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "code.png")
	require.NoError(t, utils.SavePNG(path, qrFrame(t, "file payload")))

	text, err := DecodeFile(context.Background(), newDecoder(), path)
	require.NoError(t, err)
	assert.Equal(t, "file payload", text)

	blank := filepath.Join(dir, "blank.png")
	require.NoError(t, utils.SavePNG(blank, blankFrame()))
	_, err = DecodeFile(context.Background(), newDecoder(), blank)
	assert.ErrorIs(t, err, barcode.ErrNotFound)

	_, err = DecodeFile(context.Background(), newDecoder(), filepath.Join(dir, "nope.png"))
	assert.Error(t, err)
}
