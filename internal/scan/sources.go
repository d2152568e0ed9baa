package scan

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/MeKo-Tech/checkcode/internal/utils"
)

// DirectorySource replays the image files of a directory in name order,
// standing in for a camera.
type DirectorySource struct {
	paths []string
	next  int
}

// NewDirectorySource lists the supported images in dir.
func NewDirectorySource(dir string) (*DirectorySource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && utils.IsSupportedImage(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return &DirectorySource{paths: paths}, nil
}

// Len returns the number of frames.
func (d *DirectorySource) Len() int { return len(d.paths) }

// Next loads the next frame.
func (d *DirectorySource) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.next >= len(d.paths) {
		return nil, io.EOF
	}
	path := d.paths[d.next]
	d.next++
	img, _, err := utils.LoadImage(path)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// Close is a no-op.
func (d *DirectorySource) Close() error { return nil }

// ChannelSource yields frames pushed by another goroutine, such as a
// websocket reader. Closing the channel ends the stream.
type ChannelSource struct {
	frames  <-chan image.Image
	onClose func()
	once    sync.Once
}

// NewChannelSource wraps frames. onClose, if set, runs once on Close.
func NewChannelSource(frames <-chan image.Image, onClose func()) *ChannelSource {
	return &ChannelSource{frames: frames, onClose: onClose}
}

// Next waits for a frame.
func (c *ChannelSource) Next(ctx context.Context) (image.Image, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case img, ok := <-c.frames:
		if !ok {
			return nil, io.EOF
		}
		return img, nil
	}
}

// Close runs the close hook once.
func (c *ChannelSource) Close() error {
	c.once.Do(func() {
		if c.onClose != nil {
			c.onClose()
		}
	})
	return nil
}
