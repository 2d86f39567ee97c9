package gesture

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/hammamikhairi/kidzstage/internal/domain"
)

var _ domain.FrameSource = (*FileFrames)(nil)

// FileFrames reads the latest camera frame from a JPEG file kept fresh by
// an external capturer (for example `ffmpeg -f v4l2 -i /dev/video0
// -update 1 frame.jpg`). A missing or stale file means the camera is
// unavailable.
type FileFrames struct {
	path   string
	maxAge time.Duration
	now    func() time.Time
}

// NewFileFrames creates a frame source. maxAge of zero disables the
// staleness check.
func NewFileFrames(path string, maxAge time.Duration) *FileFrames {
	return &FileFrames{path: path, maxAge: maxAge, now: time.Now}
}

// Frame returns the current frame bytes.
func (f *FileFrames) Frame(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("camera frame %s: %w", f.path, domain.ErrDeviceUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("camera frame %s: %w", f.path, err)
	}
	if f.maxAge > 0 && f.now().Sub(info.ModTime()) > f.maxAge {
		return nil, fmt.Errorf("camera frame %s is stale: %w", f.path, domain.ErrDeviceUnavailable)
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("reading camera frame: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("camera frame %s is empty", f.path)
	}
	return data, nil
}
