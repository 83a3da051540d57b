package capture

import (
	"context"
	"errors"
	"image"
	"log/slog"

	"github.com/teslashibe/visionmate/pkg/camera"
	"github.com/teslashibe/visionmate/pkg/payload"
)

// FrameSource is the live camera a FrameSampler reads from.
// *camera.Session implements it.
type FrameSource interface {
	Frame() (image.Image, error)
	FrameJPEG(quality int) (data []byte, size image.Point, ok bool, err error)
	Quality() int
}

// FrameSampler copies the current frame of the bound camera into a JPEG.
type FrameSampler struct {
	source FrameSource
	logger *slog.Logger
}

// NewFrameSampler creates a sampler over source.
func NewFrameSampler(source FrameSource, logger *slog.Logger) *FrameSampler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FrameSampler{source: source, logger: logger.With("component", "capture.sampler")}
}

// Capture samples the current frame at native resolution.
func (s *FrameSampler) Capture(ctx context.Context) (*payload.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	quality := s.source.Quality()
	if quality <= 0 {
		quality = DefaultQuality
	}

	data, size, ok, err := s.source.FrameJPEG(quality)
	if err != nil {
		return nil, s.mapErr(err)
	}
	if !ok {
		img, err := s.source.Frame()
		if err != nil {
			return nil, s.mapErr(err)
		}
		if data, err = encodeJPEG(img, quality); err != nil {
			return nil, err
		}
		size = img.Bounds().Size()
	}

	s.logger.Debug("frame captured", "width", size.X, "height", size.Y, "bytes", len(data))
	return payload.NewJPEG(data, size.X, size.Y, SourceFrame), nil
}

func (s *FrameSampler) mapErr(err error) error {
	if errors.Is(err, camera.ErrClosed) || errors.Is(err, camera.ErrNotBound) || errors.Is(err, camera.ErrNoFrame) {
		return errors.Join(ErrNoActiveSession, err)
	}
	return err
}

var (
	_ Bridge      = (*FrameSampler)(nil)
	_ FrameSource = (*camera.Session)(nil)
)
