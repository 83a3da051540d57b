// Package capture turns a camera frame or a picked file into a JPEG payload.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	// Picked files may arrive as PNG or GIF.
	_ "image/gif"
	_ "image/png"

	"github.com/teslashibe/visionmate/pkg/payload"
)

var (
	// ErrNoActiveSession is returned by FrameSampler without an open, bound camera.
	ErrNoActiveSession = errors.New("capture: no active camera session")

	// ErrCancelled is returned when the picker closed without a file.
	ErrCancelled = errors.New("capture: cancelled")

	// ErrUnsupportedImage is returned for files that do not decode as an image.
	ErrUnsupportedImage = errors.New("capture: unsupported image")
)

// Sources recorded on payloads.
const (
	SourceFrame  = "frame"
	SourcePicker = "picker"
)

// DefaultQuality is used when a source has no quality of its own.
const DefaultQuality = 90

// Bridge produces one still image per call.
type Bridge interface {
	Capture(ctx context.Context) (*payload.Image, error)
}

// encodeJPEG encodes img at quality.
func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// normalizeJPEG returns data as JPEG with its dimensions. JPEG input is kept
// byte for byte; other formats are re-encoded.
func normalizeJPEG(data []byte, quality int) ([]byte, image.Point, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, image.Point{}, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	size := image.Pt(cfg.Width, cfg.Height)
	if format == "jpeg" {
		return data, size, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, image.Point{}, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	out, err := encodeJPEG(img, quality)
	if err != nil {
		return nil, image.Point{}, err
	}
	return out, size, nil
}
