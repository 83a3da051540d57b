package camera

import (
	"context"
	"errors"
	"image"
)

// Errors returned by sessions and devices.
var (
	// ErrUnavailable means permission was denied or no device exists.
	ErrUnavailable = errors.New("camera: unavailable")

	// ErrAlreadyOpen is returned by Open while a handle exists.
	ErrAlreadyOpen = errors.New("camera: already open")

	// ErrNoSurface is returned by Bind when no surface appeared in time.
	ErrNoSurface = errors.New("camera: no surface to bind")

	// ErrClosed is returned when a handle is used after its session closed it.
	ErrClosed = errors.New("camera: handle closed")

	// ErrNotBound is returned by Frame before a surface was bound.
	ErrNotBound = errors.New("camera: stream not bound")

	// ErrNoFrame means the stream has not produced a frame yet.
	ErrNoFrame = errors.New("camera: no frame available")
)

// Constraints describe the stream to request from a Device.
type Constraints struct {
	DeviceIndex int
	FacingMode  string
	Width       int
	Height      int
	Framerate   int
	Audio       bool
}

// Stream is a live video stream.
type Stream interface {
	// Frame returns a copy of the most recent frame at native resolution.
	Frame() (image.Image, error)

	// Stop releases the underlying device. Safe to call twice.
	Stop() error
}

// JPEGStream is implemented by streams that can encode their current frame
// without going through image.Image.
type JPEGStream interface {
	FrameJPEG(quality int) (data []byte, size image.Point, err error)
}

// Device acquires video streams.
type Device interface {
	// Open requests a stream; permission and device failures wrap ErrUnavailable.
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Surface renders an attached stream.
type Surface interface {
	Attach(s Stream) error
	Detach()
}

// SurfaceProvider reports the surface once it exists.
type SurfaceProvider interface {
	Surface() (Surface, bool)
}

// SurfaceFunc adapts a function to SurfaceProvider.
type SurfaceFunc func() (Surface, bool)

func (f SurfaceFunc) Surface() (Surface, bool) { return f() }
