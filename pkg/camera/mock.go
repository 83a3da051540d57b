package camera

import (
	"context"
	"image"
	"image/color"
	"sync"
)

// MockDevice implements Device for tests.
type MockDevice struct {
	// OpenErr is returned by every Open.
	OpenErr error

	// Size is the frame size of opened streams. Zero means 640x480.
	Size image.Point

	mu      sync.Mutex
	opens   int
	streams []*MockStream
}

func (d *MockDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opens++
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	size := d.Size
	if size == (image.Point{}) {
		size = image.Pt(640, 480)
	}
	s := &MockStream{Constraints: c, size: size}
	d.streams = append(d.streams, s)
	return s, nil
}

// Opens returns how many times Open was called.
func (d *MockDevice) Opens() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

// Streams returns every stream handed out.
func (d *MockDevice) Streams() []*MockStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*MockStream(nil), d.streams...)
}

// Live returns how many streams have not been stopped.
func (d *MockDevice) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, s := range d.streams {
		if !s.Stopped() {
			n++
		}
	}
	return n
}

// MockStream produces a solid grey frame.
type MockStream struct {
	Constraints Constraints

	size    image.Point
	mu      sync.Mutex
	stopped bool
	stops   int
}

func (s *MockStream) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, ErrNoFrame
	}
	img := image.NewRGBA(image.Rect(0, 0, s.size.X, s.size.Y))
	for y := 0; y < s.size.Y; y++ {
		for x := 0; x < s.size.X; x++ {
			img.Set(x, y, color.Gray{Y: 128})
		}
	}
	return img, nil
}

func (s *MockStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.stops++
	return nil
}

// Stopped reports whether Stop was called.
func (s *MockStream) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// MockSurface records attach and detach calls.
type MockSurface struct {
	mu       sync.Mutex
	attached Stream
	attaches int
	detaches int
}

func (m *MockSurface) Attach(s Stream) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attached = s
	m.attaches++
	return nil
}

func (m *MockSurface) Detach() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attached = nil
	m.detaches++
}

// Attached returns the stream currently attached.
func (m *MockSurface) Attached() Stream {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attached
}

// Counts returns attach and detach counts.
func (m *MockSurface) Counts() (attaches, detaches int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attaches, m.detaches
}

// Ready returns a provider that always has s.
func Ready(s Surface) SurfaceProvider {
	return SurfaceFunc(func() (Surface, bool) { return s, true })
}

// Never returns a provider whose surface never appears.
func Never() SurfaceProvider {
	return SurfaceFunc(func() (Surface, bool) { return nil, false })
}

var (
	_ Device  = (*MockDevice)(nil)
	_ Stream  = (*MockStream)(nil)
	_ Surface = (*MockSurface)(nil)
)
