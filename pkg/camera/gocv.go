package camera

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// GocvDevice opens OS video devices through OpenCV.
type GocvDevice struct {
	logger *slog.Logger
}

// NewGocvDevice creates a device backed by gocv.VideoCapture.
func NewGocvDevice(logger *slog.Logger) *GocvDevice {
	if logger == nil {
		logger = slog.Default()
	}
	return &GocvDevice{logger: logger.With("component", "camera.gocv")}
}

// Open starts capturing from c.DeviceIndex. OpenCV cannot pick a camera by
// facing mode, so the index decides.
func (d *GocvDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	vc, err := gocv.OpenVideoCapture(c.DeviceIndex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: device %d not opened", ErrUnavailable, c.DeviceIndex)
	}

	if c.Width > 0 && c.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(c.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(c.Height))
	}
	if c.Framerate > 0 {
		vc.Set(gocv.VideoCaptureFPS, float64(c.Framerate))
	}

	s := &gocvStream{
		vc:     vc,
		latest: gocv.NewMat(),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: d.logger,
	}

	// Wait for the first frame so a denied or busy device fails here.
	first := gocv.NewMat()
	if ok := vc.Read(&first); !ok || first.Empty() {
		first.Close()
		s.latest.Close()
		vc.Close()
		return nil, fmt.Errorf("%w: device %d produced no frame", ErrUnavailable, c.DeviceIndex)
	}
	s.latest.Close()
	s.latest = first

	go s.readLoop()

	d.logger.Info("video capture started",
		"device", c.DeviceIndex,
		"width", first.Cols(),
		"height", first.Rows(),
	)
	return s, nil
}

type gocvStream struct {
	vc     *gocv.VideoCapture
	logger *slog.Logger

	mu     sync.Mutex
	latest gocv.Mat

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func (s *gocvStream) readLoop() {
	defer close(s.done)

	for {
		select {
		case <-s.stop:
			return
		default:
		}

		mat := gocv.NewMat()
		if ok := s.vc.Read(&mat); !ok || mat.Empty() {
			mat.Close()
			time.Sleep(10 * time.Millisecond)
			continue
		}

		s.mu.Lock()
		s.latest.Close()
		s.latest = mat
		s.mu.Unlock()
	}
}

func (s *gocvStream) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.latest.Empty() {
		return nil, ErrNoFrame
	}
	img, err := s.latest.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	return img, nil
}

func (s *gocvStream) FrameJPEG(quality int) ([]byte, image.Point, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.latest.Empty() {
		return nil, image.Point{}, ErrNoFrame
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, s.latest, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, image.Point{}, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, image.Pt(s.latest.Cols(), s.latest.Rows()), nil
}

func (s *gocvStream) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.stop)
		<-s.done

		s.mu.Lock()
		s.latest.Close()
		s.mu.Unlock()

		err = s.vc.Close()
	})
	return err
}

var (
	_ Device     = (*GocvDevice)(nil)
	_ JPEGStream = (*gocvStream)(nil)
)
