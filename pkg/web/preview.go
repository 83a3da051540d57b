package web

import (
	"bytes"
	"errors"
	"image/jpeg"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/visionmate/pkg/camera"
	"github.com/teslashibe/visionmate/pkg/hub"
)

// Preview is the camera surface. It pushes JPEG frames of the attached
// stream to /ws/camera viewers at the configured preview rate.
type Preview struct {
	hub    *hub.Hub
	camera *camera.Manager
	logger *slog.Logger

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewPreview creates a preview publishing to h. cameraCfg may be nil.
func NewPreview(h *hub.Hub, cameraCfg *camera.Manager, logger *slog.Logger) *Preview {
	if logger == nil {
		logger = slog.Default()
	}
	return &Preview{hub: h, camera: cameraCfg, logger: logger.With("component", "web.preview")}
}

// Surface reports the preview once the camera hub is serving.
func (p *Preview) Surface() (camera.Surface, bool) {
	if !p.hub.IsRunning() {
		return nil, false
	}
	return p, true
}

// Attach starts pumping frames from s, replacing any previous stream.
func (p *Preview) Attach(s camera.Stream) error {
	p.Detach()

	p.mu.Lock()
	defer p.mu.Unlock()
	stop, done := make(chan struct{}), make(chan struct{})
	p.stop, p.done = stop, done
	go p.pump(s, stop, done)
	return nil
}

// Detach stops the pump and waits for it to exit.
func (p *Preview) Detach() {
	p.mu.Lock()
	stop, done := p.stop, p.done
	p.stop, p.done = nil, nil
	p.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

func (p *Preview) settings() (fps, quality int) {
	cfg := camera.DefaultConfig()
	if p.camera != nil {
		cfg = p.camera.GetConfig()
	}
	fps, quality = cfg.PreviewFPS, cfg.PreviewQuality
	if fps <= 0 {
		fps = 10
	}
	if quality <= 0 {
		quality = 70
	}
	return fps, quality
}

func (p *Preview) pump(s camera.Stream, stop, done chan struct{}) {
	defer close(done)

	fps, quality := p.settings()
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		if p.hub.ClientCount() == 0 {
			continue
		}
		data, err := encodePreview(s, quality)
		if err != nil {
			if !errors.Is(err, camera.ErrNoFrame) {
				p.logger.Debug("preview frame", "error", err)
			}
			continue
		}
		p.hub.BroadcastBinary(data)
	}
}

// encodePreview prefers the stream's own encoder.
func encodePreview(s camera.Stream, quality int) ([]byte, error) {
	if js, ok := s.(camera.JPEGStream); ok {
		data, _, err := js.FrameJPEG(quality)
		return data, err
	}
	img, err := s.Frame()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var (
	_ camera.Surface         = (*Preview)(nil)
	_ camera.SurfaceProvider = (*Preview)(nil)
)
