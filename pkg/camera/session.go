package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"
)

// Bind polling defaults.
const (
	DefaultPollInterval = 50 * time.Millisecond
	DefaultBindTimeout  = time.Second
)

// Handle is an open stream owned by a Session.
type Handle struct {
	id      uint64
	stream  Stream
	surface Surface
}

// ID identifies the handle within its session.
func (h *Handle) ID() uint64 { return h.id }

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithPollInterval sets how often Bind looks for the surface.
func WithPollInterval(d time.Duration) SessionOption {
	return func(s *Session) { s.pollInterval = d }
}

// WithBindTimeout sets how long Bind waits for the surface.
func WithBindTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.bindTimeout = d }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// Session owns at most one open Handle at a time.
type Session struct {
	device       Device
	pollInterval time.Duration
	bindTimeout  time.Duration
	logger       *slog.Logger

	mu      sync.Mutex
	config  Config
	handle  *Handle
	opening bool
	bound   bool
	nextID  uint64
}

// NewSession creates a closed session over device.
func NewSession(device Device, cfg Config, opts ...SessionOption) *Session {
	s := &Session{
		device:       device,
		config:       cfg,
		pollInterval: DefaultPollInterval,
		bindTimeout:  DefaultBindTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "camera.session")
	return s
}

// SetConfig replaces the config used by the next Open.
func (s *Session) SetConfig(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
	return nil
}

// Open requests an environment-facing video stream with no audio.
func (s *Session) Open(ctx context.Context) (*Handle, error) {
	s.mu.Lock()
	if s.handle != nil || s.opening {
		s.mu.Unlock()
		return nil, ErrAlreadyOpen
	}
	s.opening = true
	constraints := s.config.Constraints()
	s.mu.Unlock()

	stream, err := s.device.Open(ctx, constraints)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.opening = false

	if err != nil {
		s.logger.Warn("camera open failed", "error", err)
		if errors.Is(err, ErrUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.nextID++
	s.handle = &Handle{id: s.nextID, stream: stream}
	s.bound = false
	s.logger.Info("camera opened", "handle", s.handle.id, "device", constraints.DeviceIndex)
	return s.handle, nil
}

// Bind waits for the provider's surface and attaches h's stream to it.
func (s *Session) Bind(ctx context.Context, h *Handle, p SurfaceProvider) error {
	ctx, cancel := context.WithTimeout(ctx, s.bindTimeout)
	defer cancel()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		if !s.owns(h) {
			return ErrClosed
		}
		if surface, ok := p.Surface(); ok {
			return s.attach(h, surface)
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrNoSurface
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Session) attach(h *Handle, surface Surface) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != h {
		return ErrClosed
	}
	if err := surface.Attach(h.stream); err != nil {
		return fmt.Errorf("attach surface: %w", err)
	}
	h.surface = surface
	s.bound = true
	s.logger.Debug("camera bound", "handle", h.id)
	return nil
}

// Close stops the stream and detaches the surface. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	h := s.handle
	s.handle = nil
	s.bound = false
	s.mu.Unlock()

	if h == nil {
		return nil
	}
	if h.surface != nil {
		h.surface.Detach()
	}
	if err := h.stream.Stop(); err != nil {
		s.logger.Warn("camera stop failed", "error", err)
		return fmt.Errorf("stop stream: %w", err)
	}
	s.logger.Info("camera closed", "handle", h.id)
	return nil
}

// Active reports whether a handle is open.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle != nil
}

// Bound reports whether the open handle is attached to a surface.
func (s *Session) Bound() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle != nil && s.bound
}

// Quality returns the configured JPEG quality.
func (s *Session) Quality() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config.Quality
}

// Frame returns the current frame of the bound stream.
func (s *Session) Frame() (image.Image, error) {
	stream, err := s.boundStream()
	if err != nil {
		return nil, err
	}
	return stream.Frame()
}

// FrameJPEG encodes the current frame of the bound stream when the stream
// supports it. ok is false when the caller must encode Frame itself.
func (s *Session) FrameJPEG(quality int) (data []byte, size image.Point, ok bool, err error) {
	stream, err := s.boundStream()
	if err != nil {
		return nil, image.Point{}, false, err
	}
	js, ok := stream.(JPEGStream)
	if !ok {
		return nil, image.Point{}, false, nil
	}
	data, size, err = js.FrameJPEG(quality)
	return data, size, true, err
}

func (s *Session) boundStream() (Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return nil, ErrClosed
	}
	if !s.bound {
		return nil, ErrNotBound
	}
	return s.handle.stream, nil
}

func (s *Session) owns(h *Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return h != nil && s.handle == h
}
