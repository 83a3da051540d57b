package camera

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if errs := cfg.Validate(); len(errs) > 0 {
		t.Errorf("default config invalid: %v", errs)
	}
	if cfg.FacingMode != FacingEnvironment {
		t.Errorf("expected environment facing, got %s", cfg.FacingMode)
	}
	if c := cfg.Constraints(); c.Audio {
		t.Error("constraints must not request audio")
	}
}

func TestPresetsValid(t *testing.T) {
	for _, name := range PresetNames() {
		cfg := GetPreset(name)
		if cfg == nil {
			t.Fatalf("preset %s missing", name)
		}
		if errs := cfg.Validate(); len(errs) > 0 {
			t.Errorf("preset %s invalid: %v", name, errs)
		}
	}
	if GetPreset("nope") != nil {
		t.Error("unknown preset should be nil")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"width", func(c *Config) { c.Width = 10 }},
		{"height", func(c *Config) { c.Height = 9999 }},
		{"framerate", func(c *Config) { c.Framerate = 0 }},
		{"quality", func(c *Config) { c.Quality = 101 }},
		{"facing", func(c *Config) { c.FacingMode = "sideways" }},
		{"preview", func(c *Config) { c.PreviewFPS = 60 }},
		{"device", func(c *Config) { c.DeviceIndex = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if errs := cfg.Validate(); len(errs) != 1 {
				t.Errorf("expected one error, got %v", errs)
			}
		})
	}
}

func TestManagerUpdateConfig(t *testing.T) {
	m := NewManager(DefaultConfig())

	var applied Config
	m.OnConfigChange = func(cfg Config) error {
		applied = cfg
		return nil
	}

	err := m.UpdateConfig(map[string]interface{}{
		"preset":  Preset1080p,
		"quality": float64(75),
	})
	if err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}
	if applied.Width != 1920 || applied.Quality != 75 {
		t.Errorf("unexpected applied config %+v", applied)
	}
	if got := m.GetConfigJSON()["width"]; got != float64(1920) {
		t.Errorf("expected width 1920 in JSON, got %v", got)
	}

	if err := m.UpdateConfig(map[string]interface{}{"preset": "nope"}); err == nil {
		t.Error("expected error for unknown preset")
	}
	if err := m.UpdateConfig(map[string]interface{}{"zoom": 2.0}); err == nil {
		t.Error("expected error for unknown parameter")
	}
	if err := m.UpdateConfig(map[string]interface{}{"width": 1}); err == nil {
		t.Error("expected validation error")
	}
}

func newTestSession(d Device) *Session {
	return NewSession(d, DefaultConfig(),
		WithPollInterval(5*time.Millisecond),
		WithBindTimeout(50*time.Millisecond),
	)
}

func TestSessionSingleHandle(t *testing.T) {
	dev := &MockDevice{}
	s := newTestSession(dev)
	ctx := context.Background()

	h, err := s.Open(ctx)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.Open(ctx); !errors.Is(err, ErrAlreadyOpen) {
		t.Errorf("second open: expected ErrAlreadyOpen, got %v", err)
	}
	if dev.Opens() != 1 {
		t.Errorf("device opened %d times", dev.Opens())
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
	if dev.Live() != 0 {
		t.Errorf("expected all streams stopped, %d live", dev.Live())
	}

	h2, err := s.Open(ctx)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if h2.ID() == h.ID() {
		t.Error("reopen should yield a new handle")
	}
}

func TestSessionOpenUnavailable(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"sentinel", ErrUnavailable},
		{"permission", errors.New("permission denied")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(&MockDevice{OpenErr: tt.err})
			if _, err := s.Open(context.Background()); !errors.Is(err, ErrUnavailable) {
				t.Errorf("expected ErrUnavailable, got %v", err)
			}
			if s.Active() {
				t.Error("failed open must leave the session closed")
			}
		})
	}
}

func TestSessionBindAndFrame(t *testing.T) {
	dev := &MockDevice{}
	s := newTestSession(dev)
	h, _ := s.Open(context.Background())

	if _, err := s.Frame(); !errors.Is(err, ErrNotBound) {
		t.Errorf("expected ErrNotBound before bind, got %v", err)
	}

	surface := &MockSurface{}
	if err := s.Bind(context.Background(), h, Ready(surface)); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if !s.Bound() || surface.Attached() == nil {
		t.Fatal("stream should be attached")
	}

	img, err := s.Frame()
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 640 || b.Dy() != 480 {
		t.Errorf("expected native 640x480, got %v", b)
	}

	_, _, ok, err := s.FrameJPEG(90)
	if err != nil || ok {
		t.Errorf("mock stream cannot encode itself: ok=%v err=%v", ok, err)
	}

	s.Close()
	if _, detaches := surface.Counts(); detaches != 1 {
		t.Errorf("expected surface detached once, got %d", detaches)
	}
	if _, err := s.Frame(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after close, got %v", err)
	}
}

func TestSessionBindWaitsForSurface(t *testing.T) {
	s := NewSession(&MockDevice{}, DefaultConfig(), WithPollInterval(5*time.Millisecond))
	h, _ := s.Open(context.Background())

	surface := &MockSurface{}
	var polls atomic.Int32
	provider := SurfaceFunc(func() (Surface, bool) {
		if polls.Add(1) < 4 {
			return nil, false
		}
		return surface, true
	})

	if err := s.Bind(context.Background(), h, provider); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if polls.Load() < 4 {
		t.Errorf("expected polling, got %d polls", polls.Load())
	}
}

func TestSessionBindTimeout(t *testing.T) {
	s := newTestSession(&MockDevice{})
	h, _ := s.Open(context.Background())

	start := time.Now()
	err := s.Bind(context.Background(), h, Never())
	if !errors.Is(err, ErrNoSurface) {
		t.Fatalf("expected ErrNoSurface, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("bind should honour the configured timeout")
	}
}

func TestSessionBindStaleHandle(t *testing.T) {
	s := newTestSession(&MockDevice{})
	h, _ := s.Open(context.Background())
	s.Close()
	s.Open(context.Background())

	if err := s.Bind(context.Background(), h, Ready(&MockSurface{})); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed for stale handle, got %v", err)
	}
}
