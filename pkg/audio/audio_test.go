package audio

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"testing"
	"time"
)

func TestPCMRoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768}
	got := ConvertPCM16ToInt16(ConvertInt16ToPCM16(samples))
	for i := range samples {
		if got[i] != samples[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], samples[i])
		}
	}
}

func TestResample(t *testing.T) {
	in := make([]int16, 240)
	if out := Resample(in, 24000, 48000); len(out) != 480 {
		t.Errorf("expected 480 samples, got %d", len(out))
	}
	if out := Resample(in, 24000, 24000); len(out) != 240 {
		t.Errorf("same rate should be a no-op, got %d", len(out))
	}
}

func TestTone(t *testing.T) {
	pcm := Tone(880, 120*time.Millisecond, 24000, 0.5)
	if len(pcm) != 2880*2 {
		t.Fatalf("expected %d bytes, got %d", 2880*2, len(pcm))
	}

	samples := ConvertPCM16ToInt16(pcm)
	if samples[0] != 0 {
		t.Errorf("tone should fade in from silence, got %d", samples[0])
	}

	var peak int16
	for _, s := range samples {
		if s > peak {
			peak = s
		}
	}
	if peak < 16000 || peak > 16384 {
		t.Errorf("unexpected peak %d for amplitude 0.5", peak)
	}
}

func TestMockBlocksUntilCancel(t *testing.T) {
	m := NewMock()
	m.Block = true

	done := make(chan error, 1)
	go func() { done <- m.Play(context.Background(), []byte{1, 2}, 24000) }()

	time.Sleep(10 * time.Millisecond)
	m.Cancel()

	select {
	case err := <-done:
		if !errors.Is(err, ErrCancelled) {
			t.Errorf("expected ErrCancelled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Play did not return after Cancel")
	}
}

func TestExecSinkPlays(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}

	s := NewExecSink(func(ctx context.Context, rate int) *exec.Cmd {
		return exec.CommandContext(ctx, "cat")
	}, nil)

	var started, ended bool
	s.OnPlaybackStart = func() { started = true }
	s.OnPlaybackEnd = func() { ended = true }

	if err := s.Play(context.Background(), make([]byte, 64), 24000); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if !started || !ended {
		t.Errorf("callbacks not fired: start=%v end=%v", started, ended)
	}
	if s.IsPlaying() {
		t.Error("sink should be idle after Play returns")
	}
}

func TestExecSinkCancel(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}

	s := NewExecSink(func(ctx context.Context, rate int) *exec.Cmd {
		return exec.CommandContext(ctx, "sleep", "10")
	}, nil)

	done := make(chan error, 1)
	go func() { done <- s.Play(context.Background(), []byte{0, 0}, 24000) }()

	deadline := time.Now().Add(time.Second)
	for !s.IsPlaying() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Cancel()

	select {
	case err := <-done:
		if !errors.Is(err, ErrCancelled) {
			t.Errorf("expected ErrCancelled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Play did not return after Cancel")
	}
}

func TestExecSinkEmptyClip(t *testing.T) {
	s := NewExecSink(nil, nil)
	if err := s.Play(context.Background(), nil, 24000); err != nil {
		t.Errorf("empty clip should be a no-op, got %v", err)
	}
}

func TestExecSinkStalePlayKeepsRunningClip(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}

	s := NewExecSink(func(ctx context.Context, rate int) *exec.Cmd {
		return exec.CommandContext(ctx, "sleep", "10")
	}, nil)

	live := make(chan error, 1)
	go func() { live <- s.Play(context.Background(), []byte{0, 0}, 24000) }()

	deadline := time.Now().Add(time.Second)
	for !s.IsPlaying() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !s.IsPlaying() {
		t.Fatal("live clip never started")
	}

	stale, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Play(stale, []byte{0, 0}, 24000); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	select {
	case err := <-live:
		t.Fatalf("live clip was stopped by a cancelled Play: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	if !s.IsPlaying() {
		t.Error("live clip should still be playing")
	}

	s.Cancel()
	select {
	case <-live:
	case <-time.After(2 * time.Second):
		t.Fatal("Play did not return after Cancel")
	}
}

func TestPortAudioSinkStalePlayKeepsGeneration(t *testing.T) {
	s := &PortAudioSink{logger: slog.Default(), generation: 3}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Play(ctx, []byte{0, 0}, 24000); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if !s.current(3) {
		t.Errorf("cancelled Play must not invalidate the clip in flight, generation=%d", s.generation)
	}
}
