package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// FramesPerBuffer is the chunk size written to the output stream.
const FramesPerBuffer = 1024

// PortAudioSink plays through the default output device.
// Each clip opens its own stream at the clip's sample rate.
type PortAudioSink struct {
	logger *slog.Logger

	mu         sync.Mutex
	generation uint64
}

// NewPortAudioSink initializes PortAudio. Call Close when done.
func NewPortAudioSink(logger *slog.Logger) (*PortAudioSink, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PortAudioSink{logger: logger.With("component", "audio.portaudio")}, nil
}

// Play writes pcm to a fresh output stream in FramesPerBuffer chunks.
// Between chunks it checks for Cancel and ctx.
func (s *PortAudioSink) Play(ctx context.Context, pcm []byte, sampleRate int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(pcm) == 0 {
		return nil
	}

	s.mu.Lock()
	if err := ctx.Err(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	buffer := make([]int16, FramesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(sampleRate), FramesPerBuffer, buffer)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start stream: %w", err)
	}
	defer stream.Stop()

	samples := ConvertPCM16ToInt16(pcm)
	for off := 0; off < len(samples); off += FramesPerBuffer {
		if !s.current(gen) {
			return ErrCancelled
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		n := copy(buffer, samples[off:])
		for i := n; i < len(buffer); i++ {
			buffer[i] = 0
		}
		if err := stream.Write(); err != nil {
			return fmt.Errorf("write stream: %w", err)
		}
	}

	s.logger.Debug("clip played", "samples", len(samples), "sample_rate", sampleRate)
	return nil
}

// Cancel invalidates the clip in flight; it stops at the next chunk boundary.
func (s *PortAudioSink) Cancel() {
	s.mu.Lock()
	s.generation++
	s.mu.Unlock()
}

// Close terminates PortAudio.
func (s *PortAudioSink) Close() error {
	s.Cancel()
	return portaudio.Terminate()
}

func (s *PortAudioSink) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation == gen
}

var _ Sink = (*PortAudioSink)(nil)
