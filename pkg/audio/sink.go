// Package audio plays raw PCM16 mono audio for narration and cues.
package audio

import (
	"context"
	"errors"
)

// ErrCancelled is returned by Play when playback was cut short by Cancel.
var ErrCancelled = errors.New("audio: playback cancelled")

// Sink plays little-endian PCM16 mono audio.
type Sink interface {
	// Play blocks until the audio finished, ctx is done or Cancel was called.
	Play(ctx context.Context, pcm []byte, sampleRate int) error

	// Cancel stops whatever is playing right now. Safe to call when idle.
	Cancel()
}

// Nop discards all audio.
type Nop struct{}

func (Nop) Play(ctx context.Context, pcm []byte, sampleRate int) error { return nil }
func (Nop) Cancel()                                                    {}

var _ Sink = Nop{}
