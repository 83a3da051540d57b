package cue

import (
	"context"

	"github.com/gen2brain/beeep"

	"github.com/teslashibe/visionmate/pkg/audio"
)

// BeepPlayer uses the system beep through beeep.
type BeepPlayer struct{}

func (BeepPlayer) PlaySound(ctx context.Context, s Sound) error {
	return beeep.Beep(s.Frequency, int(s.Duration.Milliseconds()))
}

// ToneSampleRate is the rate TonePlayer synthesizes at.
const ToneSampleRate = 24000

// TonePlayer synthesizes a sine tone and plays it on its own sink, so cues
// never cancel narration.
type TonePlayer struct {
	Sink      audio.Sink
	Amplitude float64
}

// NewTonePlayer creates a TonePlayer at a moderate volume.
func NewTonePlayer(sink audio.Sink) *TonePlayer {
	return &TonePlayer{Sink: sink, Amplitude: 0.4}
}

func (p *TonePlayer) PlaySound(ctx context.Context, s Sound) error {
	pcm := audio.Tone(s.Frequency, s.Duration, ToneSampleRate, p.Amplitude)
	return p.Sink.Play(ctx, pcm, ToneSampleRate)
}

// Recorder implements Player for tests.
type Recorder struct {
	Err    error
	sounds chan Sound
}

// NewRecorder creates a recorder buffering up to 64 sounds.
func NewRecorder() *Recorder {
	return &Recorder{sounds: make(chan Sound, 64)}
}

func (r *Recorder) PlaySound(ctx context.Context, s Sound) error {
	r.sounds <- s
	return r.Err
}

// Sounds returns the channel sounds are recorded on.
func (r *Recorder) Sounds() <-chan Sound {
	return r.sounds
}

var (
	_ Player = BeepPlayer{}
	_ Player = (*TonePlayer)(nil)
	_ Player = (*Recorder)(nil)
)
