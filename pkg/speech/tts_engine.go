package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teslashibe/visionmate/pkg/audio"
	"github.com/teslashibe/visionmate/pkg/tts"
)

// ErrClosed is returned by Speak after Close.
var ErrClosed = errors.New("speech: engine closed")

// TTSEngine implements Engine with a tts.Provider for synthesis and an
// audio.Sink for playback. Each Speak supersedes the previous one.
type TTSEngine struct {
	provider tts.Provider
	sink     audio.Sink
	logger   *slog.Logger

	ctx  context.Context
	stop context.CancelFunc

	mu         sync.Mutex
	voices     []Voice
	listeners  []func()
	generation uint64
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewTTSEngine creates an engine. Voices stay empty until LoadVoices runs.
func NewTTSEngine(provider tts.Provider, sink audio.Sink, logger *slog.Logger) *TTSEngine {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, stop := context.WithCancel(context.Background())
	return &TTSEngine{
		provider: provider,
		sink:     sink,
		logger:   logger.With("component", "speech.tts"),
		ctx:      ctx,
		stop:     stop,
	}
}

// LoadVoices fetches the provider's voices and notifies listeners.
func (e *TTSEngine) LoadVoices(ctx context.Context) error {
	list, err := e.provider.Voices(ctx)
	if err != nil {
		return fmt.Errorf("load voices: %w", err)
	}

	voices := make([]Voice, len(list))
	for i, v := range list {
		voices[i] = Voice{ID: v.ID, Name: v.Name, Locale: v.Locale, Default: v.Default}
	}

	e.mu.Lock()
	e.voices = voices
	listeners := append([]func(){}, e.listeners...)
	e.mu.Unlock()

	e.logger.Info("voices loaded", "count", len(voices))
	for _, f := range listeners {
		f()
	}
	return nil
}

// Voices returns a copy of the loaded voices.
func (e *TTSEngine) Voices() []Voice {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Voice, len(e.voices))
	copy(out, e.voices)
	return out
}

// OnVoicesChanged registers f to run after each LoadVoices.
func (e *TTSEngine) OnVoicesChanged(f func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, f)
}

// Speak supersedes the current utterance and synthesizes u in the background.
// An empty text only interrupts.
func (e *TTSEngine) Speak(u Utterance) error {
	if e.ctx.Err() != nil {
		return ErrClosed
	}

	ctx, gen := e.supersede()
	if u.Text == "" {
		return nil
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.run(ctx, gen, u)
	}()
	return nil
}

// Cancel stops synthesis and playback in flight.
func (e *TTSEngine) Cancel() {
	e.supersede()
}

// Close cancels everything and waits for background work.
func (e *TTSEngine) Close() error {
	e.stop()
	e.sink.Cancel()
	e.wg.Wait()
	return nil
}

// Wait blocks until all started utterances finished or were cancelled.
func (e *TTSEngine) Wait() {
	e.wg.Wait()
}

func (e *TTSEngine) supersede() (context.Context, uint64) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	if e.cancel != nil {
		e.cancel()
	}
	ctx, cancel := context.WithCancel(e.ctx)
	e.cancel = cancel
	e.mu.Unlock()

	e.sink.Cancel()
	return ctx, gen
}

func (e *TTSEngine) current(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation == gen
}

func (e *TTSEngine) run(ctx context.Context, gen uint64, u Utterance) {
	var (
		result *tts.AudioResult
		err    error
	)
	if vs, ok := e.provider.(tts.VoiceSynthesizer); ok {
		result, err = vs.SynthesizeVoice(ctx, u.Text, u.Voice.ID)
	} else {
		result, err = e.provider.Synthesize(ctx, u.Text)
	}
	if err != nil {
		if ctx.Err() == nil {
			e.logger.Warn("synthesis failed", "error", err, "text", u.Text)
		}
		return
	}

	if !e.current(gen) {
		return
	}

	err = e.sink.Play(ctx, result.Audio, result.Format.SampleRate)
	switch {
	case err == nil:
		e.logger.Debug("utterance finished", "text", u.Text, "duration", result.Duration)
	case errors.Is(err, audio.ErrCancelled), errors.Is(err, context.Canceled):
		e.logger.Debug("utterance interrupted", "text", u.Text)
	default:
		e.logger.Warn("playback failed", "error", err, "text", u.Text)
	}
}

var _ Engine = (*TTSEngine)(nil)
