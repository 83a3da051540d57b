package speech

import (
	"log/slog"
	"sync"
)

// LogEngine narrates into the log. It is used when no synthesis backend is
// configured, so the flow stays observable on a headless host.
type LogEngine struct {
	logger *slog.Logger

	mu     sync.Mutex
	spoken int
}

// NewLogEngine creates a log-backed engine.
func NewLogEngine(logger *slog.Logger) *LogEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEngine{logger: logger.With("component", "speech.log")}
}

// Voices returns a single en-US voice.
func (e *LogEngine) Voices() []Voice {
	return []Voice{{ID: "log", Name: "Log", Locale: PreferredLocale, Default: true}}
}

// OnVoicesChanged is a no-op; the voice list never changes.
func (e *LogEngine) OnVoicesChanged(func()) {}

func (e *LogEngine) Speak(u Utterance) error {
	if u.Text == "" {
		return nil
	}
	e.mu.Lock()
	e.spoken++
	e.mu.Unlock()
	e.logger.Info("narration", "text", u.Text, "voice", u.Voice.ID)
	return nil
}

func (e *LogEngine) Cancel() {}

// Count returns how many non-empty utterances were logged.
func (e *LogEngine) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.spoken
}

var _ Engine = (*LogEngine)(nil)
