// Package cue plays short non-blocking sounds alongside narration.
package cue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ID names a cue.
type ID string

const (
	// Ack acknowledges a capture request.
	Ack ID = "ack"
	// Done marks a finished caption.
	Done ID = "done"
)

// Sound is the tone behind a cue.
type Sound struct {
	Frequency float64
	Duration  time.Duration
}

// Sounds maps every known cue to its tone.
var Sounds = map[ID]Sound{
	Ack:  {Frequency: 880, Duration: 120 * time.Millisecond},
	Done: {Frequency: 1320, Duration: 250 * time.Millisecond},
}

// Player renders one sound. It may block until the sound finished.
type Player interface {
	PlaySound(ctx context.Context, s Sound) error
}

// Cues fires cues asynchronously. Cues may overlap and failures never surface.
type Cues struct {
	player Player
	logger *slog.Logger
	wg     sync.WaitGroup
}

// New creates a Cues over player. A nil player makes every cue silent.
func New(player Player, logger *slog.Logger) *Cues {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cues{player: player, logger: logger.With("component", "cue")}
}

// Play starts cue id in its own goroutine and returns immediately.
func (c *Cues) Play(id ID) {
	if c == nil || c.player == nil {
		return
	}
	sound, ok := Sounds[id]
	if !ok {
		c.logger.Debug("unknown cue", "id", id)
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sound.Duration+time.Second)
		defer cancel()
		if err := c.player.PlaySound(ctx, sound); err != nil {
			c.logger.Debug("cue failed", "id", id, "error", err)
		}
	}()
}

// Wait blocks until every started cue returned.
func (c *Cues) Wait() {
	if c == nil {
		return
	}
	c.wg.Wait()
}

// Mode selects a cue backend.
type Mode string

const (
	ModeBeep Mode = "beep"
	ModeTone Mode = "tone"
	ModeOff  Mode = "off"
)

// ParseMode validates a backend name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeBeep, ModeTone, ModeOff:
		return m, nil
	case "":
		return ModeTone, nil
	default:
		return "", fmt.Errorf("cue: unknown mode %q", s)
	}
}
