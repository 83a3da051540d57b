package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
)

// CommandFunc builds the player process for one clip.
// The process must read raw PCM16 mono from stdin.
type CommandFunc func(ctx context.Context, sampleRate int) *exec.Cmd

// AplayCommand plays through ALSA.
func AplayCommand(ctx context.Context, sampleRate int) *exec.Cmd {
	return exec.CommandContext(ctx, "aplay", "-q", "-t", "raw", "-f", "S16_LE",
		"-c", "1", "-r", strconv.Itoa(sampleRate))
}

// FFplayCommand plays through ffplay, which works on macOS as well.
func FFplayCommand(ctx context.Context, sampleRate int) *exec.Cmd {
	return exec.CommandContext(ctx, "ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet",
		"-f", "s16le", "-ar", strconv.Itoa(sampleRate), "-ch_layout", "mono", "-")
}

// ExecSink pipes each clip into an external player process.
type ExecSink struct {
	command CommandFunc
	logger  *slog.Logger

	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	cancelled bool

	// Callbacks
	OnPlaybackStart func()
	OnPlaybackEnd   func()
}

// NewExecSink creates a sink around command. Nil selects aplay.
func NewExecSink(command CommandFunc, logger *slog.Logger) *ExecSink {
	if command == nil {
		command = AplayCommand
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecSink{
		command: command,
		logger:  logger.With("component", "audio.exec"),
	}
}

// Play starts a player process, writes pcm to it and waits for it to exit.
// A clip already playing is cancelled first, unless ctx is already done.
func (s *ExecSink) Play(ctx context.Context, pcm []byte, sampleRate int) error {
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
	s.stopLocked()

	cmd := s.command(ctx, sampleRate)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("start player: %w", err)
	}
	s.cmd = cmd
	s.stdin = stdin
	s.cancelled = false
	s.mu.Unlock()

	if s.OnPlaybackStart != nil {
		s.OnPlaybackStart()
	}
	defer func() {
		if s.OnPlaybackEnd != nil {
			s.OnPlaybackEnd()
		}
	}()

	_, writeErr := stdin.Write(pcm)
	stdin.Close()
	waitErr := cmd.Wait()

	s.mu.Lock()
	cancelled := s.cancelled
	if s.cmd == cmd {
		s.cmd = nil
		s.stdin = nil
	}
	s.mu.Unlock()

	switch {
	case cancelled:
		return ErrCancelled
	case ctx.Err() != nil:
		return ctx.Err()
	case writeErr != nil:
		return fmt.Errorf("write to player: %w", writeErr)
	case waitErr != nil:
		return fmt.Errorf("player exited: %w", waitErr)
	}

	s.logger.Debug("clip played", "bytes", len(pcm), "sample_rate", sampleRate)
	return nil
}

// Cancel kills the running player, if any.
func (s *ExecSink) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// IsPlaying returns whether a player process is running.
func (s *ExecSink) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmd != nil
}

// stopLocked kills the current process (must hold mu).
// Wait is left to the Play call that started it.
func (s *ExecSink) stopLocked() {
	if s.cmd == nil {
		return
	}
	s.cancelled = true
	if s.stdin != nil {
		s.stdin.Close()
		s.stdin = nil
	}
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	s.cmd = nil
}

var _ Sink = (*ExecSink)(nil)
