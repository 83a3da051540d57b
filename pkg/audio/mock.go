package audio

import (
	"context"
	"sync"
)

// MockPlay records one Play call.
type MockPlay struct {
	PCM        []byte
	SampleRate int
}

// Mock implements Sink for tests. Play returns immediately unless Block is set.
type Mock struct {
	// PlayErr is returned from every Play call.
	PlayErr error

	// Block makes Play wait for Cancel or ctx.
	Block bool

	mu       sync.Mutex
	plays    []MockPlay
	cancels  int
	cancelCh chan struct{}
}

// NewMock creates a non-blocking mock sink.
func NewMock() *Mock {
	return &Mock{cancelCh: make(chan struct{})}
}

func (m *Mock) Play(ctx context.Context, pcm []byte, sampleRate int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.plays = append(m.plays, MockPlay{PCM: pcm, SampleRate: sampleRate})
	block, ch := m.Block, m.cancelCh
	m.mu.Unlock()

	if m.PlayErr != nil {
		return m.PlayErr
	}
	if !block {
		return nil
	}
	select {
	case <-ch:
		return ErrCancelled
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Mock) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancels++
	if m.cancelCh != nil {
		close(m.cancelCh)
	}
	m.cancelCh = make(chan struct{})
}

// Plays returns a copy of recorded Play calls.
func (m *Mock) Plays() []MockPlay {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockPlay, len(m.plays))
	copy(out, m.plays)
	return out
}

// Cancels returns how many times Cancel was called.
func (m *Mock) Cancels() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancels
}

var _ Sink = (*Mock)(nil)
