package speech

import "sync"

// Mock implements Engine for tests and records every call.
type Mock struct {
	SpeakErr error

	mu        sync.Mutex
	voices    []Voice
	listeners []func()
	spoken    []Utterance
	cancels   int
}

// NewMock creates an engine that already has voices loaded.
func NewMock(voices ...Voice) *Mock {
	return &Mock{voices: voices}
}

func (m *Mock) Voices() []Voice {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Voice, len(m.voices))
	copy(out, m.voices)
	return out
}

func (m *Mock) OnVoicesChanged(f func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, f)
}

func (m *Mock) Speak(u Utterance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spoken = append(m.spoken, u)
	return m.SpeakErr
}

func (m *Mock) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancels++
}

// SetVoices replaces the voice list and notifies listeners.
func (m *Mock) SetVoices(voices ...Voice) {
	m.mu.Lock()
	m.voices = voices
	listeners := append([]func(){}, m.listeners...)
	m.mu.Unlock()
	for _, f := range listeners {
		f()
	}
}

// Spoken returns every utterance passed to Speak, probes included.
func (m *Mock) Spoken() []Utterance {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Utterance, len(m.spoken))
	copy(out, m.spoken)
	return out
}

// Texts returns the non-empty texts passed to Speak.
func (m *Mock) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, u := range m.spoken {
		if u.Text != "" {
			out = append(out, u.Text)
		}
	}
	return out
}

// Cancels returns how many times Cancel was called.
func (m *Mock) Cancels() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancels
}

var _ Engine = (*Mock)(nil)
