package speech

import (
	"log/slog"
	"sync"

	"github.com/teslashibe/visionmate/pkg/platform"
)

// Narrator speaks prompts one at a time; the newest message always wins.
type Narrator struct {
	engine Engine
	logger *slog.Logger

	mu      sync.Mutex
	locked  bool
	pending string
	waiting bool
	last    string
}

// NewNarrator creates a narrator over engine. Touch platforms start locked.
func NewNarrator(engine Engine, mode platform.Mode, logger *slog.Logger) *Narrator {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Narrator{
		engine: engine,
		logger: logger.With("component", "speech.narrator"),
		locked: mode == platform.Touch,
	}
	engine.OnVoicesChanged(n.voicesChanged)
	return n
}

// Speak cancels whatever is playing or pending and speaks message.
// While locked the message is dropped. While voices are still loading the
// message is held and replaces any message already held.
func (n *Narrator) Speak(message string) {
	if message == "" {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.locked {
		n.logger.Debug("narration dropped while locked", "message", message)
		return
	}

	n.engine.Cancel()

	voice, ok := SelectVoice(n.engine.Voices())
	if !ok {
		n.pending = message
		n.waiting = true
		n.logger.Debug("voices not loaded, holding narration", "message", message)
		return
	}

	n.waiting = false
	n.pending = ""
	n.speakLocked(message, voice)
}

// Unlock opens the gate with a zero-content probe utterance. It reports
// whether the narrator was locked.
func (n *Narrator) Unlock() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.locked {
		return false
	}
	n.locked = false

	voice, _ := SelectVoice(n.engine.Voices())
	if err := n.engine.Speak(Utterance{Voice: voice}); err != nil {
		n.logger.Warn("unlock probe failed", "error", err)
	}
	n.logger.Info("narration unlocked")
	return true
}

// Locked reports whether narration is still gated.
func (n *Narrator) Locked() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.locked
}

// Last returns the most recent message handed to the engine.
func (n *Narrator) Last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last
}

// Stop silences the engine and forgets any held message.
func (n *Narrator) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending = ""
	n.waiting = false
	n.engine.Cancel()
}

func (n *Narrator) voicesChanged() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.waiting {
		return
	}
	voice, ok := SelectVoice(n.engine.Voices())
	if !ok {
		return
	}

	message := n.pending
	n.pending = ""
	n.waiting = false
	n.speakLocked(message, voice)
}

// speakLocked hands message to the engine (must hold mu).
func (n *Narrator) speakLocked(message string, voice Voice) {
	n.last = message
	if err := n.engine.Speak(Utterance{Text: message, Voice: voice}); err != nil {
		n.logger.Warn("speech engine failed", "error", err, "message", message)
		return
	}
	n.logger.Debug("narrating", "message", message, "voice", voice.ID)
}
