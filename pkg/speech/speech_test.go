package speech

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/visionmate/pkg/audio"
	"github.com/teslashibe/visionmate/pkg/platform"
	"github.com/teslashibe/visionmate/pkg/tts"
)

var (
	us    = Voice{ID: "samantha", Locale: "en-US"}
	gb    = Voice{ID: "daniel", Locale: "en-GB", Default: true}
	fr    = Voice{ID: "amelie", Locale: "fr-FR"}
	zz    = Voice{ID: "zz", Locale: "de-DE"}
	alpha = Voice{ID: "alpha", Locale: "de-DE"}
)

func TestSelectVoice(t *testing.T) {
	tests := []struct {
		name   string
		voices []Voice
		want   string
		ok     bool
	}{
		{"empty", nil, "", false},
		{"prefers en-US", []Voice{gb, fr, us}, "samantha", true},
		{"locale is case-insensitive", []Voice{gb, {ID: "x", Locale: "en-us"}}, "x", true},
		{"prefers default among en-US", []Voice{us, gb, {ID: "nova", Locale: "en-US", Default: true}}, "nova", true},
		{"falls back to default", []Voice{fr, gb}, "daniel", true},
		{"falls back to first by id", []Voice{zz, fr, alpha}, "alpha", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := SelectVoice(tt.voices)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, v.ID)
		})
	}
}

func TestNarratorPointerStartsUnlocked(t *testing.T) {
	engine := NewMock(gb, us)
	n := NewNarrator(engine, platform.Pointer, nil)

	assert.False(t, n.Locked())
	n.Speak("Welcome to VisionMate.")

	spoken := engine.Spoken()
	require.Len(t, spoken, 1)
	assert.Equal(t, "Welcome to VisionMate.", spoken[0].Text)
	assert.Equal(t, "samantha", spoken[0].Voice.ID)
	assert.Equal(t, "Welcome to VisionMate.", n.Last())
}

func TestNarratorTouchDropsUntilUnlocked(t *testing.T) {
	engine := NewMock(us)
	n := NewNarrator(engine, platform.Touch, nil)

	require.True(t, n.Locked())
	n.Speak("dropped one")
	n.Speak("dropped two")
	assert.Empty(t, engine.Spoken(), "nothing may reach the engine before unlock")

	assert.True(t, n.Unlock())
	spoken := engine.Spoken()
	require.Len(t, spoken, 1)
	assert.Equal(t, "", spoken[0].Text, "unlock probe has no content")

	assert.False(t, n.Unlock(), "second unlock is a no-op")
	assert.Len(t, engine.Spoken(), 1)

	n.Speak("Tap anywhere to capture.")
	assert.Equal(t, []string{"Tap anywhere to capture."}, engine.Texts())
}

func TestNarratorInterruptsPrevious(t *testing.T) {
	engine := NewMock(us)
	n := NewNarrator(engine, platform.Pointer, nil)

	n.Speak("A")
	n.Speak("B")

	assert.Equal(t, []string{"A", "B"}, engine.Texts())
	assert.Equal(t, 2, engine.Cancels(), "every speak cancels what came before")
}

func TestNarratorBuffersUntilVoicesLoad(t *testing.T) {
	engine := NewMock()
	n := NewNarrator(engine, platform.Pointer, nil)

	n.Speak("first")
	n.Speak("second")
	assert.Empty(t, engine.Spoken())

	engine.SetVoices(fr, us)

	spoken := engine.Spoken()
	require.Len(t, spoken, 1, "only the newest held message is spoken")
	assert.Equal(t, "second", spoken[0].Text)
	assert.Equal(t, "samantha", spoken[0].Voice.ID)

	engine.SetVoices(us)
	assert.Len(t, engine.Spoken(), 1, "a voice reload does not repeat the message")
}

func TestNarratorStopForgetsHeldMessage(t *testing.T) {
	engine := NewMock()
	n := NewNarrator(engine, platform.Pointer, nil)

	n.Speak("held")
	n.Stop()
	engine.SetVoices(us)

	assert.Empty(t, engine.Spoken())
}

func TestNarratorEngineFailureIsSilent(t *testing.T) {
	engine := NewMock(us)
	engine.SpeakErr = assert.AnError
	n := NewNarrator(engine, platform.Pointer, nil)

	assert.NotPanics(t, func() { n.Speak("hello") })
	assert.Len(t, engine.Spoken(), 1)
}

func newTestEngine(t *testing.T) (*TTSEngine, *tts.Mock, *audio.Mock) {
	t.Helper()
	provider := tts.NewMock()
	sink := audio.NewMock()
	sink.Block = true
	e := NewTTSEngine(provider, sink, nil)
	t.Cleanup(func() { _ = e.Close() })
	return e, provider, sink
}

func TestTTSEngineLoadVoices(t *testing.T) {
	e, provider, _ := newTestEngine(t)
	provider.VoicesFunc = func(ctx context.Context) ([]tts.Voice, error) {
		return tts.OpenAIVoices(tts.VoiceShimmer), nil
	}

	var notified int
	e.OnVoicesChanged(func() { notified++ })

	assert.Empty(t, e.Voices())
	require.NoError(t, e.LoadVoices(context.Background()))
	assert.Len(t, e.Voices(), 6)
	assert.Equal(t, 1, notified)

	v, ok := SelectVoice(e.Voices())
	require.True(t, ok)
	assert.Equal(t, tts.VoiceShimmer, v.ID, "configured voice wins over the first en-US voice")
}

func TestTTSEngineOnlyNewestIsAudible(t *testing.T) {
	e, provider, sink := newTestEngine(t)

	require.NoError(t, e.Speak(Utterance{Text: "A", Voice: us}))
	require.NoError(t, e.Speak(Utterance{Text: "second message", Voice: us}))

	bLen := len("second message") * 960
	require.Eventually(t, func() bool {
		plays := sink.Plays()
		return len(plays) > 0 && len(plays[len(plays)-1].PCM) == bLen
	}, time.Second, 5*time.Millisecond)

	// A never starts after B, and if it started it was cut off by B's cancel.
	plays := sink.Plays()
	assert.Equal(t, bLen, len(plays[len(plays)-1].PCM))
	assert.GreaterOrEqual(t, sink.Cancels(), 2)

	var voices []string
	for _, c := range provider.Calls() {
		if c.Method == "Synthesize" {
			voices = append(voices, c.Voice)
		}
	}
	for _, v := range voices {
		assert.Equal(t, "samantha", v)
	}
}

func TestTTSEngineEmptyUtteranceOnlyInterrupts(t *testing.T) {
	e, provider, sink := newTestEngine(t)

	require.NoError(t, e.Speak(Utterance{}))
	e.Wait()

	assert.Equal(t, 0, provider.CallCount("Synthesize"))
	assert.Empty(t, sink.Plays())
	assert.Equal(t, 1, sink.Cancels())
}

func TestTTSEngineClosed(t *testing.T) {
	e := NewTTSEngine(tts.NewMock(), audio.NewMock(), nil)
	require.NoError(t, e.Close())
	assert.ErrorIs(t, e.Speak(Utterance{Text: "late"}), ErrClosed)
}

func TestNarratorOverTTSEngine(t *testing.T) {
	provider := tts.NewMock()
	sink := audio.NewMock()
	e := NewTTSEngine(provider, sink, nil)
	t.Cleanup(func() { _ = e.Close() })

	n := NewNarrator(e, platform.Pointer, nil)
	n.Speak("Welcome to VisionMate.")
	assert.Equal(t, 0, provider.CallCount("Synthesize"), "held until voices load")

	require.NoError(t, e.LoadVoices(context.Background()))
	e.Wait()

	calls := provider.Calls()
	var texts []string
	for _, c := range calls {
		if c.Method == "Synthesize" {
			texts = append(texts, c.Text)
		}
	}
	assert.Equal(t, []string{"Welcome to VisionMate."}, texts)
	assert.Len(t, sink.Plays(), 1)
}

func TestLogEngine(t *testing.T) {
	e := NewLogEngine(nil)
	n := NewNarrator(e, platform.Pointer, nil)

	n.Speak("hello")
	n.Speak("")
	require.Equal(t, 1, e.Count())

	v, ok := SelectVoice(e.Voices())
	require.True(t, ok)
	require.Equal(t, "log", v.ID)
}
