// Package tts provides a unified interface for the text-to-speech backends
// that voice VisionMate's narration.
//
// All providers implement the Provider interface, so the narrator can switch
// between a hosted voice and a mock without changing caller code.
//
// Example usage:
//
//	provider, _ := tts.NewOpenAI(
//	    tts.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    tts.WithVoice(tts.VoiceShimmer),
//	)
//	defer provider.Close()
//
//	result, _ := provider.Synthesize(ctx, "Caption: a dog on a beach")
//	// result.Audio contains PCM16 samples at result.Format.SampleRate
package tts

import (
	"context"
	"time"
)

// Provider defines the TTS provider interface.
type Provider interface {
	// Synthesize converts text to audio, returning the complete audio buffer.
	// Narration prompts are short, so there is no streaming variant.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Voices lists the voices this provider can speak with.
	Voices(ctx context.Context) ([]Voice, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// VoiceSynthesizer is implemented by providers that can switch voice per request.
type VoiceSynthesizer interface {
	SynthesizeVoice(ctx context.Context, text, voiceID string) (*AudioResult, error)
}

// Voice describes one selectable voice.
type Voice struct {
	// ID is what the provider expects in WithVoice.
	ID string

	// Name is a human-readable label.
	Name string

	// Locale is a BCP 47 tag such as "en-US".
	Locale string

	// Default marks the provider's preferred voice.
	Default bool
}

// AudioResult represents a complete audio synthesis result.
type AudioResult struct {
	// Audio contains the raw audio data in the specified format.
	Audio []byte

	// Format describes the audio encoding and sample rate.
	Format AudioFormat

	// Duration is the estimated audio playback duration.
	Duration time.Duration

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the time to first byte in milliseconds.
	LatencyMs int64
}

// AudioFormat describes the audio encoding parameters.
type AudioFormat struct {
	Encoding   Encoding
	SampleRate int
	Channels   int
	BitDepth   int
}

// Encoding represents audio encoding types.
type Encoding string

const (
	EncodingPCM16 Encoding = "pcm_16000" // 16kHz mono PCM16
	EncodingPCM24 Encoding = "pcm_24000" // 24kHz mono PCM16 (OpenAI "pcm" output)
	EncodingPCM44 Encoding = "pcm_44100" // 44.1kHz mono PCM16
	EncodingMP3   Encoding = "mp3_44100_128"
)

// PCM24 is the format returned by the OpenAI provider and the mock.
var PCM24 = AudioFormat{Encoding: EncodingPCM24, SampleRate: 24000, Channels: 1, BitDepth: 16}

// SampleRateFromEncoding extracts the sample rate from an encoding type.
func SampleRateFromEncoding(enc Encoding) int {
	switch enc {
	case EncodingPCM16:
		return 16000
	case EncodingPCM24:
		return 24000
	case EncodingPCM44, EncodingMP3:
		return 44100
	default:
		return 24000
	}
}

// PCMDuration estimates playback time of mono PCM16 audio.
func PCMDuration(audio []byte, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := len(audio) / 2
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
