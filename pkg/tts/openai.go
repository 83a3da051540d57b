package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const providerOpenAI = "openai"

// OpenAI implements Provider for the OpenAI speech endpoint.
// Audio is requested as raw PCM16 at 24kHz so it can go straight to a sink.
type OpenAI struct {
	config *Config
	client *openai.Client
	logger *slog.Logger
}

// NewOpenAI creates a new OpenAI TTS provider.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	} else {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &OpenAI{
		config: cfg,
		client: openai.NewClientWithConfig(clientCfg),
		logger: cfg.Logger.With("component", "tts.openai"),
	}, nil
}

// Synthesize converts text to audio with the configured voice.
func (o *OpenAI) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	return o.SynthesizeVoice(ctx, text, o.config.VoiceID)
}

// SynthesizeVoice converts text to audio with voiceID, falling back to the
// configured voice when voiceID is empty.
func (o *OpenAI) SynthesizeVoice(ctx context.Context, text, voiceID string) (*AudioResult, error) {
	if voiceID == "" {
		voiceID = o.config.VoiceID
	}
	start := time.Now()

	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.config.ModelID),
		Input:          text,
		Voice:          openai.SpeechVoice(voiceID),
		ResponseFormat: openai.SpeechResponseFormatPcm,
		Speed:          o.config.Speed,
	})
	if err != nil {
		return nil, o.convertError(err)
	}
	defer resp.Close()

	latency := time.Since(start).Milliseconds()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, WrapError(providerOpenAI, fmt.Errorf("read response: %w", err))
	}

	o.logger.Debug("synthesized audio",
		"chars", len(text),
		"bytes", len(audio),
		"latency_ms", latency,
		"voice", voiceID,
	)

	return &AudioResult{
		Audio:     audio,
		Format:    PCM24,
		Duration:  PCMDuration(audio, PCM24.SampleRate),
		CharCount: len(text),
		LatencyMs: latency,
	}, nil
}

// Voices returns the fixed OpenAI voice catalog.
func (o *OpenAI) Voices(ctx context.Context) ([]Voice, error) {
	return OpenAIVoices(o.config.VoiceID), nil
}

// Health checks API connectivity.
func (o *OpenAI) Health(ctx context.Context) error {
	if _, err := o.client.ListModels(ctx); err != nil {
		return o.convertError(err)
	}
	return nil
}

// Close releases resources.
func (o *OpenAI) Close() error {
	if o.config.HTTPClient != nil {
		o.config.HTTPClient.CloseIdleConnections()
	}
	return nil
}

// VoiceID returns the configured voice.
func (o *OpenAI) VoiceID() string {
	return o.config.VoiceID
}

// convertError maps go-openai errors onto APIError.
func (o *OpenAI) convertError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := ""
		if s, ok := apiErr.Code.(string); ok {
			code = s
		}
		return &APIError{
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
			Code:       code,
			Provider:   providerOpenAI,
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &APIError{
			StatusCode: reqErr.HTTPStatusCode,
			Message:    reqErr.Error(),
			Provider:   providerOpenAI,
		}
	}

	return WrapError(providerOpenAI, err)
}

// Verify OpenAI implements Provider at compile time.
var (
	_ Provider         = (*OpenAI)(nil)
	_ VoiceSynthesizer = (*OpenAI)(nil)
)
