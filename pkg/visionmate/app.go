// Package visionmate wires the capture, caption and narration components
// into a running server.
package visionmate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/visionmate/internal/config"
	"github.com/teslashibe/visionmate/pkg/audio"
	"github.com/teslashibe/visionmate/pkg/camera"
	"github.com/teslashibe/visionmate/pkg/caption"
	"github.com/teslashibe/visionmate/pkg/capture"
	"github.com/teslashibe/visionmate/pkg/controller"
	"github.com/teslashibe/visionmate/pkg/cue"
	"github.com/teslashibe/visionmate/pkg/platform"
	"github.com/teslashibe/visionmate/pkg/prompts"
	"github.com/teslashibe/visionmate/pkg/speech"
	"github.com/teslashibe/visionmate/pkg/telemetry"
	"github.com/teslashibe/visionmate/pkg/tts"
	"github.com/teslashibe/visionmate/pkg/web"
)

// ServiceName tags logs and metrics.
const ServiceName = "visionmate"

// shutdownTimeout bounds session teardown.
const shutdownTimeout = 5 * time.Second

// Option configures an App.
type Option func(*App)

// WithDevice replaces the gocv camera device.
func WithDevice(d camera.Device) Option {
	return func(a *App) { a.device = d }
}

// WithEngine replaces the configured speech engine.
func WithEngine(e speech.Engine) Option {
	return func(a *App) { a.engine = e }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.logger = l }
}

// App is the visionmate orchestrator. It manages all components and their
// lifecycle: New, Init, Run, Shutdown.
type App struct {
	config config.Config
	logger *slog.Logger

	telemetry *telemetry.Telemetry
	prompts   prompts.Table

	// Speech and sound
	sink      audio.Sink
	cueSink   audio.Sink
	engine    speech.Engine
	ttsEngine *speech.TTSEngine
	cues      *cue.Cues

	// Capture
	device        camera.Device
	cameraManager *camera.Manager
	camera        *camera.Session
	picker        *capture.UploadPicker
	captioner     *caption.Client

	server *web.Server

	mu      sync.Mutex
	ctx     context.Context
	session *controller.Controller
}

// New validates cfg and creates an App. Call Init before Run.
func New(cfg config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &App{config: cfg}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a, nil
}

// Init creates every component.
func (a *App) Init() error {
	var err error

	a.telemetry, err = telemetry.Setup(ServiceName, a.config.Environment, a.logger)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	a.prompts, err = prompts.Load(a.config.PromptsPath)
	if err != nil {
		return err
	}

	a.initAudio()

	if err := a.initSpeech(); err != nil {
		return fmt.Errorf("speech init: %w", err)
	}

	a.initCues()
	a.initCamera()
	a.picker = capture.NewUploadPicker()

	a.captioner, err = caption.New(a.config.CaptionEndpoint,
		caption.WithLogger(a.logger),
		caption.WithMeter(a.telemetry.Meter("github.com/teslashibe/visionmate/pkg/caption")),
	)
	if err != nil {
		return fmt.Errorf("caption client: %w", err)
	}

	a.server = web.NewServer(web.Config{
		Addr:          a.config.Addr,
		ForcePlatform: a.config.ForcedPlatform(),
		Start:         a.startSession,
		Picker:        a.picker,
		Camera:        a.cameraManager,
		Metrics:       a.telemetry.Handler(),
		StaticDir:     a.config.StaticDir,
		Logger:        a.logger,
	})

	a.logger.Info("initialized",
		"audio", a.config.Audio,
		"cues", a.config.Cues,
		"platform", a.config.Platform,
		"camera_preset", a.config.CameraPreset,
	)
	return nil
}

// initAudio opens one sink for narration and one for cues.
func (a *App) initAudio() {
	a.sink = a.newSink()
	a.cueSink = a.newSink()
}

// newSink falls back to the exec pipeline when PortAudio is unavailable.
func (a *App) newSink() audio.Sink {
	switch a.config.Audio {
	case config.AudioNone:
		return audio.Nop{}
	case config.AudioPortAudio:
		sink, err := audio.NewPortAudioSink(a.logger)
		if err == nil {
			return sink
		}
		a.logger.Warn("portaudio unavailable, using aplay", "error", err)
	}
	return audio.NewExecSink(audio.AplayCommand, a.logger)
}

func (a *App) initSpeech() error {
	if a.engine != nil {
		return nil
	}
	if a.config.OpenAIKey == "" && a.config.TTSFallbackURL == "" {
		a.logger.Warn("OPENAI_API_KEY not set, narration goes to the log")
		a.engine = speech.NewLogEngine(a.logger)
		return nil
	}

	var providers []tts.Provider
	if a.config.OpenAIKey != "" {
		p, err := tts.NewOpenAI(
			tts.WithAPIKey(a.config.OpenAIKey),
			tts.WithVoice(a.config.TTSVoice),
			tts.WithLogger(a.logger),
		)
		if err != nil {
			return err
		}
		providers = append(providers, p)
	}
	if a.config.TTSFallbackURL != "" {
		key := a.config.OpenAIKey
		if key == "" {
			key = "local"
		}
		p, err := tts.NewOpenAI(
			tts.WithAPIKey(key),
			tts.WithBaseURL(a.config.TTSFallbackURL),
			tts.WithVoice(a.config.TTSVoice),
			tts.WithLogger(a.logger),
		)
		if err != nil {
			return fmt.Errorf("fallback tts: %w", err)
		}
		providers = append(providers, p)
	}

	chain, err := tts.NewChain(providers...)
	if err != nil {
		return err
	}
	a.ttsEngine = speech.NewTTSEngine(chain, a.sink, a.logger)
	a.engine = a.ttsEngine
	return nil
}

func (a *App) initCues() {
	mode, _ := cue.ParseMode(a.config.Cues)
	switch mode {
	case cue.ModeBeep:
		a.cues = cue.New(cue.BeepPlayer{}, a.logger)
	case cue.ModeTone:
		a.cues = cue.New(cue.NewTonePlayer(a.cueSink), a.logger)
	default:
		a.cues = cue.New(nil, a.logger)
	}
}

func (a *App) initCamera() {
	a.cameraManager = camera.NewManager(a.config.CameraConfig())
	if a.device == nil {
		a.device = camera.NewGocvDevice(a.logger)
	}
	a.camera = camera.NewSession(a.device, a.cameraManager.GetConfig(), camera.WithLogger(a.logger))
	a.cameraManager.OnConfigChange = a.camera.SetConfig
}

// Run serves until ctx is done. Voices load in the background; the narrator
// holds the newest prompt until they arrive.
func (a *App) Run(ctx context.Context) error {
	a.setContext(ctx)

	if a.ttsEngine != nil {
		go func() {
			if err := a.ttsEngine.LoadVoices(ctx); err != nil {
				a.logger.Warn("voices unavailable", "error", err)
			}
		}()
	}

	return a.server.Run(ctx)
}

func (a *App) setContext(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ctx = ctx
}

// startSession builds the controller for mode and starts its loop.
func (a *App) startSession(mode platform.Mode) (web.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ctx == nil {
		return nil, errors.New("visionmate: not running")
	}

	logger := a.logger.With("session_platform", mode.String())
	deps := controller.Deps{
		Platform:  mode,
		Narrator:  speech.NewNarrator(a.engine, mode, logger),
		Cues:      a.cues,
		Captioner: a.captioner,
		Prompts:   a.prompts,
		Logger:    logger,
		Meter:     a.telemetry.Meter("github.com/teslashibe/visionmate/pkg/controller"),
	}
	if mode == platform.Touch {
		deps.Bridge = capture.NewPickerBridge(a.picker, logger)
	} else {
		deps.Camera = a.camera
		deps.Surface = a.server.Surface()
		deps.Bridge = capture.NewFrameSampler(a.camera, logger)
	}

	ctrl := controller.New(deps)
	ctrl.OnChange(a.server.PublishState)

	ctx := a.ctx
	go func() {
		if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("session loop", "error", err)
		}
	}()
	a.session = ctrl
	return ctrl, nil
}

// Shutdown releases the session and every device.
func (a *App) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.mu.Lock()
	session := a.session
	a.mu.Unlock()

	if session != nil {
		if err := session.Shutdown(ctx); err != nil {
			a.logger.Warn("session shutdown", "error", err)
		}
	}
	if a.camera != nil {
		_ = a.camera.Close()
	}
	if a.ttsEngine != nil {
		_ = a.ttsEngine.Close()
	}
	a.cues.Wait()
	for _, sink := range []audio.Sink{a.sink, a.cueSink} {
		if pa, ok := sink.(*audio.PortAudioSink); ok {
			if err := pa.Close(); err != nil {
				a.logger.Warn("portaudio close", "error", err)
			}
		}
	}
	if a.telemetry != nil {
		if err := a.telemetry.Shutdown(ctx); err != nil {
			a.logger.Warn("telemetry shutdown", "error", err)
		}
	}
	a.logger.Info("shutdown complete")
}
