// VisionMate - tap to capture, hear a caption of what the camera sees.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/visionmate/internal/config"
	"github.com/teslashibe/visionmate/internal/log"
	"github.com/teslashibe/visionmate/pkg/visionmate"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Error("dotenv", "error", err)
		os.Exit(1)
	}

	cfg, err := parseFlags()
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}
	log.Init(cfg.LogLevel)

	app, err := visionmate.New(cfg, visionmate.WithLogger(log.L()))
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}

	if err := app.Init(); err != nil {
		log.Error("initialization failed", "error", err)
		os.Exit(1)
	}
	defer app.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx); err != nil {
		log.Error("runtime error", "error", err)
	}
}

// parseFlags reads the environment, then lets flags override it.
func parseFlags() (config.Config, error) {
	cfg := config.DefaultConfig()
	if err := cfg.LoadEnv(); err != nil {
		return cfg, err
	}

	flag.StringVar(&cfg.CaptionEndpoint, "endpoint", cfg.CaptionEndpoint, "Captioning service URL (CAPTION_ENDPOINT)")
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	flag.StringVar(&cfg.Platform, "platform", cfg.Platform, "Force platform: touch or pointer (default: detect from User-Agent)")
	flag.StringVar(&cfg.PromptsPath, "prompts", cfg.PromptsPath, "YAML file overriding spoken prompts")
	flag.StringVar(&cfg.StaticDir, "static", cfg.StaticDir, "Directory served at /")
	flag.IntVar(&cfg.CameraDevice, "camera", cfg.CameraDevice, "Camera device index")
	flag.StringVar(&cfg.CameraPreset, "camera-preset", cfg.CameraPreset, "Camera preset: default, 480p, 720p, 1080p, lowpower, selfie")
	flag.StringVar(&cfg.TTSVoice, "voice", cfg.TTSVoice, "OpenAI TTS voice")
	flag.StringVar(&cfg.TTSFallbackURL, "tts-fallback", cfg.TTSFallbackURL, "OpenAI-compatible TTS endpoint used when the primary fails")
	flag.StringVar(&cfg.Cues, "cues", cfg.Cues, "Sound cues: beep, tone or off")
	flag.StringVar(&cfg.Audio, "audio", cfg.Audio, "Audio output: portaudio, exec or none")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	flag.Parse()

	return cfg, nil
}
