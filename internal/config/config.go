// Package config loads visionmate settings from the environment.
// Flag parsing is done in cmd/visionmate; this package is data only.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/teslashibe/visionmate/pkg/camera"
	"github.com/teslashibe/visionmate/pkg/cue"
	"github.com/teslashibe/visionmate/pkg/platform"
)

// Audio backends.
const (
	AudioPortAudio = "portaudio"
	AudioExec      = "exec"
	AudioNone      = "none"
)

// Defaults.
const (
	DefaultAddr     = ":8080"
	DefaultTTSVoice = "alloy"
	DefaultLogLevel = "info"
)

// Config holds all configuration for a visionmate server.
type Config struct {
	// CaptionEndpoint is the captioning service URL. Required.
	CaptionEndpoint string

	// Platform forces "touch" or "pointer". Empty means detect from the User-Agent.
	Platform string

	// Addr is the HTTP listen address.
	Addr string

	// PromptsPath is an optional YAML file merged over the built-in prompts.
	PromptsPath string

	// StaticDir is served at / when set.
	StaticDir string

	// Camera.
	CameraDevice int
	CameraPreset string

	// Speech.
	OpenAIKey string
	TTSVoice  string

	// TTSFallbackURL is an OpenAI-compatible speech endpoint tried when the
	// primary fails, e.g. a local server on the kiosk.
	TTSFallbackURL string

	Cues  string // beep, tone or off
	Audio string // portaudio, exec or none

	LogLevel    string
	Environment string
}

// DefaultConfig returns defaults for everything but the caption endpoint.
func DefaultConfig() Config {
	return Config{
		Addr:         DefaultAddr,
		CameraPreset: camera.PresetDefault,
		TTSVoice:     DefaultTTSVoice,
		Cues:         string(cue.ModeTone),
		Audio:        AudioPortAudio,
		LogLevel:     DefaultLogLevel,
		Environment:  "development",
	}
}

// LoadDotEnv loads .env files into the process environment. Variables that
// are already set win. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// LoadEnv applies environment variables over c.
func (c *Config) LoadEnv() error {
	setString(&c.CaptionEndpoint, "CAPTION_ENDPOINT")
	setString(&c.Platform, "VISIONMATE_PLATFORM")
	setString(&c.PromptsPath, "VISIONMATE_PROMPTS")
	setString(&c.StaticDir, "VISIONMATE_STATIC_DIR")
	setString(&c.CameraPreset, "VISIONMATE_CAMERA_PRESET")
	setString(&c.OpenAIKey, "OPENAI_API_KEY")
	setString(&c.TTSVoice, "VISIONMATE_TTS_VOICE")
	setString(&c.TTSFallbackURL, "VISIONMATE_TTS_FALLBACK_URL")
	setString(&c.Cues, "VISIONMATE_CUES")
	setString(&c.Audio, "VISIONMATE_AUDIO")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.Environment, "GO_ENV")

	if port := os.Getenv("VISIONMATE_PORT"); port != "" {
		c.Addr = ":" + strings.TrimPrefix(port, ":")
	}
	if v := os.Getenv("VISIONMATE_CAMERA_DEVICE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigError{Field: "CameraDevice", Message: fmt.Sprintf("VISIONMATE_CAMERA_DEVICE must be an integer, got %q", v)}
		}
		c.CameraDevice = n
	}
	return nil
}

// Validate checks that required configuration is present and well formed.
func (c *Config) Validate() error {
	if c.CaptionEndpoint == "" {
		return &ConfigError{Field: "CaptionEndpoint", Message: "CAPTION_ENDPOINT environment variable is required"}
	}
	u, err := url.Parse(c.CaptionEndpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ConfigError{Field: "CaptionEndpoint", Message: fmt.Sprintf("CAPTION_ENDPOINT must be an http(s) URL, got %q", c.CaptionEndpoint)}
	}
	if c.Platform != "" {
		if _, err := platform.Parse(c.Platform); err != nil {
			return &ConfigError{Field: "Platform", Message: err.Error()}
		}
	}
	if _, err := cue.ParseMode(c.Cues); err != nil {
		return &ConfigError{Field: "Cues", Message: err.Error()}
	}
	switch c.Audio {
	case AudioPortAudio, AudioExec, AudioNone:
	default:
		return &ConfigError{Field: "Audio", Message: fmt.Sprintf("unknown audio backend %q (portaudio, exec, none)", c.Audio)}
	}
	if camera.GetPreset(c.CameraPreset) == nil {
		return &ConfigError{Field: "CameraPreset", Message: fmt.Sprintf("unknown camera preset %q", c.CameraPreset)}
	}
	if c.CameraDevice < 0 {
		return &ConfigError{Field: "CameraDevice", Message: "camera device index must not be negative"}
	}
	return nil
}

// ForcedPlatform returns the configured platform, or nil to detect it.
func (c *Config) ForcedPlatform() *platform.Mode {
	if c.Platform == "" {
		return nil
	}
	m, err := platform.Parse(c.Platform)
	if err != nil {
		return nil
	}
	return &m
}

// CameraConfig returns the camera settings for the configured preset and device.
func (c *Config) CameraConfig() camera.Config {
	cfg := camera.DefaultConfig()
	if p := camera.GetPreset(c.CameraPreset); p != nil {
		cfg = *p
	}
	cfg.DeviceIndex = c.CameraDevice
	return cfg
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
