package camera

// Preset names for common configurations
const (
	PresetDefault  = "default"
	Preset480p     = "480p"
	Preset720p     = "720p"
	Preset1080p    = "1080p"
	PresetLowPower = "lowpower"
	PresetSelfie   = "selfie"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault:  DefaultConfig(),
		Preset480p:     SD480Config(),
		Preset720p:     HD720Config(),
		Preset1080p:    HD1080Config(),
		PresetLowPower: LowPowerConfig(),
		PresetSelfie:   SelfieConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		Preset480p,
		Preset720p,
		Preset1080p,
		PresetLowPower,
		PresetSelfie,
	}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	presets := Presets()
	if cfg, ok := presets[name]; ok {
		return &cfg
	}
	return nil
}

// SD480Config returns 640x480, the safest resolution for old webcams.
func SD480Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 640
	cfg.Height = 480
	return cfg
}

// HD720Config returns 720p HD configuration.
func HD720Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	return cfg
}

// HD1080Config returns 1080p Full HD configuration.
// Captions of small text benefit from the extra pixels.
func HD1080Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1920
	cfg.Height = 1080
	return cfg
}

// LowPowerConfig trades preview smoothness for CPU.
func LowPowerConfig() Config {
	cfg := SD480Config()
	cfg.Framerate = 15
	cfg.PreviewFPS = 4
	cfg.PreviewQuality = 50
	return cfg
}

// SelfieConfig asks for the user-facing camera.
func SelfieConfig() Config {
	cfg := DefaultConfig()
	cfg.FacingMode = FacingUser
	return cfg
}
