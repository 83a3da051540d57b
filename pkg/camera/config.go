// Package camera owns the live video device on pointer platforms.
//
// A Session holds at most one open Handle. Streams come from a Device and are
// attached to a Surface that renders the preview.
package camera

// Facing modes a device may be asked for.
const (
	FacingEnvironment = "environment"
	FacingUser        = "user"
)

// Config holds camera configuration parameters.
// These can be modified via the camera API at runtime and apply on next open.
type Config struct {
	// === Device ===
	DeviceIndex int    `json:"device_index"` // OS video device index
	FacingMode  string `json:"facing_mode"`  // "environment" or "user"

	// === Resolution ===
	Width     int `json:"width"`     // Requested frame width in pixels
	Height    int `json:"height"`    // Requested frame height in pixels
	Framerate int `json:"framerate"` // Target capture FPS
	Quality   int `json:"quality"`   // JPEG quality 1-100

	// === Preview ===
	// PreviewFPS is how often the surface pushes frames to viewers.
	PreviewFPS int `json:"preview_fps"`

	// PreviewQuality is the JPEG quality of preview frames.
	PreviewQuality int `json:"preview_quality"`
}

// Limits for Validate.
const (
	MaxWidth     = 4096
	MaxHeight    = 2160
	MaxFramerate = 120
	MaxPreview   = 30
)

// DefaultConfig returns the recommended configuration: 720p, rear camera.
func DefaultConfig() Config {
	return Config{
		DeviceIndex:    0,
		FacingMode:     FacingEnvironment,
		Width:          1280,
		Height:         720,
		Framerate:      30,
		Quality:        90,
		PreviewFPS:     10,
		PreviewQuality: 70,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.DeviceIndex < 0 {
		errors = append(errors, "device_index must not be negative")
	}
	if c.FacingMode != FacingEnvironment && c.FacingMode != FacingUser {
		errors = append(errors, "facing_mode must be environment or user")
	}
	if c.Width < 160 || c.Width > MaxWidth {
		errors = append(errors, "width must be between 160 and 4096")
	}
	if c.Height < 120 || c.Height > MaxHeight {
		errors = append(errors, "height must be between 120 and 2160")
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, "framerate must be between 1 and 120")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}
	if c.PreviewFPS < 1 || c.PreviewFPS > MaxPreview {
		errors = append(errors, "preview_fps must be between 1 and 30")
	}
	if c.PreviewQuality < 1 || c.PreviewQuality > 100 {
		errors = append(errors, "preview_quality must be between 1 and 100")
	}

	return errors
}

// Constraints returns the stream request for this config: video only.
func (c Config) Constraints() Constraints {
	return Constraints{
		DeviceIndex: c.DeviceIndex,
		FacingMode:  c.FacingMode,
		Width:       c.Width,
		Height:      c.Height,
		Framerate:   c.Framerate,
		Audio:       false,
	}
}
