// Package prompts is the table of spoken messages. Wording lives here rather
// than in the state machine so it can be changed without touching control flow.
package prompts

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Keys in the prompt table.
const (
	Welcome             = "welcome"
	InstructionsTouch   = "instructions_touch"
	InstructionsPointer = "instructions_pointer"
	CameraUnavailable   = "camera_unavailable"
	CameraClosed        = "camera_closed"
	Generating          = "generating"
	CaptionPrefix       = "caption_prefix"
	CaptionFailed       = "caption_failed"
	CaptureCancelled    = "capture_cancelled"
	Retap               = "retap"
)

//go:embed prompts.yaml
var defaultYAML []byte

// Table maps prompt keys to spoken text.
type Table map[string]string

// Default returns the built-in English prompts.
func Default() Table {
	t, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("prompts: embedded table is invalid: %v", err))
	}
	return t
}

// Parse decodes a YAML prompt table.
func Parse(data []byte) (Table, error) {
	t := Table{}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("prompts: parse: %w", err)
	}
	return t, nil
}

// Load returns the default table with entries from path merged over it.
// An empty path returns the defaults.
func Load(path string) (Table, error) {
	t := Default()
	if path == "" {
		return t, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("prompts: read %s: %w", path, err)
	}
	override, err := Parse(data)
	if err != nil {
		return nil, err
	}
	t.Merge(override)
	return t, nil
}

// Merge copies every entry of other into t.
func (t Table) Merge(other Table) {
	for k, v := range other {
		t[k] = v
	}
}

// Get returns the prompt for key, or "" when the key is unknown.
func (t Table) Get(key string) string {
	return t[key]
}

// Caption formats a caption for narration.
func (t Table) Caption(text string) string {
	return t[CaptionPrefix] + text
}
