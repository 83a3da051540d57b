// Package platform decides which capture sub-flow a session uses.
package platform

import (
	"fmt"
	"regexp"
	"strings"
)

// Mode selects between the native picker flow and the live video flow.
type Mode int

const (
	// Pointer devices use a live video feed and capture by sampling a frame.
	Pointer Mode = iota
	// Touch devices use the platform's native camera picker.
	Touch
)

var touchAgents = regexp.MustCompile(`(?i)iPhone|iPad|iPod|Android`)

// Detect classifies a user agent string. The result is fixed for the session.
func Detect(userAgent string) Mode {
	if touchAgents.MatchString(userAgent) {
		return Touch
	}
	return Pointer
}

// Parse reads a mode name ("touch" or "pointer").
func Parse(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "touch", "mobile":
		return Touch, nil
	case "pointer", "desktop":
		return Pointer, nil
	}
	return Pointer, fmt.Errorf("platform: unknown mode %q", s)
}

// String implements fmt.Stringer.
func (m Mode) String() string {
	if m == Touch {
		return "touch"
	}
	return "pointer"
}

// MarshalText lets the mode appear as a string in JSON state snapshots.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText accepts the names Parse accepts.
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
