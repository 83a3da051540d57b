// Package speech narrates prompts through a speech engine.
//
// The Narrator enforces newest-wins interrupt semantics, the touch unlock gate
// and voice selection. Engines only synthesize and play.
package speech

import (
	"sort"
	"strings"
)

// PreferredLocale is the voice locale picked when available.
const PreferredLocale = "en-US"

// Voice is one voice an engine can speak with.
type Voice struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Locale  string `json:"locale"`
	Default bool   `json:"default"`
}

// Utterance is a single speak request.
type Utterance struct {
	Text  string
	Voice Voice
}

// Engine is the speech synthesis capability.
type Engine interface {
	// Voices returns the voices loaded so far. Empty until the engine is ready.
	Voices() []Voice

	// OnVoicesChanged registers f to run whenever the voice list changes.
	OnVoicesChanged(f func())

	// Speak starts speaking u without waiting for it to finish.
	Speak(u Utterance) error

	// Cancel stops the utterance in flight and drops anything pending.
	Cancel()
}

// SelectVoice picks an en-US voice, preferring the engine default among them,
// then the engine default in any locale, then the first voice by ID. It
// reports false when voices is empty.
func SelectVoice(voices []Voice) (Voice, bool) {
	if len(voices) == 0 {
		return Voice{}, false
	}
	var us []Voice
	for _, v := range voices {
		if strings.EqualFold(v.Locale, PreferredLocale) {
			us = append(us, v)
		}
	}
	for _, v := range us {
		if v.Default {
			return v, true
		}
	}
	if len(us) > 0 {
		return us[0], true
	}
	for _, v := range voices {
		if v.Default {
			return v, true
		}
	}

	sorted := make([]Voice, len(voices))
	copy(sorted, voices)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return sorted[0], true
}
