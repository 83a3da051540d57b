// Package payload holds captured still images and owns the single "current"
// image that the presentation layer displays.
package payload

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// MIMEJPEG is the only encoding the capture bridges produce.
const MIMEJPEG = "image/jpeg"

// URLPrefix is where the presentation server exposes display images.
const URLPrefix = "/api/images/"

// Image is a single captured still, ready for captioning.
type Image struct {
	ID        string
	Data      []byte
	MIME      string
	Width     int
	Height    int
	Source    string // "frame" or "picker"
	CreatedAt time.Time

	released atomic.Bool
}

// NewJPEG wraps encoded JPEG bytes in a fresh Image with a unique ID.
func NewJPEG(data []byte, width, height int, source string) *Image {
	return &Image{
		ID:        uuid.New().String(),
		Data:      data,
		MIME:      MIMEJPEG,
		Width:     width,
		Height:    height,
		Source:    source,
		CreatedAt: time.Now(),
	}
}

// URL returns the display URL for this image.
func (i *Image) URL() string {
	return URLPrefix + i.ID
}

// Released reports whether the display URL has been revoked.
func (i *Image) Released() bool {
	return i.released.Load()
}

// release revokes the display handle. Returns true only on the first call.
func (i *Image) release() bool {
	return i.released.CompareAndSwap(false, true)
}

// Slot owns the current display image. Setting a new image releases the
// previous one; Clear releases whatever is current.
type Slot struct {
	mu      sync.RWMutex
	current *Image

	// OnRelease is called once per image when its display handle is revoked.
	OnRelease func(img *Image)
}

// NewSlot creates an empty slot.
func NewSlot() *Slot {
	return &Slot{}
}

// Set makes img current and releases the previous image.
func (s *Slot) Set(img *Image) {
	s.mu.Lock()
	prev := s.current
	s.current = img
	s.mu.Unlock()

	if prev != nil && prev != img {
		s.releaseImage(prev)
	}
}

// Current returns the current image or nil.
func (s *Slot) Current() *Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Lookup returns the current image if its ID matches. Released images are
// never served.
func (s *Slot) Lookup(id string) (*Image, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil || s.current.ID != id || s.current.Released() {
		return nil, false
	}
	return s.current, true
}

// Clear releases the current image, used on session teardown.
func (s *Slot) Clear() {
	s.mu.Lock()
	prev := s.current
	s.current = nil
	s.mu.Unlock()

	if prev != nil {
		s.releaseImage(prev)
	}
}

func (s *Slot) releaseImage(img *Image) {
	if !img.release() {
		return
	}
	if s.OnRelease != nil {
		s.OnRelease(img)
	}
}
