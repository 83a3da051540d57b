package payload

import (
	"strings"
	"testing"
)

func TestNewJPEG(t *testing.T) {
	img := NewJPEG([]byte{0xff, 0xd8}, 640, 480, "frame")
	if img.MIME != MIMEJPEG {
		t.Errorf("MIME: got %s, want %s", img.MIME, MIMEJPEG)
	}
	if img.ID == "" {
		t.Fatal("expected an ID")
	}
	if !strings.HasPrefix(img.URL(), URLPrefix) || !strings.HasSuffix(img.URL(), img.ID) {
		t.Errorf("unexpected URL %s", img.URL())
	}
	if NewJPEG(nil, 0, 0, "frame").ID == img.ID {
		t.Error("IDs must be unique")
	}
}

func TestSlot_ReleasesPreviousExactlyOnce(t *testing.T) {
	slot := NewSlot()
	releases := map[string]int{}
	slot.OnRelease = func(img *Image) { releases[img.ID]++ }

	first := NewJPEG([]byte("a"), 1, 1, "frame")
	second := NewJPEG([]byte("b"), 1, 1, "frame")
	third := NewJPEG([]byte("c"), 1, 1, "picker")

	slot.Set(first)
	if first.Released() {
		t.Fatal("current image must not be released")
	}

	slot.Set(second)
	slot.Set(second) // same image again is a no-op
	slot.Set(third)
	slot.Clear()
	slot.Clear()

	for _, img := range []*Image{first, second, third} {
		if !img.Released() {
			t.Errorf("image %s should be released", img.ID)
		}
		if releases[img.ID] != 1 {
			t.Errorf("image %s released %d times, want 1", img.ID, releases[img.ID])
		}
	}
	if slot.Current() != nil {
		t.Error("slot should be empty after Clear")
	}
}

func TestSlot_Lookup(t *testing.T) {
	slot := NewSlot()
	img := NewJPEG([]byte("a"), 1, 1, "frame")
	slot.Set(img)

	if got, ok := slot.Lookup(img.ID); !ok || got != img {
		t.Fatal("expected lookup of current image to succeed")
	}
	if _, ok := slot.Lookup("other"); ok {
		t.Error("lookup of unknown id should fail")
	}

	slot.Set(NewJPEG([]byte("b"), 1, 1, "frame"))
	if _, ok := slot.Lookup(img.ID); ok {
		t.Error("superseded image must not be served")
	}
}
