package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teslashibe/visionmate/pkg/payload"
)

// ErrNotArmed is returned by Deliver when no Pick is waiting.
var ErrNotArmed = errors.New("capture: picker not armed")

// ErrBusy is returned by Pick while another Pick is waiting.
var ErrBusy = errors.New("capture: picker already armed")

// File is what a picker hands back.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Picker is the native single-image chooser.
type Picker interface {
	// Pick blocks until the user chose a file or dismissed the chooser.
	// Dismissal returns ErrCancelled.
	Pick(ctx context.Context) (File, error)
}

// PickerBridge yields payloads from a Picker.
type PickerBridge struct {
	picker  Picker
	quality int
	logger  *slog.Logger
}

// NewPickerBridge creates a bridge over picker.
func NewPickerBridge(picker Picker, logger *slog.Logger) *PickerBridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &PickerBridge{
		picker:  picker,
		quality: DefaultQuality,
		logger:  logger.With("component", "capture.picker"),
	}
}

// Capture arms the picker and waits for a file.
func (b *PickerBridge) Capture(ctx context.Context) (*payload.Image, error) {
	f, err := b.picker.Pick(ctx)
	if err != nil {
		return nil, err
	}
	if len(f.Data) == 0 {
		return nil, ErrCancelled
	}

	data, size, err := normalizeJPEG(f.Data, b.quality)
	if err != nil {
		return nil, fmt.Errorf("picked file %q: %w", f.Name, err)
	}

	b.logger.Debug("file picked", "name", f.Name, "width", size.X, "height", size.Y, "bytes", len(data))
	return payload.NewJPEG(data, size.X, size.Y, SourcePicker), nil
}

type pickResult struct {
	file File
	err  error
}

// UploadPicker is a Picker fed by HTTP uploads. Pick arms it; Deliver or
// Cancel resolves the waiting Pick.
type UploadPicker struct {
	mu      sync.Mutex
	pending chan pickResult

	// OnArmed is called with true when a Pick starts waiting and false when it ends.
	OnArmed func(armed bool)
}

// NewUploadPicker creates an unarmed picker.
func NewUploadPicker() *UploadPicker {
	return &UploadPicker{}
}

// Pick arms the picker and blocks until Deliver, Cancel or ctx.
func (p *UploadPicker) Pick(ctx context.Context) (File, error) {
	p.mu.Lock()
	if p.pending != nil {
		p.mu.Unlock()
		return File{}, ErrBusy
	}
	ch := make(chan pickResult, 1)
	p.pending = ch
	p.mu.Unlock()

	p.notify(true)
	defer p.notify(false)

	select {
	case r := <-ch:
		return r.file, r.err
	case <-ctx.Done():
		p.mu.Lock()
		if p.pending == ch {
			p.pending = nil
		}
		p.mu.Unlock()
		return File{}, ctx.Err()
	}
}

// Deliver hands f to the waiting Pick.
func (p *UploadPicker) Deliver(f File) error {
	return p.resolve(pickResult{file: f})
}

// Cancel dismisses the waiting Pick with ErrCancelled.
func (p *UploadPicker) Cancel() error {
	return p.resolve(pickResult{err: ErrCancelled})
}

// Armed reports whether a Pick is waiting.
func (p *UploadPicker) Armed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending != nil
}

func (p *UploadPicker) resolve(r pickResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return ErrNotArmed
	}
	p.pending <- r
	p.pending = nil
	return nil
}

func (p *UploadPicker) notify(armed bool) {
	if p.OnArmed != nil {
		p.OnArmed(armed)
	}
}

var (
	_ Bridge = (*PickerBridge)(nil)
	_ Picker = (*UploadPicker)(nil)
)
