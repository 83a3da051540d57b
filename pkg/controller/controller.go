// Package controller sequences unlock, camera, capture, caption and narration.
//
// All state is owned by the goroutine running Run. Taps, timer firings and
// async completions arrive as events; blocking work runs in goroutines that
// post their result back. Readers get copies through Snapshot and OnChange.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/teslashibe/visionmate/pkg/camera"
	"github.com/teslashibe/visionmate/pkg/capture"
	"github.com/teslashibe/visionmate/pkg/clock"
	"github.com/teslashibe/visionmate/pkg/cue"
	"github.com/teslashibe/visionmate/pkg/payload"
	"github.com/teslashibe/visionmate/pkg/platform"
	"github.com/teslashibe/visionmate/pkg/prompts"
)

// ErrClosed is returned by actions after the loop stopped.
var ErrClosed = errors.New("controller: closed")

// Narrator speaks prompts. *speech.Narrator implements it.
type Narrator interface {
	Speak(message string)
	Unlock() bool
	Stop()
}

// Cues plays sound cues. *cue.Cues implements it.
type Cues interface {
	Play(id cue.ID)
}

// Camera is the live camera session. *camera.Session implements it.
type Camera interface {
	Open(ctx context.Context) (*camera.Handle, error)
	Bind(ctx context.Context, h *camera.Handle, p camera.SurfaceProvider) error
	Close() error
}

// Captioner turns an image into text. *caption.Client implements it.
type Captioner interface {
	Caption(ctx context.Context, img *payload.Image) (string, error)
}

// Timing holds the narration delays.
type Timing struct {
	// InstructionDelay separates the unlock probe or camera start from the instructions.
	InstructionDelay time.Duration

	// ResultDelay separates the end of processing from the caption narration.
	ResultDelay time.Duration

	// RetapDelay separates the caption narration from the retap prompt on touch.
	RetapDelay time.Duration
}

// DefaultTiming returns the standard delays.
func DefaultTiming() Timing {
	return Timing{
		InstructionDelay: 800 * time.Millisecond,
		ResultDelay:      300 * time.Millisecond,
		RetapDelay:       4 * time.Second,
	}
}

// Deps are the collaborators of a Controller.
type Deps struct {
	Platform  platform.Mode
	Narrator  Narrator
	Cues      Cues
	Camera    Camera                 // pointer only
	Surface   camera.SurfaceProvider // pointer only
	Bridge    capture.Bridge
	Captioner Captioner
	Prompts   prompts.Table
	Scheduler clock.Scheduler
	Slot      *payload.Slot
	Timing    Timing
	Logger    *slog.Logger
	Meter     metric.Meter
}

// Controller is the interaction state machine.
type Controller struct {
	deps   Deps
	logger *slog.Logger

	events chan event
	done   chan struct{}
	start  sync.Once

	// work is cancelled on teardown to abandon async operations.
	work       context.Context
	cancelWork context.CancelFunc

	transitions metric.Int64Counter

	mu        sync.RWMutex
	snap      Snapshot
	listeners []func(Snapshot)

	// Loop-owned state.
	state          State
	armed          bool
	caption        string
	processing     bool
	cameraActive   bool
	cameraOpening  bool
	closeAfterOpen bool
	resultSpoken   bool
	narration      string
	closed         bool

	nextOp    uint64
	cameraOp  uint64
	captureOp uint64
	captionOp uint64

	nextTimer uint64
	timers    map[uint64]clock.Timer
}

// New creates a controller. Call Run to start it.
func New(deps Deps) *Controller {
	if deps.Scheduler == nil {
		deps.Scheduler = clock.Real{}
	}
	if deps.Slot == nil {
		deps.Slot = payload.NewSlot()
	}
	if deps.Prompts == nil {
		deps.Prompts = prompts.Default()
	}
	if deps.Timing == (Timing{}) {
		deps.Timing = DefaultTiming()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Cues == nil {
		deps.Cues = cue.New(nil, deps.Logger)
	}
	if deps.Meter == nil {
		deps.Meter = otel.Meter("github.com/teslashibe/visionmate/pkg/controller")
	}

	work, cancel := context.WithCancel(context.Background())
	c := &Controller{
		deps:       deps,
		logger:     deps.Logger.With("component", "controller", "platform", deps.Platform.String()),
		events:     make(chan event, 64),
		done:       make(chan struct{}),
		work:       work,
		cancelWork: cancel,
		timers:     make(map[uint64]clock.Timer),
		state:      StateIdle,
	}
	if deps.Platform == platform.Touch {
		c.state = StateLocked
	}

	var err error
	c.transitions, err = deps.Meter.Int64Counter("visionmate.controller.transitions",
		metric.WithDescription("State transitions by target state"))
	if err != nil {
		c.logger.Warn("transition counter unavailable", "error", err)
	}

	c.snap = c.buildSnapshot(0)
	return c
}

// Run processes events until ctx is done or Shutdown is called.
func (c *Controller) Run(ctx context.Context) error {
	started := false
	c.start.Do(func() { started = true })
	if !started {
		return errors.New("controller: already running")
	}
	defer close(c.done)

	c.begin()
	c.publish()

	for {
		select {
		case <-ctx.Done():
			c.teardown()
			c.publish()
			return ctx.Err()
		case ev := <-c.events:
			c.handle(ev)
			c.publish()
			if c.closed {
				return nil
			}
		}
	}
}

// Tap delivers a user tap.
func (c *Controller) Tap() error { return c.post(tapEvent{}) }

// OpenCamera requests a camera session (pointer only).
func (c *Controller) OpenCamera() error { return c.post(openCameraEvent{}) }

// CloseCamera closes the camera session (pointer only).
func (c *Controller) CloseCamera() error { return c.post(closeCameraEvent{}) }

// Shutdown tears the session down and waits for the loop to exit.
func (c *Controller) Shutdown(ctx context.Context) error {
	if err := c.post(shutdownEvent{}); err != nil {
		return nil
	}
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the loop has exited.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// OnChange registers f to receive every new snapshot. f runs on the loop
// goroutine and must not block.
func (c *Controller) OnChange(f func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, f)
}

// Slot exposes the current image owner for the presentation layer.
func (c *Controller) Slot() *payload.Slot {
	return c.deps.Slot
}

// Platform returns the session's platform mode.
func (c *Controller) Platform() platform.Mode {
	return c.deps.Platform
}

func (c *Controller) post(ev event) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.events <- ev:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// flush waits until every event posted before it was handled.
func (c *Controller) flush() error {
	done := make(chan struct{})
	if err := c.post(flushEvent{done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

func (c *Controller) publish() {
	next := c.buildSnapshot(0)

	c.mu.Lock()
	if next.sameAs(c.snap) {
		c.mu.Unlock()
		return
	}
	next.Seq = c.snap.Seq + 1
	c.snap = next
	listeners := append([]func(Snapshot){}, c.listeners...)
	c.mu.Unlock()

	for _, f := range listeners {
		f(next)
	}
}

func (c *Controller) buildSnapshot(seq uint64) Snapshot {
	s := Snapshot{
		Seq:           seq,
		State:         c.state,
		Platform:      c.deps.Platform,
		Armed:         c.armed,
		Caption:       c.caption,
		Processing:    c.processing,
		CameraActive:  c.cameraActive,
		CameraOpening: c.cameraOpening,
		AwaitingRetap: c.state == StateAwaitingRetap,
		Narration:     c.narration,
		Closed:        c.closed,
	}
	if img := c.deps.Slot.Current(); img != nil && !img.Released() {
		s.ImageURL = img.URL()
	}
	return s
}
