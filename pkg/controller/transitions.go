package controller

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/teslashibe/visionmate/pkg/camera"
	"github.com/teslashibe/visionmate/pkg/capture"
	"github.com/teslashibe/visionmate/pkg/cue"
	"github.com/teslashibe/visionmate/pkg/platform"
	"github.com/teslashibe/visionmate/pkg/prompts"
)

func (c *Controller) touch() bool { return c.deps.Platform == platform.Touch }

// begin runs the session start sequence.
func (c *Controller) begin() {
	c.narrate(prompts.Welcome)
	if c.touch() {
		c.setState(StateLocked)
		return
	}
	c.armed = true
	c.setState(StateIdle)
	c.openCamera()
}

func (c *Controller) handle(ev event) {
	switch e := ev.(type) {
	case tapEvent:
		c.onTap()
	case openCameraEvent:
		c.onOpenCamera()
	case closeCameraEvent:
		c.onCloseCamera()
	case cameraReadyEvent:
		c.onCameraReady(e)
	case capturedEvent:
		c.onCaptured(e)
	case captionedEvent:
		c.onCaptioned(e)
	case timerEvent:
		c.onTimer(e)
	case flushEvent:
		close(e.done)
	case shutdownEvent:
		c.teardown()
	default:
		c.logger.Warn("unknown event", "type", ev)
	}
}

func (c *Controller) onTap() {
	switch c.state {
	case StateLocked:
		c.deps.Narrator.Unlock()
		c.setState(StateIdle)
		c.schedule(c.deps.Timing.InstructionDelay, timerInstructions)

	case StateIdle:
		switch {
		case c.touch() && c.armed:
			c.startCapture()
		case c.touch():
			c.logger.Debug("tap ignored until instructions were given")
		case c.cameraOpening:
			c.logger.Debug("tap ignored while camera opens")
		default:
			c.openCamera()
		}

	case StateCameraReady:
		c.startCapture()

	case StateCapturing, StateProcessing:
		c.logger.Debug("tap ignored", "state", c.state)

	case StateResult:
		switch {
		case !c.resultSpoken:
			c.logger.Debug("tap ignored until the caption was read")
		case c.touch():
			c.startCapture()
		default:
			c.openCamera()
		}

	case StateAwaitingRetap:
		c.startCapture()
	}
}

func (c *Controller) onOpenCamera() {
	if c.touch() || c.cameraActive || c.cameraOpening {
		return
	}
	switch c.state {
	case StateIdle, StateResult:
		c.openCamera()
	}
}

func (c *Controller) onCloseCamera() {
	if c.touch() {
		return
	}
	wasOpen := c.cameraActive || c.cameraOpening
	c.closeCamera()
	if !wasOpen {
		return
	}
	if c.state == StateCameraReady {
		c.setState(StateIdle)
	}
	c.narrate(prompts.CameraClosed)
}

// openCamera starts opening and binding a session. At most one open runs and
// at most one handle exists.
func (c *Controller) openCamera() {
	if c.deps.Camera == nil || c.cameraActive {
		return
	}
	if c.cameraOpening {
		c.closeAfterOpen = false
		return
	}
	c.cameraOpening = true
	op := c.op()
	c.cameraOp = op

	cam, surface, ctx := c.deps.Camera, c.deps.Surface, c.work
	go func() {
		h, err := cam.Open(ctx)
		if err == nil {
			err = cam.Bind(ctx, h, surface)
		}
		if ctx.Err() != nil {
			// Torn down while opening.
			if h != nil {
				_ = cam.Close()
			}
			return
		}
		_ = c.post(cameraReadyEvent{op: op, handle: h, err: err})
	}()
}

func (c *Controller) onCameraReady(e cameraReadyEvent) {
	if e.op != c.cameraOp || !c.cameraOpening {
		return
	}
	c.cameraOpening = false

	if c.closeAfterOpen {
		c.closeAfterOpen = false
		if e.handle != nil {
			_ = c.deps.Camera.Close()
		}
		return
	}

	if e.err != nil {
		c.logger.Warn("camera unavailable", "error", e.err)
		if e.handle != nil {
			_ = c.deps.Camera.Close()
		}
		c.narrate(prompts.CameraUnavailable)
		return
	}

	c.cameraActive = true
	if c.state == StateIdle || c.state == StateResult {
		c.setState(StateCameraReady)
		c.schedule(c.deps.Timing.InstructionDelay, timerInstructions)
	}
}

// closeCamera stops the open session. An open in flight is closed when it lands.
func (c *Controller) closeCamera() {
	if c.deps.Camera == nil {
		return
	}
	if c.cameraOpening {
		c.closeAfterOpen = true
	}
	if c.cameraActive {
		if err := c.deps.Camera.Close(); err != nil {
			c.logger.Warn("camera close failed", "error", err)
		}
		c.cameraActive = false
	}
}

func (c *Controller) startCapture() {
	if c.processing {
		return
	}
	c.cancelTimers()
	c.resultSpoken = false
	c.setState(StateCapturing)

	op := c.op()
	c.captureOp = op
	bridge, ctx := c.deps.Bridge, c.work
	go func() {
		img, err := bridge.Capture(ctx)
		_ = c.post(capturedEvent{op: op, img: img, err: err})
	}()
}

func (c *Controller) onCaptured(e capturedEvent) {
	if e.op != c.captureOp || c.state != StateCapturing {
		return
	}
	c.captureOp = 0

	if e.err != nil {
		switch {
		case errors.Is(e.err, capture.ErrNoActiveSession):
			c.logger.Info("capture without camera session", "error", e.err)
			c.closeCamera()
			c.narrate(prompts.CameraClosed)
		case errors.Is(e.err, context.Canceled):
			return
		default:
			c.logger.Info("capture cancelled", "error", e.err)
			c.narrate(prompts.CaptureCancelled)
		}
		c.rearm()
		return
	}

	c.deps.Slot.Set(e.img)
	c.caption = ""
	c.processing = true
	c.setState(StateProcessing)
	c.narrate(prompts.Generating)
	c.deps.Cues.Play(cue.Ack)

	op := c.op()
	c.captionOp = op
	captioner, img, ctx := c.deps.Captioner, e.img, c.work
	go func() {
		text, err := captioner.Caption(ctx, img)
		_ = c.post(captionedEvent{op: op, text: text, err: err})
	}()
}

func (c *Controller) onCaptioned(e captionedEvent) {
	if e.op != c.captionOp {
		return
	}
	c.captionOp = 0
	c.processing = false

	if e.err != nil {
		c.logger.Warn("caption failed", "error", e.err)
		c.narrate(prompts.CaptionFailed)
		c.rearm()
		return
	}

	c.caption = e.text
	c.setState(StateResult)
	if !c.touch() {
		// The preview stays on the captured frame; the next tap opens a new session.
		c.closeCamera()
	}
	c.schedule(c.deps.Timing.ResultDelay, timerResult)
}

func (c *Controller) onTimer(e timerEvent) {
	if _, ok := c.timers[e.id]; !ok {
		return
	}
	delete(c.timers, e.id)

	switch e.kind {
	case timerInstructions:
		if c.touch() {
			if c.state == StateIdle && !c.armed {
				c.armed = true
				c.narrate(prompts.InstructionsTouch)
			}
			return
		}
		if c.state == StateCameraReady {
			c.narrate(prompts.InstructionsPointer)
		}

	case timerResult:
		if c.state != StateResult {
			return
		}
		c.narrateText(c.deps.Prompts.Caption(c.caption))
		c.deps.Cues.Play(cue.Done)
		c.resultSpoken = true
		if c.touch() {
			c.schedule(c.deps.Timing.RetapDelay, timerRetap)
		}

	case timerRetap:
		if c.state == StateResult {
			c.narrate(prompts.Retap)
			c.setState(StateAwaitingRetap)
		}
	}
}

// rearm returns to the capture-armed state of the platform.
func (c *Controller) rearm() {
	if c.touch() {
		c.setState(StateIdle)
		return
	}
	if c.cameraActive {
		c.setState(StateCameraReady)
		return
	}
	c.setState(StateIdle)
}

func (c *Controller) teardown() {
	if c.closed {
		return
	}
	c.cancelTimers()
	c.cancelWork()
	c.closeCamera()
	if c.deps.Camera != nil {
		// An open racing the cancel either sees it or is closed here.
		_ = c.deps.Camera.Close()
	}
	c.cameraOpening = false
	c.deps.Slot.Clear()
	c.deps.Narrator.Stop()
	c.processing = false
	c.closed = true
	c.logger.Info("session closed")
}

func (c *Controller) schedule(d time.Duration, kind timerKind) {
	c.nextTimer++
	id := c.nextTimer
	c.timers[id] = c.deps.Scheduler.AfterFunc(d, func() {
		_ = c.post(timerEvent{id: id, kind: kind})
	})
}

func (c *Controller) cancelTimers() {
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
}

func (c *Controller) narrate(key string) {
	c.narrateText(c.deps.Prompts.Get(key))
}

func (c *Controller) narrateText(text string) {
	if text == "" {
		return
	}
	c.narration = text
	c.deps.Narrator.Speak(text)
}

func (c *Controller) setState(s State) {
	if c.state == s {
		return
	}
	c.logger.Debug("state change", "from", c.state, "to", s)
	c.state = s
	if c.transitions != nil {
		c.transitions.Add(context.Background(), 1, metric.WithAttributes(attribute.String("to", string(s))))
	}
}

func (c *Controller) op() uint64 {
	c.nextOp++
	return c.nextOp
}

var _ Camera = (*camera.Session)(nil)
