package controller

import (
	"github.com/teslashibe/visionmate/pkg/camera"
	"github.com/teslashibe/visionmate/pkg/payload"
)

type event interface{}

type tapEvent struct{}

type openCameraEvent struct{}

type closeCameraEvent struct{}

type shutdownEvent struct{}

// flushEvent is processed in order; done closes once everything posted before it ran.
type flushEvent struct {
	done chan struct{}
}

type cameraReadyEvent struct {
	op     uint64
	handle *camera.Handle
	err    error
}

type capturedEvent struct {
	op  uint64
	img *payload.Image
	err error
}

type captionedEvent struct {
	op   uint64
	text string
	err  error
}

type timerKind int

const (
	timerInstructions timerKind = iota
	timerResult
	timerRetap
)

func (k timerKind) String() string {
	switch k {
	case timerInstructions:
		return "instructions"
	case timerResult:
		return "result"
	case timerRetap:
		return "retap"
	default:
		return "unknown"
	}
}

type timerEvent struct {
	id   uint64
	kind timerKind
}
