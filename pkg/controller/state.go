package controller

import "github.com/teslashibe/visionmate/pkg/platform"

// State is a controller state name.
type State string

const (
	StateLocked        State = "locked"
	StateIdle          State = "idle"
	StateCameraReady   State = "camera_ready"
	StateCapturing     State = "capturing"
	StateProcessing    State = "processing"
	StateResult        State = "result"
	StateAwaitingRetap State = "awaiting_retap"
)

// Snapshot is a copy of the interaction state for the presentation layer.
type Snapshot struct {
	Seq           uint64        `json:"seq"`
	State         State         `json:"state"`
	Platform      platform.Mode `json:"platform"`
	Armed         bool          `json:"armed"`
	Caption       string        `json:"caption"`
	Processing    bool          `json:"processing"`
	CameraActive  bool          `json:"camera_active"`
	CameraOpening bool          `json:"camera_opening"`
	AwaitingRetap bool          `json:"awaiting_retap"`
	ImageURL      string        `json:"image_url,omitempty"`
	Narration     string        `json:"narration"`
	Closed        bool          `json:"closed"`
}

// sameAs compares everything but Seq.
func (s Snapshot) sameAs(o Snapshot) bool {
	s.Seq, o.Seq = 0, 0
	return s == o
}
