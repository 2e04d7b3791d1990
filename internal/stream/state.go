package stream

import "time"

// State is the lifecycle state of a stream session.
type State string

// Session states.
const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateStreaming  State = "streaming"
	StateError      State = "error"
	StateClosed     State = "closed"
)

// Active reports whether a session in this state holds, or is opening, a connection.
func (s State) Active() bool {
	return s == StateConnecting || s == StateStreaming
}

// FrameInfo describes the current frame without exposing its bytes.
type FrameInfo struct {
	Seq         uint64    `json:"seq" doc:"Frame sequence number within the session"`
	Size        int       `json:"size" doc:"JPEG size in bytes"`
	Width       int       `json:"width,omitempty" doc:"Image width from the JPEG header"`
	Height      int       `json:"height,omitempty" doc:"Image height from the JPEG header"`
	Displayable bool      `json:"displayable" doc:"False when the JPEG header could not be decoded"`
	At          time.Time `json:"at" doc:"Arrival time of the chunk that completed the frame"`
}

// Snapshot is the observable state of a stream session.
type Snapshot struct {
	CameraID    string     `json:"camera_id" example:"1" doc:"Camera identifier"`
	SessionID   string     `json:"session_id,omitempty" doc:"Unique id of the current session"`
	Key         int64      `json:"key" doc:"Session key of the current connection"`
	State       State      `json:"state" enum:"idle,connecting,streaming,error,closed" doc:"Session state"`
	Connected   bool       `json:"connected" doc:"Whether stream bytes are being received"`
	FPS         int        `json:"fps" doc:"Frames received during the last second"`
	LastError   string     `json:"last_error,omitempty" doc:"Most recent connection error"`
	Frame       *FrameInfo `json:"frame,omitempty" doc:"Current frame, if any"`
	FramesTotal uint64     `json:"frames_total" doc:"Frames received by this session"`
	StartedAt   time.Time  `json:"started_at,omitzero" doc:"When the session began connecting"`
	Reconnects  uint64     `json:"reconnects" doc:"Sessions started by this viewer after the first"`
}
