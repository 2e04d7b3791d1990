package events

// Event type constants for kelindar/event.
const (
	TypeCameraRestarted uint32 = iota + 1
	TypeStreamStateChanged
	TypeStreamFPS
	TypeStreamFrame
	TypeCameraAdded
	TypeCameraRemoved
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// AllCameras is the camera id that addresses every camera at once.
const AllCameras = "0"

// CameraRestartedEvent is the in-process restart broadcast. An empty CameraID or
// AllCameras applies to every viewer.
type CameraRestartedEvent struct {
	CameraID  string `json:"camera_id,omitempty" example:"1" doc:"Restarted camera, empty or 0 for all cameras"`
	At        int64  `json:"at" example:"1760000000000" doc:"Restart time in epoch milliseconds"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CameraRestartedEvent.
func (e CameraRestartedEvent) Type() uint32 { return TypeCameraRestarted }

// AppliesTo reports whether the restart targets the given camera.
func (e CameraRestartedEvent) AppliesTo(cameraID string) bool {
	return e.CameraID == "" || e.CameraID == AllCameras || e.CameraID == cameraID
}

// StreamStateChangedEvent is published on every stream session state transition.
type StreamStateChangedEvent struct {
	CameraID  string `json:"camera_id" example:"1" doc:"Camera identifier"`
	Key       int64  `json:"key" example:"1760000000000" doc:"Session key of the connection attempt"`
	State     string `json:"state" example:"streaming" doc:"idle, connecting, streaming, error or closed"`
	Connected bool   `json:"connected" example:"true" doc:"Whether frames are being received"`
	Error     string `json:"error,omitempty" example:"stream ended" doc:"Last connection error"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for StreamStateChangedEvent.
func (e StreamStateChangedEvent) Type() uint32 { return TypeStreamStateChanged }

// StreamFPSEvent carries the measured delivery rate, once per second per camera.
type StreamFPSEvent struct {
	CameraID  string `json:"camera_id" example:"1" doc:"Camera identifier"`
	Key       int64  `json:"key" example:"1760000000000" doc:"Session key"`
	FPS       int    `json:"fps" example:"15" doc:"Frames received during the last second"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for StreamFPSEvent.
func (e StreamFPSEvent) Type() uint32 { return TypeStreamFPS }

// StreamFrameEvent announces that a new current frame was published. It carries
// metadata only; consumers fetch the bytes from the viewer.
type StreamFrameEvent struct {
	CameraID string `json:"camera_id" example:"1" doc:"Camera identifier"`
	Key      int64  `json:"key" example:"1760000000000" doc:"Session key"`
	Seq      uint64 `json:"seq" example:"42" doc:"Frame sequence number within the session"`
	Size     int    `json:"size" example:"48213" doc:"JPEG size in bytes"`
}

// Type returns the event type identifier for StreamFrameEvent.
func (e StreamFrameEvent) Type() uint32 { return TypeStreamFrame }

// CameraAddedEvent is published when a viewer starts for a camera.
type CameraAddedEvent struct {
	CameraID  string `json:"camera_id" example:"1" doc:"Camera identifier"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CameraAddedEvent.
func (e CameraAddedEvent) Type() uint32 { return TypeCameraAdded }

// CameraRemovedEvent is published when a viewer is stopped and dropped.
type CameraRemovedEvent struct {
	CameraID  string `json:"camera_id" example:"1" doc:"Camera identifier"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CameraRemovedEvent.
func (e CameraRemovedEvent) Type() uint32 { return TypeCameraRemoved }
