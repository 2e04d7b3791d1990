package models

import "time"

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status: ok or degraded"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
	Daemon  string `json:"daemon,omitempty" example:"reachable" doc:"Camera daemon reachability"`
	Cameras int    `json:"cameras" example:"4" doc:"Number of managed cameras"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2024-12-15 14:30" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"a1b2c3d4" doc:"Unique build identifier"`
	GoVersion string `json:"go_version" example:"go1.23.0" doc:"Go compiler version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Compiler used"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Camera models
type FrameData struct {
	Seq         uint64    `json:"seq" example:"42" doc:"Frame sequence number within the session"`
	Size        int       `json:"size" example:"48213" doc:"JPEG size in bytes"`
	Width       int       `json:"width,omitempty" example:"1280" doc:"Image width"`
	Height      int       `json:"height,omitempty" example:"720" doc:"Image height"`
	Displayable bool      `json:"displayable" example:"true" doc:"Whether the JPEG header decoded"`
	ReceivedAt  time.Time `json:"received_at" doc:"Arrival time of the frame"`
}

type CameraData struct {
	CameraID    string     `json:"camera_id" example:"1" doc:"Camera identifier"`
	SessionID   string     `json:"session_id,omitempty" example:"5f0c1f7e-3c36-4f5e-a1d4-0a7c2a3b9e11" doc:"Current session id"`
	Key         int64      `json:"key" example:"1760000000000" doc:"Session key sent as the _k query parameter"`
	State       string     `json:"state" example:"streaming" enum:"idle,connecting,streaming,error,closed" doc:"Session state"`
	Connected   bool       `json:"connected" example:"true" doc:"Whether stream bytes are being received"`
	FPS         int        `json:"fps" example:"15" doc:"Frames received during the last second"`
	LastError   string     `json:"last_error,omitempty" example:"stream ended" doc:"Most recent connection error"`
	Frame       *FrameData `json:"frame,omitempty" doc:"Current frame"`
	FramesTotal uint64     `json:"frames_total" example:"1200" doc:"Frames received by the current session"`
	StartedAt   *time.Time `json:"started_at,omitempty" doc:"When the current session began connecting"`
	Reconnects  uint64     `json:"reconnects" example:"2" doc:"Sessions started after the first one"`
}

type CameraResponse struct {
	Body CameraData
}

type CameraListData struct {
	Cameras []CameraData `json:"cameras" doc:"Managed cameras ordered by id"`
	Count   int          `json:"count" example:"2" doc:"Number of cameras"`
}

type CameraListResponse struct {
	Body CameraListData
}

type CameraIDInput struct {
	ID string `path:"id" example:"1" doc:"Camera identifier"`
}

type FrameResponse struct {
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	FrameSeq     string `header:"X-Frame-Seq"`
	Body         []byte
}

// Restart models
type RestartInput struct {
	ID string `path:"id" example:"1" doc:"Camera identifier, 0 restarts every camera"`
}

type RestartData struct {
	CameraID  string `json:"camera_id" example:"1" doc:"Restarted camera, 0 for all"`
	At        int64  `json:"at" example:"1760000000000" doc:"Recorded restart time in epoch milliseconds"`
	Persisted bool   `json:"persisted" example:"true" doc:"Whether the shared restart record was written"`
}

type RestartResponse struct {
	Body RestartData
}

type RestartRecordData struct {
	Restarts map[string]int64 `json:"restarts" doc:"Last restart time per camera id in epoch milliseconds"`
}

type RestartRecordResponse struct {
	Body RestartRecordData
}

// Metrics models
type StreamMetricsData struct {
	FPS        int    `json:"fps" example:"15" doc:"Last measured frame rate"`
	Connected  bool   `json:"connected" example:"true" doc:"Whether the camera is streaming"`
	Frames     uint64 `json:"frames" example:"90210" doc:"Frames received since startup"`
	Bytes      uint64 `json:"bytes" example:"4321000" doc:"JPEG bytes received since startup"`
	Errors     uint64 `json:"errors" example:"3" doc:"Sessions that failed"`
	Reconnects uint64 `json:"reconnects" example:"5" doc:"Sessions replaced"`
}

type StreamMetricsListData struct {
	Cameras map[string]StreamMetricsData `json:"cameras" doc:"Metrics keyed by camera id"`
}

type StreamMetricsResponse struct {
	Body StreamMetricsListData
}
