package stream

import "log/slog"

// ConfigProvider builds the viewer configuration for a camera id.
// CameraID and Hooks.State are filled in by the pool.
type ConfigProvider func(cameraID string) (ViewerConfig, error)

// StateChangeCallback is called when a camera's current session changes state.
type StateChangeCallback func(cameraID string, oldState, newState State, snap Snapshot)

// PoolOptions configures a new Pool.
type PoolOptions struct {
	// ConfigProvider builds each viewer's configuration (required).
	ConfigProvider ConfigProvider

	// OnStateChange is called on every state transition (optional).
	OnStateChange StateChangeCallback

	// Logger for pool operations. If nil, uses slog.Default().
	Logger *slog.Logger
}
