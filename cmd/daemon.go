package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/smazurov/camview/internal/camera"
	"github.com/smazurov/camview/internal/events"
	"github.com/smazurov/camview/internal/logging"
	"github.com/smazurov/camview/internal/metrics"
	"github.com/smazurov/camview/internal/restart"
	"github.com/smazurov/camview/internal/stream"
)

// Daemon holds the settings needed to view cameras of one daemon.
type Daemon struct {
	URL            string
	Token          string
	TokenFile      string
	RecordFile     string
	ReconnectDelay time.Duration
	RestartPoll    time.Duration
	ReadBuffer     int
}

// Stack is the shared machinery behind every viewer in a process.
type Stack struct {
	Client    *camera.Client
	Tokens    camera.TokenSource
	Restarts  *restart.Coordinator
	Bus       *events.Bus
	Allocator stream.Allocator

	daemon Daemon
	logger *slog.Logger
}

func (d Daemon) client() (*camera.Client, error) {
	return camera.NewClient(d.URL)
}

func (d Daemon) tokens() camera.TokenSource {
	return camera.NewTokenSource(d.Token, d.TokenFile)
}

// restarts opens the restart record. It falls back to memory when no file is
// configured.
func (d Daemon) restarts(bus *events.Bus) *restart.Coordinator {
	var store restart.Store = restart.NewMemoryStore()
	if d.RecordFile != "" {
		store = restart.NewFileStore(d.RecordFile)
	}
	return restart.NewCoordinator(store, bus, logging.GetLogger("restart"))
}

// Connect builds the daemon client, token source and restart coordinator.
func (d Daemon) Connect(bus *events.Bus) (*Stack, error) {
	client, err := d.client()
	if err != nil {
		return nil, err
	}

	return &Stack{
		Client:    client,
		Tokens:    d.tokens(),
		Restarts:  d.restarts(bus),
		Bus:       bus,
		Allocator: stream.NewPoolAllocator(),
		daemon:    d,
		logger:    logging.GetLogger("stream"),
	}, nil
}

// ViewerConfig returns the configuration for one camera's viewer. Stream
// updates are mirrored into the Prometheus metrics.
func (s *Stack) ViewerConfig(cameraID string) (stream.ViewerConfig, error) {
	if cameraID == restart.AllCameras {
		return stream.ViewerConfig{}, fmt.Errorf("camera id %s addresses all cameras and cannot be viewed", cameraID)
	}
	return stream.ViewerConfig{
		CameraID:       cameraID,
		Opener:         s.Client,
		Tokens:         s.Tokens,
		Restarts:       s.Restarts,
		Bus:            s.Bus,
		Policy:         stream.Policy{Delay: s.daemon.ReconnectDelay},
		PollInterval:   s.daemon.RestartPoll,
		ReadBufferSize: s.daemon.ReadBuffer,
		Allocator:      s.Allocator,
		Hooks: stream.Hooks{
			FPS: func(id string, _ int64, fps int) {
				metrics.SetFPS(id, fps)
			},
			Frame: func(id string, _ int64, info stream.FrameInfo) {
				metrics.RecordFrame(id, info.Size)
			},
		},
		OnReconnect: func(id string, trigger stream.Trigger, _ int64) {
			metrics.RecordReconnect(id, trigger.String())
		},
		Logger: s.logger,
	}, nil
}

// RecordStateChange updates the connection metrics for a state transition.
func RecordStateChange(cameraID string, _, newState stream.State, _ stream.Snapshot) {
	metrics.SetConnected(cameraID, newState == stream.StateStreaming)
	switch newState {
	case stream.StateError:
		metrics.RecordError(cameraID)
	case stream.StateClosed:
		metrics.SetFPS(cameraID, 0)
	}
}

// NewPool creates a viewer pool on top of the stack.
func (s *Stack) NewPool() stream.Pool {
	return stream.NewPool(&stream.PoolOptions{
		ConfigProvider: s.ViewerConfig,
		OnStateChange:  RecordStateChange,
		Logger:         logging.GetLogger("stream"),
	})
}
