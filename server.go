package main

import (
	"log/slog"
	"slices"
	"time"

	"github.com/smazurov/camview/cmd"
	"github.com/smazurov/camview/internal/api"
	"github.com/smazurov/camview/internal/config"
	"github.com/smazurov/camview/internal/events"
	"github.com/smazurov/camview/internal/logging"
	"github.com/smazurov/camview/internal/metrics"
	"github.com/smazurov/camview/internal/metrics/exporters"
	"github.com/smazurov/camview/internal/stream"
)

// server is the long-running viewer service behind the root command.
type server struct {
	opts    *Options
	logger  *slog.Logger
	stack   *cmd.Stack
	pool    stream.Pool
	api     *api.Server
	cameras []string

	cameraWatcher *config.Watcher[[]string]
}

func newServer(opts *Options, logger *slog.Logger) (*server, error) {
	cameras, err := config.ParseCameraList(opts.DaemonCameras)
	if err != nil {
		return nil, err
	}

	bus := events.New()
	stack, err := opts.daemon().Connect(bus)
	if err != nil {
		return nil, err
	}
	pool := stack.NewPool()

	apiOpts := &api.Options{
		AuthUsername: opts.APIUsername,
		AuthPassword: opts.APIPassword,
		Cameras:      pool,
		Restarts:     stack.Restarts,
		EventBus:     bus,
		Daemon:       stack.Client,
		RelayMaxFPS:  float64(opts.RelayMaxFPS),
	}
	if opts.MetricsEnabled {
		apiOpts.PrometheusHandler = exporters.HTTPHandler()
	}

	return &server{
		opts:    opts,
		logger:  logger,
		stack:   stack,
		pool:    pool,
		api:     api.NewServer(apiOpts),
		cameras: cameras,
	}, nil
}

// startViewers starts the restart watch, one viewer per camera and the camera
// list hot reload.
func (s *server) startViewers() {
	if err := s.stack.Restarts.StartWatching(); err != nil {
		s.logger.Warn("Restart record not watched", "error", err)
	}

	s.applyCameras(s.cameras)
	s.watchCameras()
}

// applyCameras makes the pool view exactly ids and announces the difference.
func (s *server) applyCameras(ids []string) {
	added, removed := s.pool.Sync(ids)
	now := time.Now().UTC().Format(time.RFC3339)

	for _, id := range removed {
		metrics.DeleteCamera(id)
		s.stack.Bus.Publish(events.CameraRemovedEvent{CameraID: id, Timestamp: now})
	}
	for _, id := range added {
		s.stack.Bus.Publish(events.CameraAddedEvent{CameraID: id, Timestamp: now})
	}
	if len(added) > 0 || len(removed) > 0 {
		s.logger.Info("Camera set updated", "added", added, "removed", removed)
	}
}

func (s *server) watchCameras() {
	if s.opts.Config == "" {
		return
	}

	w := config.NewConfigWatcher(
		s.opts.Config,
		config.LoadCameras,
		logging.GetLogger("config"),
		config.WithLabel[[]string]("camera list"),
		config.WithEqual(slices.Equal[[]string]),
		config.WithInitial(s.cameras),
	)
	w.OnReload(func(ids []string) {
		if len(ids) == 0 {
			s.logger.Warn("Reloaded config lists no cameras, keeping the current set", "config", s.opts.Config)
			return
		}
		s.applyCameras(ids)
	})

	if err := w.Start(); err != nil {
		s.logger.Debug("Camera list hot reload disabled", "config", s.opts.Config, "error", err)
		return
	}
	s.cameraWatcher = w
}

func (s *server) stop() {
	if err := s.api.Stop(); err != nil {
		s.logger.Error("Error stopping HTTP server", "error", err)
	}
	if s.cameraWatcher != nil {
		if err := s.cameraWatcher.Stop(); err != nil {
			s.logger.Debug("Error stopping camera list watcher", "error", err)
		}
	}
	s.stack.Restarts.StopWatching()
	s.pool.StopAll()
}
