package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/smazurov/camview/internal/api/models"
	"github.com/smazurov/camview/internal/events"
	"github.com/smazurov/camview/internal/logging"
	"github.com/smazurov/camview/internal/restart"
	"github.com/smazurov/camview/internal/stream"
	"github.com/smazurov/camview/internal/version"
	"github.com/smazurov/camview/ui"
)

// CameraService is the part of the viewer pool served over HTTP.
type CameraService interface {
	List() []stream.Snapshot
	GetStatus(cameraID string) (stream.Snapshot, error)
	Reconnect(cameraID string) error
	Frame(cameraID string) ([]byte, stream.FrameInfo, error)
}

// Restarter records camera restarts.
type Restarter interface {
	Restart(cameraID string) (int64, error)
	Snapshot() restart.Record
}

// Pinger checks that the camera daemon answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the Huma v2 API server
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	cameras    CameraService
	restarts   Restarter
	eventBus   *events.Bus
	options    *Options
	logger     *slog.Logger
}

// Options configures the API server.
type Options struct {
	AuthUsername      string
	AuthPassword      string
	Cameras           CameraService
	Restarts          Restarter
	EventBus          *events.Bus
	Daemon            Pinger       // Optional daemon health probe
	PrometheusHandler http.Handler // Optional Prometheus metrics handler
	RelayMaxFPS       float64      // Relay pacing; zero or less is unlimited
}

// NewServer creates a new API server with Huma v2 using Go 1.22+ native routing
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	AddCORSHandler(mux, corsConfig)

	config := huma.DefaultConfig("camview API", "1.0.0")
	config.Info.Description = "Live MJPEG viewer for Motion-style camera daemons"
	// Empty servers list will make OpenAPI use relative paths, working with any host
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, config)

	eventBus := opts.EventBus
	if eventBus == nil {
		eventBus = events.New()
	}

	server := &Server{
		api:      api,
		mux:      mux,
		cameras:  opts.Cameras,
		restarts: opts.Restarts,
		eventBus: eventBus,
		options:  opts,
		logger:   logging.GetLogger("api"),
	}

	// CORS first, then request logging, then auth
	api.UseMiddleware(NewCORSMiddleware(corsConfig))
	api.UseMiddleware(HTTPLoggingMiddleware)
	if server.authEnabled() {
		api.UseMiddleware(server.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	server.registerRoutes()

	if pageHandler, err := ui.Handler(); err == nil {
		page := server.requireAuth(pageHandler.ServeHTTP)
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/api") {
				http.NotFound(w, r)
				return
			}
			page.ServeHTTP(w, r)
		})
	}

	return server
}

// GetMux returns the underlying HTTP ServeMux for additional setup
func (s *Server) GetMux() *http.ServeMux {
	return s.mux
}

// GetAPI returns the Huma API instance
func (s *Server) GetAPI() huma.API {
	return s.api
}

// Start starts the HTTP server on the specified address
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting camview API server", "addr", addr)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s.httpServer.ListenAndServe()
}

// Stop shuts the server down without waiting for open streams.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")

	// SSE and MJPEG relay connections never finish on their own
	if s.httpServer != nil {
		return s.httpServer.Close()
	}

	return nil
}

func (s *Server) authEnabled() bool {
	return s.options.AuthUsername != "" && s.options.AuthPassword != ""
}

// registerRoutes sets up all API endpoints
func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health and camera daemon reachability",
		Tags:        []string{"health"},
		Security:    []map[string][]string{}, // Empty security = no auth required
	}, func(ctx context.Context, _ *struct{}) (*models.HealthResponse, error) {
		data := models.HealthData{
			Status:  "ok",
			Message: "API is healthy",
			Cameras: len(s.cameras.List()),
		}
		if s.options.Daemon != nil {
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := s.options.Daemon.Ping(pingCtx); err != nil {
				data.Status = "degraded"
				data.Message = "Camera daemon unreachable"
				data.Daemon = err.Error()
			} else {
				data.Daemon = "reachable"
			}
		}
		return &models.HealthResponse{Body: data}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*models.VersionResponse, error) {
		info := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   info.Version,
				GitCommit: info.GitCommit,
				BuildDate: info.BuildDate,
				BuildID:   info.BuildID,
				GoVersion: info.GoVersion,
				Compiler:  info.Compiler,
				Platform:  info.Platform,
			},
		}, nil
	})

	s.registerCameraRoutes()
	s.registerRestartRoutes()
	s.registerSSERoutes()
	s.registerMetricsRoutes()
	s.registerRelayRoutes()
}

// withAuth returns security requirement for basic auth
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}
