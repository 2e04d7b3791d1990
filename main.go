package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/camview/cmd"
	"github.com/smazurov/camview/internal/config"
	"github.com/smazurov/camview/internal/logging"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Camera daemon settings
	DaemonURL     string `help:"Base URL of the camera daemon" default:"http://localhost:8081" toml:"daemon.url" env:"DAEMON_URL"`
	DaemonCameras string `help:"Comma separated camera ids to view" default:"1" toml:"daemon.cameras" env:"DAEMON_CAMERAS"`

	// Stream token settings
	AuthToken     string `help:"Token sent with stream requests" default:"" toml:"auth.token" env:"AUTH_TOKEN"`
	AuthTokenFile string `help:"File holding the stream token, re-read on every connect" default:"" toml:"auth.token_file" env:"AUTH_TOKEN_FILE"`

	// API auth settings
	APIUsername string `help:"Basic auth username for the API" default:"admin" toml:"api.username" env:"API_USERNAME"`
	APIPassword string `help:"Basic auth password for the API" default:"" toml:"api.password" env:"API_PASSWORD"`

	// Stream settings
	StreamReconnectDelayMs int `help:"Delay before reconnecting after a failure" default:"2000" toml:"stream.reconnect_delay_ms" env:"STREAM_RECONNECT_DELAY_MS"`
	StreamRestartPollMs    int `help:"How often the restart record is polled" default:"5000" toml:"stream.restart_poll_ms" env:"STREAM_RESTART_POLL_MS"`
	StreamReadBuffer       int `help:"Size of each network read in bytes" default:"32768" toml:"stream.read_buffer" env:"STREAM_READ_BUFFER"`

	// Restart record shared with other processes
	RestartRecordFile string `help:"Restart record file, empty keeps it in memory" default:"restarts.json" toml:"restart.record_file" env:"RESTART_RECORD_FILE"`

	// Relay settings
	RelayMaxFPS int `help:"Maximum frame rate of the MJPEG relay, 0 for unlimited" default:"10" toml:"relay.max_fps" env:"RELAY_MAX_FPS"`

	// Metrics settings
	MetricsEnabled bool `help:"Serve Prometheus metrics on /metrics" default:"true" toml:"metrics.enabled" env:"METRICS_ENABLED"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (auto, text, json)" default:"auto" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingStream  string `help:"Stream session logging level" default:"info" toml:"logging.stream" env:"LOGGING_STREAM"`
	LoggingRestart string `help:"Restart coordinator logging level" default:"info" toml:"logging.restart" env:"LOGGING_RESTART"`
	LoggingCamera  string `help:"Camera client logging level" default:"info" toml:"logging.camera" env:"LOGGING_CAMERA"`
	LoggingAPI     string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP    string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
}

// daemon converts the options into the settings shared with subcommands.
func (o *Options) daemon() cmd.Daemon {
	return cmd.Daemon{
		URL:            o.DaemonURL,
		Token:          o.AuthToken,
		TokenFile:      o.AuthTokenFile,
		RecordFile:     o.RestartRecordFile,
		ReconnectDelay: time.Duration(o.StreamReconnectDelayMs) * time.Millisecond,
		RestartPoll:    time.Duration(o.StreamRestartPollMs) * time.Millisecond,
		ReadBuffer:     o.StreamReadBuffer,
	}
}

// serverURL is where subcommands reach a locally running server.
func (o *Options) serverURL() string {
	port := o.Port
	if strings.HasPrefix(port, ":") {
		port = "localhost" + port
	}
	if _, err := strconv.Atoi(port); err == nil {
		port = "localhost:" + port
	}
	return "http://" + port
}

func main() {
	var (
		cli humacli.CLI
		env = &cmd.Env{}
	)

	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"stream":  opts.LoggingStream,
				"restart": opts.LoggingRestart,
				"camera":  opts.LoggingCamera,
				"api":     opts.LoggingAPI,
				"http":    opts.LoggingHTTP,
			},
		})

		*env = cmd.Env{
			Daemon:    opts.daemon(),
			ServerURL: opts.serverURL(),
			Username:  opts.APIUsername,
			Password:  opts.APIPassword,
		}

		logger := logging.GetLogger("main")
		var srv *server

		hooks.OnStart(func() {
			var err error
			srv, err = newServer(opts, logger)
			if err != nil {
				logger.Error("Failed to set up camview", "error", err)
				os.Exit(1)
			}
			srv.startViewers()

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := srv.api.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			if srv != nil {
				srv.stop()
			}
		})
	})

	cli.Root().Use = "camview"
	cli.Root().Short = "Live MJPEG viewer for Motion-style camera daemons"

	cli.Root().AddCommand(cmd.CreateWatchCmd(env))
	cli.Root().AddCommand(cmd.CreateSnapshotCmd(env))
	cli.Root().AddCommand(cmd.CreateRestartCmd(env))
	cli.Root().AddCommand(cmd.CreateStatusCmd(env))

	cli.Run()
}
