// Package logging provides structured logging with per-module log levels.
//
// # Overview
//
// Loggers are plain *slog.Logger values tagged with a "module" attribute. Output
// is routed automatically:
//   - stdout when a terminal, pipe, socket or file is attached
//   - the systemd journal when journald is available
//   - both when both are available
//
// # Usage
//
// Initialize once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "auto", // text on a terminal, json otherwise
//		Modules: map[string]string{
//			"stream":  "debug",
//			"restart": "warn",
//		},
//	})
//
// Get a logger for your module and add context:
//
//	logger := logging.GetLogger("stream").With("camera_id", id)
//	logger.Info("Session streaming", "key", key)
//
// Levels can be changed at runtime with SetModuleLevel; loggers already handed
// out follow the change because each module shares one slog.LevelVar.
//
// # Viewing Logs
//
//	journalctl -t camview -f
//	journalctl -t camview MODULE=stream CAMERA_ID=1
//
// # Configuration
//
//	[logging]
//	level = "info"
//	format = "auto"
//
//	[logging.modules]
//	stream = "debug"
//	api = "warn"
package logging
