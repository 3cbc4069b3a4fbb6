// Package logging provides structured logging with per-module log levels.
//
// Records go to stdout when it is connected to a terminal, pipe or file, to
// the systemd journal when journald is reachable, and always to an in-memory
// ring buffer that backs the /api/logs endpoint.
//
// Initialize once at startup, then ask for a logger per module:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"led": "debug",
//		},
//	})
//
//	logger := logging.GetLogger("led")
//	logger.Info("LED bank ready", "count", 10)
//
// Loggers obtained before Initialize are cached and pick up the configured
// level afterwards.
//
// When running under systemd:
//
//	journalctl -t ledpanel -f
//	journalctl -t ledpanel MODULE=led
//
// Example TOML configuration:
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	led = "debug"
//	api = "warn"
package logging
