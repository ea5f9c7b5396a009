// Package logging configures per-module slog loggers for screenrec.
//
// Call Initialize once at startup, then ask for a module logger anywhere:
//
//	logging.Initialize(logging.Config{
//		Level:   "info",
//		Format:  "text",
//		Modules: map[string]string{"ffmpeg": "warn", "recorder": "debug"},
//	})
//	logger := logging.GetLogger("recorder")
//
// Loggers obtained before Initialize are kept and pick up the configured
// level and format when it runs.
//
// Every record goes to stdout when it is attached to a terminal, pipe or
// file, to the systemd journal when one is running (identifier "screenrec",
// attributes as upper-case fields, e.g. MODULE=recorder), and to an
// in-memory ring buffer that backs /api/logs. SetLogCallback observes
// each buffered entry.
//
// Module names in use: main, recorder, ffmpeg, encoders, probe, config, api.
package logging
