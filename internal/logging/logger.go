package logging

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

const (
	defaultBufferSize = 1000
	journalIdentifier = "screenrec"
)

// Logger is a duck-typed interface satisfied by *slog.Logger.
// Use this interface instead of *slog.Logger to decouple from the concrete type.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
	// BufferSize is the number of recent entries kept for the log API (0 = 1000).
	BufferSize int `toml:"buffer_size"`
}

// level returns the configured level for module, falling back to the
// global level and then to info.
func (c Config) level(module string) slog.Level {
	if l, ok := parseLevel(c.Modules[module]); ok {
		return l
	}
	l, _ := parseLevel(c.Level)
	return l
}

type moduleLogger struct {
	level  *slog.LevelVar
	logger *slog.Logger
}

var (
	mutex       sync.RWMutex
	config      Config
	modules     = make(map[string]*moduleLogger)
	logBuffer   *RingBuffer
	logCallback LogCallback

	// stdout is where text and JSON output goes; tests swap it.
	stdout io.Writer = os.Stdout
)

// Initialize applies config to every module logger, including those
// created before the call. It may be called again on config reload; the
// ring buffer keeps its history unless BufferSize changes.
func Initialize(c Config) {
	mutex.Lock()
	defer mutex.Unlock()

	config = c

	size := c.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}
	if logBuffer == nil || logBuffer.Cap() != size {
		logBuffer = NewRingBuffer(size)
	}

	// Format may have changed, so handlers are rebuilt, not just re-levelled.
	for name, m := range modules {
		m.level.Set(c.level(name))
		m.logger = newModuleLogger(name, c.Format, m.level)
	}

	global := &slog.LevelVar{}
	global.Set(c.level(""))
	slog.SetDefault(slog.New(newHandler(c.Format, global)))
}

// GetBuffer returns the log ring buffer, or nil before Initialize.
func GetBuffer() *RingBuffer {
	mutex.RLock()
	defer mutex.RUnlock()
	return logBuffer
}

// SetLogCallback registers a function called for every buffered entry.
// The API uses it to publish log events without an import cycle.
func SetLogCallback(callback LogCallback) {
	mutex.Lock()
	defer mutex.Unlock()
	logCallback = callback
}

// GetLogger returns the logger for module, creating it if needed. Every
// record carries a module attribute.
func GetLogger(module string) *slog.Logger {
	mutex.RLock()
	m, ok := modules[module]
	mutex.RUnlock()
	if ok {
		return m.logger
	}

	mutex.Lock()
	defer mutex.Unlock()
	if m, ok := modules[module]; ok {
		return m.logger
	}

	level := &slog.LevelVar{}
	level.Set(config.level(module))
	m = &moduleLogger{level: level, logger: newModuleLogger(module, config.Format, level)}
	modules[module] = m
	return m.logger
}

func newModuleLogger(module, format string, level slog.Leveler) *slog.Logger {
	return slog.New(newHandler(format, level)).With("module", module)
}

// newHandler builds the output chain: stdout when something is attached
// to it, the journal when running under systemd, and always the ring buffer.
func newHandler(format string, level slog.Leveler) slog.Handler {
	handlers := fanout{newBufferHandler(level)}
	if stdoutAttached() {
		opts := &slog.HandlerOptions{Level: level}
		if format == "json" {
			handlers = append(handlers, slog.NewJSONHandler(stdout, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(stdout, opts))
		}
	}
	if IsJournalAvailable() {
		handlers = append(handlers, newJournalHandler(level))
	}
	return handlers
}

// stdoutAttached reports whether stdout is a terminal, pipe, socket or
// regular file rather than a null device or closed descriptor.
func stdoutAttached() bool {
	f, ok := stdout.(*os.File)
	if !ok {
		return stdout != nil
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return mode&(os.ModeCharDevice|os.ModeNamedPipe|os.ModeSocket) != 0 || mode.IsRegular()
}
