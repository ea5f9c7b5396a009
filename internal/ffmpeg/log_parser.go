package ffmpeg

import (
	"log/slog"
	"strings"
)

// LogLevelArgs makes ffmpeg prefix every stderr line with its level.
var LogLevelArgs = []string{"-loglevel", "level+info"}

var severities = map[string]slog.Level{
	"panic":   slog.LevelError,
	"fatal":   slog.LevelError,
	"error":   slog.LevelError,
	"warning": slog.LevelWarn,
	"info":    slog.LevelInfo,
	"verbose": slog.LevelDebug,
	"debug":   slog.LevelDebug,
	"trace":   slog.LevelDebug,
}

// ParseLogLevel maps a stderr line printed with LogLevelArgs to a slog
// level and strips the level tag. Lines look like "[warning] msg" or
// "[gdigrab @ 0x55d1] [warning] msg"; the component tag is kept. Lines
// without a level tag are info.
func ParseLogLevel(line string) (slog.Level, string) {
	tag, rest, ok := leadingTag(line)
	if !ok {
		return slog.LevelInfo, line
	}
	if level, ok := severities[tag]; ok {
		return level, rest
	}

	if tag, msg, ok := leadingTag(rest); ok {
		if level, ok := severities[tag]; ok {
			return level, line[:len(line)-len(rest)] + msg
		}
	}
	return slog.LevelInfo, line
}

// leadingTag splits "[tag] rest".
func leadingTag(s string) (tag, rest string, ok bool) {
	if !strings.HasPrefix(s, "[") {
		return "", s, false
	}
	return strings.Cut(s[1:], "] ")
}
