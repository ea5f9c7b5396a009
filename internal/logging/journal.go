package logging

import (
	"context"
	"log/slog"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/journal"
)

// journalHandler writes records to the systemd journal with attributes as
// upper-case fields, so `journalctl -t screenrec MODULE=recorder` works.
type journalHandler struct {
	level  slog.Leveler
	fields map[string]string
	prefix string
}

func newJournalHandler(level slog.Leveler) *journalHandler {
	return &journalHandler{
		level:  level,
		fields: map[string]string{"SYSLOG_IDENTIFIER": journalIdentifier},
	}
}

func (h *journalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *journalHandler) Handle(_ context.Context, r slog.Record) error {
	fields := maps.Clone(h.fields)
	r.Attrs(func(a slog.Attr) bool {
		addJournalField(fields, h.prefix, a)
		return true
	})
	return journal.Send(r.Message, journalPriority(r.Level), fields)
}

func (h *journalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.fields = maps.Clone(h.fields)
	for _, a := range attrs {
		addJournalField(next.fields, h.prefix, a)
	}
	return &next
}

func (h *journalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + journalFieldName(name) + "_"
	return &next
}

func journalPriority(level slog.Level) journal.Priority {
	switch {
	case level >= slog.LevelError:
		return journal.PriErr
	case level >= slog.LevelWarn:
		return journal.PriWarning
	case level >= slog.LevelInfo:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

func addJournalField(fields map[string]string, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := prefix + journalFieldName(a.Key)

	switch v := a.Value; v.Kind() {
	case slog.KindGroup:
		for _, ga := range v.Group() {
			addJournalField(fields, key+"_", ga)
		}
	case slog.KindFloat64:
		fields[key] = strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindTime:
		fields[key] = v.Time().Format(time.RFC3339Nano)
	default:
		fields[key] = v.String()
	}
}

// journalFieldName upper-cases key and replaces anything outside
// [A-Z0-9_]; journald rejects other field names. A leading underscore
// marks trusted fields, so it is dropped.
func journalFieldName(key string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return '_'
	}, key)
	name = strings.TrimLeft(name, "_")
	if name == "" {
		return "ATTR"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "F" + name
	}
	return name
}

// IsJournalAvailable reports whether a systemd journal socket is reachable.
func IsJournalAvailable() bool {
	return journal.Enabled()
}
