package ffmpeg

import (
	"log/slog"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		line      string
		wantLevel slog.Level
		wantMsg   string
	}{
		{"[info] Press [q] to stop", slog.LevelInfo, "Press [q] to stop"},
		{"[error] Could not find codec", slog.LevelError, "Could not find codec"},
		{"[fatal] Conversion failed!", slog.LevelError, "Conversion failed!"},
		{"[verbose] Opening output", slog.LevelDebug, "Opening output"},
		{"[gdigrab @ 0x55d1] [warning] Capturing whole desktop", slog.LevelWarn, "[gdigrab @ 0x55d1] Capturing whole desktop"},
		{"[h264_nvenc @ 0x1] [error] No capable devices found", slog.LevelError, "[h264_nvenc @ 0x1] No capable devices found"},
		{"[h264_nvenc @ 0x1] No capable devices found", slog.LevelInfo, "[h264_nvenc @ 0x1] No capable devices found"},
		{"plain line", slog.LevelInfo, "plain line"},
		{"[]", slog.LevelInfo, "[]"},
		{"[info]", slog.LevelInfo, "[info]"},
	}

	for _, tt := range tests {
		level, msg := ParseLogLevel(tt.line)
		if level != tt.wantLevel || msg != tt.wantMsg {
			t.Errorf("ParseLogLevel(%q) = (%v, %q), want (%v, %q)", tt.line, level, msg, tt.wantLevel, tt.wantMsg)
		}
	}
}
