package config

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeRecorderConfig(t *testing.T, path, ffmpeg string) {
	t.Helper()
	content := "[recorder]\nffmpeg_path = \"" + ffmpeg + "\"\nrecordings_dir = \"/tmp/rec\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func startWatcher(t *testing.T, path string, opts ...WatcherOption[RecorderSettings]) *Watcher[RecorderSettings] {
	t.Helper()
	opts = append([]WatcherOption[RecorderSettings]{WithDebounce[RecorderSettings](30 * time.Millisecond)}, opts...)
	w := NewConfigWatcher(path, LoadRecorderSettings, quietLogger(), opts...)
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := w.Stop(); err != nil {
			t.Errorf("Stop: %v", err)
		}
	})
	return w
}

func waitSettings(t *testing.T, ch <-chan RecorderSettings) RecorderSettings {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
		return RecorderSettings{}
	}
}

func TestLoadRecorderSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
port = ":8090"

[recorder]
ffmpeg_path = "C:/ffmpeg/bin/ffmpeg.exe"
ffprobe_path = "C:/ffmpeg/bin/ffprobe.exe"
recordings_dir = "D:/captures"
encoder = "libx264"
default_fps = 30
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadRecorderSettings(path)
	if err != nil {
		t.Fatal(err)
	}
	want := RecorderSettings{
		FFmpegPath:    "C:/ffmpeg/bin/ffmpeg.exe",
		FFprobePath:   "C:/ffmpeg/bin/ffprobe.exe",
		RecordingsDir: "D:/captures",
		Encoder:       "libx264",
		DefaultFPS:    30,
	}
	if s != want {
		t.Errorf("got %+v, want %+v", s, want)
	}

	if _, err := LoadRecorderSettings(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadRecorderSettingsEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeRecorderConfig(t, path, "/opt/ffmpeg-file")
	t.Setenv(EnvPrefix+"FFMPEG_PATH", "/opt/ffmpeg-env")
	t.Setenv(EnvPrefix+"DEFAULT_FPS", "29.97")

	s, err := LoadRecorderSettings(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.FFmpegPath != "/opt/ffmpeg-env" || s.DefaultFPS != 29.97 || s.RecordingsDir != "/tmp/rec" {
		t.Errorf("settings = %+v", s)
	}
}

func TestRecorderSettingsMerge(t *testing.T) {
	base := RecorderSettings{FFmpegPath: "ffmpeg", RecordingsDir: "/base", DefaultFPS: 60}
	got := RecorderSettings{RecordingsDir: "/override"}.Merge(base)
	if got.FFmpegPath != "ffmpeg" || got.RecordingsDir != "/override" || got.DefaultFPS != 60 {
		t.Errorf("Merge = %+v", got)
	}
}

func TestConfigWatcher_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeRecorderConfig(t, path, "/opt/ffmpeg-a")

	received := make(chan RecorderSettings, 4)
	w := NewConfigWatcher(path, LoadRecorderSettings, quietLogger(), WithDebounce[RecorderSettings](30*time.Millisecond))
	w.OnReload(func(s RecorderSettings) { received <- s })
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	writeRecorderConfig(t, path, "/opt/ffmpeg-b")
	if got := waitSettings(t, received); got.FFmpegPath != "/opt/ffmpeg-b" {
		t.Errorf("FFmpegPath = %q, want /opt/ffmpeg-b", got.FFmpegPath)
	}
}

func TestConfigWatcher_AtomicSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeRecorderConfig(t, path, "/opt/ffmpeg-a")

	received := make(chan RecorderSettings, 4)
	w := startWatcher(t, path)
	w.OnReload(func(s RecorderSettings) { received <- s })

	// Two rename-style saves in a row; the second must still be seen.
	for _, ffmpeg := range []string{"/opt/ffmpeg-b", "/opt/ffmpeg-c"} {
		tmp := filepath.Join(dir, ".config.toml.swp")
		writeRecorderConfig(t, tmp, ffmpeg)
		if err := os.Rename(tmp, path); err != nil {
			t.Fatal(err)
		}
		if got := waitSettings(t, received); got.FFmpegPath != ffmpeg {
			t.Errorf("FFmpegPath = %q, want %q", got.FFmpegPath, ffmpeg)
		}
	}
}

func TestConfigWatcher_IgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeRecorderConfig(t, path, "/opt/ffmpeg-a")

	var calls atomic.Int32
	w := startWatcher(t, path)
	w.OnReload(func(RecorderSettings) { calls.Add(1) })

	if err := os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("handler called %d times for unrelated file", n)
	}
}

func TestConfigWatcher_Debounce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeRecorderConfig(t, path, "/opt/ffmpeg-0")

	var calls atomic.Int32
	last := make(chan RecorderSettings, 8)
	w := startWatcher(t, path, WithDebounce[RecorderSettings](150*time.Millisecond))
	w.OnReload(func(s RecorderSettings) {
		calls.Add(1)
		last <- s
	})

	for i := 1; i <= 5; i++ {
		writeRecorderConfig(t, path, "/opt/ffmpeg-"+string(rune('0'+i)))
		time.Sleep(10 * time.Millisecond)
	}

	got := waitSettings(t, last)
	time.Sleep(300 * time.Millisecond)
	if got.FFmpegPath != "/opt/ffmpeg-5" {
		t.Errorf("FFmpegPath = %q, want /opt/ffmpeg-5", got.FFmpegPath)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("handler called %d times, want 1", n)
	}
}

func TestConfigWatcher_Unsubscribe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeRecorderConfig(t, path, "/opt/ffmpeg-a")

	w := NewConfigWatcher(path, LoadRecorderSettings, quietLogger())
	var first, second atomic.Int32
	unsubscribe := w.OnReload(func(RecorderSettings) { first.Add(1) })
	w.OnReload(func(RecorderSettings) { second.Add(1) })

	if err := w.Reload(); err != nil {
		t.Fatal(err)
	}
	unsubscribe()
	if err := w.Reload(); err != nil {
		t.Fatal(err)
	}

	if first.Load() != 1 || second.Load() != 2 {
		t.Errorf("calls = %d/%d, want 1/2", first.Load(), second.Load())
	}
}

func TestConfigWatcher_ErrorHandler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[recorder\nbroken"), 0o644); err != nil {
		t.Fatal(err)
	}

	var handled error
	w := NewConfigWatcher(path, LoadRecorderSettings, quietLogger(),
		WithErrorHandler[RecorderSettings](func(err error) { handled = err }))
	var calls int
	w.OnReload(func(RecorderSettings) { calls++ })

	err := w.Reload()
	if err == nil {
		t.Fatal("expected load error")
	}
	if !errors.Is(handled, err) {
		t.Errorf("error handler got %v, want %v", handled, err)
	}
	if calls != 0 {
		t.Errorf("handler called %d times on failed load", calls)
	}
}

func TestConfigWatcher_StopIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeRecorderConfig(t, path, "/opt/ffmpeg-a")

	w := NewConfigWatcher(path, LoadRecorderSettings, quietLogger())
	if err := w.Stop(); err != nil {
		t.Errorf("Stop before Start: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}
