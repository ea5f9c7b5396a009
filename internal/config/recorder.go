package config

import (
	"fmt"
	"os"
	"reflect"

	"github.com/pelletier/go-toml/v2"
)

// RecorderSettings is the hot-reloadable [recorder] section of the config file.
type RecorderSettings struct {
	FFmpegPath    string  `toml:"ffmpeg_path" env:"FFMPEG_PATH"`
	FFprobePath   string  `toml:"ffprobe_path" env:"FFPROBE_PATH"`
	RecordingsDir string  `toml:"recordings_dir" env:"RECORDINGS_DIR"`
	Encoder       string  `toml:"encoder" env:"ENCODER"`
	DefaultFPS    float64 `toml:"default_fps" env:"DEFAULT_FPS"`
}

// LoadRecorderSettings reads the [recorder] table from a TOML file, then
// applies SCREENREC_ environment overrides. A file without the table
// yields zero settings.
func LoadRecorderSettings(path string) (RecorderSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RecorderSettings{}, fmt.Errorf("read config: %w", err)
	}

	var file struct {
		Recorder RecorderSettings `toml:"recorder"`
	}
	if err := toml.Unmarshal(data, &file); err != nil {
		return RecorderSettings{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyEnv(&file.Recorder)
	return file.Recorder, nil
}

// applyEnv sets every field of the struct opts points to whose env tag
// names a non-empty SCREENREC_ variable.
func applyEnv(opts any) {
	eachTagged(reflect.ValueOf(opts).Elem(), func(field reflect.Value, sf reflect.StructField) {
		if key := sf.Tag.Get("env"); key != "" {
			if value := os.Getenv(EnvPrefix + key); value != "" {
				setFromString(field, value)
			}
		}
	})
}

// Merge returns s with empty fields filled from base.
func (s RecorderSettings) Merge(base RecorderSettings) RecorderSettings {
	if s.FFmpegPath == "" {
		s.FFmpegPath = base.FFmpegPath
	}
	if s.FFprobePath == "" {
		s.FFprobePath = base.FFprobePath
	}
	if s.RecordingsDir == "" {
		s.RecordingsDir = base.RecordingsDir
	}
	if s.Encoder == "" {
		s.Encoder = base.Encoder
	}
	if s.DefaultFPS <= 0 {
		s.DefaultFPS = base.DefaultFPS
	}
	return s
}
