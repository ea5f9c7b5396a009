// Package binaries locates the ffmpeg and ffprobe executables.
package binaries

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
)

// Default executable names, resolved through PATH at spawn time.
const (
	FFmpegName  = "ffmpeg"
	FFprobeName = "ffprobe"
)

// Environment overrides, consulted before the configured paths.
const (
	FFmpegEnv  = "SCREENREC_FFMPEG_PATH"
	FFprobeEnv = "SCREENREC_FFPROBE_PATH"
)

// Resolve returns explicit when it names an existing file, otherwise the
// fallback name unresolved. Only existence is checked, not execute permission;
// a bad binary surfaces when it is spawned. ok is false when both are empty.
func Resolve(explicit, fallback string) (string, bool) {
	explicit = strings.TrimSpace(explicit)
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit, true
		}
	}
	if fallback == "" {
		return "", false
	}
	return fallback, true
}

// Resolver resolves both binaries from environment, configuration and defaults.
type Resolver struct {
	FFmpegPath  string
	FFprobePath string

	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// FFmpeg resolves the encoder binary.
func (r Resolver) FFmpeg() (string, bool) {
	return r.resolve(FFmpegEnv, r.FFmpegPath, FFmpegName)
}

// FFprobe resolves the metadata probe binary.
func (r Resolver) FFprobe() (string, bool) {
	return r.resolve(FFprobeEnv, r.FFprobePath, FFprobeName)
}

func (r Resolver) resolve(envName, configured, fallback string) (string, bool) {
	getenv := r.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if fromEnv := strings.TrimSpace(getenv(envName)); fromEnv != "" {
		if _, err := os.Stat(fromEnv); err == nil {
			return fromEnv, true
		}
	}
	return Resolve(configured, fallback)
}

// Swappable is a Resolver that can be replaced while recorders and API
// handlers hold it, so a config reload reaches the next spawn.
type Swappable struct {
	current atomic.Pointer[Resolver]
}

// NewSwappable creates a Swappable starting with r.
func NewSwappable(r Resolver) *Swappable {
	s := &Swappable{}
	s.Set(r)
	return s
}

// Set replaces the resolver.
func (s *Swappable) Set(r Resolver) {
	s.current.Store(&r)
}

// FFmpeg resolves the encoder binary with the current resolver.
func (s *Swappable) FFmpeg() (string, bool) {
	return s.current.Load().FFmpeg()
}

// FFprobe resolves the metadata probe binary with the current resolver.
func (s *Swappable) FFprobe() (string, bool) {
	return s.current.Load().FFprobe()
}

// LookPath resolves name to an absolute executable path. Paths relative to the
// working directory are accepted, unlike plain exec.LookPath.
func LookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	switch {
	case err == nil:
		return path, nil
	case errors.Is(err, exec.ErrDot):
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("unable to get current working directory: %w", err)
		}
		return exec.LookPath(filepath.Join(wd, name))
	default:
		return "", err
	}
}
