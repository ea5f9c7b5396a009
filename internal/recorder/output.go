package recorder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNoRecordings is returned by LatestRecording when the directory holds no recordings.
var ErrNoRecordings = errors.New("no recordings found")

var recordingExtensions = map[string]bool{
	".mp4":  true,
	".webm": true,
}

// Recording is a finished file in the recordings directory.
type Recording struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// DefaultRecordingsDir returns ~/Videos/screenrec, or a directory under the
// system temp dir when there is no home directory.
func DefaultRecordingsDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), "screenrec")
	}
	return filepath.Join(home, "Videos", "screenrec")
}

// OutputPath returns dir/recording-<unix-ms>.mp4.
func OutputPath(dir string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("recording-%d.mp4", now.UnixMilli()))
}

// LatestRecording returns the most recently modified recording in dir.
// Subdirectories are not searched.
func LatestRecording(dir string) (Recording, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Recording{}, ErrNoRecordings
		}
		return Recording{}, fmt.Errorf("read recordings dir: %w", err)
	}

	var latest Recording
	for _, entry := range entries {
		if entry.IsDir() || !recordingExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if latest.Path == "" || info.ModTime().After(latest.ModTime) {
			latest = Recording{
				Path:    filepath.Join(dir, entry.Name()),
				Size:    info.Size(),
				ModTime: info.ModTime(),
			}
		}
	}

	if latest.Path == "" {
		return Recording{}, ErrNoRecordings
	}
	return latest, nil
}
