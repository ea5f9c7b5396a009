package recorder

import (
	"time"

	"github.com/smazurov/screenrec/internal/capture"
	"github.com/smazurov/screenrec/internal/ffmpeg"
	"github.com/smazurov/screenrec/internal/probe"
)

// Backend identifies this recorder in results.
const Backend = "ffmpeg"

// Failure reasons, used as metric labels and in failure events.
const (
	ReasonConflict      = "conflict"
	ReasonResolution    = "resolution"
	ReasonCaptureArgs   = "capture_args"
	ReasonOutputDir     = "output_dir"
	ReasonSpawn         = "spawn"
	ReasonEarlyExit     = "early_exit"
	ReasonNoSession     = "no_session"
	ReasonMissingOutput = "missing_output"
	ReasonExitCode      = "exit_code"
)

// Result messages.
const (
	MsgAlreadyRecording = "Recording already in progress."
	MsgFFmpegNotFound   = "FFmpeg not found."
	MsgFFprobeNotFound  = "FFprobe not found."
	MsgNoSession        = "No active recording session."
	MsgStopInProgress   = "Stop already in progress."
	MsgNoOutput         = "Recording did not produce an output file."
)

// StartOptions describes one recording.
type StartOptions struct {
	// FPS is normalized with ffmpeg.NormalizeFPS.
	FPS float64
	// OutputPath is the file to write. Empty generates one in the
	// configured recordings directory.
	OutputPath string
	Target     capture.Target
}

// StartResult is returned by Start. Success is false with a Message on
// every failure path.
type StartResult struct {
	Success     bool   `json:"success"`
	Backend     string `json:"backend"`
	Message     string `json:"message,omitempty"`
	FFmpegPath  string `json:"ffmpegPath,omitempty"`
	FFprobePath string `json:"ffprobePath,omitempty"`
	Encoder     string `json:"encoder,omitempty"`
	OutputPath  string `json:"outputPath,omitempty"`

	// Reason classifies a failure (one of the Reason constants).
	Reason string `json:"-"`
}

// StopResult is returned by Stop. A failed stop may still carry Path and
// Probe when ffmpeg produced a file.
type StopResult struct {
	Success bool                  `json:"success"`
	Backend string                `json:"backend"`
	Message string                `json:"message,omitempty"`
	Path    string                `json:"path,omitempty"`
	Probe   *probe.RecordingProbe `json:"probe,omitempty"`

	ExitCode int           `json:"-"`
	Forced   bool          `json:"-"`
	Duration time.Duration `json:"-"`
	Reason   string        `json:"-"`
}

// Status is a snapshot of the recorder.
type Status struct {
	State      State            `json:"state"`
	Recording  bool             `json:"recording"`
	OutputPath string           `json:"outputPath,omitempty"`
	Encoder    string           `json:"encoder,omitempty"`
	Target     string           `json:"target,omitempty"`
	FPS        int              `json:"fps,omitempty"`
	PID        int              `json:"pid,omitempty"`
	StartedAt  *time.Time       `json:"startedAt,omitempty"`
	Elapsed    time.Duration    `json:"-"`
	Progress   *ffmpeg.Progress `json:"progress,omitempty"`
}
