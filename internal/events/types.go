package events

// Event type constants for kelindar/event.
const (
	TypeRecordingStateChanged uint32 = iota + 1
	TypeRecordingStarted
	TypeRecordingStopped
	TypeRecordingFailed
	TypeRecordingExited
	TypeRecordingProgress
	TypeEncoderProbed
	TypeConfigReloaded
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// RecordingStateChangedEvent is published on every recorder state transition.
type RecordingStateChangedEvent struct {
	From      string `json:"from" example:"starting" doc:"Previous recorder state"`
	To        string `json:"to" example:"recording" doc:"New recorder state"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Transition timestamp"`
}

// Type returns the event type identifier for RecordingStateChangedEvent.
func (e RecordingStateChangedEvent) Type() uint32 { return TypeRecordingStateChanged }

// RecordingStartedEvent is published once ffmpeg survived its startup window.
type RecordingStartedEvent struct {
	OutputPath string `json:"output_path" example:"/home/me/Videos/recording-1738000000000.mp4" doc:"Recording file"`
	Encoder    string `json:"encoder" example:"h264_nvenc" doc:"Selected encoder"`
	Target     string `json:"target" example:"screen" doc:"Capture target kind"`
	FPS        int    `json:"fps" example:"60" doc:"Normalized frame rate"`
	PID        int    `json:"pid" example:"4242" doc:"ffmpeg process id"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Start timestamp"`
}

// Type returns the event type identifier for RecordingStartedEvent.
func (e RecordingStartedEvent) Type() uint32 { return TypeRecordingStarted }

// RecordingStoppedEvent is published when a stop request completes, successfully or not.
type RecordingStoppedEvent struct {
	OutputPath      string  `json:"output_path" doc:"Recording file"`
	Success         bool    `json:"success" doc:"Whether the recording is usable"`
	Message         string  `json:"message,omitempty" doc:"Failure description"`
	ExitCode        int     `json:"exit_code" example:"0" doc:"ffmpeg exit code"`
	Forced          bool    `json:"forced" doc:"ffmpeg ignored the quit command and was killed"`
	DurationSeconds float64 `json:"duration_seconds" example:"12.5" doc:"Wall clock recording time"`
	Timestamp       string  `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Stop timestamp"`
}

// Type returns the event type identifier for RecordingStoppedEvent.
func (e RecordingStoppedEvent) Type() uint32 { return TypeRecordingStopped }

// RecordingFailedEvent is published when a start or stop request fails.
type RecordingFailedEvent struct {
	Operation string `json:"operation" example:"start" doc:"start or stop"`
	Reason    string `json:"reason" example:"early_exit" doc:"Failure classification"`
	Message   string `json:"message" doc:"Failure description"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Failure timestamp"`
}

// Type returns the event type identifier for RecordingFailedEvent.
func (e RecordingFailedEvent) Type() uint32 { return TypeRecordingFailed }

// RecordingExitedEvent is published when ffmpeg exits on its own with a non-zero code.
type RecordingExitedEvent struct {
	OutputPath string `json:"output_path" doc:"Recording file"`
	ExitCode   int    `json:"exit_code" example:"1" doc:"ffmpeg exit code"`
	Stderr     string `json:"stderr,omitempty" doc:"Tail of ffmpeg standard error"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Exit timestamp"`
}

// Type returns the event type identifier for RecordingExitedEvent.
func (e RecordingExitedEvent) Type() uint32 { return TypeRecordingExited }

// RecordingProgressEvent carries one ffmpeg progress block.
type RecordingProgressEvent struct {
	Frame           int64   `json:"frame" example:"600" doc:"Frames encoded"`
	FPS             float64 `json:"fps" example:"59.9" doc:"Current encoding rate"`
	Speed           float64 `json:"speed" example:"1.0" doc:"Encoding speed relative to real time"`
	DroppedFrames   int64   `json:"drop_frames" example:"0" doc:"Frames dropped"`
	DuplicateFrames int64   `json:"dup_frames" example:"2" doc:"Frames duplicated"`
	TotalSize       int64   `json:"total_size" example:"1048576" doc:"Bytes written"`
	OutTime         string  `json:"out_time,omitempty" example:"00:00:10.000000" doc:"Encoded media time"`
	Timestamp       string  `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Progress timestamp"`
}

// Type returns the event type identifier for RecordingProgressEvent.
func (e RecordingProgressEvent) Type() uint32 { return TypeRecordingProgress }

// EncoderProbedEvent reports one encoder probe.
type EncoderProbedEvent struct {
	Encoder    string `json:"encoder" example:"h264_qsv" doc:"Probed encoder"`
	OK         bool   `json:"ok" doc:"Whether the encoder works on this machine"`
	Error      string `json:"error,omitempty" doc:"Probe failure"`
	DurationMs int64  `json:"duration_ms" example:"350" doc:"Probe duration"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Probe timestamp"`
}

// Type returns the event type identifier for EncoderProbedEvent.
func (e EncoderProbedEvent) Type() uint32 { return TypeEncoderProbed }

// ConfigReloadedEvent is published after the config file was re-read.
type ConfigReloadedEvent struct {
	Path      string `json:"path" example:"config.toml" doc:"Config file"`
	Error     string `json:"error,omitempty" doc:"Reload failure"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Reload timestamp"`
}

// Type returns the event type identifier for ConfigReloadedEvent.
func (e ConfigReloadedEvent) Type() uint32 { return TypeConfigReloaded }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"recorder" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
