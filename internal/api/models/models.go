package models

import (
	"time"

	"github.com/smazurov/screenrec/internal/capture"
	"github.com/smazurov/screenrec/internal/displays"
	"github.com/smazurov/screenrec/internal/encoders"
	"github.com/smazurov/screenrec/internal/ffmpeg"
	"github.com/smazurov/screenrec/internal/probe"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2024-12-15 14:30" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"a1b2c3d4" doc:"Unique build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.0" doc:"Go compiler version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Compiler used"`
	Platform  string `json:"platform" example:"windows/amd64" doc:"Platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Recording models
type TargetKind string

const (
	TargetScreen TargetKind = "screen"
	TargetWindow TargetKind = "window"
)

// TargetData selects what to record. A screen target uses Bounds when
// given, otherwise the full bounds of display Display. A window target
// tries Title and then each of Titles until one starts.
type TargetData struct {
	Kind    TargetKind      `json:"kind" enum:"screen,window" example:"screen" doc:"Capture target kind"`
	Display int             `json:"display,omitempty" minimum:"0" example:"0" doc:"Display index for screen targets"`
	Bounds  *capture.Bounds `json:"bounds,omitempty" doc:"Region in desktop pixels; odd sizes are floored to even"`
	Title   string          `json:"title,omitempty" example:"Untitled - Notepad" doc:"Window title for window targets"`
	Titles  []string        `json:"titles,omitempty" doc:"Additional window title candidates, tried in order"`
}

type StartRecordingRequestData struct {
	FPS        float64    `json:"fps,omitempty" example:"60" doc:"Frame rate; non-positive uses the configured default"`
	OutputPath string     `json:"outputPath,omitempty" example:"C:/Users/me/Videos/demo.mp4" doc:"Output file; generated in the recordings directory when empty"`
	Target     TargetData `json:"target" doc:"What to record"`
}

type StartRecordingRequest struct {
	Body StartRecordingRequestData
}

type StartRecordingData struct {
	Success     bool   `json:"success" doc:"Whether ffmpeg is recording"`
	Backend     string `json:"backend" example:"ffmpeg" doc:"Recording backend"`
	Message     string `json:"message,omitempty" doc:"Failure description"`
	Reason      string `json:"reason,omitempty" example:"early_exit" doc:"Failure classification"`
	FFmpegPath  string `json:"ffmpegPath,omitempty" doc:"Resolved ffmpeg binary"`
	FFprobePath string `json:"ffprobePath,omitempty" doc:"Resolved ffprobe binary"`
	Encoder     string `json:"encoder,omitempty" example:"h264_nvenc" doc:"Selected encoder"`
	OutputPath  string `json:"outputPath,omitempty" doc:"Recording file"`
}

type StartRecordingResponse struct {
	Body StartRecordingData
}

type StopRecordingData struct {
	Success         bool                  `json:"success" doc:"Whether a usable recording was produced"`
	Backend         string                `json:"backend" example:"ffmpeg" doc:"Recording backend"`
	Message         string                `json:"message,omitempty" doc:"Failure description"`
	Reason          string                `json:"reason,omitempty" example:"exit_code" doc:"Failure classification"`
	Path            string                `json:"path,omitempty" doc:"Recording file, also present on some failures"`
	Probe           *probe.RecordingProbe `json:"probe,omitempty" doc:"ffprobe metadata when available"`
	Forced          bool                  `json:"forced" doc:"ffmpeg ignored the quit command and was killed"`
	DurationSeconds float64               `json:"durationSeconds,omitempty" example:"12.5" doc:"Wall clock recording time"`
}

type StopRecordingResponse struct {
	Body StopRecordingData
}

type RecordingStatusData struct {
	State          string           `json:"state" enum:"idle,starting,recording,stopping" example:"recording" doc:"Recorder state"`
	Recording      bool             `json:"recording" doc:"Whether a session exists"`
	OutputPath     string           `json:"outputPath,omitempty" doc:"Recording file"`
	Encoder        string           `json:"encoder,omitempty" example:"libx264" doc:"Encoder in use"`
	Target         string           `json:"target,omitempty" example:"screen" doc:"Capture target kind"`
	FPS            int              `json:"fps,omitempty" example:"60" doc:"Normalized frame rate"`
	PID            int              `json:"pid,omitempty" doc:"ffmpeg process id"`
	StartedAt      *time.Time       `json:"startedAt,omitempty" doc:"When recording started"`
	ElapsedSeconds float64          `json:"elapsedSeconds,omitempty" example:"12.5" doc:"Seconds since start"`
	Progress       *ffmpeg.Progress `json:"progress,omitempty" doc:"Latest ffmpeg progress block"`
}

type RecordingStatusResponse struct {
	Body RecordingStatusData
}

type LatestRecordingData struct {
	Path    string    `json:"path" doc:"Recording file"`
	Size    int64     `json:"size" example:"1048576" doc:"File size in bytes"`
	ModTime time.Time `json:"modTime" doc:"Last modification time"`
}

type LatestRecordingResponse struct {
	Body LatestRecordingData
}

// Encoder models
type EncoderData struct {
	Platform      string                     `json:"platform" example:"windows" doc:"Platform the candidates were chosen for"`
	FFmpegPath    string                     `json:"ffmpeg_path" doc:"ffmpeg binary used for probing"`
	FFmpegVersion string                     `json:"ffmpeg_version" example:"7.1" doc:"ffmpeg version"`
	Selected      string                     `json:"selected" example:"h264_nvenc" doc:"Encoder a recording would use"`
	Encoders      []encoders.ValidationEntry `json:"encoders" doc:"Probe result per candidate, in selection order"`
}

type EncodersResponse struct {
	Body EncoderData
}

// Display models
type DisplayListData struct {
	Displays []displays.Display `json:"displays" doc:"Active displays"`
	Count    int                `json:"count" example:"2" doc:"Number of active displays"`
}

type DisplayListResponse struct {
	Body DisplayListData
}

// Log models
type LogEntryData struct {
	Timestamp  time.Time      `json:"timestamp" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"recorder" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

type LogListData struct {
	Entries []LogEntryData `json:"entries" doc:"Most recent log entries, oldest first"`
	Count   int            `json:"count" doc:"Number of entries"`
}

type LogListResponse struct {
	Body LogListData
}
