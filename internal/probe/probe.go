// Package probe reads container and video stream metadata from a finished
// recording with ffprobe.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/smazurov/screenrec/internal/logging"
	"github.com/smazurov/screenrec/internal/process"
)

// DefaultTimeout bounds a single ffprobe run.
const DefaultTimeout = 4 * time.Second

// RecordingProbe summarizes a recording. A nil field means the value was not
// reported or was not a finite number.
type RecordingProbe struct {
	FormatName      *string    `json:"formatName,omitempty"`
	DurationSeconds *float64   `json:"durationSeconds,omitempty"`
	SizeBytes       *int64     `json:"sizeBytes,omitempty"`
	Video           VideoProbe `json:"video"`
}

// VideoProbe describes the first video stream.
type VideoProbe struct {
	Codec        *string  `json:"codec,omitempty"`
	Width        *int     `json:"width,omitempty"`
	Height       *int     `json:"height,omitempty"`
	AvgFrameRate *float64 `json:"avgFrameRate,omitempty"`
	RFrameRate   *float64 `json:"rFrameRate,omitempty"`
	BitRate      *int64   `json:"bitRate,omitempty"`
	PixFmt       *string  `json:"pixFmt,omitempty"`
}

// Args returns the ffprobe command line for file.
func Args(file string) []string {
	return []string{"-v", "error", "-print_format", "json", "-show_format", "-show_streams", file}
}

// Probe runs ffprobe against file. It returns nil when ffprobe cannot be run,
// exits non-zero, times out or prints something that is not ffprobe JSON.
func Probe(ctx context.Context, ffprobePath, file string, timeout time.Duration) *RecordingProbe {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := logging.GetLogger("probe")

	res, err := process.Run(ctx, ffprobePath, Args(file), timeout)
	if err != nil {
		logger.Warn("ffprobe failed to run", "file", file, "error", err)
		return nil
	}
	if res.TimedOut {
		logger.Warn("ffprobe timed out", "file", file, "timeout", timeout)
		return nil
	}
	if res.ExitCode != 0 {
		logger.Warn("ffprobe failed", "file", file, "exit_code", res.ExitCode, "stderr", strings.TrimSpace(res.Stderr))
		return nil
	}

	pr, err := ParseJSON(res.Stdout)
	if err != nil {
		logger.Warn("Failed to parse ffprobe output", "file", file, "error", err)
		return nil
	}
	return pr
}

// ParseJSON converts raw ffprobe JSON output into a RecordingProbe.
func ParseJSON(data []byte) (*RecordingProbe, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse ffprobe JSON: %w", err)
	}
	return buildResult(&raw), nil
}

// ParseRate parses a rational "num/den" rate. ok is false for a zero
// denominator, a malformed value or a non-finite result.
func ParseRate(value string) (float64, bool) {
	numStr, denStr, found := strings.Cut(strings.TrimSpace(value), "/")
	if !found {
		return finite(numStr)
	}
	num, ok := finite(numStr)
	if !ok {
		return 0, false
	}
	den, ok := finite(denStr)
	if !ok || den == 0 {
		return 0, false
	}
	return finiteValue(num / den)
}

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	FormatName *string    `json:"format_name"`
	Duration   flexNumber `json:"duration"`
	Size       flexNumber `json:"size"`
}

type ffprobeStream struct {
	CodecType    string     `json:"codec_type"`
	CodecName    *string    `json:"codec_name"`
	Width        flexNumber `json:"width"`
	Height       flexNumber `json:"height"`
	AvgFrameRate string     `json:"avg_frame_rate"`
	RFrameRate   string     `json:"r_frame_rate"`
	BitRate      flexNumber `json:"bit_rate"`
	PixFmt       *string    `json:"pix_fmt"`
}

// flexNumber holds a JSON number or numeric string as text. ffprobe prints
// dimensions as numbers and most other values as strings.
type flexNumber string

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	} else {
		var num json.Number
		if err := json.Unmarshal(b, &num); err != nil {
			// Not a number either; treat as unavailable.
			return nil
		}
		s = num.String()
	}
	*n = flexNumber(s)
	return nil
}

// --- Conversion from wire types ---

func buildResult(raw *ffprobeOutput) *RecordingProbe {
	pr := &RecordingProbe{
		FormatName:      raw.Format.FormatName,
		DurationSeconds: floatPtr(string(raw.Format.Duration)),
		SizeBytes:       int64Ptr(string(raw.Format.Size)),
	}

	for i := range raw.Streams {
		s := &raw.Streams[i]
		if s.CodecType != "video" {
			continue
		}
		pr.Video = VideoProbe{
			Codec:   s.CodecName,
			Width:   intPtr(string(s.Width)),
			Height:  intPtr(string(s.Height)),
			BitRate: int64Ptr(string(s.BitRate)),
			PixFmt:  s.PixFmt,
		}
		if v, ok := ParseRate(s.AvgFrameRate); ok {
			pr.Video.AvgFrameRate = &v
		}
		if v, ok := ParseRate(s.RFrameRate); ok {
			pr.Video.RFrameRate = &v
		}
		break
	}
	return pr
}

func finite(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return finiteValue(v)
}

func finiteValue(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func floatPtr(s string) *float64 {
	v, ok := finite(s)
	if !ok {
		return nil
	}
	return &v
}

func int64Ptr(s string) *int64 {
	v, ok := finite(s)
	if !ok || v > math.MaxInt64 || v < math.MinInt64 {
		return nil
	}
	n := int64(v)
	return &n
}

func intPtr(s string) *int {
	v, ok := finite(s)
	if !ok || v > math.MaxInt32 || v < math.MinInt32 {
		return nil
	}
	n := int(v)
	return &n
}
