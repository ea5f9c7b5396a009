// Package ffmpeg builds ffmpeg command lines and parses what ffmpeg prints.
package ffmpeg

import (
	"math"
	"strconv"
	"strings"
)

// DefaultFPS is used when the requested frame rate is not usable.
const DefaultFPS = 60

// NormalizeFPS rounds fps to an integer, replacing non-finite or
// non-positive values with DefaultFPS.
func NormalizeFPS(fps float64) int {
	if math.IsNaN(fps) || math.IsInf(fps, 0) || fps <= 0 {
		return DefaultFPS
	}
	n := int(math.Round(fps))
	if n <= 0 {
		return DefaultFPS
	}
	return n
}

// VideoFilters returns the recording filter chain: constant frame rate,
// then yuv420p, then even dimensions.
func VideoFilters(fps float64) []string {
	return []string{
		"fps=" + strconv.Itoa(NormalizeFPS(fps)),
		"format=yuv420p",
		"scale=trunc(iw/2)*2:trunc(ih/2)*2",
	}
}

// FilterGraph joins VideoFilters into a single -vf expression.
func FilterGraph(fps float64) string {
	return strings.Join(VideoFilters(fps), ",")
}

// RecordParams holds the pieces of a recording command line.
type RecordParams struct {
	CaptureArgs []string
	FPS         float64
	EncoderArgs []string
	OutputPath  string
	// Progress adds -progress pipe:1 so stdout carries key=value progress blocks.
	Progress bool
}

// RecordArgs assembles the full ffmpeg argument vector for a recording.
// The output path is always the last element.
func RecordArgs(p RecordParams) []string {
	args := make([]string, 0, len(p.CaptureArgs)+len(p.EncoderArgs)+12)
	args = append(args, "-hide_banner", "-y")
	args = append(args, LogLevelArgs...)
	if p.Progress {
		args = append(args, "-progress", "pipe:1", "-nostats")
	}
	args = append(args, p.CaptureArgs...)
	args = append(args, "-vf", FilterGraph(p.FPS))
	args = append(args, p.EncoderArgs...)
	args = append(args, "-movflags", "+faststart", p.OutputPath)
	return args
}

// TestSourceArgs returns a lavfi testsrc2 input of the given size, rate and duration.
func TestSourceArgs(size string, fps int, seconds float64) []string {
	return []string{
		"-f", "lavfi",
		"-i", "testsrc2=size=" + size + ":rate=" + strconv.Itoa(fps),
		"-t", strconv.FormatFloat(seconds, 'f', -1, 64),
	}
}
