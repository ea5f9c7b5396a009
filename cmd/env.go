package cmd

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/smazurov/screenrec/internal/binaries"
	"github.com/smazurov/screenrec/internal/config"
	"github.com/smazurov/screenrec/internal/encoders"
	"github.com/smazurov/screenrec/internal/logging"
	"github.com/smazurov/screenrec/internal/probe"
	"github.com/smazurov/screenrec/internal/recorder"
)

// Env carries the resolved root options into subcommands. The root command
// fills it before any subcommand runs.
type Env struct {
	Recorder config.RecorderSettings
	// GOOS overrides the platform used for capture and encoder candidates.
	GOOS string
}

func (e *Env) goos() string {
	if e.GOOS != "" {
		return e.GOOS
	}
	return runtime.GOOS
}

func (e *Env) binaries() binaries.Resolver {
	return binaries.Resolver{
		FFmpegPath:  e.Recorder.FFmpegPath,
		FFprobePath: e.Recorder.FFprobePath,
	}
}

// selector pins the configured encoder or probes the platform candidates.
func (e *Env) selector() encoders.Selector {
	if e.Recorder.Encoder != "" {
		return encoders.Fixed(e.Recorder.Encoder)
	}
	s := encoders.NewProbeSelector(logging.GetLogger("encoders"), nil)
	s.GOOS = e.goos()
	return s
}

func (e *Env) newRecorder() *recorder.Recorder {
	return recorder.New(recorder.Config{
		Binaries:      e.binaries(),
		Selector:      e.selector(),
		GOOS:          e.goos(),
		RecordingsDir: e.Recorder.RecordingsDir,
		DefaultFPS:    e.Recorder.DefaultFPS,
	})
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// printProbe writes a one-screen summary of an ffprobe result.
func printProbe(w io.Writer, path string, p *probe.RecordingProbe) {
	fmt.Fprintf(w, "File:      %s\n", path)
	if p == nil {
		fmt.Fprintln(w, "Probe:     unavailable")
		return
	}
	if p.FormatName != nil {
		fmt.Fprintf(w, "Format:    %s\n", *p.FormatName)
	}
	if p.DurationSeconds != nil {
		d := time.Duration(*p.DurationSeconds * float64(time.Second))
		fmt.Fprintf(w, "Duration:  %s\n", d.Round(10*time.Millisecond))
	}
	if p.SizeBytes != nil && *p.SizeBytes >= 0 {
		fmt.Fprintf(w, "Size:      %s\n", humanize.Bytes(uint64(*p.SizeBytes)))
	}

	v := p.Video
	var parts []string
	if v.Codec != nil {
		parts = append(parts, *v.Codec)
	}
	if v.Width != nil && v.Height != nil {
		parts = append(parts, fmt.Sprintf("%dx%d", *v.Width, *v.Height))
	}
	if v.PixFmt != nil {
		parts = append(parts, *v.PixFmt)
	}
	if v.AvgFrameRate != nil {
		parts = append(parts, humanize.FtoaWithDigits(*v.AvgFrameRate, 2)+" fps")
	}
	if v.BitRate != nil && *v.BitRate >= 0 {
		parts = append(parts, humanize.Bytes(uint64(*v.BitRate/8))+"/s")
	}
	if len(parts) == 0 {
		fmt.Fprintln(w, "Video:     none")
		return
	}
	fmt.Fprintf(w, "Video:     %s\n", strings.Join(parts, ", "))
}
