package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/smazurov/screenrec/internal/capture"
	"github.com/smazurov/screenrec/internal/displays"
	"github.com/smazurov/screenrec/internal/recorder"
)

// targetFlags selects what the record command captures.
type targetFlags struct {
	display int
	region  string
	windows []string
}

// targets returns the capture targets in the order they should be tried.
func (f targetFlags) targets(src displays.Source) ([]capture.Target, error) {
	if len(f.windows) > 0 {
		titles := capture.WindowTitles(f.windows)
		if len(titles) == 0 {
			return nil, capture.ErrInvalidWindowTitle
		}
		targets := make([]capture.Target, len(titles))
		for i, title := range titles {
			targets[i] = capture.Window{Title: title}
		}
		return targets, nil
	}

	if f.region != "" {
		bounds, err := parseRegion(f.region)
		if err != nil {
			return nil, err
		}
		return []capture.Target{capture.Screen{Bounds: bounds.Even(), DisplayIndex: f.display}}, nil
	}

	screen, err := displays.TargetFor(src, f.display)
	if err != nil {
		return nil, err
	}
	return []capture.Target{screen}, nil
}

// parseRegion reads WxH+X+Y, the format capture.Bounds prints.
func parseRegion(s string) (capture.Bounds, error) {
	var b capture.Bounds
	n, err := fmt.Sscanf(s, "%dx%d+%d+%d", &b.Width, &b.Height, &b.X, &b.Y)
	if err != nil || n != 4 {
		return capture.Bounds{}, fmt.Errorf("invalid region %q, want WxH+X+Y", s)
	}
	if b.Width <= 0 || b.Height <= 0 {
		return capture.Bounds{}, fmt.Errorf("invalid region %q: size must be positive", s)
	}
	return b, nil
}

// CreateRecordCmd creates the record command.
func CreateRecordCmd(env *Env) *cobra.Command {
	var flags targetFlags
	var fps float64
	var output string
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record the screen or a window until interrupted",
		Long: `Starts ffmpeg for a display, a screen region or a window and records until Ctrl-C ` +
			`or until --duration elapses, then stops ffmpeg gracefully and verifies the file with ffprobe.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			targets, err := flags.targets(displays.System)
			if err != nil {
				exitf("Invalid target: %v", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rec := env.newRecorder()
			res := rec.StartFirst(ctx, recorder.StartOptions{FPS: fps, OutputPath: output}, targets)
			if !res.Success {
				exitf("Failed to start recording: %s", res.Message)
			}
			fmt.Printf("Recording to %s with %s (Ctrl-C to stop)\n", res.OutputPath, res.Encoder)

			waitForStop(ctx, rec, duration)
			fmt.Println()

			stopped := rec.Stop(context.Background())
			if stopped.Path != "" {
				printProbe(os.Stdout, stopped.Path, stopped.Probe)
			}
			if !stopped.Success {
				exitf("Recording failed: %s", stopped.Message)
			}
			fmt.Printf("Recorded %s", stopped.Duration.Round(time.Second))
			if stopped.Forced {
				fmt.Print(" (ffmpeg was killed)")
			}
			fmt.Println()
		},
	}

	cmd.Flags().IntVarP(&flags.display, "display", "d", 0, "Display index to record")
	cmd.Flags().StringVarP(&flags.region, "region", "r", "", "Screen region as WxH+X+Y in desktop pixels")
	cmd.Flags().StringArrayVarP(&flags.windows, "window", "w", nil, "Window title; repeat to try several titles in order")
	cmd.Flags().Float64Var(&fps, "fps", 0, "Frame rate (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: generated in the recordings directory)")
	cmd.Flags().DurationVarP(&duration, "duration", "t", 0, "Stop automatically after this long")
	cmd.MarkFlagsMutuallyExclusive("region", "window")

	return cmd
}

// waitForStop blocks until ctx is cancelled, duration elapses or ffmpeg
// exits on its own, printing a progress line every second.
func waitForStop(ctx context.Context, rec *recorder.Recorder, duration time.Duration) {
	var deadline <-chan time.Time
	if duration > 0 {
		timer := time.NewTimer(duration)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case <-ticker.C:
			st := rec.Status()
			if !st.Recording {
				return
			}
			fmt.Print("\r" + progressLine(st))
		}
	}
}

func progressLine(st recorder.Status) string {
	line := st.Elapsed.Round(time.Second).String()
	if p := st.Progress; p != nil {
		line += fmt.Sprintf("  frame=%s fps=%.1f speed=%.2fx size=%s",
			humanize.Comma(p.Frame), p.FPS, p.Speed, humanize.Bytes(uint64(max(p.TotalSize, 0))))
		if p.DroppedFrames > 0 {
			line += fmt.Sprintf(" dropped=%d", p.DroppedFrames)
		}
	}
	return line
}
