package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/smazurov/screenrec/internal/binaries"
	"github.com/smazurov/screenrec/internal/encoders"
	"github.com/smazurov/screenrec/internal/ffmpeg"
	"github.com/smazurov/screenrec/internal/probe"
	"github.com/smazurov/screenrec/internal/process"
)

// Synthetic encode used to check the full recording chain.
const (
	doctorSize    = "1280x720"
	doctorFPS     = 60
	doctorSeconds = 2
	doctorTimeout = 30 * time.Second
)

// CreateDoctorCmd creates the doctor command.
func CreateDoctorCmd(env *Env) *cobra.Command {
	var keep bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the ffmpeg installation",
		Long: `Resolves ffmpeg and ffprobe, prints their versions, then encodes a short synthetic clip ` +
			`through the same filter graph and encoder a recording would use and verifies it with ffprobe.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := runDoctor(cmd.Context(), os.Stdout, env, keep); err != nil {
				exitf("\n%v", err)
			}
			fmt.Println("\nInstallation OK")
		},
	}

	cmd.Flags().BoolVar(&keep, "keep", false, "Keep the synthetic test recording")
	return cmd
}

func runDoctor(ctx context.Context, w io.Writer, env *Env, keep bool) error {
	var result *multierror.Error
	res := env.binaries()

	ffmpegPath, ok := res.FFmpeg()
	if !ok {
		return fmt.Errorf("ffmpeg not found")
	}
	ffprobePath, ok := res.FFprobe()
	if !ok {
		return fmt.Errorf("ffprobe not found")
	}

	ffmpegOK := checkBinary(ctx, w, "ffmpeg", ffmpegPath, &result)
	ffprobeOK := checkBinary(ctx, w, "ffprobe", ffprobePath, &result)
	if !ffmpegOK {
		return result.ErrorOrNil()
	}

	encoder := env.selector().Select(ctx, ffmpegPath)
	fmt.Fprintf(w, "encoder:   %s\n", encoder)

	dir, err := os.MkdirTemp("", "screenrec-doctor-")
	if err != nil {
		return multierror.Append(result, fmt.Errorf("create temp dir: %w", err))
	}
	if !keep {
		defer os.RemoveAll(dir)
	}
	out := filepath.Join(dir, "doctor.mp4")

	args := ffmpeg.RecordArgs(ffmpeg.RecordParams{
		CaptureArgs: ffmpeg.TestSourceArgs(doctorSize, doctorFPS, doctorSeconds),
		FPS:         doctorFPS,
		EncoderArgs: encoders.Args(encoder),
		OutputPath:  out,
	})

	fmt.Fprintf(w, "\nEncoding %ds %s@%d test clip...\n", doctorSeconds, doctorSize, doctorFPS)
	start := time.Now()
	run, err := process.Run(ctx, ffmpegPath, args, doctorTimeout)
	switch {
	case err != nil:
		return multierror.Append(result, fmt.Errorf("synthetic encode: %w", err))
	case run.TimedOut:
		return multierror.Append(result, fmt.Errorf("synthetic encode timed out after %s", doctorTimeout))
	case run.ExitCode != 0:
		return multierror.Append(result, fmt.Errorf("synthetic encode failed with code %d: %s",
			run.ExitCode, lastLine(run.Stderr)))
	}
	fmt.Fprintf(w, "Encoded in %s\n\n", time.Since(start).Round(time.Millisecond))

	if !ffprobeOK {
		return result.ErrorOrNil()
	}
	p := probe.Probe(ctx, ffprobePath, out, probe.DefaultTimeout)
	printProbe(w, out, p)
	if p == nil {
		result = multierror.Append(result, fmt.Errorf("ffprobe could not read the test recording"))
	} else if p.Video.Codec == nil {
		result = multierror.Append(result, fmt.Errorf("test recording has no video stream"))
	}
	return result.ErrorOrNil()
}

// checkBinary prints the version of path, appending to result when it cannot run.
func checkBinary(ctx context.Context, w io.Writer, name, path string, result **multierror.Error) bool {
	resolved, err := binaries.LookPath(path)
	if err != nil {
		fmt.Fprintf(w, "%-9s  %s (not executable)\n", name+":", path)
		*result = multierror.Append(*result, fmt.Errorf("%s: %w", name, err))
		return false
	}

	v, err := encoders.Version(ctx, resolved)
	if err != nil {
		fmt.Fprintf(w, "%-9s  %s (version check failed)\n", name+":", resolved)
		*result = multierror.Append(*result, fmt.Errorf("%s: %w", name, err))
		return false
	}
	fmt.Fprintf(w, "%-9s  %s (version %s)\n", name+":", resolved, v)
	return true
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
