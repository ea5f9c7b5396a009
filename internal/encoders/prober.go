package encoders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smazurov/screenrec/internal/ffmpeg"
	"github.com/smazurov/screenrec/internal/process"
)

// DefaultProbeTimeout bounds a single encoder probe.
const DefaultProbeTimeout = 4 * time.Second

// ProbeResult reports whether an encoder worked for a short synthetic encode.
type ProbeResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// ProbeArgs returns the command line for a 0.2s testsrc2 encode through encoder.
func ProbeArgs(encoder string) []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	args = append(args, ffmpeg.TestSourceArgs("128x128", 30, 0.2)...)
	return append(args, "-c:v", encoder, "-f", "null", "-")
}

// Probe checks that ffmpegPath can encode with encoder. A probe that does not
// finish within timeout is killed and reported as failed.
func Probe(ctx context.Context, ffmpegPath, encoder string, timeout time.Duration) ProbeResult {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	res, err := process.Run(ctx, ffmpegPath, ProbeArgs(encoder), timeout)
	if err != nil {
		return ProbeResult{Error: err.Error()}
	}
	if res.TimedOut {
		return ProbeResult{Error: "encoder probe timeout"}
	}
	if res.ExitCode != 0 {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = fmt.Sprintf("exit %d", res.ExitCode)
		}
		return ProbeResult{Error: msg}
	}
	return ProbeResult{OK: true}
}
