package encoders

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// ValidationEntry is the probe outcome for one candidate encoder.
type ValidationEntry struct {
	Encoder     string        `json:"encoder" toml:"encoder"`
	Description string        `json:"description" toml:"description"`
	Hardware    bool          `json:"hardware" toml:"hardware"`
	Compiled    bool          `json:"compiled" toml:"compiled"`
	OK          bool          `json:"ok" toml:"ok"`
	Error       string        `json:"error,omitempty" toml:"error,omitempty"`
	Duration    time.Duration `json:"duration_ns" toml:"duration"`
}

// ValidationReport lists every platform candidate and the one a recording would use.
type ValidationReport struct {
	Timestamp     time.Time         `json:"timestamp" toml:"timestamp"`
	Platform      string            `json:"platform" toml:"platform"`
	FFmpegPath    string            `json:"ffmpeg_path" toml:"ffmpeg_path"`
	FFmpegVersion string            `json:"ffmpeg_version" toml:"ffmpeg_version"`
	Selected      string            `json:"selected" toml:"selected"`
	Entries       []ValidationEntry `json:"entries" toml:"encoders"`
}

// ValidateAll probes every candidate for goos, including those after the
// first success, so the report shows the full picture.
func ValidateAll(ctx context.Context, ffmpegPath, goos string, timeout time.Duration) ValidationReport {
	report := ValidationReport{
		Timestamp:     time.Now(),
		Platform:      goos,
		FFmpegPath:    ffmpegPath,
		FFmpegVersion: "unknown",
		Selected:      Software,
	}

	if v, err := Version(ctx, ffmpegPath); err == nil {
		report.FFmpegVersion = v
	}

	compiled := make(map[string]bool)
	listed, listErr := ListEncoders(ctx, ffmpegPath)
	for _, e := range listed {
		compiled[e.Name] = true
	}

	selected := false
	for _, name := range Candidates(goos) {
		profile := ProfileFor(name)
		entry := ValidationEntry{
			Encoder:     name,
			Description: profile.Description,
			Hardware:    profile.Hardware,
			Compiled:    listErr == nil && compiled[name],
		}

		start := time.Now()
		res := Probe(ctx, ffmpegPath, name, timeout)
		entry.Duration = time.Since(start)
		entry.OK = res.OK
		entry.Error = res.Error

		if res.OK && !selected {
			report.Selected = name
			selected = true
		}
		report.Entries = append(report.Entries, entry)
	}

	return report
}

// PrintValidationSummary writes a human readable summary of report.
func PrintValidationSummary(w io.Writer, report ValidationReport) {
	fmt.Fprintln(w, "=== ENCODER VALIDATION ===")
	fmt.Fprintf(w, "ffmpeg: %s (version %s)\n", report.FFmpegPath, report.FFmpegVersion)
	fmt.Fprintf(w, "platform: %s\n\n", report.Platform)

	for _, e := range report.Entries {
		status := "✓ WORKING"
		if !e.OK {
			status = "✗ FAILED"
		}
		kind := "software"
		if e.Hardware {
			kind = "hardware"
		}
		fmt.Fprintf(w, "%-18s %-9s %s (%s)\n", e.Encoder, kind, status, e.Duration.Round(time.Millisecond))
		if e.Error != "" {
			fmt.Fprintf(w, "    %s\n", firstLine(e.Error))
		}
	}

	fmt.Fprintf(w, "\nSelected encoder: %s\n", report.Selected)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
