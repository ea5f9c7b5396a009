// Package encoders probes and selects the H.264 encoder used for recording.
package encoders

import (
	"bufio"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/smazurov/screenrec/internal/process"
)

const listTimeout = 10 * time.Second

// Encoder is one line of ffmpeg -encoders output.
type Encoder struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Video       bool   `json:"video"`
	HWAccel     bool   `json:"hwaccel"`
}

var (
	encoderLine = regexp.MustCompile(`^\s*([VASFXBD.]{6})\s+(\S+)\s+(.+)$`)
	hwaccelName = regexp.MustCompile(`(?i)(nvenc|qsv|amf|vaapi|videotoolbox|vdpau|cuda|dxva2|d3d11va|opencl|vulkan)`)
)

// ListEncoders returns the encoders compiled into ffmpegPath.
func ListEncoders(ctx context.Context, ffmpegPath string) ([]Encoder, error) {
	res, err := process.Run(ctx, ffmpegPath, []string{"-hide_banner", "-encoders"}, listTimeout)
	if err != nil {
		return nil, err
	}
	if res.TimedOut {
		return nil, fmt.Errorf("listing encoders timed out after %s", listTimeout)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("ffmpeg -encoders exited with code %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return parseEncoderOutput(string(res.Stdout))
}

// parseEncoderOutput processes the output of ffmpeg -encoders.
func parseEncoderOutput(output string) ([]Encoder, error) {
	var result []Encoder
	scanner := bufio.NewScanner(strings.NewReader(output))

	// Flag legend comes first, the list starts after the " ------" separator.
	started := false
	for scanner.Scan() {
		line := scanner.Text()
		if !started {
			if strings.HasPrefix(strings.TrimSpace(line), "------") {
				started = true
			}
			continue
		}

		m := encoderLine.FindStringSubmatch(line)
		if len(m) != 4 {
			continue
		}
		result = append(result, Encoder{
			Name:        m[2],
			Description: strings.TrimSpace(m[3]),
			Video:       strings.HasPrefix(m[1], "V"),
			HWAccel:     hwaccelName.MatchString(m[2]),
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading encoder list: %w", err)
	}
	return result, nil
}

// Version returns the version token from ffmpeg -version (or ffprobe -version).
func Version(ctx context.Context, binaryPath string) (string, error) {
	res, err := process.Run(ctx, binaryPath, []string{"-version"}, listTimeout)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 || res.TimedOut {
		return "", fmt.Errorf("%s -version failed (exit %d)", binaryPath, res.ExitCode)
	}

	// "ffmpeg version 7.1.1 Copyright ..."
	first, _, _ := strings.Cut(string(res.Stdout), "\n")
	parts := strings.Fields(first)
	if len(parts) >= 3 && parts[1] == "version" {
		return parts[2], nil
	}
	return "unknown", nil
}
