package api

import (
	"context"
	"net/http"
	"runtime"
	"sync"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/screenrec/internal/api/models"
	"github.com/smazurov/screenrec/internal/encoders"
)

// encoderCache holds the last validation report. Probing every candidate
// takes seconds, so the report is only rebuilt on request or when the
// ffmpeg binary changes.
type encoderCache struct {
	mu     sync.Mutex
	report *encoders.ValidationReport
}

func (c *encoderCache) get(ctx context.Context, ffmpegPath, goos string, refresh bool) encoders.ValidationReport {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !refresh && c.report != nil && c.report.FFmpegPath == ffmpegPath && c.report.Platform == goos {
		return *c.report
	}
	report := encoders.ValidateAll(ctx, ffmpegPath, goos, encoders.DefaultProbeTimeout)
	c.report = &report
	return report
}

type listEncodersInput struct {
	Refresh bool `query:"refresh" doc:"Probe again instead of returning the cached report"`
}

// registerEncoderRoutes registers all encoder-related endpoints
func (s *Server) registerEncoderRoutes() {
	cache := &encoderCache{}

	huma.Register(s.api, huma.Operation{
		OperationID: "list-encoders",
		Method:      http.MethodGet,
		Path:        "/api/encoders",
		Summary:     "List Encoders",
		Description: "Probe every H.264 candidate for this platform and report which one a recording would use",
		Tags:        []string{"encoders"},
		Security:    withAuth(),
		Errors:      []int{401, 503},
	}, func(ctx context.Context, input *listEncodersInput) (*models.EncodersResponse, error) {
		if s.options.Binaries == nil {
			return nil, huma.Error503ServiceUnavailable("FFmpeg not found.")
		}
		ffmpegPath, ok := s.options.Binaries.FFmpeg()
		if !ok {
			return nil, huma.Error503ServiceUnavailable("FFmpeg not found.")
		}

		goos := s.options.GOOS
		if goos == "" {
			goos = runtime.GOOS
		}

		report := cache.get(ctx, ffmpegPath, goos, input.Refresh)
		return &models.EncodersResponse{
			Body: models.EncoderData{
				Platform:      report.Platform,
				FFmpegPath:    report.FFmpegPath,
				FFmpegVersion: report.FFmpegVersion,
				Selected:      report.Selected,
				Encoders:      report.Entries,
			},
		}, nil
	})
}
