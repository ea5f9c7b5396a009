package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/screenrec/internal/api/models"
	"github.com/smazurov/screenrec/internal/capture"
	"github.com/smazurov/screenrec/internal/displays"
	"github.com/smazurov/screenrec/internal/recorder"
)

// registerRecordingRoutes registers the recording lifecycle endpoints.
// Start and stop always answer 200 with a success flag; recorder failures
// are results, not HTTP errors.
func (s *Server) registerRecordingRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "start-recording",
		Method:      http.MethodPost,
		Path:        "/api/recording/start",
		Summary:     "Start Recording",
		Description: "Select an encoder, spawn ffmpeg for the target and wait for it to survive its startup window",
		Tags:        []string{"recording"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 422},
	}, func(ctx context.Context, input *models.StartRecordingRequest) (*models.StartRecordingResponse, error) {
		targets, err := s.targetsFor(input.Body.Target)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}

		opts := recorder.StartOptions{
			FPS:        input.Body.FPS,
			OutputPath: input.Body.OutputPath,
		}
		res := s.options.Recorder.StartFirst(ctx, opts, targets)

		return &models.StartRecordingResponse{
			Body: models.StartRecordingData{
				Success:     res.Success,
				Backend:     res.Backend,
				Message:     res.Message,
				Reason:      res.Reason,
				FFmpegPath:  res.FFmpegPath,
				FFprobePath: res.FFprobePath,
				Encoder:     res.Encoder,
				OutputPath:  res.OutputPath,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-recording",
		Method:      http.MethodPost,
		Path:        "/api/recording/stop",
		Summary:     "Stop Recording",
		Description: "Ask ffmpeg to finish, force it after a timeout, then verify the file with ffprobe",
		Tags:        []string{"recording"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, _ *struct{}) (*models.StopRecordingResponse, error) {
		res := s.options.Recorder.Stop(ctx)
		return &models.StopRecordingResponse{
			Body: models.StopRecordingData{
				Success:         res.Success,
				Backend:         res.Backend,
				Message:         res.Message,
				Reason:          res.Reason,
				Path:            res.Path,
				Probe:           res.Probe,
				Forced:          res.Forced,
				DurationSeconds: res.Duration.Seconds(),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-recording-status",
		Method:      http.MethodGet,
		Path:        "/api/recording",
		Summary:     "Recording Status",
		Description: "Current recorder state and live ffmpeg progress",
		Tags:        []string{"recording"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.RecordingStatusResponse, error) {
		st := s.options.Recorder.Status()
		return &models.RecordingStatusResponse{
			Body: models.RecordingStatusData{
				State:          string(st.State),
				Recording:      st.Recording,
				OutputPath:     st.OutputPath,
				Encoder:        st.Encoder,
				Target:         st.Target,
				FPS:            st.FPS,
				PID:            st.PID,
				StartedAt:      st.StartedAt,
				ElapsedSeconds: st.Elapsed.Seconds(),
				Progress:       st.Progress,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-latest-recording",
		Method:      http.MethodGet,
		Path:        "/api/recordings/latest",
		Summary:     "Latest Recording",
		Description: "Newest .mp4 or .webm file in the recordings directory",
		Tags:        []string{"recording"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 500},
	}, func(_ context.Context, _ *struct{}) (*models.LatestRecordingResponse, error) {
		rec, err := recorder.LatestRecording(s.options.Recorder.RecordingsDir())
		if errors.Is(err, recorder.ErrNoRecordings) {
			return nil, huma.Error404NotFound("No recordings found")
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to read recordings directory", err)
		}
		return &models.LatestRecordingResponse{
			Body: models.LatestRecordingData{
				Path:    rec.Path,
				Size:    rec.Size,
				ModTime: rec.ModTime,
			},
		}, nil
	})
}

// targetsFor converts a request target into capture targets, in the
// order they should be tried.
func (s *Server) targetsFor(t models.TargetData) ([]capture.Target, error) {
	switch t.Kind {
	case models.TargetScreen:
		if t.Bounds != nil {
			return []capture.Target{capture.Screen{
				Bounds:       t.Bounds.Even(),
				DisplayIndex: t.Display,
			}}, nil
		}
		screen, err := displays.TargetFor(s.options.Displays, t.Display)
		if err != nil {
			return nil, err
		}
		return []capture.Target{screen}, nil

	case models.TargetWindow:
		titles := capture.WindowTitles(append([]string{t.Title}, t.Titles...))
		if len(titles) == 0 {
			return nil, capture.ErrInvalidWindowTitle
		}
		targets := make([]capture.Target, len(titles))
		for i, title := range titles {
			targets[i] = capture.Window{Title: title}
		}
		return targets, nil
	}
	return nil, errors.New("unknown target kind")
}
