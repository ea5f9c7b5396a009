package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/screenrec/internal/events"
)

// sseEventTypes maps SSE event names to payload types.
var sseEventTypes = map[string]any{
	"recording-state":    events.RecordingStateChangedEvent{},
	"recording-started":  events.RecordingStartedEvent{},
	"recording-stopped":  events.RecordingStoppedEvent{},
	"recording-failed":   events.RecordingFailedEvent{},
	"recording-exited":   events.RecordingExitedEvent{},
	"recording-progress": events.RecordingProgressEvent{},
	"encoder-probed":     events.EncoderProbedEvent{},
	"config-reloaded":    events.ConfigReloadedEvent{},
}

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time recorder state changes, results, progress and encoder probes",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, sseEventTypes, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 32)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.RecordingStateChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.RecordingStartedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.RecordingStoppedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.RecordingFailedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.RecordingExitedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.RecordingProgressEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.EncoderProbedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ConfigReloadedEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Initial state so clients do not have to poll /api/recording first.
		st := s.options.Recorder.Status()
		if err := send.Data(events.RecordingStateChangedEvent{
			From:      string(st.State),
			To:        string(st.State),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
