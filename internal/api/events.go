package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/camview/internal/events"
)

// sseEventTypes maps SSE event names to payload types.
var sseEventTypes = map[string]any{
	"stream-state-changed": events.StreamStateChangedEvent{},
	"stream-fps":           events.StreamFPSEvent{},
	"camera-restarted":     events.CameraRestartedEvent{},
	"camera-added":         events.CameraAddedEvent{},
	"camera-removed":       events.CameraRemovedEvent{},
}

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream state, frame rate and restart events",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, sseEventTypes, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 64)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.StreamStateChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.StreamFPSEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.CameraRestartedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.CameraAddedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.CameraRemovedEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Current state of every camera so clients start from a full picture
		now := time.Now().Format(time.RFC3339)
		for _, snap := range s.cameras.List() {
			if err := send.Data(events.StreamStateChangedEvent{
				CameraID:  snap.CameraID,
				Key:       snap.Key,
				State:     string(snap.State),
				Connected: snap.Connected,
				Error:     snap.LastError,
				Timestamp: now,
			}); err != nil {
				return
			}
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
