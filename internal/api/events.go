package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/ledpanel/internal/events"
)

const eventsPath = "/api/events"

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        eventsPath,
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream of animation state changes and manual LED changes. " +
			"The current animation state is sent first.",
		Tags:     []string{"events"},
		Security: withAuth(),
		Errors:   []int{401},
	}, map[string]any{
		"animation-state-changed": events.AnimationStateChangedEvent{},
		"led-changed":             events.LEDChangedEvent{},
		"bank-changed":            events.BankChangedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 32)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.AnimationStateChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.LEDChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.BankChangedEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		if err := send.Data(s.currentState()); err != nil {
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

// currentState describes the controller as an event, for newly connected clients.
func (s *Server) currentState() events.AnimationStateChangedEvent {
	status := s.leds.Status()
	ev := events.AnimationStateChangedEvent{
		State:     string(status.State),
		Preset:    string(status.Pattern),
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if status.LastError != nil {
		ev.Error = status.LastError.Error()
	}
	return ev
}
