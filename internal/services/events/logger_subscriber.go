package events

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/larder/internal/interfaces"
	"github.com/ternarybob/larder/internal/models"
)

// sessionEvents are the event types the logger subscriber records
var sessionEvents = []interfaces.EventType{
	interfaces.EventSessionCaptured,
	interfaces.EventSessionInvalidated,
	interfaces.EventSessionCleared,
	interfaces.EventLivenessChecked,
	interfaces.EventStatusChanged,
}

// NewLoggerSubscriber creates an event handler that logs session lifecycle events
func NewLoggerSubscriber(logger arbor.ILogger) interfaces.EventHandler {
	return func(ctx context.Context, event interfaces.Event) error {
		logEvent := logger.Debug().Str("event_type", string(event.Type))

		switch payload := event.Payload.(type) {
		case *models.SessionCheck:
			logEvent = logEvent.
				Str("outcome", string(payload.Outcome)).
				Int("status_code", payload.StatusCode)
		case map[string]interface{}:
			for _, key := range []string{"operation", "source", "state", "reason"} {
				if v, ok := payload[key].(string); ok {
					logEvent = logEvent.Str(key, v)
				}
			}
			if n, ok := payload["cookie_count"].(int); ok {
				logEvent = logEvent.Int("cookie_count", n)
			}
		}

		logEvent.Msg("Event published")
		return nil
	}
}

// SubscribeLoggerToAllEvents attaches the logger subscriber to every session event type
func SubscribeLoggerToAllEvents(service interfaces.EventService, logger arbor.ILogger) error {
	handler := NewLoggerSubscriber(logger)
	for _, eventType := range sessionEvents {
		if err := service.Subscribe(eventType, handler); err != nil {
			return err
		}
	}
	return nil
}
