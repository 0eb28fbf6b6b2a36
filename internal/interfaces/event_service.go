package interfaces

import "context"

// EventType names a session lifecycle event
type EventType string

const (
	// EventSessionCaptured is published after a session is saved through the hand-off endpoint.
	// Payload: map[string]interface{} with "cookie_count" and "source".
	EventSessionCaptured EventType = "session_captured"

	// EventSessionInvalidated is published when an upstream call proves the session dead and it is cleared.
	// Payload: map[string]interface{} with "operation" and "error".
	EventSessionInvalidated EventType = "session_invalidated"

	// EventSessionCleared is published when a caller removes the session explicitly
	EventSessionCleared EventType = "session_cleared"

	// EventLivenessChecked is published after every liveness probe.
	// Payload: *models.SessionCheck
	EventLivenessChecked EventType = "liveness_checked"

	// EventStatusChanged is published when the derived session state changes
	EventStatusChanged EventType = "status_changed"
)

// Event is one occurrence on the bus. Payload shape depends on Type.
type Event struct {
	Type    EventType
	Payload interface{}
}

type EventHandler func(ctx context.Context, event Event) error

// EventService is the in-process bus connecting session changes to status, logging and websocket clients
type EventService interface {
	Subscribe(eventType EventType, handler EventHandler) error

	// Publish returns without waiting for handlers
	Publish(ctx context.Context, event Event) error

	// PublishSync waits for every handler and joins their errors
	PublishSync(ctx context.Context, event Event) error

	Close() error
}
