package interfaces

import "context"

// EventType represents different event types in the system
type EventType string

const (
	// EventSessionUpdated carries a search session snapshot after every state change
	EventSessionUpdated EventType = "session_updated"
	// EventAlert carries an AlertPayload for failures the user must see
	EventAlert EventType = "alert"
	// EventHistoryCleared fires after the stored history has been removed
	EventHistoryCleared EventType = "history_cleared"
	// EventVariableChanged carries a VariableChange after a KV variable is set or deleted
	EventVariableChanged EventType = "variable_changed"
)

// Event represents a system event
type Event struct {
	Type    EventType
	Payload interface{}
}

// AlertPayload is a user-facing failure notice
type AlertPayload struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Cause   string `json:"cause,omitempty"`
}

// VariableChange identifies a KV variable that was written or removed
type VariableChange struct {
	Key     string `json:"key"`
	Deleted bool   `json:"deleted"`
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event) error

// EventService manages pub/sub event bus
type EventService interface {
	// Subscribe to an event type
	Subscribe(eventType EventType, handler EventHandler) error

	// Publish an event to all subscribers asynchronously
	Publish(ctx context.Context, event Event) error

	// PublishSync publishes event and waits for all handlers to complete
	PublishSync(ctx context.Context, event Event) error

	// Close shuts down the event service
	Close() error
}
