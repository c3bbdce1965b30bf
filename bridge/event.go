package bridge

import "github.com/google/uuid"

// EventType classifies events on a session's queue.
type EventType string

const (
	EventOutput            EventType = "output"
	EventOutputFinal       EventType = "output_final"
	EventPermissionRequest EventType = "permission_request"
	EventSessionState      EventType = "session_state"
	EventError             EventType = "error"
)

// SessionState values carried by EventSessionState events.
const (
	StateRunning       = "RUNNING"
	StateAwaitingInput = "AWAITING_INPUT"
	StateError         = "ERROR"
)

// Event is one backend occurrence on a session's queue.
type Event struct {
	ID   string
	Type EventType
	Data EventData
}

// EventData is the union payload for all event types; which fields are
// meaningful depends on Event.Type.
type EventData struct {
	// Output fields.
	Text      string
	Final     bool
	IsHistory bool

	// Permission request fields. ToolInput is backend-defined and may be
	// a string, a map, or any JSON-decoded value.
	ToolName  string
	ToolInput any
	RequestID string

	// Session state fields.
	State string

	// Error fields.
	Message string
}

// NewEvent builds an event with a fresh unique ID.
func NewEvent(typ EventType, data EventData) Event {
	return Event{ID: uuid.NewString(), Type: typ, Data: data}
}

// NewSubscriberFunc registers interest in a session's events and returns
// the channel they arrive on. The channel is closed when the subscription
// is removed backend-side.
type NewSubscriberFunc func(sessionID string) (<-chan Event, error)

// RemoveSubscriberFunc tears down a subscription created by a
// NewSubscriberFunc. The queue identifies which subscription to remove
// when a session has more than one.
type RemoveSubscriberFunc func(sessionID string, queue <-chan Event)
