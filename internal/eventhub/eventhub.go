// Package eventhub is an in-memory implementation of the per-session
// event queue surface the backend exposes to the router: subscribers get
// a buffered channel per session, publishers fan events out to every
// subscriber of that session.
package eventhub

import (
	"log/slog"
	"sync"

	"github.com/quailyquaily/tether/bridge"
)

const defaultBufferSize = 64

// Hub fans per-session events out to registered subscriber channels.
// Publishing never blocks: when a subscriber's buffer is full the event
// is dropped for that subscriber and logged.
type Hub struct {
	mu      sync.Mutex
	logger  *slog.Logger
	bufSize int
	subs    map[string][]chan bridge.Event
}

func NewHub(logger *slog.Logger, bufSize int) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	if bufSize <= 0 {
		bufSize = defaultBufferSize
	}
	return &Hub{
		logger:  logger,
		bufSize: bufSize,
		subs:    make(map[string][]chan bridge.Event),
	}
}

// Subscribe registers a new queue for a session. The signature matches
// bridge.NewSubscriberFunc so a Hub can back the router directly.
func (h *Hub) Subscribe(sessionID string) (<-chan bridge.Event, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan bridge.Event, h.bufSize)
	h.subs[sessionID] = append(h.subs[sessionID], ch)
	return ch, nil
}

// Unsubscribe removes and closes one of a session's queues. The signature
// matches bridge.RemoveSubscriberFunc.
func (h *Hub) Unsubscribe(sessionID string, queue <-chan bridge.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	chans := h.subs[sessionID]
	for i, ch := range chans {
		if (<-chan bridge.Event)(ch) == queue {
			h.subs[sessionID] = append(chans[:i], chans[i+1:]...)
			close(ch)
			break
		}
	}
	if len(h.subs[sessionID]) == 0 {
		delete(h.subs, sessionID)
	}
}

// Publish delivers an event to every subscriber of the session.
func (h *Hub) Publish(sessionID string, ev bridge.Event) {
	h.mu.Lock()
	chans := append([]chan bridge.Event(nil), h.subs[sessionID]...)
	h.mu.Unlock()

	for _, ch := range chans {
		select {
		case ch <- ev:
		default:
			h.logger.Warn("eventhub_drop",
				"session_id", sessionID,
				"event_type", string(ev.Type),
				"event_id", ev.ID)
		}
	}
}

// CloseSession closes and removes every queue registered for a session.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[sessionID] {
		close(ch)
	}
	delete(h.subs, sessionID)
}
