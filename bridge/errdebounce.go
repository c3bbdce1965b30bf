package bridge

import (
	"sync"
	"time"
)

// ErrorDebouncer rate-limits repeated error notifications per session so a
// crash-looping backend does not flood the platform thread.
type ErrorDebouncer struct {
	mu       sync.Mutex
	window   time.Duration
	now      func() time.Time
	lastSent map[string]time.Time
}

func NewErrorDebouncer(window time.Duration) *ErrorDebouncer {
	return &ErrorDebouncer{
		window:   window,
		now:      time.Now,
		lastSent: make(map[string]time.Time),
	}
}

// ShouldSend reports whether an error notice for the session may be sent
// now. A zero window disables debouncing.
func (d *ErrorDebouncer) ShouldSend(sessionID string) bool {
	if d.window <= 0 {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	last, ok := d.lastSent[sessionID]
	if !ok {
		return true
	}
	return d.now().Sub(last) >= d.window
}

// MarkSent records that an error notice went out for the session.
func (d *ErrorDebouncer) MarkSent(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastSent[sessionID] = d.now()
}

// Forget drops the session's debounce record.
func (d *ErrorDebouncer) Forget(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.lastSent, sessionID)
}
