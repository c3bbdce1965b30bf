package subscriber

import (
	"strings"
	"sync"
	"time"
)

const (
	// defaultFlushDelay is how long step output sits in the buffer before
	// a timed flush delivers it.
	defaultFlushDelay = 2 * time.Second
	// flushMaxChars triggers an immediate flush so a single message never
	// grows past platform limits.
	flushMaxChars = 1800
)

// coalescer batches streaming step output per session so rapid deltas
// collapse into fewer platform messages. Delivery happens on a timer, on a
// size threshold, or on an explicit boundary flush.
type coalescer struct {
	mu      sync.Mutex
	delay   time.Duration
	max     int
	deliver func(sessionID, text string)

	buffers map[string][]string
	timers  map[string]*time.Timer
}

func newCoalescer(delay time.Duration, deliver func(sessionID, text string)) *coalescer {
	if delay <= 0 {
		delay = defaultFlushDelay
	}
	return &coalescer{
		delay:   delay,
		max:     flushMaxChars,
		deliver: deliver,
		buffers: make(map[string][]string),
		timers:  make(map[string]*time.Timer),
	}
}

// Buffer appends step text and arranges delivery: immediately when the
// buffer is large, otherwise via a flush timer. The timer is armed once
// per batch rather than reset on every fragment, so a steady stream still
// flushes at the delay interval.
func (c *coalescer) Buffer(sessionID, text string) {
	c.mu.Lock()
	c.buffers[sessionID] = append(c.buffers[sessionID], text)

	size := 0
	for _, t := range c.buffers[sessionID] {
		size += len(t)
	}
	if size >= c.max {
		batch := c.takeLocked(sessionID)
		c.mu.Unlock()
		c.deliverText(sessionID, batch)
		return
	}

	if _, armed := c.timers[sessionID]; !armed {
		c.timers[sessionID] = time.AfterFunc(c.delay, func() { c.Flush(sessionID) })
	}
	c.mu.Unlock()
}

// Flush delivers everything buffered for the session. Flushing with an
// empty buffer is a no-op, so boundary flushes are safe to call freely.
func (c *coalescer) Flush(sessionID string) {
	c.mu.Lock()
	text := c.takeLocked(sessionID)
	c.mu.Unlock()
	c.deliverText(sessionID, text)
}

// takeLocked drains the session's buffer and disarms its timer. Callers
// must hold c.mu.
func (c *coalescer) takeLocked(sessionID string) string {
	if t, ok := c.timers[sessionID]; ok {
		t.Stop()
		delete(c.timers, sessionID)
	}
	parts := c.buffers[sessionID]
	if len(parts) == 0 {
		return ""
	}
	delete(c.buffers, sessionID)
	return strings.Join(parts, "")
}

func (c *coalescer) deliverText(sessionID, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	c.deliver(sessionID, text)
}

// Forget drops the session's buffer without delivering it.
func (c *coalescer) Forget(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[sessionID]; ok {
		t.Stop()
		delete(c.timers, sessionID)
	}
	delete(c.buffers, sessionID)
}
