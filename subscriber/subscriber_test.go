package subscriber

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/quailyquaily/tether/bridge"
)

type delivery struct {
	kind      string
	sessionID string
	text      string
	final     bool
}

// fakeBridge records every call and signals deliveries on a channel so
// tests can wait without sleeping.
type fakeBridge struct {
	mu      sync.Mutex
	signal  chan delivery
	removed []string
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{signal: make(chan delivery, 32)}
}

func (b *fakeBridge) OnOutput(_ context.Context, sessionID, text string, meta map[string]any) error {
	final, _ := meta["final"].(bool)
	b.signal <- delivery{kind: "output", sessionID: sessionID, text: text, final: final}
	return nil
}

func (b *fakeBridge) OnApprovalRequest(_ context.Context, sessionID, title, _ string, _ []string) error {
	b.signal <- delivery{kind: "approval", sessionID: sessionID, text: title}
	return nil
}

func (b *fakeBridge) OnStatusChange(_ context.Context, sessionID, status, message string) error {
	b.signal <- delivery{kind: "status", sessionID: sessionID, text: status + ":" + message}
	return nil
}

func (b *fakeBridge) OnTyping(context.Context, string) error        { return nil }
func (b *fakeBridge) OnTypingStopped(context.Context, string) error { return nil }

func (b *fakeBridge) OnSessionRemoved(_ context.Context, sessionID string) error {
	b.mu.Lock()
	b.removed = append(b.removed, sessionID)
	b.mu.Unlock()
	return nil
}

func (b *fakeBridge) removedSessions() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.removed...)
}

func (b *fakeBridge) CreateThread(_ context.Context, sessionID, _ string) (bridge.ThreadInfo, error) {
	return bridge.ThreadInfo{ThreadID: "t-" + sessionID, Platform: bridge.PlatformTelegram}, nil
}

func (b *fakeBridge) next(t *testing.T) delivery {
	t.Helper()
	select {
	case d := <-b.signal:
		return d
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for delivery")
		return delivery{}
	}
}

func (b *fakeBridge) expectNone(t *testing.T) {
	t.Helper()
	select {
	case d := <-b.signal:
		t.Fatalf("unexpected delivery: %+v", d)
	case <-time.After(50 * time.Millisecond):
	}
}

type harness struct {
	sub      *Subscriber
	fb       *fakeBridge
	mu       sync.Mutex
	queues   map[string]chan bridge.Event
	released []string
}

func newHarness(t *testing.T, cb bridge.Callbacks) *harness {
	t.Helper()
	h := &harness{
		fb:     newFakeBridge(),
		queues: make(map[string]chan bridge.Event),
	}
	m := bridge.NewManager(nil)
	m.Register(bridge.PlatformTelegram, h.fb)
	h.sub = New(Options{
		Manager:   m,
		Callbacks: cb,
		NewSubscriber: func(sessionID string) (<-chan bridge.Event, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			q := make(chan bridge.Event, 32)
			h.queues[sessionID] = q
			return q, nil
		},
		RemoveSubscriber: func(sessionID string, _ <-chan bridge.Event) {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.queues, sessionID)
		},
		ReleaseName: func(sessionID string) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.released = append(h.released, sessionID)
		},
		FlushDelay: time.Hour,
	})
	return h
}

func (h *harness) push(t *testing.T, sessionID string, typ bridge.EventType, data bridge.EventData) {
	t.Helper()
	h.mu.Lock()
	q, ok := h.queues[sessionID]
	h.mu.Unlock()
	if !ok {
		t.Fatalf("no queue for session %s", sessionID)
	}
	q <- bridge.NewEvent(typ, data)
}

func (h *harness) hasQueue(sessionID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.queues[sessionID]
	return ok
}

func (h *harness) releasedNames() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.released...)
}

func TestSubscriberBuffersStepsAndDeliversFinal(t *testing.T) {
	h := newHarness(t, bridge.Callbacks{})
	if err := h.sub.Subscribe("s1", bridge.PlatformTelegram); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	h.push(t, "s1", bridge.EventOutput, bridge.EventData{Text: "step1\n"})
	h.push(t, "s1", bridge.EventOutput, bridge.EventData{Text: "done", Final: true})

	first := h.fb.next(t)
	if first.kind != "output" || first.text != "step1\n" || first.final {
		t.Fatalf("first delivery = %+v, want buffered step flush", first)
	}
	second := h.fb.next(t)
	if second.kind != "output" || second.text != "done" || !second.final {
		t.Fatalf("second delivery = %+v, want final output", second)
	}
}

func TestSubscriberSkipsHistoryEvents(t *testing.T) {
	h := newHarness(t, bridge.Callbacks{})
	if err := h.sub.Subscribe("s1", bridge.PlatformTelegram); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	h.push(t, "s1", bridge.EventOutput, bridge.EventData{Text: "old", IsHistory: true})
	h.push(t, "s1", bridge.EventOutput, bridge.EventData{Text: "live", Final: true})

	d := h.fb.next(t)
	if d.text != "live" {
		t.Fatalf("delivery = %+v, history event leaked through", d)
	}
}

func TestSubscriberPermissionRequestSetsPending(t *testing.T) {
	h := newHarness(t, bridge.Callbacks{})
	if err := h.sub.Subscribe("s1", bridge.PlatformTelegram); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	h.push(t, "s1", bridge.EventPermissionRequest, bridge.EventData{
		ToolName:  "Bash",
		ToolInput: map[string]any{"command": "rm -rf build"},
		RequestID: "r1",
	})

	d := h.fb.next(t)
	if d.kind != "approval" || d.text != "Bash" {
		t.Fatalf("delivery = %+v, want approval request", d)
	}
	req, ok := h.sub.Approvals().Pending("s1")
	if !ok || req.RequestID != "r1" {
		t.Fatalf("pending = %+v, %v", req, ok)
	}
}

func TestSubscriberAutoApprove(t *testing.T) {
	type respondCall struct {
		requestID string
		allow     bool
		reason    string
	}
	responded := make(chan respondCall, 1)
	cb := bridge.Callbacks{
		RespondToPermission: func(_ context.Context, sessionID, requestID string, allow bool, reason string) (bool, error) {
			responded <- respondCall{requestID: requestID, allow: allow, reason: reason}
			return true, nil
		},
	}
	h := newHarness(t, cb)
	if err := h.sub.Subscribe("s1", bridge.PlatformTelegram); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	h.sub.Approvals().SetAllowAll("s1")

	h.push(t, "s1", bridge.EventPermissionRequest, bridge.EventData{
		ToolName:  "Bash",
		RequestID: "r1",
	})

	select {
	case call := <-responded:
		if call.requestID != "r1" || !call.allow || call.reason != "Allow All" {
			t.Fatalf("respond call = %+v", call)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("auto-approve never responded")
	}

	// No approval request may reach the platform.
	h.fb.expectNone(t)
	if _, ok := h.sub.Approvals().Pending("s1"); ok {
		t.Fatalf("auto-approved request left pending state")
	}

	notices := h.sub.Approvals().DrainAutoApproveNotices("s1")
	if len(notices) != 1 || notices[0].Tool != "Bash" {
		t.Fatalf("notices = %+v", notices)
	}
}

func TestSubscriberErrorEventFlushesThenReports(t *testing.T) {
	h := newHarness(t, bridge.Callbacks{})
	if err := h.sub.Subscribe("s1", bridge.PlatformTelegram); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	h.push(t, "s1", bridge.EventOutput, bridge.EventData{Text: "partial"})
	h.push(t, "s1", bridge.EventError, bridge.EventData{Message: "runner exploded"})

	first := h.fb.next(t)
	if first.kind != "output" || first.text != "partial" {
		t.Fatalf("first delivery = %+v, want buffered output flush", first)
	}
	second := h.fb.next(t)
	if second.kind != "status" || second.text != "error:runner exploded" {
		t.Fatalf("second delivery = %+v, want error status", second)
	}

	// A second error inside the debounce window is suppressed.
	h.push(t, "s1", bridge.EventError, bridge.EventData{Message: "still broken"})
	h.fb.expectNone(t)
}

func TestUnsubscribeFlushesAndNotifies(t *testing.T) {
	h := newHarness(t, bridge.Callbacks{})
	if err := h.sub.Subscribe("s1", bridge.PlatformTelegram); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	h.push(t, "s1", bridge.EventOutput, bridge.EventData{Text: "leftover"})
	// Wait for the consumer to dequeue the event before unsubscribing;
	// Unsubscribe itself waits for in-flight handling to finish.
	deadline := time.Now().Add(2 * time.Second)
	for {
		h.mu.Lock()
		pending := len(h.queues["s1"])
		h.mu.Unlock()
		if pending == 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	h.sub.Unsubscribe(context.Background(), "s1")

	d := h.fb.next(t)
	if d.kind != "output" || d.text != "leftover" {
		t.Fatalf("delivery = %+v, want buffered output flushed on unsubscribe", d)
	}
	removed := h.fb.removedSessions()
	if len(removed) != 1 || removed[0] != "s1" {
		t.Fatalf("removed = %v", removed)
	}
	if h.hasQueue("s1") {
		t.Fatalf("queue still registered after unsubscribe")
	}
	released := h.releasedNames()
	if len(released) != 1 || released[0] != "s1" {
		t.Fatalf("released names = %v, want thread name freed for s1", released)
	}
}

func TestRestoreBindings(t *testing.T) {
	cb := bridge.Callbacks{
		ListSessions: func(context.Context) ([]bridge.SessionSummary, error) {
			return []bridge.SessionSummary{
				{ID: "bound", Platform: bridge.PlatformTelegram},
				{ID: "unbound", Platform: bridge.PlatformNone},
				{ID: "blank"},
			}, nil
		},
	}
	h := newHarness(t, cb)

	if err := h.sub.RestoreBindings(context.Background()); err != nil {
		t.Fatalf("RestoreBindings: %v", err)
	}
	if !h.hasQueue("bound") {
		t.Fatalf("bound session not restored")
	}
	if h.hasQueue("unbound") || h.hasQueue("blank") {
		t.Fatalf("platform-less sessions restored")
	}
}
