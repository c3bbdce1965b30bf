// Package subscriber consumes per-session backend event queues and routes
// normalized calls to the bound platform bridge, batching output and
// intercepting permission events for the approval state machine.
package subscriber

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quailyquaily/tether/approval"
	"github.com/quailyquaily/tether/bridge"
	"github.com/quailyquaily/tether/internal/outputfmt"
)

const defaultErrorDebounce = time.Minute

// Options configures a Subscriber. Manager, NewSubscriber and
// RemoveSubscriber are required; the rest default sensibly.
type Options struct {
	Logger           *slog.Logger
	Manager          *bridge.Manager
	Callbacks        bridge.Callbacks
	Approvals        *approval.Tracker
	NewSubscriber    bridge.NewSubscriberFunc
	RemoveSubscriber bridge.RemoveSubscriberFunc
	// ReleaseName frees the session's thread-name reservation when the
	// session is unsubscribed. Optional; typically naming.Registry.Release.
	ReleaseName   func(sessionID string)
	FlushDelay    time.Duration
	ErrorDebounce time.Duration
}

type consumer struct {
	platform bridge.Platform
	queue    <-chan bridge.Event
	cancel   context.CancelFunc
	done     chan struct{}
}

// Subscriber runs one consumer goroutine per subscribed session. Each
// consumer reads the session's event queue until cancelled; a panic while
// handling one event is logged and the next event is still processed.
type Subscriber struct {
	logger           *slog.Logger
	manager          *bridge.Manager
	callbacks        bridge.Callbacks
	approvals        *approval.Tracker
	newSubscriber    bridge.NewSubscriberFunc
	removeSubscriber bridge.RemoveSubscriberFunc
	releaseName      func(sessionID string)
	errDebounce      *bridge.ErrorDebouncer
	out              *coalescer

	mu        sync.Mutex
	consumers map[string]*consumer
	platforms map[string]bridge.Platform
}

func New(opts Options) *Subscriber {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	approvals := opts.Approvals
	if approvals == nil {
		var resolver approval.DirectoryResolver
		if getDir := opts.Callbacks.GetSessionDirectory; getDir != nil {
			resolver = func(sessionID string) string {
				return getDir(context.Background(), sessionID)
			}
		}
		approvals = approval.NewTracker(logger, resolver)
	}
	debounce := opts.ErrorDebounce
	if debounce == 0 {
		debounce = defaultErrorDebounce
	}
	s := &Subscriber{
		logger:           logger,
		manager:          opts.Manager,
		callbacks:        opts.Callbacks,
		approvals:        approvals,
		newSubscriber:    opts.NewSubscriber,
		removeSubscriber: opts.RemoveSubscriber,
		releaseName:      opts.ReleaseName,
		errDebounce:      bridge.NewErrorDebouncer(debounce),
		consumers:        make(map[string]*consumer),
		platforms:        make(map[string]bridge.Platform),
	}
	s.out = newCoalescer(opts.FlushDelay, s.deliverOutput)
	return s
}

// Approvals exposes the shared approval state machine so platform adapters
// can resolve replies against it.
func (s *Subscriber) Approvals() *approval.Tracker {
	return s.approvals
}

// Subscribe starts routing a session's events to its platform. The queue
// is registered synchronously so events emitted between this call and the
// consumer's first read are not lost. Subscribing an already subscribed
// session is a no-op.
func (s *Subscriber) Subscribe(sessionID string, platform bridge.Platform) error {
	s.mu.Lock()
	if _, ok := s.consumers[sessionID]; ok {
		s.mu.Unlock()
		return nil
	}

	queue, err := s.newSubscriber(sessionID)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &consumer{
		platform: platform,
		queue:    queue,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	s.consumers[sessionID] = c
	s.platforms[sessionID] = platform
	s.mu.Unlock()

	go s.consume(ctx, sessionID, c)
	s.logger.Info("subscriber_started", "session_id", sessionID, "platform", string(platform))
	return nil
}

// Unsubscribe stops the session's consumer, flushes remaining output,
// notifies the platform, and clears approval state and the thread-name
// reservation for the session.
func (s *Subscriber) Unsubscribe(ctx context.Context, sessionID string) {
	s.mu.Lock()
	c, ok := s.consumers[sessionID]
	if ok {
		delete(s.consumers, sessionID)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	c.cancel()
	<-c.done
	s.removeSubscriber(sessionID, c.queue)

	// Flush before dropping the platform binding so the last buffered
	// output still reaches the thread.
	s.out.Flush(sessionID)
	s.mu.Lock()
	delete(s.platforms, sessionID)
	s.mu.Unlock()
	s.manager.RouteSessionRemoved(ctx, c.platform, sessionID)
	if s.releaseName != nil {
		s.releaseName(sessionID)
	}
	s.approvals.Remove(sessionID)
	s.errDebounce.Forget(sessionID)
	s.logger.Info("subscriber_stopped", "session_id", sessionID)
}

// RestoreBindings re-subscribes every backend session that already has a
// platform binding, typically at process start so a restart does not drop
// live sessions.
func (s *Subscriber) RestoreBindings(ctx context.Context) error {
	if s.callbacks.ListSessions == nil {
		return nil
	}
	sessions, err := s.callbacks.ListSessions(ctx)
	if err != nil {
		return err
	}
	for _, sess := range sessions {
		if sess.Platform == "" || sess.Platform == bridge.PlatformNone {
			continue
		}
		if err := s.Subscribe(sess.ID, sess.Platform); err != nil {
			s.logger.Warn("subscriber_restore_error", "session_id", sess.ID, "error", err.Error())
			continue
		}
		s.logger.Info("subscriber_restored", "session_id", sess.ID, "platform", string(sess.Platform))
	}
	return nil
}

// Close unsubscribes all sessions concurrently.
func (s *Subscriber) Close(ctx context.Context) error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.consumers))
	for id := range s.consumers {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		g.Go(func() error {
			s.Unsubscribe(ctx, id)
			return nil
		})
	}
	return g.Wait()
}

func (s *Subscriber) consume(ctx context.Context, sessionID string, c *consumer) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.queue:
			if !ok {
				return
			}
			s.handleEvent(ctx, sessionID, c.platform, ev)
		}
	}
}

// handleEvent routes one event. Panics are contained so a malformed event
// cannot kill the consumer loop.
func (s *Subscriber) handleEvent(ctx context.Context, sessionID string, platform bridge.Platform, ev bridge.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("subscriber_event_panic",
				"session_id", sessionID,
				"event_type", string(ev.Type),
				"panic", r)
		}
	}()

	if ev.Data.IsHistory {
		return
	}

	switch ev.Type {
	case bridge.EventOutput:
		s.handleOutput(ctx, sessionID, platform, ev.Data)
	case bridge.EventOutputFinal:
		// Accumulated blob duplicating the per-step stream; ignored.
	case bridge.EventPermissionRequest:
		s.handlePermission(ctx, sessionID, platform, ev.Data)
	case bridge.EventSessionState:
		s.handleSessionState(ctx, sessionID, platform, ev.Data)
	case bridge.EventError:
		s.handleError(ctx, sessionID, platform, ev.Data)
	default:
		s.logger.Debug("subscriber_event_ignored", "session_id", sessionID, "event_type", string(ev.Type))
	}
}

func (s *Subscriber) handleOutput(ctx context.Context, sessionID string, platform bridge.Platform, data bridge.EventData) {
	if data.Text == "" {
		return
	}
	if data.Final {
		// Flush buffered step output first so ordering is preserved,
		// then deliver the final text as its own message.
		s.out.Flush(sessionID)
		s.manager.RouteOutput(ctx, platform, sessionID, data.Text, map[string]any{"final": true, "kind": "final"})
		return
	}
	s.out.Buffer(sessionID, data.Text)
}

func (s *Subscriber) handlePermission(ctx context.Context, sessionID string, platform bridge.Platform, data bridge.EventData) {
	s.out.Flush(sessionID)

	req := buildApprovalRequest(data)

	if req.Kind == approval.KindPermission {
		if reason := s.approvals.CheckAutoApprove(sessionID, data.ToolName); reason != "" {
			s.autoApprove(ctx, sessionID, data, reason)
			return
		}
	}

	s.approvals.SetPending(sessionID, req)
	s.manager.RouteApproval(ctx, platform, sessionID, req.Title, req.Description, req.Options)
}

func (s *Subscriber) autoApprove(ctx context.Context, sessionID string, data bridge.EventData, reason string) {
	if s.callbacks.RespondToPermission == nil {
		s.logger.Warn("auto_approve_no_callback", "session_id", sessionID, "tool", data.ToolName)
		return
	}
	ok, err := s.callbacks.RespondToPermission(ctx, sessionID, data.RequestID, true, reason)
	if err != nil || !ok {
		s.logger.Warn("auto_approve_respond_failed",
			"session_id", sessionID,
			"tool", data.ToolName,
			"ok", ok,
			"error", errString(err))
		return
	}
	s.approvals.BufferAutoApproveNotice(sessionID, data.ToolName, reason)
	s.logger.Info("auto_approved", "session_id", sessionID, "tool", data.ToolName, "reason", reason)
}

func (s *Subscriber) handleSessionState(ctx context.Context, sessionID string, platform bridge.Platform, data bridge.EventData) {
	switch data.State {
	case bridge.StateRunning:
		s.manager.RouteTyping(ctx, platform, sessionID)
	case bridge.StateAwaitingInput:
		s.out.Flush(sessionID)
		s.manager.RouteTypingStopped(ctx, platform, sessionID)
	case bridge.StateError:
		s.out.Flush(sessionID)
		s.manager.RouteTypingStopped(ctx, platform, sessionID)
		s.sendErrorStatus(ctx, sessionID, platform, "")
	}
}

func (s *Subscriber) handleError(ctx context.Context, sessionID string, platform bridge.Platform, data bridge.EventData) {
	s.out.Flush(sessionID)
	msg := data.Message
	if msg == "" {
		msg = "Unknown error"
	}
	s.sendErrorStatus(ctx, sessionID, platform, outputfmt.SanitizeErrorText(msg))
}

// sendErrorStatus delivers an error status subject to the per-session
// debounce window, so a crash-looping session produces one notice per
// window instead of a flood.
func (s *Subscriber) sendErrorStatus(ctx context.Context, sessionID string, platform bridge.Platform, message string) {
	if !s.errDebounce.ShouldSend(sessionID) {
		s.logger.Debug("error_status_debounced", "session_id", sessionID)
		return
	}
	s.errDebounce.MarkSent(sessionID)
	s.manager.RouteStatus(ctx, platform, sessionID, "error", message)
}

// deliverOutput is the coalescer's delivery sink: batched step output goes
// to the session's platform with no metadata.
func (s *Subscriber) deliverOutput(sessionID, text string) {
	s.mu.Lock()
	platform, ok := s.platforms[sessionID]
	s.mu.Unlock()
	if !ok {
		return
	}
	s.manager.RouteOutput(context.Background(), platform, sessionID, text, nil)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
