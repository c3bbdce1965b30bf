package bridge

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrPlatformNotRegistered is returned when a routing target platform has
// no registered bridge.
var ErrPlatformNotRegistered = errors.New("bridge: platform not registered")

// Manager routes session events to the platform bridge registered for each
// platform. Registration is last-wins so a reconnecting adapter replaces
// its stale predecessor.
type Manager struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	bridges map[Platform]Bridge
}

func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger:  logger,
		bridges: make(map[Platform]Bridge),
	}
}

// Register binds a bridge to a platform, replacing any existing binding.
func (m *Manager) Register(platform Platform, b Bridge) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bridges[platform]; ok {
		m.logger.Info("bridge_replaced", "platform", string(platform))
	}
	m.bridges[platform] = b
}

// Unregister removes a platform's bridge if the given bridge is still the
// one registered. A newer registration is left untouched.
func (m *Manager) Unregister(platform Platform, b Bridge) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bridges[platform] == b {
		delete(m.bridges, platform)
	}
}

// Bridge returns the bridge registered for a platform.
func (m *Manager) Bridge(platform Platform) (Bridge, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bridges[platform]
	return b, ok
}

// RouteOutput delivers output to a session's platform. A missing platform
// is logged and dropped rather than failing the producer.
func (m *Manager) RouteOutput(ctx context.Context, platform Platform, sessionID, text string, meta map[string]any) {
	b, ok := m.Bridge(platform)
	if !ok {
		m.logger.Warn("bridge_route_drop", "platform", string(platform), "session_id", sessionID, "kind", "output")
		return
	}
	if err := b.OnOutput(ctx, sessionID, text, meta); err != nil {
		m.logger.Warn("bridge_output_error", "platform", string(platform), "session_id", sessionID, "error", err.Error())
	}
}

// RouteApproval delivers an approval request to a session's platform.
func (m *Manager) RouteApproval(ctx context.Context, platform Platform, sessionID, title, description string, options []string) {
	b, ok := m.Bridge(platform)
	if !ok {
		m.logger.Warn("bridge_route_drop", "platform", string(platform), "session_id", sessionID, "kind", "approval")
		return
	}
	if err := b.OnApprovalRequest(ctx, sessionID, title, description, options); err != nil {
		m.logger.Warn("bridge_approval_error", "platform", string(platform), "session_id", sessionID, "error", err.Error())
	}
}

// RouteStatus delivers a status change to a session's platform.
func (m *Manager) RouteStatus(ctx context.Context, platform Platform, sessionID, status, message string) {
	b, ok := m.Bridge(platform)
	if !ok {
		m.logger.Warn("bridge_route_drop", "platform", string(platform), "session_id", sessionID, "kind", "status")
		return
	}
	if err := b.OnStatusChange(ctx, sessionID, status, message); err != nil {
		m.logger.Warn("bridge_status_error", "platform", string(platform), "session_id", sessionID, "error", err.Error())
	}
}

// RouteTyping signals typing activity to a session's platform. Typing is
// cosmetic, so a missing platform or send failure is silently ignored.
func (m *Manager) RouteTyping(ctx context.Context, platform Platform, sessionID string) {
	if b, ok := m.Bridge(platform); ok {
		_ = b.OnTyping(ctx, sessionID)
	}
}

// RouteTypingStopped clears the typing signal on a session's platform.
func (m *Manager) RouteTypingStopped(ctx context.Context, platform Platform, sessionID string) {
	if b, ok := m.Bridge(platform); ok {
		_ = b.OnTypingStopped(ctx, sessionID)
	}
}

// RouteSessionRemoved tells a session's platform the session is gone.
func (m *Manager) RouteSessionRemoved(ctx context.Context, platform Platform, sessionID string) {
	b, ok := m.Bridge(platform)
	if !ok {
		return
	}
	if err := b.OnSessionRemoved(ctx, sessionID); err != nil {
		m.logger.Warn("bridge_session_removed_error", "platform", string(platform), "session_id", sessionID, "error", err.Error())
	}
}

// CreateThread asks a platform to create a thread for a session.
func (m *Manager) CreateThread(ctx context.Context, platform Platform, sessionID, name string) (ThreadInfo, error) {
	b, ok := m.Bridge(platform)
	if !ok {
		return ThreadInfo{}, ErrPlatformNotRegistered
	}
	return b.CreateThread(ctx, sessionID, name)
}
