// Package bridge defines the contract between the session backend and
// chat-platform adapters: the event stream shape, the Bridge interface a
// platform implements, the callbacks a platform may invoke on the backend,
// and a registry routing per-session events to the right platform.
package bridge

import "context"

// Platform identifies a chat platform adapter.
type Platform string

const (
	PlatformTelegram Platform = "telegram"
	PlatformSlack    Platform = "slack"
	PlatformDiscord  Platform = "discord"
	// PlatformNone marks a session with no platform binding.
	PlatformNone Platform = "none"
)

// ThreadInfo identifies a platform-side conversation thread.
type ThreadInfo struct {
	ThreadID string
	Platform Platform
}

// SessionSummary describes one managed session for listings.
type SessionSummary struct {
	ID               string
	Name             string
	State            string
	Directory        string
	Adapter          string
	Platform         Platform
	PlatformThreadID string
}

// ExternalSessionSummary describes a runner session discovered outside the
// manager, eligible for attachment.
type ExternalSessionSummary struct {
	ID         string
	RunnerType string
	Directory  string
}

// HistoryMessage is one turn of an external session's transcript.
type HistoryMessage struct {
	Role     string
	Content  string
	Thinking string
}

// History is an external session's transcript, oldest first.
type History struct {
	Messages []HistoryMessage
}

// DirectoryInfo is the result of checking a user-supplied directory.
type DirectoryInfo struct {
	Exists       bool
	ResolvedPath string
}

// Callbacks are the backend operations a platform adapter may invoke.
// Fields are functions so adapters can be tested against a struct literal
// without a backend running. Any field may be nil when the backend does
// not support the operation.
type Callbacks struct {
	ListSessions         func(ctx context.Context) ([]SessionSummary, error)
	ListExternalSessions func(ctx context.Context, limit int) ([]ExternalSessionSummary, error)
	AttachExternal       func(ctx context.Context, externalID, runnerType, directory string) (SessionSummary, error)
	StopSession          func(ctx context.Context, sessionID string) error
	GetExternalHistory   func(ctx context.Context, externalID, runnerType string, limit int) (History, error)
	CheckDirectory       func(ctx context.Context, path string) (DirectoryInfo, error)
	RespondToPermission  func(ctx context.Context, sessionID, requestID string, allow bool, message string) (bool, error)
	SendInputOrStart     func(ctx context.Context, sessionID, text string) error
	GetSessionDirectory  func(ctx context.Context, sessionID string) string
	GetSessionInfo       func(ctx context.Context, sessionID string) (SessionSummary, bool)
	OnSessionBound       func(ctx context.Context, sessionID string, thread ThreadInfo)
}

// Bridge is the surface a platform adapter exposes to the event router.
// Implementations deliver to the platform thread bound to the session.
type Bridge interface {
	// OnOutput delivers a chunk of agent output. meta carries delivery
	// hints such as {"final": true}.
	OnOutput(ctx context.Context, sessionID, text string, meta map[string]any) error
	// OnApprovalRequest presents a permission or choice request.
	OnApprovalRequest(ctx context.Context, sessionID, title, description string, options []string) error
	// OnStatusChange reports a session state transition or error notice.
	OnStatusChange(ctx context.Context, sessionID, status, message string) error
	// OnTyping signals the session is actively producing output.
	OnTyping(ctx context.Context, sessionID string) error
	// OnTypingStopped clears the typing signal.
	OnTypingStopped(ctx context.Context, sessionID string) error
	// OnSessionRemoved tells the platform the session is gone for good.
	OnSessionRemoved(ctx context.Context, sessionID string) error
	// CreateThread creates a platform thread for a new session.
	CreateThread(ctx context.Context, sessionID, name string) (ThreadInfo, error)
}
