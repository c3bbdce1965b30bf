package approval

import (
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// grantTTL is how long an auto-approve grant stays valid after it is set.
const grantTTL = 30 * time.Minute

// neverAutoApprove lists tools that always require an explicit human
// decision, regardless of any standing grant.
var neverAutoApprove = map[string]bool{
	"task":            true,
	"enterplanmode":   true,
	"exitplanmode":    true,
	"askuserquestion": true,
}

// DirectoryResolver returns the resolved working directory for a session,
// or "" when unknown. Used to match directory-scoped grants at check time.
type DirectoryResolver func(sessionID string) string

// Notice records one auto-approved tool for batched display.
type Notice struct {
	Tool   string
	Reason string
}

// Tracker holds per-session pending approvals and auto-approve grants.
// At most one pending request exists per session; setting a new one
// replaces the old.
type Tracker struct {
	mu               sync.Mutex
	logger           *slog.Logger
	now              func() time.Time
	resolveDirectory DirectoryResolver
	warnNoResolver   sync.Once

	pending        map[string]Request
	allowAllUntil  map[string]time.Time
	allowToolUntil map[string]map[string]time.Time
	allowDirUntil  map[string]time.Time
	notices        map[string][]Notice
}

func NewTracker(logger *slog.Logger, resolver DirectoryResolver) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		logger:           logger,
		now:              time.Now,
		resolveDirectory: resolver,
		pending:          make(map[string]Request),
		allowAllUntil:    make(map[string]time.Time),
		allowToolUntil:   make(map[string]map[string]time.Time),
		allowDirUntil:    make(map[string]time.Time),
		notices:          make(map[string][]Notice),
	}
}

func (t *Tracker) SetPending(sessionID string, req Request) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[sessionID] = req
}

func (t *Tracker) Pending(sessionID string) (Request, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	req, ok := t.pending[sessionID]
	return req, ok
}

func (t *Tracker) ClearPending(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, sessionID)
}

// Remove drops all state for a session: pending request, session-scoped
// grants, and buffered notices. Directory grants are not session-scoped
// and survive.
func (t *Tracker) Remove(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, sessionID)
	delete(t.allowAllUntil, sessionID)
	delete(t.allowToolUntil, sessionID)
	delete(t.notices, sessionID)
}

// ParseChoiceText resolves text against the pending choice request's
// options: a number selects 1-indexed, otherwise a case-insensitive exact
// label match. Returns "" when there is no match or no pending choice.
func (t *Tracker) ParseChoiceText(sessionID, text string) string {
	t.mu.Lock()
	req, ok := t.pending[sessionID]
	t.mu.Unlock()
	if !ok || req.Kind != KindChoice {
		return ""
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}
	if n, err := strconv.Atoi(trimmed); err == nil {
		if n < 1 || n > len(req.Options) {
			return ""
		}
		return req.Options[n-1]
	}
	for _, opt := range req.Options {
		if strings.EqualFold(opt, trimmed) {
			return opt
		}
	}
	return ""
}

func (t *Tracker) SetAllowAll(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.allowAllUntil[sessionID] = t.now().Add(grantTTL)
}

func (t *Tracker) SetAllowTool(sessionID, tool string) {
	tool = strings.ToLower(strings.TrimSpace(tool))
	if tool == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	grants := t.allowToolUntil[sessionID]
	if grants == nil {
		grants = make(map[string]time.Time)
		t.allowToolUntil[sessionID] = grants
	}
	grants[tool] = t.now().Add(grantTTL)
}

func (t *Tracker) SetAllowDirectory(directory string) {
	directory = strings.TrimSpace(directory)
	if directory == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.allowDirUntil[filepath.Clean(directory)] = t.now().Add(grantTTL)
}

// CheckAutoApprove reports whether toolName may be approved without asking
// the user, returning a short human-readable reason, or "" when a human
// decision is required. Precedence: never-auto-approve set, then all-grant,
// tool-grant, directory-grant. Expired grants are pruned lazily.
func (t *Tracker) CheckAutoApprove(sessionID, toolName string) string {
	if neverAutoApprove[strings.ToLower(strings.TrimSpace(toolName))] {
		return ""
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()

	if until, ok := t.allowAllUntil[sessionID]; ok {
		if now.Before(until) {
			return "Allow All"
		}
		delete(t.allowAllUntil, sessionID)
	}

	if grants := t.allowToolUntil[sessionID]; grants != nil {
		key := strings.ToLower(strings.TrimSpace(toolName))
		if until, ok := grants[key]; ok {
			if now.Before(until) {
				return "Allow " + toolName
			}
			delete(grants, key)
		}
	}

	sessionDir := ""
	if t.resolveDirectory != nil {
		sessionDir = strings.TrimSpace(t.resolveDirectory(sessionID))
	} else if len(t.allowDirUntil) > 0 {
		t.warnNoResolver.Do(func() {
			t.logger.Warn("auto_approve_dir_skip", "reason", "no directory resolver configured")
		})
	}
	if sessionDir != "" {
		sessionDir = filepath.Clean(sessionDir)
		for dir, until := range t.allowDirUntil {
			if !now.Before(until) {
				delete(t.allowDirUntil, dir)
				continue
			}
			if isPathPrefix(dir, sessionDir) {
				return "Allow dir (" + filepath.Base(dir) + ")"
			}
		}
	}
	return ""
}

// ApplyTimer applies the grant requested by a reply. A directory timer
// falls back to an all-grant when the session's directory is unknown, so
// the user's intent to stop being asked is still honored.
func (t *Tracker) ApplyTimer(sessionID string, reply Reply) {
	if !reply.Allow || reply.Timer == "" {
		return
	}
	switch reply.Timer {
	case TimerAll:
		t.SetAllowAll(sessionID)
	case TimerDirectory:
		dir := ""
		if t.resolveDirectory != nil {
			dir = strings.TrimSpace(t.resolveDirectory(sessionID))
		}
		if dir != "" {
			t.SetAllowDirectory(dir)
		} else {
			t.SetAllowAll(sessionID)
		}
	default:
		t.SetAllowTool(sessionID, reply.Timer)
	}
}

func (t *Tracker) BufferAutoApproveNotice(sessionID, tool, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notices[sessionID] = append(t.notices[sessionID], Notice{Tool: tool, Reason: reason})
}

// DrainAutoApproveNotices returns and clears buffered notices for a
// session. Platform adapters call this on the same boundaries that flush
// buffered output, then render the batch in one message.
func (t *Tracker) DrainAutoApproveNotices(sessionID string) []Notice {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.notices[sessionID]
	delete(t.notices, sessionID)
	return out
}

// isPathPrefix reports whether child equals parent or lives under it.
// This is a path-segment test, not a substring test: /home/user/repo does
// not match /home/user/repo2.
func isPathPrefix(parent, child string) bool {
	if parent == child {
		return true
	}
	return strings.HasPrefix(child, parent+string(filepath.Separator))
}
