package naming

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/quailyquaily/tether/internal/fsstore"
)

// Registry maps session IDs to reserved thread names and guarantees no two
// live sessions share a name. The mapping is persisted as a JSON object so
// reservations survive restarts.
type Registry struct {
	mu     sync.Mutex
	logger *slog.Logger
	path   string

	loaded bool
	names  map[string]string
	used   map[string]bool
}

func NewRegistry(logger *slog.Logger, path string) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger: logger,
		path:   path,
	}
}

// load reads the persisted mapping on first use. A corrupt file is treated
// as empty so a damaged state file never blocks thread creation; blank
// keys or values are dropped.
func (r *Registry) load() {
	if r.loaded {
		return
	}
	r.loaded = true
	r.names = make(map[string]string)
	r.used = make(map[string]bool)

	var raw map[string]string
	found, err := fsstore.ReadJSON(r.path, &raw)
	if err != nil {
		if errors.Is(err, fsstore.ErrDecodeFailed) {
			r.logger.Warn("thread_names_corrupt", "path", r.path)
			return
		}
		r.logger.Warn("thread_names_load_error", "path", r.path, "error", err.Error())
		return
	}
	if !found {
		return
	}
	for sessionID, name := range raw {
		if sessionID == "" || name == "" {
			continue
		}
		r.names[sessionID] = name
		r.used[name] = true
	}
}

func (r *Registry) persist() {
	if err := fsstore.WriteJSONAtomic(r.path, r.names, fsstore.FileOptions{}); err != nil {
		r.logger.Warn("thread_names_persist_error", "path", r.path, "error", err.Error())
	}
}

// PickUnique returns baseName if unused, otherwise the first free
// "<base> 2" .. "<base> 99" candidate, trimming the base so the suffix
// fits the length cap. When all candidates are taken it returns baseName
// as-is rather than failing.
func (r *Registry) PickUnique(baseName string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.load()
	return r.pickUniqueLocked(baseName)
}

func (r *Registry) pickUniqueLocked(baseName string) string {
	if baseName == "" {
		baseName = "Session"
	}
	baseName = truncateRunes(baseName, maxNameLen)
	if !r.used[baseName] {
		return baseName
	}
	for i := 2; i < 100; i++ {
		suffix := fmt.Sprintf(" %d", i)
		avail := maxNameLen - len(suffix)
		if avail < 1 {
			avail = 1
		}
		candidate := truncateRunes(truncateRunes(baseName, avail)+suffix, maxNameLen)
		if !r.used[candidate] {
			return candidate
		}
	}
	return baseName
}

// Reserve picks a unique name derived from baseName, binds it to the
// session, and persists the mapping before returning.
func (r *Registry) Reserve(sessionID, baseName string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.load()
	name := r.pickUniqueLocked(baseName)
	r.names[sessionID] = name
	r.used[name] = true
	r.persist()
	return name
}

// Release frees the session's reserved name so it can be reused. A session
// with no reservation is a no-op.
func (r *Registry) Release(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.load()
	name, ok := r.names[sessionID]
	if !ok {
		return
	}
	delete(r.names, sessionID)
	delete(r.used, name)
	r.persist()
}

// NameFor returns the session's reserved name, if any.
func (r *Registry) NameFor(sessionID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.load()
	name, ok := r.names[sessionID]
	return name, ok
}

// All returns a copy of the current session-to-name mapping.
func (r *Registry) All() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.load()
	out := make(map[string]string, len(r.names))
	for k, v := range r.names {
		out[k] = v
	}
	return out
}
