// Package pairing holds per-platform access-control state: a numeric
// pairing code, the set of users who redeemed it, and the bound control
// channel. State is persisted after every mutation and reloaded lazily.
package pairing

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/quailyquaily/tether/internal/fsstore"
)

const codeDigits = 8

// ErrInvalidCode is returned when a pairing attempt presents the wrong
// code.
var ErrInvalidCode = errors.New("pairing: invalid code")

// State is the persisted pairing record for one platform.
type State struct {
	PairingCode      string   `json:"pairing_code"`
	PairedUserIDs    []string `json:"paired_user_ids"`
	ControlChannelID string   `json:"control_channel_id,omitempty"`
	CreatedAt        string   `json:"created_at"`
}

// Store owns a platform's pairing state. A fixed code, when configured,
// overrides whatever code was previously persisted.
type Store struct {
	mu        sync.Mutex
	logger    *slog.Logger
	path      string
	fixedCode string

	loaded bool
	state  State
	paired map[string]bool
}

func NewStore(logger *slog.Logger, path, fixedCode string) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		logger:    logger,
		path:      path,
		fixedCode: fixedCode,
	}
}

// generateCode returns a random zero-padded numeric code.
func generateCode() string {
	limit := big.NewInt(1)
	for i := 0; i < codeDigits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		// crypto/rand reading from the OS does not fail in practice.
		panic(fmt.Sprintf("pairing: generate code: %v", err))
	}
	return fmt.Sprintf("%0*d", codeDigits, n)
}

// loadOrCreate reads the persisted state on first use, creating and
// persisting a fresh record when the file is missing or corrupt. Callers
// must hold s.mu.
func (s *Store) loadOrCreate() {
	if s.loaded {
		return
	}
	s.loaded = true

	var st State
	found, err := fsstore.ReadJSON(s.path, &st)
	if err != nil {
		if errors.Is(err, fsstore.ErrDecodeFailed) {
			s.logger.Warn("pairing_state_corrupt", "path", s.path)
		} else {
			s.logger.Warn("pairing_state_load_error", "path", s.path, "error", err.Error())
		}
		found = false
	}

	dirty := false
	if !found {
		st = State{
			PairingCode: generateCode(),
			CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		}
		dirty = true
	}
	if s.fixedCode != "" && st.PairingCode != s.fixedCode {
		st.PairingCode = s.fixedCode
		dirty = true
	}

	s.state = st
	s.paired = make(map[string]bool, len(st.PairedUserIDs))
	ids := st.PairedUserIDs[:0]
	for _, id := range st.PairedUserIDs {
		if id != "" && !s.paired[id] {
			s.paired[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	s.state.PairedUserIDs = ids

	if dirty {
		s.persistLocked()
	}
}

func (s *Store) persistLocked() {
	ids := make([]string, 0, len(s.paired))
	for id := range s.paired {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	s.state.PairedUserIDs = ids

	if err := fsstore.WriteJSONAtomic(s.path, s.state, fsstore.FileOptions{}); err != nil {
		s.logger.Warn("pairing_state_persist_error", "path", s.path, "error", err.Error())
	}
}

// Code returns the active pairing code.
func (s *Store) Code() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadOrCreate()
	return s.state.PairingCode
}

// ControlChannelID returns the bound control channel, or "" when unbound.
func (s *Store) ControlChannelID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadOrCreate()
	return s.state.ControlChannelID
}

// IsPaired reports whether the user has redeemed the pairing code.
func (s *Store) IsPaired(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadOrCreate()
	return s.paired[userID]
}

// PairedUserIDs returns the sorted list of paired users.
func (s *Store) PairedUserIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadOrCreate()
	ids := make([]string, 0, len(s.paired))
	for id := range s.paired {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Pair authorizes a user if the presented code matches. Re-pairing an
// already paired user succeeds without rewriting state.
func (s *Store) Pair(code, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadOrCreate()
	if code != s.state.PairingCode {
		return ErrInvalidCode
	}
	if s.paired[userID] {
		return nil
	}
	s.paired[userID] = true
	s.persistLocked()
	s.logger.Info("pairing_user_paired", "path", s.path, "user_id", userID)
	return nil
}

// BindControlChannel binds the control channel if the presented code
// matches, and pairs the calling user in the same step so setup is a
// single command.
func (s *Store) BindControlChannel(code, channelID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadOrCreate()
	if code != s.state.PairingCode {
		return ErrInvalidCode
	}
	s.state.ControlChannelID = channelID
	if userID != "" {
		s.paired[userID] = true
	}
	s.persistLocked()
	s.logger.Info("pairing_control_channel_bound", "path", s.path, "channel_id", channelID)
	return nil
}

// Snapshot returns a copy of the current persisted state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadOrCreate()
	st := s.state
	st.PairedUserIDs = append([]string(nil), s.state.PairedUserIDs...)
	return st
}
