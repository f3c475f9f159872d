// ABOUTME: In-memory session store with TTL pruning for cross-turn conversation state.
// ABOUTME: Tracks per-session history and the currently active agent; nothing survives a restart.
package server

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// HistoryMessage is one entry of a session's conversation history.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SessionState is the stored state for one session.
type SessionState struct {
	ID           string
	Messages     []HistoryMessage
	CurrentAgent string
	UpdatedAt    time.Time
}

// SessionStore holds sessions in memory and prunes entries idle longer than
// the TTL on every access. A zero TTL disables pruning.
type SessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*SessionState
	log      *log.Logger
	now      func() time.Time
}

// NewSessionStore creates an empty store.
func NewSessionStore(ttl time.Duration, logger *log.Logger) *SessionStore {
	if logger == nil {
		logger = log.Default()
	}
	return &SessionStore{
		ttl:      ttl,
		sessions: make(map[string]*SessionState),
		log:      logger,
		now:      time.Now,
	}
}

// GetOrCreate returns the session with the given id, refreshing its idle
// timer, or creates a new one with a generated id when the id is empty or
// unknown. Returns a copy; mutation goes through Update.
func (s *SessionStore) GetOrCreate(id, startingAgent string) SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()

	if id != "" {
		if state, ok := s.sessions[id]; ok {
			state.UpdatedAt = s.now()
			return copyState(state)
		}
	}

	state := &SessionState{
		ID:           uuid.NewString(),
		CurrentAgent: startingAgent,
		UpdatedAt:    s.now(),
	}
	if id != "" {
		// Honor a client-supplied id for an expired or unknown session.
		state.ID = id
	}
	s.sessions[state.ID] = state
	s.log.Printf("session created session_id=%s starting_agent=%s", state.ID, startingAgent)
	return copyState(state)
}

// Update replaces the session's history and current agent. Unknown ids are
// ignored (the session may have been pruned mid-turn).
func (s *SessionStore) Update(id string, messages []HistoryMessage, currentAgent string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()

	state, ok := s.sessions[id]
	if !ok {
		return
	}
	state.Messages = append([]HistoryMessage(nil), messages...)
	state.CurrentAgent = currentAgent
	state.UpdatedAt = s.now()
}

// CurrentAgent returns the session's active agent name.
func (s *SessionStore) CurrentAgent(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()

	state, ok := s.sessions[id]
	if !ok {
		return "", false
	}
	return state.CurrentAgent, true
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()
	return len(s.sessions)
}

// prune drops sessions idle longer than the TTL. Caller holds the lock.
func (s *SessionStore) prune() {
	if s.ttl <= 0 {
		return
	}
	cutoff := s.now().Add(-s.ttl)
	for id, state := range s.sessions {
		if state.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			s.log.Printf("session pruned session_id=%s", id)
		}
	}
}

func copyState(state *SessionState) SessionState {
	out := *state
	out.Messages = append([]HistoryMessage(nil), state.Messages...)
	return out
}
