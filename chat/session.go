// ABOUTME: Session identifier holder correlating turns of one conversation.
// ABOUTME: Bound at most once by the first connected event that supplies an id.
package chat

import "log"

// Session holds the backend-assigned session identifier. It is set at most
// once and then included on every outgoing turn request so the backend can
// correlate state across turns.
type Session struct {
	id  string
	log *log.Logger
}

// NewSession creates an unbound session. A nil logger falls back to the
// package default.
func NewSession(logger *log.Logger) *Session {
	if logger == nil {
		logger = log.Default()
	}
	return &Session{log: logger}
}

// Get returns the bound identifier, or "" and false when none is bound yet.
func (s *Session) Get() (string, bool) {
	return s.id, s.id != ""
}

// BindIfAbsent binds the identifier if none is bound. Rebinding the same id
// is a no-op. A differing id is not expected from the backend: it is logged
// and not applied.
func (s *Session) BindIfAbsent(id string) {
	if id == "" {
		return
	}
	if s.id == "" {
		s.id = id
		return
	}
	if s.id != id {
		s.log.Printf("session rebind ignored current=%s offered=%s", s.id, id)
	}
}
