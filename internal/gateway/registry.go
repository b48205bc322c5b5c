package gateway

import (
	"sync"
)

// SessionRegistry maps each online user to exactly one active session.
// A new registration for the same user replaces the previous session
// (last writer wins; there is no multi-device fan-out).
type SessionRegistry struct {
	byUser    map[string]*Session // user_id -> session
	bySession map[string]*Session // session_id -> session
	mu        sync.RWMutex
}

// NewSessionRegistry creates a new session registry
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		byUser:    make(map[string]*Session),
		bySession: make(map[string]*Session),
	}
}

// Register binds the session's user to it, returning any evicted prior
// session so the caller can close its transport.
func (r *SessionRegistry) Register(sess *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := r.byUser[sess.UserID]
	if evicted != nil {
		delete(r.bySession, evicted.ID)
	}

	r.byUser[sess.UserID] = sess
	r.bySession[sess.ID] = sess
	return evicted
}

// Unregister removes the session's mapping. It only removes the mapping if
// it still points at this exact session, so a late disconnect from a
// replaced session cannot evict its successor. Returns whether a mapping
// was removed; repeated calls are a no-op.
func (r *SessionRegistry) Unregister(sess *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.byUser[sess.UserID]
	if !exists || current.ID != sess.ID {
		return false
	}

	delete(r.byUser, sess.UserID)
	delete(r.bySession, sess.ID)
	return true
}

// Lookup retrieves the active session for a user
func (r *SessionRegistry) Lookup(userID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, exists := r.byUser[userID]
	return sess, exists
}

// LookupBySessionID retrieves a session by its transport-level id
func (r *SessionRegistry) LookupBySessionID(sessionID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, exists := r.bySession[sessionID]
	return sess, exists
}

// ActiveUserIDs returns a snapshot of the currently connected user ids
func (r *SessionRegistry) ActiveUserIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.byUser))
	for id := range r.byUser {
		ids = append(ids, id)
	}
	return ids
}

// Sessions returns a snapshot of all active sessions
func (r *SessionRegistry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*Session, 0, len(r.byUser))
	for _, sess := range r.byUser {
		sessions = append(sessions, sess)
	}
	return sessions
}

// Count returns the number of active sessions
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
