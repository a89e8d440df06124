package services

import (
	"log"
	"sync"
	"time"
)

// Session is the per-party conversation state. One exists per phone number,
// created lazily on first contact and reset to a fresh customer session
// whenever a flow completes or authentication fails.
type Session struct {
	Role      Role                   `json:"role"`
	State     ConversationState      `json:"state"`
	Scratch   map[string]interface{} `json:"scratch"` // reserved for mid-flow data
	ExpiresAt time.Time              `json:"expires_at"`
}

// NewSession returns the default session: customer at the start of a flow.
func NewSession() *Session {
	return &Session{
		Role:    RoleCustomer,
		State:   StateInitial,
		Scratch: make(map[string]interface{}),
	}
}

// Clone returns a copy the engine can mutate without touching the stored
// session.
func (s *Session) Clone() *Session {
	scratch := make(map[string]interface{}, len(s.Scratch))
	for k, v := range s.Scratch {
		scratch[k] = v
	}
	return &Session{
		Role:      s.Role,
		State:     s.State,
		Scratch:   scratch,
		ExpiresAt: s.ExpiresAt,
	}
}

// SessionStore keeps one conversation session per phone number in memory.
// Idle sessions are evicted after the TTL; an evicted session is
// indistinguishable from a reset one, so eviction never strands a user.
type SessionStore struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	sessionTTL time.Duration
}

// NewSessionStore creates a new session store and starts the cleanup routine
func NewSessionStore(ttl time.Duration) *SessionStore {
	ss := &SessionStore{
		sessions:   make(map[string]*Session),
		sessionTTL: ttl,
	}

	go ss.cleanupExpiredSessions()

	return ss
}

// Get returns a copy of the session for the given phone number, creating a
// default customer session if none exists yet.
func (ss *SessionStore) Get(phone string) *Session {
	ss.mu.RLock()
	session, exists := ss.sessions[phone]
	ss.mu.RUnlock()

	if !exists || time.Now().After(session.ExpiresAt) {
		return NewSession()
	}
	return session.Clone()
}

// Put replaces the stored session for the phone number and refreshes its
// expiry.
func (ss *SessionStore) Put(phone string, session *Session) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	stored := session.Clone()
	stored.ExpiresAt = time.Now().Add(ss.sessionTTL)
	ss.sessions[phone] = stored
}

// ActiveCount returns the number of unexpired sessions (for monitoring).
func (ss *SessionStore) ActiveCount() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	count := 0
	now := time.Now()
	for _, session := range ss.sessions {
		if now.Before(session.ExpiresAt) {
			count++
		}
	}
	return count
}

// evictExpired removes all expired sessions and returns how many went.
func (ss *SessionStore) evictExpired() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	evicted := 0
	now := time.Now()
	for phone, session := range ss.sessions {
		if now.After(session.ExpiresAt) {
			delete(ss.sessions, phone)
			evicted++
		}
	}
	return evicted
}

// cleanupExpiredSessions runs periodically to clean up expired sessions
func (ss *SessionStore) cleanupExpiredSessions() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		if evicted := ss.evictExpired(); evicted > 0 {
			log.Printf("🧹 Evicted %d expired conversation sessions", evicted)
		}
	}
}
