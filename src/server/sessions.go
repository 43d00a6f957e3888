package server

import (
	"crypto/subtle"
	"sync"
	"time"

	"github.com/google/uuid"
)

const sessionCookie = "cheese_stick_admin"

// -----------------------------------------------------------------------------
// SessionStore
// -----------------------------------------------------------------------------

// SessionStore keeps admin sessions in memory until they expire.
type SessionStore struct {
	password string
	ttl      time.Duration
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]time.Time
}

func NewSessionStore(password string, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &SessionStore{
		password: password,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]time.Time),
	}
}

// Login returns a new session id when password matches.
func (s *SessionStore) Login(password string) (string, bool) {
	if s.password == "" || subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) != 1 {
		return "", false
	}
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	s.sessions[id] = s.now().Add(s.ttl)
	return id, true
}

// Valid reports whether id names a live session.
func (s *SessionStore) Valid(id string) bool {
	if id == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	expires, ok := s.sessions[id]
	if !ok {
		return false
	}
	if !s.now().Before(expires) {
		delete(s.sessions, id)
		return false
	}
	return true
}

// Logout forgets id.
func (s *SessionStore) Logout(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// TTL is how long a session lasts.
func (s *SessionStore) TTL() time.Duration { return s.ttl }

func (s *SessionStore) sweep() {
	now := s.now()
	for id, expires := range s.sessions {
		if !now.Before(expires) {
			delete(s.sessions, id)
		}
	}
}
