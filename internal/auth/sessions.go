package auth

import (
	"sync"

	"github.com/google/uuid"
)

// SessionStore maps opaque session tokens to usernames. Sessions live for
// the lifetime of the process.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]string
}

// NewSessionStore returns an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]string)}
}

// Create mints a token for username.
func (s *SessionStore) Create(username string) string {
	token := uuid.NewString()

	s.mu.Lock()
	s.sessions[token] = username
	s.mu.Unlock()

	return token
}

// Validate resolves token to its username.
func (s *SessionStore) Validate(token string) (string, bool) {
	if token == "" {
		return "", false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	username, ok := s.sessions[token]
	return username, ok
}

// Add binds token to username directly; used to seed sessions.
func (s *SessionStore) Add(token, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = username
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
