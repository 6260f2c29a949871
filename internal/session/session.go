package session

import (
	"sync"

	"github.com/bluetowndev/worktrack/internal/api"
)

// Session is the in-memory authentication state. It lives for the
// process lifetime only; nothing is ever persisted. The refresh token
// is stored but unused — the backend exposes no refresh flow, so an
// expired access token simply makes authenticated calls fail.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *api.UserProfile
}

// Store holds the current session. Mutation is whole-value replacement
// under a mutex, so a reader never observes a half-updated token pair.
type Store struct {
	mu  sync.RWMutex
	cur Session
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Get returns a copy of the current session.
func (s *Store) Get() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Set replaces the session wholesale.
func (s *Store) Set(sess Session) {
	s.mu.Lock()
	s.cur = sess
	s.mu.Unlock()
}

// Clear resets the store to an empty session.
func (s *Store) Clear() {
	s.Set(Session{})
}

// Token returns the current access token, empty when logged out.
func (s *Store) Token() string {
	return s.Get().AccessToken
}
