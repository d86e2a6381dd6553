package client

import (
	"sync"
	"time"

	"github.com/sheetviz/access-api/internal/core/domain"
)

// Session holds the single credential and identity of a logged-in caller.
// It is created by Client.Login and destroyed by Logout or by any 401/403.
type Session struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time
	user      domain.User
	active    bool
}

func newSession(token string, expiresAt time.Time, user domain.User) *Session {
	return &Session{token: token, expiresAt: expiresAt, user: user, active: true}
}

// Token returns the bearer token while the session is active.
func (s *Session) Token() (string, bool) {
	if s == nil {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.active {
		return "", false
	}
	return s.token, true
}

// Identity returns the user the session was opened for.
func (s *Session) Identity() (domain.User, bool) {
	if s == nil {
		return domain.User{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user, s.active
}

// Role is the role reported at login, or "" once the session is gone.
func (s *Session) Role() domain.Role {
	u, ok := s.Identity()
	if !ok {
		return ""
	}
	return u.Role
}

func (s *Session) ExpiresAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// Active reports whether the session still carries a credential.
func (s *Session) Active() bool {
	_, ok := s.Token()
	return ok
}

// Invalidate drops the credential and the identity.
func (s *Session) Invalidate() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = domain.User{}
	s.active = false
}
