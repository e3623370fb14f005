package session

import (
	"sync"

	"github.com/lzhou/workdesk/internal/model"
	"github.com/lzhou/workdesk/internal/status"
)

// Session holds the authenticated viewer's identity, bearer token and
// the set of direct reports learned from the team listing. It is safe
// for concurrent use; the API client reads the token from request
// goroutines while the UI updates subordinates on refresh.
type Session struct {
	UserID      string
	DisplayName string

	mu           sync.RWMutex
	token        string
	subordinates map[string]string
}

// New returns a session for the given viewer.
func New(userID, displayName, token string) *Session {
	return &Session{
		UserID:       userID,
		DisplayName:  displayName,
		token:        token,
		subordinates: make(map[string]string),
	}
}

// Token implements api.TokenSource.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetToken replaces the bearer token after a fresh login.
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// SetSubordinates replaces the known direct reports.
func (s *Session) SetSubordinates(users []model.User) {
	m := make(map[string]string, len(users))
	for _, u := range users {
		m[u.ID] = u.DisplayName
	}
	s.mu.Lock()
	s.subordinates = m
	s.mu.Unlock()
}

// Subordinates returns the known direct reports.
func (s *Session) Subordinates() []model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]model.User, 0, len(s.subordinates))
	for id, name := range s.subordinates {
		users = append(users, model.User{ID: id, DisplayName: name})
	}
	return users
}

// IsManagerOf reports whether the given user is a direct report of the
// viewer.
func (s *Session) IsManagerOf(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.subordinates[userID]
	return ok
}

// HasSubordinates reports whether the viewer manages anyone, which
// gates the team scope in the UI.
func (s *Session) HasSubordinates() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subordinates) > 0
}

// Actor returns the viewer as a transition actor.
func (s *Session) Actor() status.Actor {
	return status.Actor{
		UserID:    s.UserID,
		ManagerOf: s.IsManagerOf,
	}
}

// Close zeroes the held token. Call on teardown so the secret does not
// linger in a live struct.
func (s *Session) Close() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}
