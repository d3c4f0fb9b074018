package auth

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// User represents an authenticated user
type User struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Username string   `json:"username"`
	Groups   []string `json:"groups"`
}

// Session represents a user session
type Session struct {
	ID        string
	User      *User
	Token     *oauth2.Token
	CreatedAt time.Time
	ExpiresAt time.Time
}

// sessionStore keeps sessions in memory, keyed by session id
type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*Session)}
}

func (s *sessionStore) create(user *User, token *oauth2.Token, expires time.Time) *Session {
	return s.put(generateSessionID(), user, token, expires)
}

func (s *sessionStore) put(id string, user *User, token *oauth2.Token, expires time.Time) *Session {
	session := &Session{
		ID:        id,
		User:      user,
		Token:     token,
		CreatedAt: time.Now(),
		ExpiresAt: expires,
	}
	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()
	return session
}

// lookup returns a live session, dropping it if it has expired
func (s *sessionStore) lookup(id string) (*Session, bool) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(session.ExpiresAt) {
		s.delete(id)
		return nil, false
	}
	return session, true
}

func (s *sessionStore) delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// generateState generates a random state string for CSRF protection
func generateState() string {
	return randomToken()
}

// generateSessionID generates a random session ID
func generateSessionID() string {
	return randomToken()
}

func randomToken() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
