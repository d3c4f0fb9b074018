package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/ZBugge/nfl-playoff-predictor/internal/logger"
)

// DevUser is the identity MockAuth signs everyone in as
var DevUser = User{
	ID:       "dev-user-123",
	Email:    "dev@playoffs.local",
	Name:     "Dev User",
	Username: "devuser",
	Groups:   []string{"users", "admins"},
}

// MockAuth provides a mock authentication for local development
type MockAuth struct {
	sessions *sessionStore
}

// NewMockAuth creates a new mock authentication handler
func NewMockAuth() *MockAuth {
	logger.Info("Using MOCK authentication for local development")
	return &MockAuth{sessions: newSessionStore()}
}

// IssueToken creates a session for user and returns its id, usable as a
// bearer token. A nil user gets DevUser.
func (m *MockAuth) IssueToken(user *User) string {
	if user == nil {
		u := DevUser
		user = &u
	}
	return m.sessions.create(user, nil, time.Now().Add(24*time.Hour)).ID
}

// LoginHandler for mock auth - auto-creates a session
func (m *MockAuth) LoginHandler(w http.ResponseWriter, r *http.Request) {
	id := m.IssueToken(nil)
	setSessionCookie(w, id, time.Now().Add(24*time.Hour), false)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// CallbackHandler is not needed for mock auth
func (m *MockAuth) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// LogoutHandler for mock auth
func (m *MockAuth) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		m.sessions.delete(cookie.Value)
	}
	clearCookie(w, sessionCookie)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Authenticate resolves a session id issued by this mock
func (m *MockAuth) Authenticate(ctx context.Context, token string) (*User, error) {
	session, ok := m.sessions.lookup(token)
	if !ok {
		return nil, ErrUnauthenticated
	}
	return session.User, nil
}
