// Package auth provides session-cookie authentication: credential checks
// against the user store and an in-memory session table. Sessions live in
// process memory because the deployment is single-process; a restart logs
// everyone out.
package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mzeman/cloudspend/internal/spend"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "cloudspend_session"

// Session is one authenticated login. The token is an opaque uuid handed to
// the browser as a cookie value.
type Session struct {
	Token     string
	UserID    string
	Username  string
	Role      spend.Role
	ExpiresAt time.Time
}

// SessionManager holds active sessions keyed by token. Expired entries are
// purged lazily on lookup and swept whenever a new session is created.
type SessionManager struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*Session

	// now is replaceable in tests.
	now func() time.Time
}

// NewSessionManager creates a manager issuing sessions with the given TTL.
func NewSessionManager(ttl time.Duration) *SessionManager {
	return &SessionManager{
		ttl:      ttl,
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create issues a new session for the user and sweeps expired entries while
// it holds the lock.
func (m *SessionManager) Create(user *spend.User) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for token, session := range m.sessions {
		if now.After(session.ExpiresAt) {
			delete(m.sessions, token)
		}
	}

	session := &Session{
		Token:     uuid.New().String(),
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		ExpiresAt: now.Add(m.ttl),
	}
	m.sessions[session.Token] = session

	return session
}

// Get returns the session for a token, or false when the token is unknown
// or expired. Expired entries are deleted on the way out.
func (m *SessionManager) Get(token string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[token]
	if !ok {
		return nil, false
	}
	if m.now().After(session.ExpiresAt) {
		delete(m.sessions, token)
		return nil, false
	}

	return session, true
}

// Revoke removes a session. Revoking an unknown token is a no-op.
func (m *SessionManager) Revoke(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}

// Active returns the number of live sessions.
func (m *SessionManager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	now := m.now()
	for _, session := range m.sessions {
		if !now.After(session.ExpiresAt) {
			count++
		}
	}
	return count
}
