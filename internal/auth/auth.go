package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/mzeman/cloudspend/internal/spend"
)

var (
	// ErrInvalidCredentials reports a failed login. Unknown usernames and
	// wrong passwords both map here so the response cannot be used to probe
	// which accounts exist.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrNoSession reports a request without a valid session.
	ErrNoSession = errors.New("no active session")
)

// Service authenticates users and manages their sessions.
type Service struct {
	users    spend.UserRepository
	sessions *SessionManager
	log      zerolog.Logger
}

// NewService creates an auth service on the given user store.
func NewService(users spend.UserRepository, sessions *SessionManager, log zerolog.Logger) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		log:      log.With().Str("component", "auth").Logger(),
	}
}

// Login verifies the credentials and issues a session. Failures other than
// bad credentials (a store outage, say) are returned as-is for the caller
// to treat as internal.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, spend.ErrNotFound) {
			s.log.Debug().Str("username", username).Msg("Login attempt for unknown user")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("Login: looking up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.log.Debug().Str("username", username).Msg("Login attempt with wrong password")
		return nil, ErrInvalidCredentials
	}

	session := s.sessions.Create(user)
	s.log.Info().Str("username", username).Str("role", string(user.Role)).Msg("User logged in")

	return session, nil
}

// Logout revokes the session for a token. Unknown tokens are ignored.
func (s *Service) Logout(token string) {
	s.sessions.Revoke(token)
}

// Authenticate resolves a session token. Returns ErrNoSession for missing,
// unknown, or expired tokens.
func (s *Service) Authenticate(token string) (*Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	session, ok := s.sessions.Get(token)
	if !ok {
		return nil, ErrNoSession
	}
	return session, nil
}

// HashPassword derives the bcrypt hash stored for a user.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("HashPassword: hashing password: %w", err)
	}
	return string(hash), nil
}
