package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/mzeman/cloudspend/internal/spend"
)

// MockUserRepository is a mock implementation of spend.UserRepository.
type MockUserRepository struct {
	GetUserByUsernameFunc func(ctx context.Context, username string) (*spend.User, error)
	InsertUserFunc        func(ctx context.Context, user *spend.User) error
}

func (m *MockUserRepository) GetUserByUsername(ctx context.Context, username string) (*spend.User, error) {
	if m.GetUserByUsernameFunc != nil {
		return m.GetUserByUsernameFunc(ctx, username)
	}
	return nil, spend.ErrNotFound
}

func (m *MockUserRepository) InsertUser(ctx context.Context, user *spend.User) error {
	if m.InsertUserFunc != nil {
		return m.InsertUserFunc(ctx, user)
	}
	return nil
}

func testUser(t *testing.T, username, password string, role spend.Role) *spend.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	return &spend.User{
		ID:           "user-1",
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
	}
}

func newTestService(t *testing.T, users spend.UserRepository) *Service {
	t.Helper()
	return NewService(users, NewSessionManager(time.Hour), zerolog.Nop())
}

func TestLogin(t *testing.T) {
	user := testUser(t, "alice", "s3cret", spend.RoleEditor)
	repo := &MockUserRepository{
		GetUserByUsernameFunc: func(ctx context.Context, username string) (*spend.User, error) {
			if username == "alice" {
				return user, nil
			}
			return nil, spend.ErrNotFound
		},
	}
	svc := newTestService(t, repo)

	session, err := svc.Login(context.Background(), "alice", "s3cret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if session.Username != "alice" || session.Role != spend.RoleEditor {
		t.Errorf("Unexpected session: %+v", session)
	}
	if session.Token == "" {
		t.Error("Expected a session token")
	}

	// The issued token must authenticate.
	got, err := svc.Authenticate(session.Token)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if got.UserID != user.ID {
		t.Errorf("Expected user %s, got %s", user.ID, got.UserID)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	user := testUser(t, "alice", "s3cret", spend.RoleViewer)
	repo := &MockUserRepository{
		GetUserByUsernameFunc: func(ctx context.Context, username string) (*spend.User, error) {
			return user, nil
		},
	}
	svc := newTestService(t, repo)

	_, err := svc.Login(context.Background(), "alice", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	svc := newTestService(t, &MockUserRepository{})

	_, err := svc.Login(context.Background(), "nobody", "whatever")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Unknown user must look like bad credentials, got %v", err)
	}
}

func TestLogin_StoreFailure(t *testing.T) {
	cause := errors.New("connection refused")
	repo := &MockUserRepository{
		GetUserByUsernameFunc: func(ctx context.Context, username string) (*spend.User, error) {
			return nil, cause
		},
	}
	svc := newTestService(t, repo)

	_, err := svc.Login(context.Background(), "alice", "s3cret")
	if errors.Is(err, ErrInvalidCredentials) {
		t.Error("Store failure must not map to bad credentials")
	}
	if !errors.Is(err, cause) {
		t.Errorf("Expected wrapped store error, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	user := testUser(t, "alice", "s3cret", spend.RoleViewer)
	repo := &MockUserRepository{
		GetUserByUsernameFunc: func(ctx context.Context, username string) (*spend.User, error) {
			return user, nil
		},
	}
	svc := newTestService(t, repo)

	session, err := svc.Login(context.Background(), "alice", "s3cret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	svc.Logout(session.Token)

	if _, err := svc.Authenticate(session.Token); !errors.Is(err, ErrNoSession) {
		t.Errorf("Expected ErrNoSession after logout, got %v", err)
	}
}

func TestAuthenticate_EmptyToken(t *testing.T) {
	svc := newTestService(t, &MockUserRepository{})
	if _, err := svc.Authenticate(""); !errors.Is(err, ErrNoSession) {
		t.Errorf("Expected ErrNoSession for empty token, got %v", err)
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")); err != nil {
		t.Errorf("Hash does not verify: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("other")); err == nil {
		t.Error("Hash verified the wrong password")
	}
}
