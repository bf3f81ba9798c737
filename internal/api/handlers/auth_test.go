package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/mzeman/cloudspend/internal/api/middleware"
	"github.com/mzeman/cloudspend/internal/auth"
	"github.com/mzeman/cloudspend/internal/spend"
)

type stubUserRepo struct {
	users map[string]*spend.User
}

func (s *stubUserRepo) GetUserByUsername(ctx context.Context, username string) (*spend.User, error) {
	user, ok := s.users[username]
	if !ok {
		return nil, spend.ErrNotFound
	}
	return user, nil
}

func (s *stubUserRepo) InsertUser(ctx context.Context, user *spend.User) error {
	s.users[user.Username] = user
	return nil
}

func newAuthHandler(t *testing.T, users ...*spend.User) (*AuthHandler, *auth.Service) {
	t.Helper()

	repo := &stubUserRepo{users: make(map[string]*spend.User)}
	for _, u := range users {
		repo.users[u.Username] = u
	}
	svc := auth.NewService(repo, auth.NewSessionManager(time.Hour), zerolog.Nop())
	return NewAuthHandler(svc, false, zerolog.Nop()), svc
}

func testUser(t *testing.T, username, password string, role spend.Role) *spend.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing password failed: %v", err)
	}
	return &spend.User{
		ID:           "user-" + username,
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
	}
}

func sessionCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestLoginSuccess(t *testing.T) {
	handler, _ := newAuthHandler(t, testUser(t, "magda", "s3cret", spend.RoleEditor))

	body := `{"username":"magda","password":"s3cret"}`
	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(body))
	rr := httptest.NewRecorder()

	handler.Login(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	cookie := sessionCookie(rr)
	if cookie == nil {
		t.Fatal("expected a session cookie to be set")
	}
	if cookie.Value == "" {
		t.Error("expected a non-empty session token")
	}
	if !cookie.HttpOnly {
		t.Error("expected the session cookie to be HttpOnly")
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response failed: %v", err)
	}
	if resp["username"] != "magda" || resp["role"] != "editor" {
		t.Errorf("unexpected login response: %v", resp)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	handler, _ := newAuthHandler(t, testUser(t, "magda", "s3cret", spend.RoleViewer))

	body := `{"username":"magda","password":"wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(body))
	rr := httptest.NewRecorder()

	handler.Login(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
	if msg := decodeError(t, rr); msg != "invalid username or password" {
		t.Errorf("unexpected error message: %q", msg)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	handler, _ := newAuthHandler(t)

	body := `{"username":"ghost","password":"whatever"}`
	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(body))
	rr := httptest.NewRecorder()

	handler.Login(rr, req)

	// Unknown user and wrong password are indistinguishable to the caller.
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
	if msg := decodeError(t, rr); msg != "invalid username or password" {
		t.Errorf("unexpected error message: %q", msg)
	}
}

func TestLoginMissingFields(t *testing.T) {
	handler, _ := newAuthHandler(t)

	body := `{"username":"magda"}`
	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(body))
	rr := httptest.NewRecorder()

	handler.Login(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	handler, svc := newAuthHandler(t, testUser(t, "magda", "s3cret", spend.RoleViewer))

	session, err := svc.Login(context.Background(), "magda", "s3cret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: session.Token})
	rr := httptest.NewRecorder()

	handler.Logout(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	cookie := sessionCookie(rr)
	if cookie == nil {
		t.Fatal("expected the session cookie to be cleared")
	}
	if cookie.MaxAge != -1 {
		t.Errorf("expected MaxAge -1, got %d", cookie.MaxAge)
	}

	if _, err := svc.Authenticate(session.Token); err == nil {
		t.Error("expected the session to be invalid after logout")
	}
}

func TestMeUnauthenticated(t *testing.T) {
	handler, _ := newAuthHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	rr := httptest.NewRecorder()

	handler.Me(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestMeWithSession(t *testing.T) {
	handler, svc := newAuthHandler(t, testUser(t, "magda", "s3cret", spend.RoleAdmin))

	session, err := svc.Login(context.Background(), "magda", "s3cret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req = req.WithContext(middleware.ContextWithSession(req.Context(), session))
	rr := httptest.NewRecorder()

	handler.Me(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response failed: %v", err)
	}
	if resp["username"] != "magda" || resp["role"] != "admin" {
		t.Errorf("unexpected identity response: %v", resp)
	}
}
