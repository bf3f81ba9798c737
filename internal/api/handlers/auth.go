package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/mzeman/cloudspend/internal/api/middleware"
	"github.com/mzeman/cloudspend/internal/auth"
)

// AuthHandler serves login, logout, and identity lookup.
type AuthHandler struct {
	svc           *auth.Service
	secureCookies bool
	log           zerolog.Logger
}

// NewAuthHandler creates the handler. secureCookies should be true behind
// TLS so the session cookie never travels in clear text.
func NewAuthHandler(svc *auth.Service, secureCookies bool, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:           svc,
		secureCookies: secureCookies,
		log:           log,
	}
}

// Login handles POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	session, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			middleware.WriteError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
			return
		}
		h.log.Error().Err(err).Msg("Login failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"username": session.Username,
		"role":     session.Role,
	})
}

// Logout handles POST /api/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookieName); err == nil {
		h.svc.Logout(cookie.Value)
	}

	// Expire the cookie client-side as well.
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Me handles GET /api/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"username":  session.Username,
		"role":      session.Role,
		"expiresAt": session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}
