// Package api assembles the HTTP surface: routes, method dispatch, role
// gates, and the middleware chain.
package api

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mzeman/cloudspend/internal/api/handlers"
	"github.com/mzeman/cloudspend/internal/api/metrics"
	"github.com/mzeman/cloudspend/internal/api/middleware"
	"github.com/mzeman/cloudspend/internal/auth"
	"github.com/mzeman/cloudspend/internal/spend"
)

// Handlers collects the endpoint handlers the router wires up.
type Handlers struct {
	Auth   *handlers.AuthHandler
	Spend  *handlers.SpendHandler
	Ideas  *handlers.IdeasHandler
	Health *handlers.HealthHandler
}

// NewRouter builds the full handler chain. Role gates per route: viewers
// read dashboards and ideas, editors additionally upload CSVs and mutate
// ideas, admins additionally delete ideas.
func NewRouter(log zerolog.Logger, authSvc *auth.Service, h Handlers) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.Health.Check(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.Handle("/metrics", metrics.Handler())

	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.Auth.Login(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			middleware.RequireRole(spend.RoleViewer, h.Auth.Logout)(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			middleware.RequireRole(spend.RoleViewer, h.Auth.Me)(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/spend/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			middleware.RequireRole(spend.RoleEditor, h.Spend.Upload)(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/spend/summary", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			middleware.RequireRole(spend.RoleViewer, h.Spend.Summary)(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/ideas", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			middleware.RequireRole(spend.RoleViewer, h.Ideas.ListIdeas)(w, r)
		case http.MethodPost:
			middleware.RequireRole(spend.RoleEditor, h.Ideas.CreateIdea)(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/ideas/", func(w http.ResponseWriter, r *http.Request) {
		// Path is /api/ideas/{id} or /api/ideas/{id}/note.
		rest := strings.TrimPrefix(r.URL.Path, "/api/ideas/")
		id, sub, _ := strings.Cut(rest, "/")
		if id == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Idea ID is required")
			return
		}

		switch {
		case sub == "" && r.Method == http.MethodGet:
			middleware.RequireRole(spend.RoleViewer, func(w http.ResponseWriter, r *http.Request) {
				h.Ideas.GetIdea(w, r, id)
			})(w, r)
		case sub == "" && r.Method == http.MethodPut:
			middleware.RequireRole(spend.RoleEditor, func(w http.ResponseWriter, r *http.Request) {
				h.Ideas.UpdateIdea(w, r, id)
			})(w, r)
		case sub == "" && r.Method == http.MethodDelete:
			middleware.RequireRole(spend.RoleAdmin, func(w http.ResponseWriter, r *http.Request) {
				h.Ideas.DeleteIdea(w, r, id)
			})(w, r)
		case sub == "note" && r.Method == http.MethodGet:
			middleware.RequireRole(spend.RoleViewer, func(w http.ResponseWriter, r *http.Request) {
				h.Ideas.IdeaNote(w, r, id)
			})(w, r)
		case sub == "" || sub == "note":
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		default:
			middleware.WriteError(w, http.StatusNotFound, "Not found")
		}
	})

	// Outermost first: recover before logging so panics are still logged
	// as requests, session resolution last so gates see it.
	return middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Metrics(
						middleware.Session(authSvc)(mux),
					),
				),
			),
		),
	)
}
