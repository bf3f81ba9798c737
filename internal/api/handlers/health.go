package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/mzeman/cloudspend/internal/api/middleware"
)

// Pinger is the reachability check the health endpoint runs against the
// database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	db  Pinger
	log zerolog.Logger
}

// NewHealthHandler creates the handler.
func NewHealthHandler(db Pinger, log zerolog.Logger) *HealthHandler {
	return &HealthHandler{db: db, log: log}
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	code := http.StatusOK
	status := "healthy"
	database := "ok"
	if err := h.db.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Health check: database unreachable")
		code = http.StatusServiceUnavailable
		status = "degraded"
		database = "unreachable"
	}

	middleware.WriteJSON(w, code, map[string]string{
		"status":   status,
		"database": database,
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}
