package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mzeman/cloudspend/internal/api/middleware"
	"github.com/mzeman/cloudspend/internal/notes"
	"github.com/mzeman/cloudspend/internal/spend"
)

// IdeasHandler serves the savings-idea CRUD workflow and its Markdown notes.
type IdeasHandler struct {
	repo     spend.IdeaRepository
	renderer *notes.Renderer
	log      zerolog.Logger
}

// NewIdeasHandler creates the handler.
func NewIdeasHandler(repo spend.IdeaRepository, renderer *notes.Renderer, log zerolog.Logger) *IdeasHandler {
	return &IdeasHandler{
		repo:     repo,
		renderer: renderer,
		log:      log,
	}
}

// ideaRequest is the mutable subset of an idea accepted on create and update.
type ideaRequest struct {
	Title               string          `json:"title"`
	Service             string          `json:"service"`
	EstMonthlySavingUSD decimal.Decimal `json:"estMonthlySavingUsd"`
	Confidence          float64         `json:"confidence"`
	Owner               string          `json:"owner"`
	Status              string          `json:"status"`
	Notes               string          `json:"notes"`
}

// validate checks the request fields shared by create and update. An empty
// status defaults to PROPOSED; anything else must be a known state.
func (req *ideaRequest) validate() (spend.IdeaStatus, string) {
	if req.Title == "" {
		return "", "Title is required"
	}
	if req.Service == "" {
		return "", "Service is required"
	}
	if req.Confidence < 0 || req.Confidence > 1 {
		return "", "Confidence must be between 0 and 1"
	}

	status := spend.IdeaStatus(req.Status)
	if status == "" {
		status = spend.StatusProposed
	}
	if !spend.ValidStatus(status) {
		return "", "Status must be one of PROPOSED, APPROVED, REALIZED"
	}
	return status, ""
}

// ListIdeas handles GET /api/ideas
func (h *IdeasHandler) ListIdeas(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ideas, err := h.repo.ListIdeas(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list ideas")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list ideas")
		return
	}

	if ideas == nil {
		ideas = []*spend.SavingsIdea{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ideas": ideas,
		"count": len(ideas),
	})
}

// CreateIdea handles POST /api/ideas
func (h *IdeasHandler) CreateIdea(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ideaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	status, problem := req.validate()
	if problem != "" {
		middleware.WriteError(w, http.StatusBadRequest, problem)
		return
	}

	now := time.Now().UTC()
	idea := &spend.SavingsIdea{
		ID:                  uuid.New().String(),
		Title:               req.Title,
		Service:             req.Service,
		EstMonthlySavingUSD: req.EstMonthlySavingUSD,
		Confidence:          req.Confidence,
		Owner:               req.Owner,
		Status:              status,
		Notes:               req.Notes,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := h.repo.InsertIdea(ctx, idea); err != nil {
		h.log.Error().Err(err).Msg("Failed to create idea")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create idea")
		return
	}

	h.log.Info().Str("idea_id", idea.ID).Str("title", idea.Title).Msg("Created savings idea")
	middleware.WriteJSON(w, http.StatusCreated, idea)
}

// GetIdea handles GET /api/ideas/{id}
func (h *IdeasHandler) GetIdea(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	idea, err := h.repo.GetIdea(ctx, id)
	if err != nil {
		if errors.Is(err, spend.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Idea not found")
			return
		}
		h.log.Error().Err(err).Str("idea_id", id).Msg("Failed to get idea")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get idea")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, idea)
}

// UpdateIdea handles PUT /api/ideas/{id}. Status moves freely: any state
// may replace any other.
func (h *IdeasHandler) UpdateIdea(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	var req ideaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	status, problem := req.validate()
	if problem != "" {
		middleware.WriteError(w, http.StatusBadRequest, problem)
		return
	}

	idea, err := h.repo.GetIdea(ctx, id)
	if err != nil {
		if errors.Is(err, spend.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Idea not found")
			return
		}
		h.log.Error().Err(err).Str("idea_id", id).Msg("Failed to load idea for update")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to update idea")
		return
	}

	idea.Title = req.Title
	idea.Service = req.Service
	idea.EstMonthlySavingUSD = req.EstMonthlySavingUSD
	idea.Confidence = req.Confidence
	idea.Owner = req.Owner
	idea.Status = status
	idea.Notes = req.Notes
	idea.UpdatedAt = time.Now().UTC()

	if err := h.repo.UpdateIdea(ctx, idea); err != nil {
		if errors.Is(err, spend.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Idea not found")
			return
		}
		h.log.Error().Err(err).Str("idea_id", id).Msg("Failed to update idea")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to update idea")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, idea)
}

// DeleteIdea handles DELETE /api/ideas/{id}
func (h *IdeasHandler) DeleteIdea(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	if err := h.repo.DeleteIdea(ctx, id); err != nil {
		if errors.Is(err, spend.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Idea not found")
			return
		}
		h.log.Error().Err(err).Str("idea_id", id).Msg("Failed to delete idea")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete idea")
		return
	}

	h.log.Info().Str("idea_id", id).Msg("Deleted savings idea")
	w.WriteHeader(http.StatusNoContent)
}

// IdeaNote handles GET /api/ideas/{id}/note, returning the idea rendered
// as Markdown.
func (h *IdeasHandler) IdeaNote(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	idea, err := h.repo.GetIdea(ctx, id)
	if err != nil {
		if errors.Is(err, spend.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Idea not found")
			return
		}
		h.log.Error().Err(err).Str("idea_id", id).Msg("Failed to load idea for note")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to render note")
		return
	}

	note, err := h.renderer.Render(idea)
	if err != nil {
		h.log.Error().Err(err).Str("idea_id", id).Msg("Failed to render note")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to render note")
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(note))
}
