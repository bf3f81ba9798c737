// Package handlers implements the JSON endpoints behind the dashboard UI.
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/mzeman/cloudspend/internal/api/metrics"
	"github.com/mzeman/cloudspend/internal/api/middleware"
	"github.com/mzeman/cloudspend/internal/ingest"
	"github.com/mzeman/cloudspend/internal/spend"
)

// maxUploadBytes caps one billing CSV upload.
const maxUploadBytes = 20 << 20

// UploadArchiver is the optional best-effort raw-CSV archival surface.
type UploadArchiver interface {
	Store(ctx context.Context, filename string, data []byte) (string, error)
}

// SpendHandler serves the billing upload and the dashboard summary.
type SpendHandler struct {
	pipeline *ingest.Pipeline
	records  spend.RecordRepository
	archiver UploadArchiver
	log      zerolog.Logger
}

// NewSpendHandler creates the handler. archiver may be nil to disable
// upload archival.
func NewSpendHandler(pipeline *ingest.Pipeline, records spend.RecordRepository, archiver UploadArchiver, log zerolog.Logger) *SpendHandler {
	return &SpendHandler{
		pipeline: pipeline,
		records:  records,
		archiver: archiver,
		log:      log,
	}
}

// Upload handles POST /api/spend/upload: one multipart CSV file through the
// ingestion pipeline.
func (h *SpendHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "A CSV file upload is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read uploaded file")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read uploaded file")
		return
	}

	// Archive the raw bytes regardless of how ingestion turns out, so bad
	// uploads can be inspected later. Never fails the request.
	if h.archiver != nil {
		if _, err := h.archiver.Store(ctx, header.Filename, data); err != nil {
			h.log.Warn().Err(err).Str("filename", header.Filename).Msg("Failed to archive upload")
		}
	}

	cloud := string(ingest.InferCloud(header.Filename))

	result, err := h.pipeline.Ingest(ctx, data, header.Filename)
	if err != nil {
		if errors.Is(err, ingest.ErrEmptyInput) || errors.Is(err, ingest.ErrNoValidRows) {
			metrics.ObserveUpload(cloud, "rejected", 0, 0)
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Str("filename", header.Filename).Msg("Failed to ingest billing export")
		metrics.ObserveUpload(cloud, "error", 0, 0)
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store billing records")
		return
	}

	metrics.ObserveUpload(cloud, "ok", result.Inserted, result.Skipped)

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "imported " + string(result.Cloud) + " billing export",
		"inserted": result.Inserted,
		"skipped":  result.Skipped,
	})
}

// Summary handles GET /api/spend/summary: the four windowed rollups behind
// the dashboard charts, queried concurrently.
func (h *SpendHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	days := 0
	if rangeStr := query.Get("range"); rangeStr != "" {
		if parsed, err := strconv.Atoi(rangeStr); err == nil {
			days = parsed
		}
	}

	filter := spend.NewSummaryFilter(time.Now(), days, query.Get("cloud"), query.Get("team"), query.Get("env"))

	summary, err := spend.BuildSummary(ctx, h.records, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build spend summary")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load spend summary")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, summary)
}
