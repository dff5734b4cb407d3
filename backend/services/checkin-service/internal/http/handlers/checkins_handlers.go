package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"suctracker/backend/services/checkin-service/internal/export"
	"suctracker/backend/services/checkin-service/internal/http/middleware"
	"suctracker/backend/services/checkin-service/internal/models"
	"suctracker/backend/services/checkin-service/internal/service"
	"suctracker/backend/services/checkin-service/internal/validation"
)

const maxSubmissionBytes = 64 << 10

// CheckinService is what the check-in endpoints need from the service layer.
type CheckinService interface {
	Submit(ctx context.Context, fields validation.Fields, meta service.SubmitterMeta) (*models.CheckIn, error)
	List(ctx context.Context, query string, limit int) ([]models.CheckIn, error)
}

// CheckinsHandlers serves /api/checkins.
type CheckinsHandlers struct {
	checkins CheckinService
	logger   *zap.Logger
}

// NewCheckinsHandlers returns handler.
func NewCheckinsHandlers(checkins CheckinService, logger *zap.Logger) *CheckinsHandlers {
	return &CheckinsHandlers{checkins: checkins, logger: logger}
}

// Submit handles POST /api/checkins with a JSON object body.
func (h *CheckinsHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSubmissionBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	fields, err := validation.FieldsFromJSON(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	checkin, err := h.checkins.Submit(r.Context(), fields, service.SubmitterMeta{
		Source:    models.SourceAPI,
		UserAgent: r.UserAgent(),
		IP:        middleware.ClientIP(r),
	})
	if err != nil {
		writeFailure(w, h.logger, "checkin submission failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, checkin)
}

// List handles GET /api/checkins?query=&limit=&format=&callback=.
func (h *CheckinsHandlers) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	checkins, err := h.checkins.List(r.Context(), q.Get("query"), limit)
	if err != nil {
		writeFailure(w, h.logger, "list checkins failed", err)
		return
	}

	if q.Get("format") == "csv" {
		out, err := export.CheckinsCSV(checkins)
		if err != nil {
			writeFailure(w, h.logger, "csv export failed", err)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="checkins.csv"`)
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, out)
		return
	}

	respond(w, r, http.StatusOK, checkins)
}
