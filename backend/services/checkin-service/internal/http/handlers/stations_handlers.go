package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"suctracker/backend/services/checkin-service/internal/service"
)

// StationLookup searches the station directory.
type StationLookup interface {
	Lookup(ctx context.Context, query string) ([]service.StationHit, error)
}

// StationsHandlers serves station search.
type StationsHandlers struct {
	lookup StationLookup
	logger *zap.Logger
}

// NewStationsHandlers returns handler.
func NewStationsHandlers(lookup StationLookup, logger *zap.Logger) *StationsHandlers {
	return &StationsHandlers{lookup: lookup, logger: logger}
}

// Lookup handles GET /api/lookup?query=.
func (h *StationsHandlers) Lookup(w http.ResponseWriter, r *http.Request) {
	hits, err := h.lookup.Lookup(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		writeFailure(w, h.logger, "station lookup failed", err)
		return
	}
	respond(w, r, http.StatusOK, hits)
}
