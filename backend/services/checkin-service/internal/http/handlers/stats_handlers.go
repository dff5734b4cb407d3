package handlers

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"suctracker/backend/services/checkin-service/internal/stats"
)

// StatsService is what the statistics endpoints need from the service layer.
type StatsService interface {
	Countries(ctx context.Context) (stats.CountrySummary, error)
	Stations(ctx context.Context, country string) ([]stats.StationStat, error)
	History(ctx context.Context, locationID string) ([]stats.HistoryPoint, error)
	Overview(ctx context.Context) ([]stats.OverviewEntry, error)
}

// StatsHandlers serves the aggregation endpoints.
type StatsHandlers struct {
	stats  StatsService
	logger *zap.Logger
}

// NewStatsHandlers returns handler.
func NewStatsHandlers(stats StatsService, logger *zap.Logger) *StatsHandlers {
	return &StatsHandlers{stats: stats, logger: logger}
}

// Countries handles GET /api/stats/countries.
func (h *StatsHandlers) Countries(w http.ResponseWriter, r *http.Request) {
	summary, err := h.stats.Countries(r.Context())
	if err != nil {
		writeFailure(w, h.logger, "country stats failed", err)
		return
	}
	respond(w, r, http.StatusOK, summary)
}

// Stations handles GET /api/stats/stations?country=.
func (h *StatsHandlers) Stations(w http.ResponseWriter, r *http.Request) {
	country := strings.TrimSpace(r.URL.Query().Get("country"))
	if country == "" {
		writeError(w, http.StatusBadRequest, "country is required")
		return
	}
	out, err := h.stats.Stations(r.Context(), country)
	if err != nil {
		writeFailure(w, h.logger, "station stats failed", err)
		return
	}
	respond(w, r, http.StatusOK, out)
}

// History handles GET /api/stations/history?locationId=.
func (h *StatsHandlers) History(w http.ResponseWriter, r *http.Request) {
	locationID := strings.TrimSpace(r.URL.Query().Get("locationId"))
	if locationID == "" {
		writeError(w, http.StatusBadRequest, "locationId is required")
		return
	}
	out, err := h.stats.History(r.Context(), locationID)
	if err != nil {
		writeFailure(w, h.logger, "station history failed", err)
		return
	}
	respond(w, r, http.StatusOK, out)
}

// Overview handles GET /api/overview.
func (h *StatsHandlers) Overview(w http.ResponseWriter, r *http.Request) {
	out, err := h.stats.Overview(r.Context())
	if err != nil {
		writeFailure(w, h.logger, "overview failed", err)
		return
	}
	respond(w, r, http.StatusOK, out)
}
