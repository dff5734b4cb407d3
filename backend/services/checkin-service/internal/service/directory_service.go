package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"suctracker/backend/services/checkin-service/internal/metrics"
	"suctracker/backend/services/checkin-service/internal/models"
	"suctracker/backend/services/checkin-service/internal/repository"
)

// ErrRefreshInProgress is returned when another refresh holds the lock.
var ErrRefreshInProgress = errors.New("station directory refresh already in progress")

const (
	lookupMinLength = 3
	lookupLimit     = 50
	nearbyRadiusKm  = 20
)

var latLngPattern = regexp.MustCompile(`^\s*(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)\s*$`)

// ListingFetcher downloads one station listing.
type ListingFetcher interface {
	Fetch(ctx context.Context, url string, typ models.StationType) ([]models.Station, error)
}

// StationStore is the writable station directory.
type StationStore interface {
	SearchTitle(ctx context.Context, text string, limit int) ([]models.Station, error)
	SearchNear(ctx context.Context, lat, lng, radiusKm float64) ([]repository.NearbyStation, error)
	ReplaceAll(ctx context.Context, stations []models.Station) (int, []models.Station, error)
}

// RefreshLocker serializes refreshes across processes.
type RefreshLocker interface {
	Acquire(ctx context.Context) (token string, ok bool, err error)
	Release(ctx context.Context, token string) error
}

// CacheInvalidator drops cached station lookups.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// ListingSources names the listing URL of each station type.
type ListingSources struct {
	SuperchargerURL string
	DestinationURL  string
}

// RefreshResult counts the stations loaded per type.
type RefreshResult struct {
	Superchargers       int `json:"superchargers"`
	DestinationChargers int `json:"destinationChargers"`
	Duplicates          int `json:"duplicates"`
}

// StationHit is a lookup result. DistanceKm is set for coordinate lookups.
type StationHit struct {
	models.Station
	DistanceKm *float64 `json:"distanceKm,omitempty"`
}

// DirectoryService answers station lookups and rebuilds the directory.
type DirectoryService struct {
	store   StationStore
	fetcher ListingFetcher
	sources ListingSources
	lock    RefreshLocker
	cache   CacheInvalidator
	clock   clockwork.Clock
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewDirectoryService builds service. lock and cache may be nil.
func NewDirectoryService(
	store StationStore,
	fetcher ListingFetcher,
	sources ListingSources,
	lock RefreshLocker,
	cache CacheInvalidator,
	clock clockwork.Clock,
	m *metrics.Metrics,
	logger *zap.Logger,
) *DirectoryService {
	return &DirectoryService{
		store:   store,
		fetcher: fetcher,
		sources: sources,
		lock:    lock,
		cache:   cache,
		clock:   clock,
		metrics: m,
		logger:  logger,
	}
}

// Lookup searches superchargers. "<lat>,<lng>" finds stations within 20 km,
// anything else is a case-insensitive title substring. Queries shorter than
// three characters return nothing.
func (s *DirectoryService) Lookup(ctx context.Context, query string) ([]StationHit, error) {
	query = strings.TrimSpace(query)
	hits := []StationHit{}
	if len(query) < lookupMinLength {
		return hits, nil
	}

	if m := latLngPattern.FindStringSubmatch(query); m != nil {
		lat, latErr := strconv.ParseFloat(m[1], 64)
		lng, lngErr := strconv.ParseFloat(m[2], 64)
		if latErr == nil && lngErr == nil {
			nearby, err := s.store.SearchNear(ctx, lat, lng, nearbyRadiusKm)
			if err != nil {
				return nil, err
			}
			for _, n := range nearby {
				d := n.DistanceKm
				hits = append(hits, StationHit{Station: n.Station, DistanceKm: &d})
			}
			return hits, nil
		}
	}

	stations, err := s.store.SearchTitle(ctx, query, lookupLimit)
	if err != nil {
		return nil, err
	}
	for _, st := range stations {
		hits = append(hits, StationHit{Station: st})
	}
	return hits, nil
}

// Refresh downloads both listings and replaces the directory with them. The
// previous directory stays untouched unless both downloads succeed and the
// replacement commits.
func (s *DirectoryService) Refresh(ctx context.Context) (RefreshResult, error) {
	if s.lock != nil {
		token, ok, err := s.lock.Acquire(ctx)
		if err != nil {
			s.observeRefresh("error")
			return RefreshResult{}, fmt.Errorf("acquire refresh lock: %w", err)
		}
		if !ok {
			s.observeRefresh("locked")
			return RefreshResult{}, ErrRefreshInProgress
		}
		defer func() {
			if err := s.lock.Release(context.WithoutCancel(ctx), token); err != nil {
				s.logger.Warn("failed to release refresh lock", zap.Error(err))
			}
		}()
	}

	start := s.clock.Now()
	result, err := s.refresh(ctx)
	if err != nil {
		s.observeRefresh("error")
		s.logger.Error("station directory refresh failed", zap.Error(err))
		return RefreshResult{}, err
	}

	s.observeRefresh("success")
	if s.metrics != nil {
		s.metrics.DirectoryRefreshDuration.Observe(s.clock.Since(start).Seconds())
		s.metrics.DirectoryStations.WithLabelValues(string(models.StationTypeSupercharger)).Set(float64(result.Superchargers))
		s.metrics.DirectoryStations.WithLabelValues(string(models.StationTypeDestination)).Set(float64(result.DestinationChargers))
	}
	s.logger.Info("station directory refreshed",
		zap.Int("superchargers", result.Superchargers),
		zap.Int("destination_chargers", result.DestinationChargers),
		zap.Int("duplicates", result.Duplicates),
	)
	return result, nil
}

func (s *DirectoryService) refresh(ctx context.Context) (RefreshResult, error) {
	superchargers, err := s.fetcher.Fetch(ctx, s.sources.SuperchargerURL, models.StationTypeSupercharger)
	if err != nil {
		return RefreshResult{}, err
	}
	destinations, err := s.fetcher.Fetch(ctx, s.sources.DestinationURL, models.StationTypeDestination)
	if err != nil {
		return RefreshResult{}, err
	}

	all := make([]models.Station, 0, len(superchargers)+len(destinations))
	all = append(all, superchargers...)
	all = append(all, destinations...)

	_, duplicates, err := s.store.ReplaceAll(ctx, all)
	if err != nil {
		return RefreshResult{}, err
	}
	for _, d := range duplicates {
		s.logger.Warn("duplicate station skipped", zap.String("type", string(d.Type)), zap.String("location_id", d.LocationID))
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("failed to invalidate station cache", zap.Error(err))
		}
	}

	return RefreshResult{
		Superchargers:       len(superchargers) - countType(duplicates, models.StationTypeSupercharger),
		DestinationChargers: len(destinations) - countType(duplicates, models.StationTypeDestination),
		Duplicates:          len(duplicates),
	}, nil
}

func countType(stations []models.Station, typ models.StationType) int {
	n := 0
	for _, st := range stations {
		if st.Type == typ {
			n++
		}
	}
	return n
}

func (s *DirectoryService) observeRefresh(outcome string) {
	if s.metrics != nil {
		s.metrics.DirectoryRefreshes.WithLabelValues(outcome).Inc()
	}
}

// RunPeriodic refreshes the directory every interval until ctx is done.
// Failures are logged; the next tick tries again.
func (s *DirectoryService) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if _, err := s.Refresh(ctx); err != nil && !errors.Is(err, ErrRefreshInProgress) {
				s.logger.Warn("periodic directory refresh failed", zap.Error(err))
			}
		}
	}
}
