package service

import (
	"context"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"suctracker/backend/services/checkin-service/internal/metrics"
	"suctracker/backend/services/checkin-service/internal/models"
	"suctracker/backend/services/checkin-service/internal/repository"
	"suctracker/backend/services/checkin-service/internal/stats"
)

// CheckinLister reads stored check-ins.
type CheckinLister interface {
	List(ctx context.Context, f repository.CheckinFilter) ([]models.CheckIn, error)
}

// CountryDirectory is the part of the directory the aggregations join against.
type CountryDirectory interface {
	CountByCountry(ctx context.Context, minCount int) ([]models.StationCount, error)
	ListByCountry(ctx context.Context, country string) ([]models.Station, error)
}

// ResultCache stores serialized aggregation results. Invalidate drops every
// stored result.
type ResultCache interface {
	Load(ctx context.Context, name string, dest any) (bool, error)
	Store(ctx context.Context, name string, value any) error
	Invalidate(ctx context.Context) error
}

// StatsOptions tunes the aggregations.
type StatsOptions struct {
	MinCountryStations int
	OverviewWindow     time.Duration
}

// StatsService loads check-ins and stations and folds them with package stats.
type StatsService struct {
	checkins  CheckinLister
	directory CountryDirectory
	cache     ResultCache
	opts      StatsOptions
	clock     clockwork.Clock
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewStatsService builds service. A nil cache disables result caching.
func NewStatsService(
	checkins CheckinLister,
	directory CountryDirectory,
	cache ResultCache,
	opts StatsOptions,
	clock clockwork.Clock,
	m *metrics.Metrics,
	logger *zap.Logger,
) *StatsService {
	return &StatsService{
		checkins:  checkins,
		directory: directory,
		cache:     cache,
		opts:      opts,
		clock:     clock,
		metrics:   m,
		logger:    logger,
	}
}

// Countries returns per-country stats, splitting off countries with fewer
// known stations than the configured minimum.
func (s *StatsService) Countries(ctx context.Context) (stats.CountrySummary, error) {
	var summary stats.CountrySummary
	err := s.cached(ctx, "countries", &summary, func() (any, error) {
		checkins, err := s.checkins.List(ctx, repository.CheckinFilter{})
		if err != nil {
			return nil, err
		}
		counts, err := s.directory.CountByCountry(ctx, 0)
		if err != nil {
			return nil, err
		}
		summary = stats.SummarizeCountries(stats.CountryStats(checkins, counts), s.opts.MinCountryStations)
		return summary, nil
	})
	return summary, err
}

// Stations returns per-station stats for every supercharger of country.
func (s *StatsService) Stations(ctx context.Context, country string) ([]stats.StationStat, error) {
	var out []stats.StationStat
	err := s.cached(ctx, "stations:"+country, &out, func() (any, error) {
		stations, err := s.directory.ListByCountry(ctx, country)
		if err != nil {
			return nil, err
		}
		checkins, err := s.checkins.List(ctx, repository.CheckinFilter{Country: country})
		if err != nil {
			return nil, err
		}
		out = stats.StationStats(stations, checkins)
		return out, nil
	})
	return out, err
}

// History returns the check-ins of one station, oldest first.
func (s *StatsService) History(ctx context.Context, locationID string) ([]stats.HistoryPoint, error) {
	checkins, err := s.checkins.List(ctx, repository.CheckinFilter{LocationID: locationID, Ascending: true})
	if err != nil {
		return nil, err
	}
	return stats.StationHistory(checkins), nil
}

// Overview returns the latest state of every station with a check-in inside
// the overview window.
func (s *StatsService) Overview(ctx context.Context) ([]stats.OverviewEntry, error) {
	var out []stats.OverviewEntry
	err := s.cached(ctx, "overview", &out, func() (any, error) {
		since := s.clock.Now().Add(-s.opts.OverviewWindow)
		checkins, err := s.checkins.List(ctx, repository.CheckinFilter{Since: since, Ascending: true})
		if err != nil {
			return nil, err
		}
		out = stats.RecentOverview(checkins, since)
		return out, nil
	})
	return out, err
}

// Invalidate drops cached results so the next query sees newly stored
// check-ins. Failures are logged and leave results to expire with the TTL.
func (s *StatsService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.Error(err))
	}
}

// cached serves name from the cache into dest, or runs compute (which must
// fill dest) and stores its result. Cache errors never fail the query.
func (s *StatsService) cached(ctx context.Context, name string, dest any, compute func() (any, error)) error {
	if s.cache != nil {
		found, err := s.cache.Load(ctx, name, dest)
		if err != nil {
			s.logger.Warn("stats cache read failed", zap.String("query", name), zap.Error(err))
		}
		if found && err == nil {
			s.observeCache(name, "hit")
			return nil
		}
		s.observeCache(name, "miss")
	}

	value, err := compute()
	if err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Store(ctx, name, value); err != nil {
			s.logger.Warn("stats cache write failed", zap.String("query", name), zap.Error(err))
		}
	}
	return nil
}

func (s *StatsService) observeCache(name, result string) {
	if s.metrics == nil {
		return
	}
	query, _, _ := strings.Cut(name, ":")
	s.metrics.StatsCache.WithLabelValues(query, result).Inc()
}
