package service

import (
	"context"

	"go.uber.org/zap"

	"suctracker/backend/services/checkin-service/internal/models"
	"suctracker/backend/services/checkin-service/internal/validation"
)

// StationCache is the read-through cache in front of directory lookups.
type StationCache interface {
	Get(ctx context.Context, locationID string) (*models.Station, error)
	Set(ctx context.Context, station models.Station) error
}

// CachedStations resolves location ids through cache first. Cache failures
// are logged and fall through to the directory.
type CachedStations struct {
	directory validation.StationFinder
	cache     StationCache
	logger    *zap.Logger
}

// NewCachedStations wraps directory. A nil cache disables caching.
func NewCachedStations(directory validation.StationFinder, cache StationCache, logger *zap.Logger) *CachedStations {
	return &CachedStations{directory: directory, cache: cache, logger: logger}
}

// FindByLocationID implements validation.StationFinder.
func (c *CachedStations) FindByLocationID(ctx context.Context, locationID string) (*models.Station, error) {
	if c.cache != nil {
		station, err := c.cache.Get(ctx, locationID)
		if err != nil {
			c.logger.Warn("station cache read failed", zap.String("location_id", locationID), zap.Error(err))
		} else if station != nil {
			return station, nil
		}
	}

	station, err := c.directory.FindByLocationID(ctx, locationID)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, *station); err != nil {
			c.logger.Warn("station cache write failed", zap.String("location_id", locationID), zap.Error(err))
		}
	}
	return station, nil
}
