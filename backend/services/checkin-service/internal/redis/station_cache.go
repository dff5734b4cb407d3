package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"suctracker/backend/services/checkin-service/internal/models"
)

const stationGenerationKey = "checkins:stations:generation"

// cachedStation keeps the raw listing entry, which models.Station hides from JSON.
type cachedStation struct {
	models.Station
	Raw json.RawMessage `json:"raw,omitempty"`
}

// StationCache caches directory lookups. Keys embed a generation counter that
// is bumped after every directory refresh, so stale entries are never read and
// simply expire.
type StationCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStationCache returns redis-backed station cache.
func NewStationCache(client *redis.Client, ttl time.Duration) *StationCache {
	return &StationCache{client: client, ttl: ttl}
}

func (c *StationCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, stationGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *StationCache) key(gen int64, locationID string) string {
	return fmt.Sprintf("checkins:stations:%d:%s", gen, locationID)
}

// Get returns the cached station, or nil when it is not cached.
func (c *StationCache) Get(ctx context.Context, locationID string) (*models.Station, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, err
	}
	data, err := c.client.Get(ctx, c.key(gen, locationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cached cachedStation
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	station := cached.Station
	station.Raw = cached.Raw
	return &station, nil
}

// Set caches station under the current generation.
func (c *StationCache) Set(ctx context.Context, station models.Station) error {
	gen, err := c.generation(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(cachedStation{Station: station, Raw: station.Raw})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(gen, station.LocationID), data, c.ttl).Err()
}

// Invalidate moves every reader to a fresh generation.
func (c *StationCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, stationGenerationKey).Err()
}
