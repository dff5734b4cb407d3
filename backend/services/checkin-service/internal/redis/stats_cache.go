package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const statsGenerationKey = "checkins:stats:generation"

// StatsCache holds serialized aggregation results for a short TTL. Like
// StationCache, keys embed a generation counter so one Invalidate call drops
// every cached result.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatsCache returns redis-backed aggregation cache.
func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{client: client, ttl: ttl}
}

func (c *StatsCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, statsGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *StatsCache) key(gen int64, name string) string {
	return fmt.Sprintf("checkins:stats:%d:%s", gen, name)
}

// Load decodes the cached value of name into dest. found is false on a miss.
func (c *StatsCache) Load(ctx context.Context, name string, dest any) (found bool, err error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return false, err
	}
	data, err := c.client.Get(ctx, c.key(gen, name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

// Store caches value under name in the current generation.
func (c *StatsCache) Store(ctx context.Context, name string, value any) error {
	gen, err := c.generation(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(gen, name), data, c.ttl).Err()
}

// Invalidate moves every reader to a fresh generation.
func (c *StatsCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, statsGenerationKey).Err()
}
