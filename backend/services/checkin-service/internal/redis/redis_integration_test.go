//go:build integration

package redisstore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	libredis "suctracker/backend/libs/redis"
	"suctracker/backend/services/checkin-service/internal/models"
	redisstore "suctracker/backend/services/checkin-service/internal/redis"
)

func openTestRedis(t *testing.T) context.Context {
	t.Helper()
	if os.Getenv("CHECKIN_TEST_REDIS_ADDR") == "" {
		t.Skip("CHECKIN_TEST_REDIS_ADDR not set")
	}
	return context.Background()
}

func TestStationCache_Generations(t *testing.T) {
	ctx := openTestRedis(t)
	client, err := libredis.NewRedisClient(ctx, os.Getenv("CHECKIN_TEST_REDIS_ADDR"), "", 15)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.FlushDB(ctx).Err())

	cache := redisstore.NewStationCache(client, time.Minute)

	got, err := cache.Get(ctx, "egerkingen")
	require.NoError(t, err)
	assert.Nil(t, got)

	station := models.Station{
		Type:       models.StationTypeSupercharger,
		LocationID: "egerkingen",
		Title:      "Egerkingen",
		Stalls:     models.IntPtr(8),
		Raw:        []byte(`{"location_id":"egerkingen"}`),
	}
	require.NoError(t, cache.Set(ctx, station))

	got, err = cache.Get(ctx, "egerkingen")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Egerkingen", got.Title)
	assert.JSONEq(t, `{"location_id":"egerkingen"}`, string(got.Raw))

	require.NoError(t, cache.Invalidate(ctx))
	got, err = cache.Get(ctx, "egerkingen")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRefreshLock_Exclusive(t *testing.T) {
	ctx := openTestRedis(t)
	client, err := libredis.NewRedisClient(ctx, os.Getenv("CHECKIN_TEST_REDIS_ADDR"), "", 15)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.FlushDB(ctx).Err())

	lock := redisstore.NewRefreshLock(client, time.Minute)

	token, ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = lock.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, lock.Release(ctx, "someone-else"))
	_, ok, err = lock.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, lock.Release(ctx, token))
	_, ok, err = lock.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStatsCache_RoundTrip(t *testing.T) {
	ctx := openTestRedis(t)
	client, err := libredis.NewRedisClient(ctx, os.Getenv("CHECKIN_TEST_REDIS_ADDR"), "", 15)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.FlushDB(ctx).Err())

	cache := redisstore.NewStatsCache(client, time.Minute)

	var out []models.StationCount
	found, err := cache.Load(ctx, "countries", &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Store(ctx, "countries", []models.StationCount{{Country: "Norway", Count: 12}}))
	found, err = cache.Load(ctx, "countries", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []models.StationCount{{Country: "Norway", Count: 12}}, out)

	require.NoError(t, cache.Invalidate(ctx))
	found, err = cache.Load(ctx, "countries", &out)
	require.NoError(t, err)
	assert.False(t, found)
}
