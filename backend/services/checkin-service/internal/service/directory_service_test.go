package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"suctracker/backend/services/checkin-service/internal/metrics"
	"suctracker/backend/services/checkin-service/internal/models"
)

type fakeFetcher struct {
	listings map[string][]models.Station
	errs     map[string]error
	calls    []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string, typ models.StationType) ([]models.Station, error) {
	f.calls = append(f.calls, url)
	if err := f.errs[url]; err != nil {
		return nil, err
	}
	out := make([]models.Station, 0, len(f.listings[url]))
	for _, s := range f.listings[url] {
		s.Type = typ
		out = append(out, s)
	}
	return out, nil
}

type fakeLock struct {
	held     bool
	err      error
	released []string
}

func (l *fakeLock) Acquire(context.Context) (string, bool, error) {
	if l.err != nil {
		return "", false, l.err
	}
	if l.held {
		return "", false, nil
	}
	l.held = true
	return "token-1", true, nil
}

func (l *fakeLock) Release(_ context.Context, token string) error {
	l.held = false
	l.released = append(l.released, token)
	return nil
}

type fakeInvalidator struct {
	calls int
}

func (c *fakeInvalidator) Invalidate(context.Context) error {
	c.calls++
	return nil
}

const (
	superchargerURL = "https://listing.example/superchargers"
	destinationURL  = "https://listing.example/destinations"
)

type directoryFixture struct {
	svc       *DirectoryService
	directory *fakeDirectory
	fetcher   *fakeFetcher
	lock      *fakeLock
	cache     *fakeInvalidator
	metrics   *metrics.Metrics
	clock     *clockwork.FakeClock
}

func newDirectoryFixture(t *testing.T) directoryFixture {
	t.Helper()
	old := supercharger("old", "Old Station", "Switzerland", 4)
	f := directoryFixture{
		directory: &fakeDirectory{stations: []models.Station{old}},
		fetcher: &fakeFetcher{
			listings: map[string][]models.Station{
				superchargerURL: {
					supercharger("egerkingen", "Egerkingen", "Switzerland", 8),
					supercharger("tromso", "Tromsø", "Norway", 4),
					supercharger("egerkingen", "Egerkingen (dup)", "Switzerland", 8),
				},
				destinationURL: {
					supercharger("hotel", "Hotel Bellevue", "Switzerland", 2),
				},
			},
			errs: map[string]error{},
		},
		lock:    &fakeLock{},
		cache:   &fakeInvalidator{},
		metrics: metrics.NewMetricsForTesting(),
		clock:   clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	}
	f.svc = NewDirectoryService(f.directory, f.fetcher,
		ListingSources{SuperchargerURL: superchargerURL, DestinationURL: destinationURL},
		f.lock, f.cache, f.clock, f.metrics, zap.NewNop())
	return f
}

func TestDirectoryService_Refresh(t *testing.T) {
	f := newDirectoryFixture(t)

	result, err := f.svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RefreshResult{Superchargers: 2, DestinationChargers: 1, Duplicates: 1}, result)

	require.Len(t, f.directory.stations, 3)
	assert.Equal(t, "egerkingen", f.directory.stations[0].LocationID)
	assert.Equal(t, models.StationTypeDestination, f.directory.stations[2].Type)

	assert.Equal(t, 1, f.cache.calls)
	assert.Equal(t, []string{"token-1"}, f.lock.released)
	assert.InDelta(t, 1, metrics.Value(f.metrics.DirectoryRefreshes.WithLabelValues("success")), 1e-9)
	assert.InDelta(t, 2, metrics.Value(f.metrics.DirectoryStations.WithLabelValues("supercharger")), 1e-9)
}

func TestDirectoryService_FetchFailureKeepsDirectory(t *testing.T) {
	f := newDirectoryFixture(t)
	f.fetcher.errs[destinationURL] = errors.New("listing unavailable")

	_, err := f.svc.Refresh(context.Background())
	require.Error(t, err)

	assert.Empty(t, f.directory.replaced)
	require.Len(t, f.directory.stations, 1)
	assert.Equal(t, "old", f.directory.stations[0].LocationID)
	assert.Zero(t, f.cache.calls)
	assert.Equal(t, []string{"token-1"}, f.lock.released)
	assert.InDelta(t, 1, metrics.Value(f.metrics.DirectoryRefreshes.WithLabelValues("error")), 1e-9)
}

func TestDirectoryService_ReplaceFailure(t *testing.T) {
	f := newDirectoryFixture(t)
	f.directory.replaceErr = errStore

	_, err := f.svc.Refresh(context.Background())
	require.ErrorIs(t, err, errStore)
	assert.Equal(t, "old", f.directory.stations[0].LocationID)
	assert.Zero(t, f.cache.calls)
}

func TestDirectoryService_RefreshInProgress(t *testing.T) {
	f := newDirectoryFixture(t)
	f.lock.held = true

	_, err := f.svc.Refresh(context.Background())
	require.ErrorIs(t, err, ErrRefreshInProgress)
	assert.Empty(t, f.fetcher.calls)
	assert.Empty(t, f.lock.released)
	assert.InDelta(t, 1, metrics.Value(f.metrics.DirectoryRefreshes.WithLabelValues("locked")), 1e-9)
}

func TestDirectoryService_LockError(t *testing.T) {
	f := newDirectoryFixture(t)
	f.lock.err = errors.New("redis down")

	_, err := f.svc.Refresh(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRefreshInProgress)
	assert.Empty(t, f.fetcher.calls)
}

func TestDirectoryService_Lookup(t *testing.T) {
	f := newDirectoryFixture(t)
	f.directory.stations = []models.Station{
		supercharger("egerkingen", "Egerkingen", "Switzerland", 8),
		{
			Type:       models.StationTypeSupercharger,
			LocationID: "far",
			Title:      "Far Away",
			Location:   &models.Point{Lat: 60, Lng: 10},
		},
	}
	ctx := context.Background()

	hits, err := f.svc.Lookup(ctx, "EGER")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "egerkingen", hits[0].LocationID)
	assert.Nil(t, hits[0].DistanceKm)

	hits, err = f.svc.Lookup(ctx, "47.31, 7.8")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "egerkingen", hits[0].LocationID)
	require.NotNil(t, hits[0].DistanceKm)
	assert.InDelta(t, 1.11, *hits[0].DistanceKm, 0.01)

	hits, err = f.svc.Lookup(ctx, "eg")
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.NotNil(t, hits)
}

func TestDirectoryService_RunPeriodic(t *testing.T) {
	f := newDirectoryFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		f.svc.RunPeriodic(ctx, time.Hour)
		close(done)
	}()

	require.NoError(t, f.clock.BlockUntilContext(ctx, 1))
	f.clock.Advance(time.Hour)
	require.Eventually(t, func() bool {
		return metrics.Value(f.metrics.DirectoryRefreshes.WithLabelValues("success")) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

type mapStationCache struct {
	entries map[string]models.Station
	getErr  error
}

func (c *mapStationCache) Get(_ context.Context, id string) (*models.Station, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	s, ok := c.entries[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (c *mapStationCache) Set(_ context.Context, s models.Station) error {
	c.entries[s.LocationID] = s
	return nil
}

func TestCachedStations(t *testing.T) {
	directory := &fakeDirectory{stations: []models.Station{supercharger("X1", "Egerkingen", "Switzerland", 8)}}
	cache := &mapStationCache{entries: map[string]models.Station{}}
	stations := NewCachedStations(directory, cache, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s, err := stations.FindByLocationID(ctx, "X1")
		require.NoError(t, err)
		assert.Equal(t, "Egerkingen", s.Title)
	}
	assert.Equal(t, 1, directory.lookups)

	_, err := stations.FindByLocationID(ctx, "missing")
	require.ErrorIs(t, err, models.ErrStationNotFound)

	cache.getErr = errors.New("redis down")
	s, err := stations.FindByLocationID(ctx, "X1")
	require.NoError(t, err)
	assert.Equal(t, "X1", s.LocationID)
	assert.Equal(t, 3, directory.lookups)
}
