package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"suctracker/backend/services/checkin-service/internal/models"
	"suctracker/backend/services/checkin-service/internal/repository"
)

type fakeCheckinStore struct {
	mu        sync.Mutex
	checkins  []models.CheckIn
	filters   []repository.CheckinFilter
	insertErr error
	listErr   error
}

func (f *fakeCheckinStore) Insert(_ context.Context, c *models.CheckIn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.checkins = append(f.checkins, *c)
	return nil
}

func (f *fakeCheckinStore) InsertMany(_ context.Context, checkins []models.CheckIn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.checkins = append(f.checkins, checkins...)
	return nil
}

func (f *fakeCheckinStore) List(_ context.Context, filter repository.CheckinFilter) ([]models.CheckIn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.CheckIn
	for _, c := range f.checkins {
		if c.Error != nil {
			continue
		}
		if filter.Country != "" && c.Station.Country != filter.Country {
			continue
		}
		if filter.LocationID != "" && (c.Station.LocationID == nil || *c.Station.LocationID != filter.LocationID) {
			continue
		}
		if !filter.Since.IsZero() && (c.Checkin.Time == nil || c.Checkin.Time.Before(filter.Since)) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// fakeDirectory is an in-memory station directory.
type fakeDirectory struct {
	mu       sync.Mutex
	stations []models.Station
	lookups  int
	err      error

	replaced   [][]models.Station
	replaceErr error
}

func (f *fakeDirectory) FindByLocationID(_ context.Context, id string) (*models.Station, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	for _, s := range f.stations {
		if s.LocationID == id {
			s := s
			return &s, nil
		}
	}
	return nil, models.ErrStationNotFound
}

func (f *fakeDirectory) MatchStations(_ context.Context, text, region string) ([]models.Station, error) {
	if f.err != nil {
		return nil, f.err
	}
	needle := strings.ToLower(text)
	out := []models.Station{}
	for _, s := range f.stations {
		if s.Type != models.StationTypeSupercharger || s.Region != region {
			continue
		}
		if strings.Contains(strings.ToLower(s.Title), needle) ||
			strings.Contains(strings.ToLower(s.LocationID), needle) ||
			strings.Contains(strings.ToLower(s.CommonName), needle) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeDirectory) CountByCountry(_ context.Context, minCount int) ([]models.StationCount, error) {
	counts := map[string]int{}
	for _, s := range f.stations {
		if s.Type == models.StationTypeSupercharger {
			counts[s.Country]++
		}
	}
	var out []models.StationCount
	for country, n := range counts {
		if n >= minCount {
			out = append(out, models.StationCount{Country: country, Count: n})
		}
	}
	return out, nil
}

func (f *fakeDirectory) ListByCountry(_ context.Context, country string) ([]models.Station, error) {
	var out []models.Station
	for _, s := range f.stations {
		if s.Type == models.StationTypeSupercharger && s.Country == country {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeDirectory) SearchTitle(_ context.Context, text string, _ int) ([]models.Station, error) {
	out := []models.Station{}
	for _, s := range f.stations {
		if s.Type == models.StationTypeSupercharger && strings.Contains(strings.ToLower(s.Title), strings.ToLower(text)) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeDirectory) SearchNear(_ context.Context, lat, lng, radiusKm float64) ([]repository.NearbyStation, error) {
	var out []repository.NearbyStation
	for _, s := range f.stations {
		if s.Location == nil {
			continue
		}
		if d := repository.HaversineKm(lat, lng, s.Location.Lat, s.Location.Lng); d <= radiusKm {
			out = append(out, repository.NearbyStation{Station: s, DistanceKm: d})
		}
	}
	return out, nil
}

func (f *fakeDirectory) ReplaceAll(_ context.Context, stations []models.Station) (int, []models.Station, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replaceErr != nil {
		return 0, nil, f.replaceErr
	}
	seen := map[string]bool{}
	var kept, dups []models.Station
	for _, s := range stations {
		key := string(s.Type) + "/" + s.LocationID
		if seen[key] {
			dups = append(dups, s)
			continue
		}
		seen[key] = true
		kept = append(kept, s)
	}
	f.stations = kept
	f.replaced = append(f.replaced, stations)
	return len(kept), dups, nil
}

var errStore = errors.New("store unavailable")

func supercharger(id, title, country string, stalls int) models.Station {
	return models.Station{
		Type:       models.StationTypeSupercharger,
		LocationID: id,
		Title:      title,
		Country:    country,
		Region:     "europe",
		Stalls:     models.IntPtr(stalls),
		Location:   &models.Point{Lat: 47.3, Lng: 7.8},
	}
}
