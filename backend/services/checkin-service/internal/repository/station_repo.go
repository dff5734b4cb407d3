package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"suctracker/backend/services/checkin-service/internal/models"
)

// ErrStationNotFound indicates an unknown location id.
var ErrStationNotFound = models.ErrStationNotFound

const stationColumns = `type, location_id, title, country, region, common_name, stalls, lat, lng, raw`

// StationRepository is the station directory backed by the stations table.
type StationRepository struct {
	db *sql.DB
}

// NewStationRepository returns repository.
func NewStationRepository(db *sql.DB) *StationRepository {
	return &StationRepository{db: db}
}

// NearbyStation is a search hit with its distance from the query point.
type NearbyStation struct {
	models.Station
	DistanceKm float64 `json:"distanceKm"`
}

// FindByLocationID returns the station with the given id, preferring superchargers
// when a destination charger shares the id.
func (r *StationRepository) FindByLocationID(ctx context.Context, locationID string) (*models.Station, error) {
	const query = `
		SELECT ` + stationColumns + `
		FROM stations
		WHERE location_id = $1
		ORDER BY (type = 'supercharger') DESC
		LIMIT 1
	`
	station, err := scanStation(r.db.QueryRowContext(ctx, query, locationID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find station %q: %w", locationID, err)
	}
	return &station, nil
}

// SearchTitle returns superchargers whose title contains text, case-insensitively.
func (r *StationRepository) SearchTitle(ctx context.Context, text string, limit int) ([]models.Station, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT ` + stationColumns + `
		FROM stations
		WHERE type = 'supercharger' AND title ILIKE $1
		ORDER BY title
		LIMIT $2
	`
	return r.queryStations(ctx, query, likePattern(text), limit)
}

// SearchNear returns superchargers within radiusKm of the point, nearest first.
func (r *StationRepository) SearchNear(ctx context.Context, lat, lng, radiusKm float64) ([]NearbyStation, error) {
	minLat, maxLat, minLng, maxLng := boundingBox(lat, lng, radiusKm)
	const query = `
		SELECT ` + stationColumns + `
		FROM stations
		WHERE type = 'supercharger'
		  AND lat BETWEEN $1 AND $2
		  AND lng BETWEEN $3 AND $4
	`
	candidates, err := r.queryStations(ctx, query, minLat, maxLat, minLng, maxLng)
	if err != nil {
		return nil, err
	}

	nearby := make([]NearbyStation, 0, len(candidates))
	for _, s := range candidates {
		if s.Location == nil {
			continue
		}
		d := HaversineKm(lat, lng, s.Location.Lat, s.Location.Lng)
		if d <= radiusKm {
			nearby = append(nearby, NearbyStation{Station: s, DistanceKm: d})
		}
	}
	sort.Slice(nearby, func(i, j int) bool {
		return nearby[i].DistanceKm < nearby[j].DistanceKm
	})
	return nearby, nil
}

// MatchStations finds superchargers of a region whose title, location id or
// common name contains text, case-insensitively.
func (r *StationRepository) MatchStations(ctx context.Context, text, region string) ([]models.Station, error) {
	const query = `
		SELECT ` + stationColumns + `
		FROM stations
		WHERE type = 'supercharger'
		  AND region = $2
		  AND (title ILIKE $1 OR location_id ILIKE $1 OR common_name ILIKE $1)
		ORDER BY title
	`
	return r.queryStations(ctx, query, likePattern(text), region)
}

// CountByCountry counts superchargers per country, keeping countries with at least minCount.
func (r *StationRepository) CountByCountry(ctx context.Context, minCount int) ([]models.StationCount, error) {
	const query = `
		SELECT country, COUNT(*)
		FROM stations
		WHERE type = 'supercharger'
		GROUP BY country
		HAVING COUNT(*) >= $1
		ORDER BY country
	`
	rows, err := r.db.QueryContext(ctx, query, minCount)
	if err != nil {
		return nil, fmt.Errorf("count stations by country: %w", err)
	}
	defer rows.Close()

	var counts []models.StationCount
	for rows.Next() {
		var c models.StationCount
		if err := rows.Scan(&c.Country, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

// ListByCountry returns every supercharger of a country ordered by title.
func (r *StationRepository) ListByCountry(ctx context.Context, country string) ([]models.Station, error) {
	const query = `
		SELECT ` + stationColumns + `
		FROM stations
		WHERE type = 'supercharger' AND country = $1
		ORDER BY title
	`
	return r.queryStations(ctx, query, country)
}

// ReplaceAll swaps the whole directory inside one transaction. Entries whose
// (type, location id) already went in are skipped and reported as duplicates.
func (r *StationRepository) ReplaceAll(ctx context.Context, stations []models.Station) (inserted int, duplicates []models.Station, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("begin directory refresh: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM stations`); err != nil {
		return 0, nil, fmt.Errorf("clear stations: %w", err)
	}

	const insert = `
		INSERT INTO stations (` + stationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (type, location_id) DO NOTHING
	`
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return 0, nil, fmt.Errorf("prepare station insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range stations {
		lat, lng := pointArgs(s.Location)
		raw := []byte(s.Raw)
		if len(raw) == 0 {
			raw = []byte("{}")
		}
		res, execErr := stmt.ExecContext(ctx,
			string(s.Type),
			s.LocationID,
			s.Title,
			s.Country,
			s.Region,
			s.CommonName,
			nullInt(s.Stalls),
			lat,
			lng,
			string(raw),
		)
		if execErr != nil {
			err = fmt.Errorf("insert station %q: %w", s.LocationID, execErr)
			return 0, nil, err
		}
		n, affErr := res.RowsAffected()
		if affErr != nil {
			err = affErr
			return 0, nil, err
		}
		if n == 0 {
			duplicates = append(duplicates, s)
			continue
		}
		inserted++
	}

	if err = tx.Commit(); err != nil {
		return 0, nil, fmt.Errorf("commit directory refresh: %w", err)
	}
	return inserted, duplicates, nil
}

func (r *StationRepository) queryStations(ctx context.Context, query string, args ...any) ([]models.Station, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stations: %w", err)
	}
	defer rows.Close()

	stations := []models.Station{}
	for rows.Next() {
		s, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		stations = append(stations, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stations, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStation(row rowScanner) (models.Station, error) {
	var (
		s        models.Station
		typ      string
		stalls   sql.NullInt64
		lat, lng sql.NullFloat64
		raw      []byte
	)
	if err := row.Scan(&typ, &s.LocationID, &s.Title, &s.Country, &s.Region, &s.CommonName, &stalls, &lat, &lng, &raw); err != nil {
		return models.Station{}, err
	}
	s.Type = models.StationType(typ)
	s.Stalls = intPtr(stalls)
	s.Location = pointPtr(lat, lng)
	s.Raw = raw
	return s, nil
}
