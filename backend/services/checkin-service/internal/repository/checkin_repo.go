package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"suctracker/backend/services/checkin-service/internal/models"
)

const checkinColumns = `id, source, station_location_id, station_title, station_country, station_stalls,
	station_lat, station_lng, submitter_user_agent, submitter_ip, submitter_time, submitter_user_id,
	checkin_time, charging, blocked, waiting, problem, affected_stalls, notes, import_error`

// CheckinRepository stores check-ins. Rows are only ever inserted.
type CheckinRepository struct {
	db *sql.DB
}

// NewCheckinRepository returns repository.
func NewCheckinRepository(db *sql.DB) *CheckinRepository {
	return &CheckinRepository{db: db}
}

// CheckinFilter narrows List. Zero fields do not filter. Rows carrying an
// import error are never returned.
type CheckinFilter struct {
	// Query is a case-insensitive substring over station title and location id.
	Query      string
	Country    string
	LocationID string
	Since      time.Time
	// Limit <= 0 returns every match.
	Limit     int
	Ascending bool
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const insertCheckin = `
	INSERT INTO checkins (` + checkinColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
`

// Insert appends one check-in.
func (r *CheckinRepository) Insert(ctx context.Context, c *models.CheckIn) error {
	if err := insertOne(ctx, r.db, c); err != nil {
		return fmt.Errorf("insert checkin: %w", err)
	}
	return nil
}

// InsertMany appends check-ins in a single transaction.
func (r *CheckinRepository) InsertMany(ctx context.Context, checkins []models.CheckIn) error {
	if len(checkins) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin checkin batch: %w", err)
	}
	for i := range checkins {
		if err := insertOne(ctx, tx, &checkins[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert checkin %d of batch: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit checkin batch: %w", err)
	}
	return nil
}

func insertOne(ctx context.Context, db execer, c *models.CheckIn) error {
	affected := c.Checkin.AffectedStalls
	if affected == nil {
		affected = []string{}
	}
	affectedJSON, err := json.Marshal(affected)
	if err != nil {
		return err
	}
	lat, lng := pointArgs(c.Station.Location)

	_, err = db.ExecContext(ctx, insertCheckin,
		c.ID,
		string(c.Source),
		nullString(c.Station.LocationID),
		c.Station.Title,
		nullString(optional(c.Station.Country)),
		nullInt(c.Station.Stalls),
		lat,
		lng,
		c.Submitter.UserAgent,
		c.Submitter.IP,
		c.Submitter.Time.UTC(),
		nullString(c.Submitter.UserID),
		nullTime(c.Checkin.Time),
		nullInt(c.Checkin.Charging),
		nullInt(c.Checkin.Blocked),
		nullInt(c.Checkin.Waiting),
		string(c.Checkin.Problem),
		string(affectedJSON),
		nullString(c.Checkin.Notes),
		nullString(c.Error),
	)
	return err
}

// List returns accepted check-ins matching f ordered by event time, newest first
// unless f.Ascending is set.
func (r *CheckinRepository) List(ctx context.Context, f CheckinFilter) ([]models.CheckIn, error) {
	where := []string{"import_error IS NULL"}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q := strings.TrimSpace(f.Query); q != "" {
		p := arg(likePattern(q))
		where = append(where, fmt.Sprintf("(station_title ILIKE %s OR station_location_id ILIKE %s)", p, p))
	}
	if f.Country != "" {
		where = append(where, "station_country = "+arg(f.Country))
	}
	if f.LocationID != "" {
		where = append(where, "station_location_id = "+arg(f.LocationID))
	}
	if !f.Since.IsZero() {
		where = append(where, "checkin_time >= "+arg(f.Since.UTC()))
	}

	order := "DESC NULLS LAST"
	if f.Ascending {
		order = "ASC NULLS FIRST"
	}
	query := "SELECT " + checkinColumns + " FROM checkins WHERE " + strings.Join(where, " AND ") +
		" ORDER BY checkin_time " + order + ", submitter_time " + strings.Fields(order)[0]
	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list checkins: %w", err)
	}
	defer rows.Close()

	checkins := []models.CheckIn{}
	for rows.Next() {
		c, err := scanCheckin(rows)
		if err != nil {
			return nil, err
		}
		checkins = append(checkins, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return checkins, nil
}

func scanCheckin(row rowScanner) (models.CheckIn, error) {
	var (
		c                  models.CheckIn
		source, problem    string
		locationID         sql.NullString
		country            sql.NullString
		stalls             sql.NullInt64
		lat, lng           sql.NullFloat64
		submitterTime      time.Time
		userID             sql.NullString
		checkinTime        sql.NullTime
		charging, blocked  sql.NullInt64
		waiting            sql.NullInt64
		affected           []byte
		notes, importError sql.NullString
	)
	err := row.Scan(
		&c.ID, &source, &locationID, &c.Station.Title, &country, &stalls,
		&lat, &lng, &c.Submitter.UserAgent, &c.Submitter.IP, &submitterTime, &userID,
		&checkinTime, &charging, &blocked, &waiting, &problem, &affected, &notes, &importError,
	)
	if err != nil {
		return models.CheckIn{}, err
	}

	c.Source = models.Source(source)
	c.Station.LocationID = stringPtr(locationID)
	c.Station.Country = country.String
	c.Station.Stalls = intPtr(stalls)
	c.Station.Location = pointPtr(lat, lng)
	c.Submitter.Time = models.NewTimestamp(submitterTime)
	c.Submitter.UserID = stringPtr(userID)
	c.Checkin.Time = timestampPtr(checkinTime)
	c.Checkin.Charging = intPtr(charging)
	c.Checkin.Blocked = intPtr(blocked)
	c.Checkin.Waiting = intPtr(waiting)
	c.Checkin.Problem = models.Problem(problem)
	c.Checkin.Notes = stringPtr(notes)
	c.Error = stringPtr(importError)

	c.Checkin.AffectedStalls = []string{}
	if len(affected) > 0 {
		if err := json.Unmarshal(affected, &c.Checkin.AffectedStalls); err != nil {
			return models.CheckIn{}, fmt.Errorf("decode affected stalls of %s: %w", c.ID, err)
		}
	}
	return c, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
