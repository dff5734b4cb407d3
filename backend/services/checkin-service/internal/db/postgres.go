package db

import (
	"context"
	"database/sql"
	"fmt"

	libdb "suctracker/backend/libs/db"
)

// NewPostgres connects to Postgres using shared library helper.
func NewPostgres(ctx context.Context, dsn string, opts libdb.PoolOptions) (*sql.DB, error) {
	return libdb.NewPostgresDB(ctx, dsn, opts)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS stations (
		type        TEXT NOT NULL,
		location_id TEXT NOT NULL,
		title       TEXT NOT NULL,
		country     TEXT NOT NULL DEFAULT '',
		region      TEXT NOT NULL DEFAULT '',
		common_name TEXT NOT NULL DEFAULT '',
		stalls      INTEGER,
		lat         DOUBLE PRECISION,
		lng         DOUBLE PRECISION,
		raw         JSONB NOT NULL DEFAULT '{}'::jsonb,
		UNIQUE (type, location_id)
	)`,
	`CREATE INDEX IF NOT EXISTS stations_type_idx ON stations (type)`,
	`CREATE INDEX IF NOT EXISTS stations_title_idx ON stations (title)`,
	`CREATE INDEX IF NOT EXISTS stations_location_id_idx ON stations (location_id)`,
	`CREATE INDEX IF NOT EXISTS stations_country_idx ON stations (country)`,
	`CREATE INDEX IF NOT EXISTS stations_lat_lng_idx ON stations (lat, lng)`,

	`CREATE TABLE IF NOT EXISTS checkins (
		id                   UUID PRIMARY KEY,
		source               TEXT NOT NULL,
		station_location_id  TEXT,
		station_title        TEXT NOT NULL DEFAULT '',
		station_country      TEXT,
		station_stalls       INTEGER,
		station_lat          DOUBLE PRECISION,
		station_lng          DOUBLE PRECISION,
		submitter_user_agent TEXT NOT NULL DEFAULT '',
		submitter_ip         TEXT NOT NULL DEFAULT '',
		submitter_time       TIMESTAMPTZ NOT NULL,
		submitter_user_id    TEXT,
		checkin_time         TIMESTAMPTZ,
		charging             INTEGER,
		blocked              INTEGER,
		waiting              INTEGER,
		problem              TEXT NOT NULL DEFAULT 'none',
		affected_stalls      JSONB NOT NULL DEFAULT '[]'::jsonb,
		notes                TEXT,
		import_error         TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS checkins_station_country_idx ON checkins (station_country)`,
	`CREATE INDEX IF NOT EXISTS checkins_checkin_time_idx ON checkins (checkin_time)`,
	`CREATE INDEX IF NOT EXISTS checkins_submitter_time_idx ON checkins (submitter_time)`,
	`CREATE INDEX IF NOT EXISTS checkins_station_location_id_idx ON checkins (station_location_id)`,
}

// EnsureSchema creates tables and indexes that do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("db: ensure schema: %w", err)
		}
	}
	return nil
}
