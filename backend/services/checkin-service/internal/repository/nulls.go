package repository

import (
	"database/sql"
	"strings"

	"suctracker/backend/services/checkin-service/internal/models"
)

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullTime(v *models.Timestamp) sql.NullTime {
	if v == nil || v.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: v.UTC(), Valid: true}
}

func timestampPtr(v sql.NullTime) *models.Timestamp {
	if !v.Valid {
		return nil
	}
	return models.TimestampPtr(v.Time)
}

func pointArgs(p *models.Point) (sql.NullFloat64, sql.NullFloat64) {
	if p == nil {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: p.Lat, Valid: true}, sql.NullFloat64{Float64: p.Lng, Valid: true}
}

func pointPtr(lat, lng sql.NullFloat64) *models.Point {
	if !lat.Valid || !lng.Valid {
		return nil
	}
	return &models.Point{Lat: lat.Float64, Lng: lng.Float64}
}

// likePattern turns text into a literal ILIKE substring pattern.
func likePattern(text string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(text) + "%"
}
