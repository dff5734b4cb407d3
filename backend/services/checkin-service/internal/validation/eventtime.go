package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	// PreciseLayout is the API format: ISO-8601 UTC with milliseconds.
	PreciseLayout = "2006-01-02T15:04:05.000Z"
	// SimpleLayout is what the in-car browser can type, in the reference zone.
	SimpleLayout = "2006-01-02 15:04"
	// BulkLayout is the month/day/year format of the bulk feed, in the reference zone.
	BulkLayout = "1/2/2006 15:04"

	DefaultReferenceZone = "Europe/Zurich"
)

var (
	precisePattern = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}T[0-9]{2}:[0-9]{2}:[0-9]{2}\.[0-9]{3}Z$`)
	simplePattern  = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2} [0-9]{1,2}:[0-9]{2}$`)
)

// Window bounds how far an event time may sit from the server clock.
type Window struct {
	MaxAge     time.Duration
	FutureSkew time.Duration
}

// DefaultWindow is the live-submission window: one hour ahead, 30 days back.
var DefaultWindow = Window{MaxAge: 30 * 24 * time.Hour, FutureSkew: time.Hour}

// TimeParser parses event times, resolving zone-less input in a reference zone.
type TimeParser struct {
	loc *time.Location
}

// NewTimeParser loads zone (DefaultReferenceZone when empty).
func NewTimeParser(zone string) (*TimeParser, error) {
	if strings.TrimSpace(zone) == "" {
		zone = DefaultReferenceZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("validation: load zone %q: %w", zone, err)
	}
	return &TimeParser{loc: loc}, nil
}

// Location returns the reference zone.
func (p *TimeParser) Location() *time.Location {
	return p.loc
}

// Parse accepts PreciseLayout or SimpleLayout and returns the instant in UTC.
func (p *TimeParser) Parse(field string, v Value) (time.Time, error) {
	t, ok := v.(Text)
	if !ok {
		return time.Time{}, Errorf(KindInvalidDate, field, "expected a date string")
	}
	s := strings.TrimSpace(string(t))

	switch {
	case precisePattern.MatchString(s):
		parsed, err := time.Parse(PreciseLayout, s)
		if err != nil {
			return time.Time{}, Errorf(KindInvalidDate, field, "%q is not a valid date", s)
		}
		return parsed.UTC(), nil
	case simplePattern.MatchString(s):
		parsed, err := time.ParseInLocation(SimpleLayout, s, p.loc)
		if err != nil {
			return time.Time{}, Errorf(KindInvalidDate, field, "%q is not a valid date", s)
		}
		return parsed.UTC(), nil
	default:
		return time.Time{}, Errorf(KindInvalidDate, field, "%q matches neither %s nor %s", s, PreciseLayout, SimpleLayout)
	}
}

// ParseBulk parses the bulk feed's separate date and clock columns.
func (p *TimeParser) ParseBulk(date, clock string) (time.Time, error) {
	s := strings.TrimSpace(date) + " " + strings.TrimSpace(clock)
	parsed, err := time.ParseInLocation(BulkLayout, s, p.loc)
	if err != nil {
		return time.Time{}, Errorf(KindInvalidDate, "", "invalid time %q", s)
	}
	return parsed.UTC(), nil
}

// Check enforces w against now.
func (w Window) Check(field string, t, now time.Time) error {
	if w.FutureSkew >= 0 && t.After(now.Add(w.FutureSkew)) {
		return Errorf(KindFutureTime, field, "%s is in the future", t.UTC().Format(PreciseLayout))
	}
	if w.MaxAge > 0 && t.Before(now.Add(-w.MaxAge)) {
		return Errorf(KindTooOld, field, "%s is older than %s", t.UTC().Format(PreciseLayout), w.MaxAge)
	}
	return nil
}

// EventTime parses v and applies the live-submission window.
func (p *TimeParser) EventTime(field string, v Value, now time.Time, w Window) (time.Time, error) {
	t, err := p.Parse(field, v)
	if err != nil {
		return time.Time{}, err
	}
	if err := w.Check(field, t, now); err != nil {
		return time.Time{}, err
	}
	return t, nil
}
