// Package validation holds the field-local checks applied to untrusted
// check-in input. Every check is side-effect free except Station, which reads
// the station directory.
package validation

import (
	"context"
	"errors"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"suctracker/backend/services/checkin-service/internal/models"
)

// MaxTextLength bounds free-text fields such as notes and user identifiers.
const MaxTextLength = 1000

// StationFinder resolves a location id. Implementations return
// models.ErrStationNotFound when the id is unknown.
type StationFinder interface {
	FindByLocationID(ctx context.Context, locationID string) (*models.Station, error)
}

// MaxInteger is the largest count a check-in column holds.
const MaxInteger = math.MaxInt32

// Integer accepts a non-negative integer up to MaxInteger given as a number or
// as text.
func Integer(field string, v Value) (int, error) {
	switch t := v.(type) {
	case Text:
		s := strings.TrimSpace(string(t))
		if s == "" {
			return 0, Errorf(KindInvalidNumber, field, "empty value")
		}
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil || n < 0 {
			return 0, Errorf(KindInvalidNumber, field, "%q is not a non-negative integer", s)
		}
		return int(n), nil
	case Number:
		f := float64(t)
		if f < 0 || f != math.Trunc(f) || f > MaxInteger {
			return 0, Errorf(KindInvalidNumber, field, "%v is not a non-negative integer", f)
		}
		return int(f), nil
	case nil:
		return 0, Errorf(KindInvalidNumber, field, "missing value")
	default:
		return 0, Errorf(KindInvalidNumber, field, "expected a number, got %s", v.shape())
	}
}

// OptionalInteger is Integer for fields that may be absent, null or empty.
func OptionalInteger(field string, v Value) (*int, error) {
	switch t := v.(type) {
	case nil, Null:
		return nil, nil
	case Text:
		if strings.TrimSpace(string(t)) == "" {
			return nil, nil
		}
	}
	n, err := Integer(field, v)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// String accepts text up to maxLen characters (MaxTextLength when maxLen <= 0),
// optionally restricted to allowed.
func String(field string, v Value, maxLen int, allowed []string) (string, error) {
	t, ok := v.(Text)
	if !ok {
		shape := "nothing"
		if v != nil {
			shape = v.shape()
		}
		return "", Errorf(KindNotAString, field, "expected text, got %s", shape)
	}
	if maxLen <= 0 {
		maxLen = MaxTextLength
	}
	s := CleanText(string(t))
	if n := utf8.RuneCountInString(s); n > maxLen {
		return "", Errorf(KindTooLong, field, "%d characters exceeds the limit of %d", n, maxLen)
	}
	if allowed != nil && !slices.Contains(allowed, s) {
		return "", Errorf(KindNotAllowed, field, "%q is not one of %s", s, strings.Join(allowed, ", "))
	}
	return s, nil
}

// CleanText replaces invalid UTF-8 and drops NUL bytes, neither of which a
// text column accepts.
func CleanText(s string) string {
	return strings.ReplaceAll(strings.ToValidUTF8(s, "\uFFFD"), "\x00", "")
}

// ListOf accepts a sequence of text entries drawn from allowed. Duplicates are
// collapsed, keeping first-seen order.
func ListOf(field string, v Value, allowed []string) ([]string, error) {
	list, ok := v.(List)
	if !ok {
		shape := "nothing"
		if v != nil {
			shape = v.shape()
		}
		return nil, Errorf(KindNotAList, field, "expected a list, got %s", shape)
	}

	out := make([]string, 0, len(list))
	for _, item := range list {
		t, ok := item.(Text)
		if !ok || !slices.Contains(allowed, string(t)) {
			return nil, Errorf(KindInvalidEntry, field, "entry %v is not allowed", describe(item))
		}
		if !slices.Contains(out, string(t)) {
			out = append(out, string(t))
		}
	}
	return out, nil
}

// Station resolves locationID via finder, failing with KindUnknownStation when absent.
func Station(ctx context.Context, finder StationFinder, field, locationID string) (models.Station, error) {
	station, err := finder.FindByLocationID(ctx, locationID)
	if errors.Is(err, models.ErrStationNotFound) || (err == nil && station == nil) {
		return models.Station{}, Errorf(KindUnknownStation, field, "no station with id %q", locationID)
	}
	if err != nil {
		return models.Station{}, err
	}
	return *station, nil
}

func describe(v Value) string {
	switch t := v.(type) {
	case Text:
		return strconv.Quote(string(t))
	case Number:
		return strconv.FormatFloat(float64(t), 'f', -1, 64)
	case nil:
		return "nothing"
	default:
		return v.shape()
	}
}
