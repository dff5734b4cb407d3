// Package export renders check-ins for download: flat CSV and JSONP.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"suctracker/backend/services/checkin-service/internal/models"
)

// CheckinColumns are the columns of a check-in CSV export.
var CheckinColumns = []string{"locationId", "stalls", "time", "charging", "blocked", "waiting"}

// ErrInvalidCallback rejects JSONP callback names that are not identifiers.
var ErrInvalidCallback = errors.New("invalid callback name")

var callbackPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*(\.[A-Za-z_$][A-Za-z0-9_$]*)*$`)

// CSV renders a header and rows. Values containing a comma, quote or line
// break are quoted. Lines end in "\n" and the last one has no terminator.
func CSV(header []string, rows [][]string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return "", err
	}
	if err := w.WriteAll(rows); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// CheckinsCSV flattens check-ins to CheckinColumns. Null values are empty.
func CheckinsCSV(checkins []models.CheckIn) (string, error) {
	rows := make([][]string, 0, len(checkins))
	for _, c := range checkins {
		rows = append(rows, []string{
			deref(c.Station.LocationID),
			intCell(c.Station.Stalls),
			timeCell(c.Checkin.Time),
			intCell(c.Checkin.Charging),
			intCell(c.Checkin.Blocked),
			intCell(c.Checkin.Waiting),
		})
	}
	return CSV(CheckinColumns, rows)
}

// ValidCallback reports whether name may be used as a JSONP callback.
func ValidCallback(name string) bool {
	return len(name) <= 64 && callbackPattern.MatchString(name)
}

// JSONP wraps the JSON encoding of v as "callback(<json>);".
func JSONP(callback string, v any) ([]byte, error) {
	if !ValidCallback(callback) {
		return nil, ErrInvalidCallback
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(callback)+len(data)+3)
	out = append(out, callback...)
	out = append(out, '(')
	out = append(out, data...)
	out = append(out, ')', ';')
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intCell(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func timeCell(t *models.Timestamp) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.String()
}
