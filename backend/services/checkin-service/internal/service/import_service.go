package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"suctracker/backend/services/checkin-service/internal/metrics"
	"suctracker/backend/services/checkin-service/internal/models"
	"suctracker/backend/services/checkin-service/internal/validation"
)

// Bulk feed shapes. The long shape appends notes, user id and report date/time.
const (
	legacyFieldCount = 7
	fullFieldCount   = 11
)

const importUserAgent = "bulk-import"

// StationMatcher resolves free-text station names.
type StationMatcher interface {
	MatchStations(ctx context.Context, text, region string) ([]models.Station, error)
}

// ImportService parses the administrative bulk feed. Freshness windows do not
// apply: the feed is a trusted backfill of historical reports.
type ImportService struct {
	store   CheckinStore
	matcher StationMatcher
	parser  *validation.TimeParser
	region  string
	clock   clockwork.Clock
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewImportService builds service. region restricts station matching.
func NewImportService(
	store CheckinStore,
	matcher StationMatcher,
	parser *validation.TimeParser,
	region string,
	clock clockwork.Clock,
	m *metrics.Metrics,
	logger *zap.Logger,
) *ImportService {
	return &ImportService{
		store:   store,
		matcher: matcher,
		parser:  parser,
		region:  region,
		clock:   clock,
		metrics: m,
		logger:  logger,
	}
}

// Import parses text and appends every record, including the ones carrying an
// error. Only a storage failure fails the batch.
func (s *ImportService) Import(ctx context.Context, text string) (models.ImportResult, error) {
	records := s.Parse(ctx, text)
	now := s.clock.Now()

	var result models.ImportResult
	checkins := make([]models.CheckIn, 0, len(records))
	for _, rec := range records {
		checkins = append(checkins, s.toCheckin(rec, now))
		result.Imported++
		if rec.Error != nil {
			result.Failed++
		}
	}

	if err := s.store.InsertMany(ctx, checkins); err != nil {
		s.logger.Error("bulk import insert failed", zap.Int("records", len(checkins)), zap.Error(err))
		return models.ImportResult{}, err
	}

	if s.metrics != nil {
		s.metrics.ImportLines.WithLabelValues("ok").Add(float64(result.Imported - result.Failed))
		s.metrics.ImportLines.WithLabelValues("error").Add(float64(result.Failed))
	}

	s.logger.Info("bulk import finished", zap.Int("imported", result.Imported), zap.Int("failed", result.Failed))
	return result, nil
}

// Parse turns every non-blank line of text into a record. Problems are
// recorded on the record, never returned.
func (s *ImportService) Parse(ctx context.Context, text string) []models.ImportRecord {
	var records []models.ImportRecord
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		records = append(records, s.parseLine(ctx, i+1, line))
	}
	return records
}

func (s *ImportService) parseLine(ctx context.Context, lineNo int, line string) models.ImportRecord {
	fields := strings.Split(validation.CleanText(line), ",")
	field := func(i int) string {
		if i < len(fields) {
			return strings.TrimSpace(fields[i])
		}
		return ""
	}

	rec := models.ImportRecord{Line: lineNo}
	var problems []string
	fail := func(err error) {
		problems = append(problems, err.Error())
	}

	if n := len(fields); n != legacyFieldCount && n != fullFieldCount {
		fail(validation.Errorf(validation.KindFieldCount, "", "expected %d or %d fields, got %d", legacyFieldCount, fullFieldCount, n))
	}

	station, err := s.resolveStation(ctx, CorrectStationName(field(2)))
	if err != nil {
		fail(err)
	}
	rec.Station = station

	if t, err := s.parser.ParseBulk(field(0), field(1)); err != nil {
		fail(err)
	} else {
		rec.Time = models.TimestampPtr(t)
	}

	for _, n := range []struct {
		name string
		idx  int
		dest **int
	}{
		{"stalls", 3, &rec.Stalls},
		{"charging", 4, &rec.Charging},
		{"waiting", 5, &rec.Waiting},
		{"blocked", 6, &rec.Blocked},
	} {
		v, err := plainInt(n.name, field(n.idx))
		if err != nil {
			fail(err)
			continue
		}
		*n.dest = v
	}

	if len(fields) == fullFieldCount {
		if notes := field(7); notes != "" {
			rec.Notes = models.StringPtr(notes)
		}
		if userID := field(8); userID != "" {
			rec.UserID = models.StringPtr(userID)
		}
		if t, err := s.parser.ParseBulk(field(9), field(10)); err != nil {
			fail(err)
		} else {
			rec.ReportTime = models.TimestampPtr(t)
		}
	} else {
		rec.ReportTime = rec.Time
	}

	if len(problems) > 0 {
		rec.Error = models.StringPtr(strings.Join(problems, "; "))
		s.logger.Debug("bulk line rejected", zap.Int("line", lineNo), zap.String("error", *rec.Error))
	}
	return rec
}

// resolveStation requires text to match exactly one supercharger. On failure
// the snapshot keeps text as its title and has no location id.
func (s *ImportService) resolveStation(ctx context.Context, text string) (models.StationSnapshot, error) {
	unresolved := models.StationSnapshot{Title: text}
	if text == "" {
		return unresolved, validation.Errorf(validation.KindAmbiguousStation, "", "empty station name")
	}

	matches, err := s.matcher.MatchStations(ctx, text, s.region)
	if err != nil {
		s.logger.Error("bulk station lookup failed", zap.String("text", text), zap.Error(err))
		return unresolved, validation.Errorf(validation.KindAmbiguousStation, "", "lookup of %q failed", text)
	}
	if len(matches) != 1 {
		return unresolved, validation.Errorf(validation.KindAmbiguousStation, "", "%q matched %d stations", text, len(matches))
	}
	return matches[0].Snapshot(), nil
}

func plainInt(name, s string) (*int, error) {
	n, err := validation.Integer(name, validation.Text(s))
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// toCheckin converts a record for storage. The feed's stall count describes
// the report and replaces the directory's. Submission time is the report time
// when the feed has one.
func (s *ImportService) toCheckin(rec models.ImportRecord, now time.Time) models.CheckIn {
	station := rec.Station
	if rec.Stalls != nil {
		station.Stalls = rec.Stalls
	}
	submitted := models.NewTimestamp(now)
	if rec.ReportTime != nil {
		submitted = *rec.ReportTime
	}
	return models.CheckIn{
		ID:      uuid.New(),
		Source:  models.SourceImport,
		Station: station,
		Submitter: models.Submitter{
			UserAgent: importUserAgent,
			Time:      submitted,
			UserID:    rec.UserID,
		},
		Checkin: models.Report{
			Time:           rec.Time,
			Charging:       rec.Charging,
			Blocked:        rec.Blocked,
			Waiting:        rec.Waiting,
			Problem:        models.ProblemNone,
			AffectedStalls: []string{},
			Notes:          rec.Notes,
		},
		Error: rec.Error,
	}
}
