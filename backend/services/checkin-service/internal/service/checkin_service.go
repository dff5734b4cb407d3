package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"suctracker/backend/services/checkin-service/internal/metrics"
	"suctracker/backend/services/checkin-service/internal/models"
	"suctracker/backend/services/checkin-service/internal/repository"
	"suctracker/backend/services/checkin-service/internal/validation"
)

// Submission field names shared by the JSON API and the car form.
const (
	FieldTime           = "time"
	FieldLocationID     = "locationId"
	FieldStalls         = "stalls"
	FieldCharging       = "charging"
	FieldBlocked        = "blocked"
	FieldWaiting        = "waiting"
	FieldProblem        = "problem"
	FieldAffectedStalls = "affectedStalls"
	FieldUserID         = "tffUserId"
	FieldNotes          = "notes"
)

// RequiredFields must be present in every live submission.
var RequiredFields = []string{FieldTime, FieldLocationID, FieldStalls, FieldUserID, FieldNotes}

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// CheckinStore persists check-ins.
type CheckinStore interface {
	Insert(ctx context.Context, c *models.CheckIn) error
	InsertMany(ctx context.Context, checkins []models.CheckIn) error
	List(ctx context.Context, f repository.CheckinFilter) ([]models.CheckIn, error)
}

// SubmitterMeta is what the transport knows about the sender.
type SubmitterMeta struct {
	Source    models.Source
	UserAgent string
	IP        string
}

// CheckinService validates and stores live submissions.
type CheckinService struct {
	store    CheckinStore
	stations validation.StationFinder
	parser   *validation.TimeParser
	window   validation.Window
	clock    clockwork.Clock
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewCheckinService builds service.
func NewCheckinService(
	store CheckinStore,
	stations validation.StationFinder,
	parser *validation.TimeParser,
	window validation.Window,
	clock clockwork.Clock,
	m *metrics.Metrics,
	logger *zap.Logger,
) *CheckinService {
	return &CheckinService{
		store:    store,
		stations: stations,
		parser:   parser,
		window:   window,
		clock:    clock,
		metrics:  m,
		logger:   logger,
	}
}

// Submit normalizes fields into a check-in and appends it. Any validation
// failure rejects the whole submission and nothing is written.
func (s *CheckinService) Submit(ctx context.Context, fields validation.Fields, meta SubmitterMeta) (*models.CheckIn, error) {
	checkin, err := s.normalize(ctx, fields, meta)
	if err != nil {
		s.count(meta.Source, err)
		return nil, err
	}
	if err := s.store.Insert(ctx, checkin); err != nil {
		s.count(meta.Source, err)
		return nil, err
	}
	s.count(meta.Source, nil)

	s.logger.Info("checkin accepted",
		zap.String("id", checkin.ID.String()),
		zap.String("source", string(meta.Source)),
		zap.String("location_id", *checkin.Station.LocationID),
	)
	return checkin, nil
}

func (s *CheckinService) normalize(ctx context.Context, fields validation.Fields, meta SubmitterMeta) (*models.CheckIn, error) {
	if missing := fields.Missing(RequiredFields...); len(missing) > 0 {
		return nil, validation.Errorf(validation.KindMissingFields, "", "missing %s", strings.Join(missing, ", "))
	}

	now := s.clock.Now().UTC()
	eventTime, err := s.parser.EventTime(FieldTime, fields[FieldTime], now, s.window)
	if err != nil {
		return nil, err
	}

	stalls, err := validation.Integer(FieldStalls, fields[FieldStalls])
	if err != nil {
		return nil, err
	}
	charging, err := validation.OptionalInteger(FieldCharging, fields[FieldCharging])
	if err != nil {
		return nil, err
	}
	blocked, err := validation.OptionalInteger(FieldBlocked, fields[FieldBlocked])
	if err != nil {
		return nil, err
	}
	waiting, err := validation.OptionalInteger(FieldWaiting, fields[FieldWaiting])
	if err != nil {
		return nil, err
	}

	problem := string(models.ProblemNone)
	if fields.Has(FieldProblem) {
		if problem, err = validation.String(FieldProblem, fields[FieldProblem], 0, models.Problems); err != nil {
			return nil, err
		}
	}
	userID, err := validation.String(FieldUserID, fields[FieldUserID], validation.MaxTextLength, nil)
	if err != nil {
		return nil, err
	}
	notes, err := validation.String(FieldNotes, fields[FieldNotes], validation.MaxTextLength, nil)
	if err != nil {
		return nil, err
	}

	locationID, err := validation.String(FieldLocationID, fields[FieldLocationID], validation.MaxTextLength, nil)
	if err != nil {
		return nil, err
	}
	station, err := validation.Station(ctx, s.stations, FieldLocationID, locationID)
	if err != nil {
		return nil, err
	}

	// The directory's stall count wins over the submitted one.
	if station.Stalls != nil {
		stalls = *station.Stalls
	}
	for _, limit := range []struct {
		field string
		value *int
	}{{FieldCharging, charging}, {FieldBlocked, blocked}} {
		if limit.value != nil && *limit.value > stalls {
			return nil, validation.Errorf(validation.KindLimitExceeded, limit.field, "%d exceeds the %d stalls of %s", *limit.value, stalls, station.Title)
		}
	}

	// Absent or null means no stall was singled out; unchecked form boxes are never sent.
	affectedStalls := []string{}
	if raw, ok := fields[FieldAffectedStalls]; ok && !isNull(raw) {
		if affectedStalls, err = validation.ListOf(FieldAffectedStalls, raw, validation.StallNames(stalls)); err != nil {
			return nil, err
		}
	}

	snapshot := station.Snapshot()
	snapshot.Stalls = models.IntPtr(stalls)

	return &models.CheckIn{
		ID:      uuid.New(),
		Source:  meta.Source,
		Station: snapshot,
		Submitter: models.Submitter{
			UserAgent: meta.UserAgent,
			IP:        meta.IP,
			Time:      models.NewTimestamp(now),
			UserID:    models.StringPtr(userID),
		},
		Checkin: models.Report{
			Time:           models.TimestampPtr(eventTime),
			Charging:       charging,
			Blocked:        blocked,
			Waiting:        waiting,
			Problem:        models.Problem(problem),
			AffectedStalls: affectedStalls,
			Notes:          models.StringPtr(notes),
		},
	}, nil
}

func isNull(v validation.Value) bool {
	_, ok := v.(validation.Null)
	return ok || v == nil
}

func (s *CheckinService) count(source models.Source, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "accepted"
	if err != nil {
		outcome = "error"
		if kind := validation.KindOf(err); kind != "" {
			outcome = string(kind)
		}
	}
	s.metrics.CheckinsSubmitted.WithLabelValues(string(source), outcome).Inc()
}

// List returns accepted check-ins, newest first. query filters by station
// title or id; limit defaults to 100 and is capped at 1000.
func (s *CheckinService) List(ctx context.Context, query string, limit int) ([]models.CheckIn, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.store.List(ctx, repository.CheckinFilter{Query: query, Limit: limit})
}
