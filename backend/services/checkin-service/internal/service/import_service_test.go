package service

import (
	"context"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"suctracker/backend/services/checkin-service/internal/metrics"
	"suctracker/backend/services/checkin-service/internal/models"
	"suctracker/backend/services/checkin-service/internal/validation"
)

var importNow = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func newImportFixture(t *testing.T, stations ...models.Station) (*ImportService, *fakeCheckinStore, *metrics.Metrics) {
	t.Helper()
	parser, err := validation.NewTimeParser("")
	require.NoError(t, err)
	store := &fakeCheckinStore{}
	m := metrics.NewMetricsForTesting()
	svc := NewImportService(store, &fakeDirectory{stations: stations}, parser, "europe",
		clockwork.NewFakeClockAt(importNow), m, zap.NewNop())
	return svc, store, m
}

func TestImportService_UnknownStationStillCounted(t *testing.T) {
	svc, store, m := newImportFixture(t, supercharger("egerkingen", "Egerkingen", "Switzerland", 8))

	result, err := svc.Import(context.Background(), "06/23/2013,13:15,Neuberg,6,3,0,0")
	require.NoError(t, err)
	assert.Equal(t, models.ImportResult{Imported: 1, Failed: 1}, result)

	require.Len(t, store.checkins, 1)
	c := store.checkins[0]
	assert.Nil(t, c.Station.LocationID)
	assert.Equal(t, "Neuberg", c.Station.Title)
	require.NotNil(t, c.Error)
	assert.Contains(t, *c.Error, string(validation.KindAmbiguousStation))
	assert.Equal(t, models.SourceImport, c.Source)

	// The rest of the line still parses.
	assert.Equal(t, time.Date(2013, 6, 23, 11, 15, 0, 0, time.UTC), c.Checkin.Time.Time)
	assert.Equal(t, 6, *c.Station.Stalls)
	assert.Equal(t, 3, *c.Checkin.Charging)

	assert.InDelta(t, 1, metrics.Value(m.ImportLines.WithLabelValues("error")), 1e-9)
}

func TestImportService_CorrectionTable(t *testing.T) {
	svc, _, _ := newImportFixture(t,
		supercharger("salzburgsupercharger", "Salzburg", "Austria", 6),
		supercharger("hamburgsupercharger", "Hamburg Supercharger", "Germany", 8),
		supercharger("hamburgessener", "Hamburg-Essener Straße", "Germany", 8),
	)

	records := svc.Parse(context.Background(), "07/09/2014,18:20,Anif,6,2,0,0\n07/09/2014,18:25,Hamburg,8,1,0,0\n")
	require.Len(t, records, 2)

	for _, rec := range records {
		assert.Nil(t, rec.Error)
	}
	assert.Equal(t, "salzburgsupercharger", *records[0].Station.LocationID)
	assert.Equal(t, "Salzburg", records[0].Station.Title)
	assert.Equal(t, "hamburgsupercharger", *records[1].Station.LocationID)
}

func TestImportService_AmbiguousName(t *testing.T) {
	svc, _, _ := newImportFixture(t,
		supercharger("berlin1", "Berlin Mitte", "Germany", 8),
		supercharger("berlin2", "Berlin-Schönefeld", "Germany", 8),
	)

	records := svc.Parse(context.Background(), "07/09/2014,18:20,Berlin,6,2,0,0")
	require.Len(t, records, 1)
	require.NotNil(t, records[0].Error)
	assert.Contains(t, *records[0].Error, "matched 2 stations")
	assert.Nil(t, records[0].Station.LocationID)
	assert.Equal(t, "Berlin", records[0].Station.Title)
}

func TestImportService_MatchesByIDAndCommonNameInRegionOnly(t *testing.T) {
	tromso := supercharger("tromsosupercharger", "Tromsø", "Norway", 4)
	tromso.CommonName = "Tromso Amtmann"
	us := supercharger("neuberg-us", "Neuberg", "United States", 8)
	us.Region = "north_america"
	destination := supercharger("neuberg-hotel", "Neuberg", "Germany", 2)
	destination.Type = models.StationTypeDestination

	svc, _, _ := newImportFixture(t, tromso, us, destination)

	records := svc.Parse(context.Background(), "01/05/2014,08:05,amtmann,4,1,0,0\n01/05/2014,08:05,Neuberg,6,1,0,0")
	require.Len(t, records, 2)
	assert.Nil(t, records[0].Error)
	assert.Equal(t, "tromsosupercharger", *records[0].Station.LocationID)
	require.NotNil(t, records[1].Error)
	assert.Contains(t, *records[1].Error, "matched 0 stations")
}

func TestImportService_LongShape(t *testing.T) {
	svc, store, _ := newImportFixture(t, supercharger("egerkingen", "Egerkingen", "Switzerland", 8))

	line := "02/28/2014,19:45,Egerkingen,8,5,2,1,queue at the entrance,u-42,03/01/2014,07:10"
	result, err := svc.Import(context.Background(), line)
	require.NoError(t, err)
	assert.Equal(t, models.ImportResult{Imported: 1}, result)

	c := store.checkins[0]
	assert.Nil(t, c.Error)
	assert.Equal(t, "egerkingen", *c.Station.LocationID)
	assert.Equal(t, time.Date(2014, 2, 28, 18, 45, 0, 0, time.UTC), c.Checkin.Time.Time)
	assert.Equal(t, time.Date(2014, 3, 1, 6, 10, 0, 0, time.UTC), c.Submitter.Time.Time)
	assert.Equal(t, "queue at the entrance", *c.Checkin.Notes)
	assert.Equal(t, "u-42", *c.Submitter.UserID)
	assert.Equal(t, 2, *c.Checkin.Waiting)
	assert.Equal(t, 1, *c.Checkin.Blocked)
}

func TestImportService_ShortShapeDefaults(t *testing.T) {
	svc, _, _ := newImportFixture(t, supercharger("egerkingen", "Egerkingen", "Switzerland", 8))

	records := svc.Parse(context.Background(), "02/28/2014,19:45,Egerkingen,8,5,2,1")
	require.Len(t, records, 1)
	rec := records[0]
	assert.Nil(t, rec.Error)
	assert.Equal(t, rec.Time, rec.ReportTime)
	assert.Nil(t, rec.Notes)
	assert.Nil(t, rec.UserID)
}

func TestImportService_PerLineProblems(t *testing.T) {
	svc, _, _ := newImportFixture(t, supercharger("egerkingen", "Egerkingen", "Switzerland", 8))

	text := "\r\n" +
		"2014-02-28,19:45,Egerkingen,8,5,2,1\r\n" +
		"02/28/2014,19:45,Egerkingen,eight,5,2,1\n" +
		"02/28/2014,19:45,Egerkingen,8,5\n" +
		"   \n"
	records := svc.Parse(context.Background(), text)
	require.Len(t, records, 3)

	assert.Equal(t, 2, records[0].Line)
	require.NotNil(t, records[0].Error)
	assert.Contains(t, *records[0].Error, string(validation.KindInvalidDate))
	assert.Nil(t, records[0].Time)
	assert.Equal(t, "egerkingen", *records[0].Station.LocationID)

	require.NotNil(t, records[1].Error)
	assert.Contains(t, *records[1].Error, string(validation.KindInvalidNumber))
	assert.Nil(t, records[1].Stalls)
	assert.Equal(t, 5, *records[1].Charging)

	require.NotNil(t, records[2].Error)
	assert.Contains(t, *records[2].Error, string(validation.KindFieldCount))
	assert.Equal(t, 5, *records[2].Charging)
	assert.Nil(t, records[2].Waiting)
}

func TestImportService_NoFreshnessWindow(t *testing.T) {
	svc, _, _ := newImportFixture(t, supercharger("egerkingen", "Egerkingen", "Switzerland", 8))

	records := svc.Parse(context.Background(), "01/01/2010,10:00,Egerkingen,8,1,0,0\n12/31/2030,10:00,Egerkingen,8,1,0,0")
	require.Len(t, records, 2)
	assert.Nil(t, records[0].Error)
	assert.Nil(t, records[1].Error)
}

func TestImportService_StoreFailure(t *testing.T) {
	svc, store, m := newImportFixture(t)
	store.insertErr = errStore

	_, err := svc.Import(context.Background(), "06/23/2013,13:15,Neuberg,6,3,0,0")
	require.ErrorIs(t, err, errStore)
	assert.Zero(t, metrics.Value(m.ImportLines.WithLabelValues("ok")))
	assert.Zero(t, metrics.Value(m.ImportLines.WithLabelValues("error")))
}

func TestImportService_OversizedCountFlagsOnlyItsLine(t *testing.T) {
	svc, store, m := newImportFixture(t, supercharger("egerkingen", "Egerkingen", "Switzerland", 8))

	text := "02/28/2014,19:45,Egerkingen,8,3,3000000000,0\n" +
		"02/28/2014,19:50,Egerkingen,8,4,0,0"
	result, err := svc.Import(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, models.ImportResult{Imported: 2, Failed: 1}, result)

	require.Len(t, store.checkins, 2)
	bad := store.checkins[0]
	require.NotNil(t, bad.Error)
	assert.Contains(t, *bad.Error, string(validation.KindInvalidNumber))
	assert.Nil(t, bad.Checkin.Waiting)
	assert.Equal(t, 3, *bad.Checkin.Charging)
	assert.Nil(t, store.checkins[1].Error)

	assert.InDelta(t, 1, metrics.Value(m.ImportLines.WithLabelValues("ok")), 1e-9)
	assert.InDelta(t, 1, metrics.Value(m.ImportLines.WithLabelValues("error")), 1e-9)
}

func TestImportService_CleansFreeText(t *testing.T) {
	svc, store, _ := newImportFixture(t, supercharger("egerkingen", "Egerkingen", "Switzerland", 8))

	line := "02/28/2014,19:45,Neu\x00berg\xff,8,5,2,1,slow\x00 \xfecharging,u-\x0042,03/01/2014,07:10"
	_, err := svc.Import(context.Background(), line)
	require.NoError(t, err)

	require.Len(t, store.checkins, 1)
	c := store.checkins[0]
	assert.Equal(t, "Neuberg\uFFFD", c.Station.Title)
	assert.Equal(t, "slow \uFFFDcharging", *c.Checkin.Notes)
	assert.Equal(t, "u-42", *c.Submitter.UserID)
	for _, s := range []string{c.Station.Title, *c.Checkin.Notes, *c.Submitter.UserID} {
		assert.True(t, utf8.ValidString(s), s)
		assert.NotContains(t, s, "\x00")
	}
}

func TestCorrectStationName(t *testing.T) {
	assert.Equal(t, "Mosjøen", CorrectStationName("Mosjoen"))
	assert.Equal(t, "Egerkingen", CorrectStationName("Egerkingen"))
}
