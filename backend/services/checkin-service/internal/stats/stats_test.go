package stats

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suctracker/backend/services/checkin-service/internal/models"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func station(id, country string, stalls *int) models.Station {
	return models.Station{
		Type:       models.StationTypeSupercharger,
		LocationID: id,
		Title:      "Station " + id,
		Country:    country,
		Stalls:     stalls,
	}
}

func checkin(s models.Station, at time.Time, charging *int) models.CheckIn {
	return models.CheckIn{
		Station: s.Snapshot(),
		Checkin: models.Report{
			Time:     models.TimestampPtr(at),
			Charging: charging,
			Problem:  models.ProblemNone,
		},
	}
}

func TestCountryStats_UtilizationSkipsMissingValues(t *testing.T) {
	a := station("a", "Norway", models.IntPtr(4))
	zero := station("z", "Norway", models.IntPtr(0))
	unknown := station("u", "Norway", nil)

	out := CountryStats([]models.CheckIn{
		checkin(a, base, models.IntPtr(2)),
		checkin(a, base, nil),
		checkin(zero, base, models.IntPtr(1)),
		checkin(unknown, base, models.IntPtr(3)),
	}, []models.StationCount{{Country: "Norway", Count: 12}, {Country: "Sweden", Count: 3}})

	require.Len(t, out, 1)
	assert.Equal(t, "Norway", out[0].Country)
	assert.Equal(t, 4, out[0].Checkins)
	assert.Equal(t, 12, out[0].Stations)
	assert.Equal(t, 1, out[0].UtilizationSamples)
	require.NotNil(t, out[0].Utilization)
	assert.InDelta(t, 0.5, *out[0].Utilization, 1e-9)
}

func TestCountryStats_NoSamples(t *testing.T) {
	out := CountryStats([]models.CheckIn{checkin(station("a", "Italy", nil), base, models.IntPtr(1))}, nil)
	require.Len(t, out, 1)
	assert.Nil(t, out[0].Utilization)
	assert.Zero(t, out[0].Stations)
}

func TestSummarizeCountries_PreservesTotals(t *testing.T) {
	half, full := 0.5, 1.0
	in := []CountryStat{
		{Country: "Austria", Checkins: 3, Stations: 2, Utilization: &full, UtilizationSamples: 3},
		{Country: "Germany", Checkins: 10, Stations: 40, Utilization: &half, UtilizationSamples: 8},
		{Country: "Italy", Checkins: 1, Stations: 3, Utilization: &half, UtilizationSamples: 1},
		{Country: "Spain", Checkins: 2, Stations: 1},
	}

	got := SummarizeCountries(in, 4)

	require.Len(t, got.Countries, 1)
	assert.Equal(t, "Germany", got.Countries[0].Country)

	assert.Equal(t, OthersCountry, got.Others.Country)
	assert.Equal(t, 6, got.Others.Checkins)
	assert.Equal(t, 6, got.Others.Stations)
	assert.Equal(t, 4, got.Others.UtilizationSamples)
	require.NotNil(t, got.Others.Utilization)
	assert.InDelta(t, (3*1.0+0.5)/4, *got.Others.Utilization, 1e-9)

	total := got.Others.Checkins
	for _, c := range got.Countries {
		total += c.Checkins
	}
	assert.Equal(t, 16, total)
}

func TestSummarizeCountries_Empty(t *testing.T) {
	got := SummarizeCountries(nil, 4)
	assert.NotNil(t, got.Countries)
	assert.Empty(t, got.Countries)
	assert.Nil(t, got.Others.Utilization)
}

func TestStationStats_LeftJoin(t *testing.T) {
	a := station("a", "Norway", models.IntPtr(4))
	b := station("b", "Norway", models.IntPtr(8))
	dest := station("d", "Norway", models.IntPtr(2))
	dest.Type = models.StationTypeDestination
	unresolved := models.CheckIn{Station: models.StationSnapshot{Title: "Neuberg", Country: "Norway"}}

	got := StationStats([]models.Station{a, b, dest}, []models.CheckIn{
		checkin(a, base, models.IntPtr(1)),
		checkin(a, base, models.IntPtr(3)),
		unresolved,
	})

	want := []StationStat{
		{LocationID: "a", Title: "Station a", Stalls: models.IntPtr(4), Checkins: 2, Utilization: ptr(0.5)},
		{LocationID: "b", Title: "Station b", Stalls: models.IntPtr(8)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("StationStats mismatch (-want +got):\n%s", diff)
	}
}

func TestStationHistory_Ascending(t *testing.T) {
	a := station("a", "Norway", models.IntPtr(4))
	noTime := checkin(a, time.Time{}, models.IntPtr(9))

	got := StationHistory([]models.CheckIn{
		checkin(a, base.Add(2*time.Hour), models.IntPtr(3)),
		checkin(a, base, models.IntPtr(1)),
		noTime,
		checkin(a, base.Add(time.Hour), models.IntPtr(2)),
	})

	require.Len(t, got, 4)
	assert.Nil(t, got[0].Time)
	for i, want := range []int{1, 2, 3} {
		assert.Equal(t, want, *got[i+1].Charging)
	}
	assert.Equal(t, 4, *got[1].Stalls)
}

func TestRecentOverview_LatestWins(t *testing.T) {
	a := station("a", "Norway", models.IntPtr(4))
	b := station("b", "Sweden", models.IntPtr(2))

	older := checkin(a, base.Add(-time.Hour), models.IntPtr(4))
	older.Checkin.Problem = models.ProblemLimitedPower
	older.Checkin.AffectedStalls = []string{"1A"}
	older.Submitter.UserID = models.StringPtr("first")

	newer := checkin(a, base, models.IntPtr(2))
	newer.Checkin.Notes = models.StringPtr("all good")
	newer.Submitter.UserID = models.StringPtr("second")

	stale := checkin(b, base.Add(-10*24*time.Hour), models.IntPtr(2))
	recentB := checkin(b, base.Add(-30*time.Minute), nil)

	got := RecentOverview([]models.CheckIn{newer, stale, older, recentB}, base.Add(-7*24*time.Hour))

	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].LocationID)
	assert.Equal(t, 2, got[0].Checkins)
	assert.Equal(t, models.ProblemNone, got[0].Problem)
	assert.Equal(t, []string{}, got[0].AffectedStalls)
	assert.Equal(t, "second", *got[0].UserID)
	assert.Equal(t, "all good", *got[0].Notes)
	require.NotNil(t, got[0].Utilization)
	assert.InDelta(t, 0.75, *got[0].Utilization, 1e-9)

	assert.Equal(t, "b", got[1].LocationID)
	assert.Equal(t, 1, got[1].Checkins)
	assert.Nil(t, got[1].Utilization)
}

func ptr(v float64) *float64 { return &v }
