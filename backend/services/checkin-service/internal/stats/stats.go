// Package stats aggregates check-ins into per-country and per-station
// utilization figures. Every function is pure: callers load the records and
// stations, the package only folds them.
//
// Utilization of a check-in is charging/stalls. Records where either side is
// missing or stalls is zero do not contribute to a mean; they still count as
// check-ins.
package stats

import (
	"sort"
	"time"

	"suctracker/backend/services/checkin-service/internal/models"
)

// OthersCountry names the bucket of countries below the station threshold.
const OthersCountry = "others"

// CountryStat is the check-in summary of one country.
type CountryStat struct {
	Country            string   `json:"country"`
	Checkins           int      `json:"checkins"`
	Utilization        *float64 `json:"utilization"`
	UtilizationSamples int      `json:"utilizationSamples"`
	Stations           int      `json:"stations"`
}

// CountrySummary splits CountryStats for display.
type CountrySummary struct {
	Countries []CountryStat `json:"countries"`
	Others    CountryStat   `json:"others"`
}

// StationStat is the check-in summary of one station.
type StationStat struct {
	LocationID  string        `json:"locationId"`
	Title       string        `json:"title"`
	Stalls      *int          `json:"stalls"`
	Location    *models.Point `json:"location"`
	Checkins    int           `json:"checkins"`
	Utilization *float64      `json:"utilization"`
}

// HistoryPoint is one check-in of a station history.
type HistoryPoint struct {
	Time     *models.Timestamp `json:"time"`
	Stalls   *int              `json:"stalls"`
	Charging *int              `json:"charging"`
	Waiting  *int              `json:"waiting"`
	Blocked  *int              `json:"blocked"`
}

// OverviewEntry is the latest state of a station within the overview window.
type OverviewEntry struct {
	LocationID     string            `json:"locationId"`
	Title          string            `json:"title"`
	Location       *models.Point     `json:"location"`
	UserID         *string           `json:"tffUserId"`
	Time           *models.Timestamp `json:"time"`
	Problem        models.Problem    `json:"problem"`
	AffectedStalls []string          `json:"affectedStalls"`
	Notes          *string           `json:"notes"`
	Checkins       int               `json:"checkins"`
	Utilization    *float64          `json:"utilization"`
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v *float64) {
	if v == nil {
		return
	}
	m.sum += *v
	m.n++
}

func (m mean) value() *float64 {
	if m.n == 0 {
		return nil
	}
	v := m.sum / float64(m.n)
	return &v
}

// CountryStats groups check-ins by their snapshotted country and joins the
// number of known stations per country. Output is ordered by country.
func CountryStats(checkins []models.CheckIn, stationCounts []models.StationCount) []CountryStat {
	known := make(map[string]int, len(stationCounts))
	for _, c := range stationCounts {
		known[c.Country] = c.Count
	}

	type acc struct {
		checkins int
		util     mean
	}
	byCountry := make(map[string]*acc)
	for _, c := range checkins {
		a, ok := byCountry[c.Station.Country]
		if !ok {
			a = &acc{}
			byCountry[c.Station.Country] = a
		}
		a.checkins++
		a.util.add(c.Utilization())
	}

	out := make([]CountryStat, 0, len(byCountry))
	for country, a := range byCountry {
		out = append(out, CountryStat{
			Country:            country,
			Checkins:           a.checkins,
			Utilization:        a.util.value(),
			UtilizationSamples: a.util.n,
			Stations:           known[country],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Country < out[j].Country })
	return out
}

// SummarizeCountries keeps countries with at least minStations known stations
// and folds the rest into an OthersCountry bucket. Totals are preserved and the
// bucket mean is weighted by utilization samples.
func SummarizeCountries(stats []CountryStat, minStations int) CountrySummary {
	summary := CountrySummary{
		Countries: []CountryStat{},
		Others:    CountryStat{Country: OthersCountry},
	}
	var weighted float64
	for _, s := range stats {
		if s.Stations >= minStations {
			summary.Countries = append(summary.Countries, s)
			continue
		}
		summary.Others.Checkins += s.Checkins
		summary.Others.Stations += s.Stations
		if s.Utilization != nil && s.UtilizationSamples > 0 {
			weighted += *s.Utilization * float64(s.UtilizationSamples)
			summary.Others.UtilizationSamples += s.UtilizationSamples
		}
	}
	if summary.Others.UtilizationSamples > 0 {
		v := weighted / float64(summary.Others.UtilizationSamples)
		summary.Others.Utilization = &v
	}
	return summary
}

// StationStats joins check-ins onto the superchargers given. Every station
// appears in the output, in input order, even without check-ins.
func StationStats(stations []models.Station, checkins []models.CheckIn) []StationStat {
	type acc struct {
		checkins int
		util     mean
	}
	byID := make(map[string]*acc)
	for _, c := range checkins {
		if c.Station.LocationID == nil {
			continue
		}
		a, ok := byID[*c.Station.LocationID]
		if !ok {
			a = &acc{}
			byID[*c.Station.LocationID] = a
		}
		a.checkins++
		a.util.add(c.Utilization())
	}

	out := []StationStat{}
	for _, s := range stations {
		if s.Type != models.StationTypeSupercharger {
			continue
		}
		stat := StationStat{
			LocationID: s.LocationID,
			Title:      s.Title,
			Stalls:     s.Stalls,
			Location:   s.Location,
		}
		if a, ok := byID[s.LocationID]; ok {
			stat.Checkins = a.checkins
			stat.Utilization = a.util.value()
		}
		out = append(out, stat)
	}
	return out
}

// StationHistory projects check-ins of one station ordered by event time
// ascending. Records without an event time come first.
func StationHistory(checkins []models.CheckIn) []HistoryPoint {
	sorted := sortedByTime(checkins)
	out := make([]HistoryPoint, 0, len(sorted))
	for _, c := range sorted {
		out = append(out, HistoryPoint{
			Time:     c.Checkin.Time,
			Stalls:   c.Station.Stalls,
			Charging: c.Checkin.Charging,
			Waiting:  c.Checkin.Waiting,
			Blocked:  c.Checkin.Blocked,
		})
	}
	return out
}

// RecentOverview folds the check-ins at or after since into one entry per
// station. Within a station the latest check-in wins for every descriptive
// field; count and mean utilization cover the whole window. Entries are
// ordered by most recent check-in first.
func RecentOverview(checkins []models.CheckIn, since time.Time) []OverviewEntry {
	type acc struct {
		entry OverviewEntry
		util  mean
	}
	byID := make(map[string]*acc)
	var order []string

	for _, c := range sortedByTime(checkins) {
		if c.Station.LocationID == nil || c.Checkin.Time == nil || c.Checkin.Time.Before(since) {
			continue
		}
		id := *c.Station.LocationID
		a, ok := byID[id]
		if !ok {
			a = &acc{}
			byID[id] = a
			order = append(order, id)
		}
		a.entry.LocationID = id
		a.entry.Title = c.Station.Title
		a.entry.Location = c.Station.Location
		a.entry.UserID = c.Submitter.UserID
		a.entry.Time = c.Checkin.Time
		a.entry.Problem = c.Checkin.Problem
		a.entry.AffectedStalls = c.Checkin.AffectedStalls
		a.entry.Notes = c.Checkin.Notes
		a.entry.Checkins++
		a.util.add(c.Utilization())
	}

	out := make([]OverviewEntry, 0, len(order))
	for _, id := range order {
		a := byID[id]
		a.entry.Utilization = a.util.value()
		if a.entry.AffectedStalls == nil {
			a.entry.AffectedStalls = []string{}
		}
		out = append(out, a.entry)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.After(out[j].Time.Time)
	})
	return out
}

func sortedByTime(checkins []models.CheckIn) []models.CheckIn {
	sorted := make([]models.CheckIn, len(checkins))
	copy(sorted, checkins)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Checkin.Time, sorted[j].Checkin.Time
		switch {
		case a == nil:
			return b != nil
		case b == nil:
			return false
		default:
			return a.Before(b.Time)
		}
	})
	return sorted
}
