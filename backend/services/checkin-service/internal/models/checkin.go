package models

import "github.com/google/uuid"

// Source records which ingestion path produced a check-in.
type Source string

const (
	SourceAPI    Source = "api"
	SourceForm   Source = "form"
	SourceImport Source = "import"
)

// Problem is the fault reported together with a check-in.
type Problem string

const (
	ProblemNone              Problem = "none"
	ProblemLimitedPower      Problem = "limitedPower"
	ProblemPartialFailure    Problem = "partialFailure"
	ProblemCompleteFailure   Problem = "completeFailure"
	ProblemTrafficDisruption Problem = "trafficDisruption"
)

// Problems lists the accepted problem codes.
var Problems = []string{
	string(ProblemNone),
	string(ProblemLimitedPower),
	string(ProblemPartialFailure),
	string(ProblemCompleteFailure),
	string(ProblemTrafficDisruption),
}

// StationSnapshot is the denormalized copy of a station taken at submission time.
// LocationID is nil only for bulk-import lines that could not be matched.
type StationSnapshot struct {
	LocationID *string `json:"locationId"`
	Title      string  `json:"title"`
	Country    string  `json:"country,omitempty"`
	Stalls     *int    `json:"stalls"`
	Location   *Point  `json:"location,omitempty"`
}

// Submitter describes who sent a check-in and when the server received it.
type Submitter struct {
	UserAgent string    `json:"userAgent"`
	IP        string    `json:"ip"`
	Time      Timestamp `json:"time"`
	UserID    *string   `json:"tffUserId"`
}

// Report is the observed state of the station.
type Report struct {
	Time           *Timestamp `json:"time"`
	Charging       *int       `json:"charging"`
	Blocked        *int       `json:"blocked"`
	Waiting        *int       `json:"waiting"`
	Problem        Problem    `json:"problem"`
	AffectedStalls []string   `json:"affectedStalls"`
	Notes          *string    `json:"notes"`
}

// CheckIn is an append-only record of a station report.
type CheckIn struct {
	ID        uuid.UUID       `json:"id"`
	Source    Source          `json:"source"`
	Station   StationSnapshot `json:"suc"`
	Submitter Submitter       `json:"submitter"`
	Checkin   Report          `json:"checkin"`
	Error     *string         `json:"error,omitempty"`
}

// Utilization is charging/stalls, or nil when either side is missing or stalls is zero.
func (c CheckIn) Utilization() *float64 {
	return Ratio(c.Checkin.Charging, c.Station.Stalls)
}

// Ratio divides two nullable counts, returning nil when undefined.
func Ratio(numerator, denominator *int) *float64 {
	if numerator == nil || denominator == nil || *denominator == 0 {
		return nil
	}
	v := float64(*numerator) / float64(*denominator)
	return &v
}
