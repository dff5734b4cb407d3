package models

// ImportRecord is one parsed bulk-import line. Records carrying Error are still
// persisted so bad input can be reviewed later.
type ImportRecord struct {
	Line       int             `json:"line"`
	Station    StationSnapshot `json:"suc"`
	Time       *Timestamp      `json:"time"`
	ReportTime *Timestamp      `json:"reportTime"`
	Stalls     *int            `json:"stalls"`
	Charging   *int            `json:"charging"`
	Waiting    *int            `json:"waiting"`
	Blocked    *int            `json:"blocked"`
	Notes      *string         `json:"notes"`
	UserID     *string         `json:"tffUserId"`
	Error      *string         `json:"error"`
}

// ImportResult summarizes a bulk import.
type ImportResult struct {
	Imported int `json:"imported"`
	Failed   int `json:"failed"`
}
