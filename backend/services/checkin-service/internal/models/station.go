package models

import (
	"encoding/json"
	"errors"
)

// ErrStationNotFound is returned by directory lookups for unknown ids.
var ErrStationNotFound = errors.New("station not found")

// StationType distinguishes superchargers from destination chargers.
type StationType string

const (
	StationTypeSupercharger StationType = "supercharger"
	StationTypeDestination  StationType = "destination_charger"
)

// Point is a WGS-84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Station is one entry of the station directory. LocationID is unique per Type.
type Station struct {
	Type       StationType     `json:"type"`
	LocationID string          `json:"locationId"`
	Title      string          `json:"title"`
	Country    string          `json:"country"`
	Region     string          `json:"region,omitempty"`
	CommonName string          `json:"commonName,omitempty"`
	Stalls     *int            `json:"stalls"`
	Location   *Point          `json:"location"`
	Raw        json.RawMessage `json:"-"`
}

// Snapshot copies the fields a check-in keeps about its station.
func (s Station) Snapshot() StationSnapshot {
	id := s.LocationID
	return StationSnapshot{
		LocationID: &id,
		Title:      s.Title,
		Country:    s.Country,
		Stalls:     s.Stalls,
		Location:   s.Location,
	}
}

// StationCount is the number of known stations in a country.
type StationCount struct {
	Country string `json:"country"`
	Count   int    `json:"count"`
}

// IntPtr is a small helper for nullable integer fields.
func IntPtr(v int) *int {
	return &v
}

// StringPtr is a small helper for nullable string fields.
func StringPtr(v string) *string {
	return &v
}
