// Package listing downloads the public station listings the directory is
// rebuilt from.
package listing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"suctracker/backend/services/checkin-service/internal/models"
)

var (
	superchargerStalls = regexp.MustCompile(`(\d+) Supercharger`)
	connectorStalls    = regexp.MustCompile(`(\d+) Tesla Connector`)
)

// entry is one element of the listing array. Coordinates arrive as strings or numbers.
type entry struct {
	LocationID *string         `json:"location_id"`
	Title      string          `json:"title"`
	Country    string          `json:"country"`
	Region     string          `json:"region"`
	CommonName string          `json:"common_name"`
	Latitude   json.RawMessage `json:"latitude"`
	Longitude  json.RawMessage `json:"longitude"`
	Chargers   *string         `json:"chargers"`
}

// Client fetches station listings over HTTP.
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient returns a listing client with the given request timeout.
func NewClient(timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Fetch downloads url and converts every usable entry into a station of type typ.
// Entries without a location id are skipped.
func (c *Client) Fetch(ctx context.Context, url string, typ models.StationType) ([]models.Station, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing: fetch %s: %w", typ, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("listing: fetch %s: status %d: %s", typ, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var raws []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raws); err != nil {
		return nil, fmt.Errorf("listing: decode %s: %w", typ, err)
	}

	stations := make([]models.Station, 0, len(raws))
	for _, raw := range raws {
		var e entry
		if err := json.Unmarshal(raw, &e); err != nil {
			c.logger.Warn("skipping undecodable listing entry", zap.String("type", string(typ)), zap.Error(err))
			continue
		}
		if e.LocationID == nil || *e.LocationID == "" {
			c.logger.Warn("skipping listing entry without location_id", zap.String("type", string(typ)), zap.ByteString("entry", raw))
			continue
		}
		stations = append(stations, c.toStation(e, raw, typ))
	}

	c.logger.Info("fetched station listing",
		zap.String("type", string(typ)),
		zap.Int("entries", len(raws)),
		zap.Int("stations", len(stations)),
	)
	return stations, nil
}

func (c *Client) toStation(e entry, raw json.RawMessage, typ models.StationType) models.Station {
	s := models.Station{
		Type:       typ,
		LocationID: *e.LocationID,
		Title:      e.Title,
		Country:    e.Country,
		Region:     e.Region,
		CommonName: e.CommonName,
		Raw:        raw,
	}

	if e.Chargers == nil {
		c.logger.Warn("listing entry without chargers", zap.String("location_id", s.LocationID))
	} else if stalls, ok := StallCount(*e.Chargers); ok {
		s.Stalls = &stalls
	} else {
		c.logger.Warn("no stall count in chargers", zap.String("location_id", s.LocationID), zap.String("chargers", *e.Chargers))
	}

	lat, latOK := coordinate(e.Latitude)
	lng, lngOK := coordinate(e.Longitude)
	if latOK && lngOK {
		s.Location = &models.Point{Lat: lat, Lng: lng}
	}
	return s
}

// StallCount extracts the number of stalls from a listing's chargers text.
func StallCount(chargers string) (int, bool) {
	for _, re := range []*regexp.Regexp{superchargerStalls, connectorStalls} {
		if m := re.FindStringSubmatch(chargers); m != nil {
			n, err := strconv.Atoi(m[1])
			if err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

func coordinate(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f, err == nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	return f, true
}
