package weather

import (
	"strings"
	"time"
)

// Reading is a single weather snapshot for a city, as fetched from the
// upstream provider. Immutable once created; Timestamp is always set by us
// at fetch time, never taken from the provider payload.
type Reading struct {
	City          string     `json:"city"`
	Country       string     `json:"country"`
	Temperature   float64    `json:"temperature"`
	FeelsLike     float64    `json:"feels_like"`
	Humidity      int        `json:"humidity"`
	Pressure      int        `json:"pressure"`
	Description   string     `json:"description"`
	WindSpeed     float64    `json:"wind_speed"`
	WindDirection int        `json:"wind_direction"`
	Visibility    int        `json:"visibility"`
	Clouds        int        `json:"clouds"`
	Timestamp     time.Time  `json:"timestamp"` // always UTC
	Sunrise       *time.Time `json:"sunrise,omitempty"`
	Sunset        *time.Time `json:"sunset,omitempty"`
}

// StoredEntry is a Reading together with where the backing store keeps it
// and when the store last modified it. LastModified is the authoritative
// freshness signal; the Reading's own Timestamp is only used to compute the
// displayed cache age.
type StoredEntry struct {
	Reading      Reading
	Location     string
	LastModified time.Time
}

// Event is one audit record per completed request attempt, including
// failed attempts. Append-only.
type Event struct {
	ID        string    `json:"event_id"`
	City      string    `json:"city"`
	Timestamp time.Time `json:"timestamp"`
	Location  string    `json:"s3_path"`
	LatencyMS float64   `json:"response_time_ms"`
	Cached    bool      `json:"cached"`
	Error     string    `json:"error,omitempty"`
}

// Result is the orchestrator's answer for a single weather request.
type Result struct {
	Reading         Reading
	Message         string
	Cached          bool
	CacheAgeMinutes float64
}

// CityKey normalizes a city name into the canonical lookup/storage key:
// lower-cased, surrounding whitespace dropped, internal whitespace runs
// collapsed to single underscores.
func CityKey(city string) string {
	return strings.Join(strings.Fields(strings.ToLower(city)), "_")
}
