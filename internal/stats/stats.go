package stats

import (
	"context"
	"math"
	"time"

	"github.com/wxcache/weather-service/internal/weather"
)

// Stats are aggregate counters over a trailing window of request events and
// stored readings.
type Stats struct {
	TotalRequests     int     `json:"total_requests_24h"`
	CachedRequests    int     `json:"cached_requests"`
	CacheHitRate      float64 `json:"cache_hit_rate"`
	ErrorRequests     int     `json:"error_requests"`
	ErrorRate         float64 `json:"error_rate"`
	AvgResponseTimeMS float64 `json:"avg_response_time_ms"`
	FilesStored       int     `json:"files_stored_24h"`
}

// Aggregator derives usage statistics from the event log and reading store.
type Aggregator struct {
	events weather.EventLog
	store  weather.ReadingStore
}

// New creates an Aggregator.
func New(events weather.EventLog, store weather.ReadingStore) *Aggregator {
	return &Aggregator{
		events: events,
		store:  store,
	}
}

// Compute pulls up to eventLimit recent events and all readings stored
// within fileWindow, then derives the counters. Ratios are 0 whenever the
// denominator is 0; both underlying reads are best-effort, so an empty
// window yields zeros rather than an error.
func (a *Aggregator) Compute(ctx context.Context, eventLimit int, fileWindow time.Duration) (Stats, error) {
	events, err := a.events.Recent(ctx, eventLimit)
	if err != nil {
		return Stats{}, err
	}

	files, err := a.store.ListRecent(ctx, fileWindow)
	if err != nil {
		return Stats{}, err
	}

	st := Stats{
		TotalRequests: len(events),
		FilesStored:   len(files),
	}

	var latencySum float64
	for _, e := range events {
		if e.Cached {
			st.CachedRequests++
		}
		if e.Error != "" {
			st.ErrorRequests++
		}
		latencySum += e.LatencyMS
	}

	if st.TotalRequests > 0 {
		total := float64(st.TotalRequests)
		st.CacheHitRate = float64(st.CachedRequests) / total
		st.ErrorRate = float64(st.ErrorRequests) / total
		st.AvgResponseTimeMS = math.Round(latencySum/total*100) / 100
	}

	return st, nil
}
