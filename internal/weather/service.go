package weather

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// Storage locations recorded in events when no real object location exists.
const (
	locationCached        = "cached"
	locationStorageFailed = "storage_failed"
)

// Service implements cache-aside retrieval of current weather: serve a
// stored reading while it is fresh, otherwise fetch from the provider,
// persist best-effort, and audit every outcome best-effort.
type Service struct {
	provider Provider
	store    ReadingStore
	events   EventLog
	cacheTTL time.Duration

	now func() time.Time
}

// NewService creates a new Service. All collaborators are required; the
// Service holds no cross-request mutable state.
func NewService(provider Provider, store ReadingStore, events EventLog, cacheTTL time.Duration) *Service {
	return &Service{
		provider: provider,
		store:    store,
		events:   events,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// GetWeather answers a single weather request for city.
//
// Exactly one event is appended per call, on every path, and an append
// failure never changes the outcome delivered to the caller. Errors
// returned to the caller are *NotFoundError (message safe to surface),
// ErrUpstream, or ErrInternal; upstream and internal detail is logged only.
func (s *Service) GetWeather(ctx context.Context, city string) (Result, error) {
	start := s.now()

	entry, err := s.store.GetFresh(ctx, city, s.cacheTTL)
	if err != nil {
		// Cache lookup problems degrade to a miss.
		log.Printf("WARN: cache lookup failed for %s: %v", city, err)
		entry = nil
	}

	if entry != nil {
		age := s.now().UTC().Sub(entry.Reading.Timestamp).Minutes()
		if age < 0 {
			age = 0
		}

		s.logEvent(ctx, city, locationCached, s.elapsedMS(start), true, "")

		log.Printf("INFO: returning cached data for %s (age: %.1f minutes)", city, age)
		return Result{
			Reading:         entry.Reading,
			Message:         fmt.Sprintf("Weather data for %s (cached)", city),
			Cached:          true,
			CacheAgeMinutes: age,
		}, nil
	}

	log.Printf("INFO: no valid cache found, fetching fresh data for %s", city)

	reading, err := s.provider.Fetch(ctx, city)
	if err != nil {
		s.logEvent(ctx, city, "", s.elapsedMS(start), false, err.Error())

		var notFound *NotFoundError
		switch {
		case errors.As(err, &notFound):
			return Result{}, notFound
		case errors.Is(err, ErrUpstream), errors.Is(err, ErrMalformedResponse):
			log.Printf("ERROR: fetching weather data for %s: %v", city, err)
			return Result{}, ErrUpstream
		default:
			log.Printf("ERROR: unexpected failure fetching weather data for %s: %v", city, err)
			return Result{}, ErrInternal
		}
	}

	location, err := s.store.Put(ctx, reading)
	if err != nil {
		// A storage failure must never turn a successful fetch into a
		// failed response.
		log.Printf("ERROR: failed to store weather data for %s: %v", city, err)
		location = locationStorageFailed
	}

	latency := s.elapsedMS(start)
	s.logEvent(ctx, city, location, latency, false, "")

	log.Printf("INFO: processed weather request for %s in %.1fms", city, latency)
	return Result{
		Reading: reading,
		Message: fmt.Sprintf("Current weather data for %s", city),
		Cached:  false,
	}, nil
}

// logEvent appends an audit record and discards any failure beyond a local
// warning. Failure here is invisible to the caller.
func (s *Service) logEvent(ctx context.Context, city, location string, latencyMS float64, cached bool, errMsg string) {
	if _, err := s.events.Append(ctx, city, location, latencyMS, cached, errMsg); err != nil {
		log.Printf("WARN: failed to log weather event for %s: %v", city, err)
	}
}

func (s *Service) elapsedMS(start time.Time) float64 {
	return float64(s.now().Sub(start).Microseconds()) / 1000.0
}
