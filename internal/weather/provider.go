package weather

import (
	"context"
	"time"
)

// Provider abstracts the upstream weather source (e.g. OpenWeatherMap).
type Provider interface {
	// Fetch retrieves the current reading for a city. Returns
	// *NotFoundError when the provider does not know the city,
	// ErrMalformedResponse on an incomplete success payload, and
	// ErrUpstream for everything else that went wrong.
	Fetch(ctx context.Context, city string) (Reading, error)

	// Close releases held connection resources; idempotent.
	Close() error
}

// ReadingStore is the contract the object-store backed reading persistence
// must satisfy.
type ReadingStore interface {
	// Put persists the reading and returns its opaque location.
	Put(ctx context.Context, r Reading) (string, error)

	// GetFresh returns the freshest stored entry for a city whose
	// store-reported last-modified time is within maxAge, or nil when none
	// qualifies. Lookup failures degrade to a miss (nil, nil).
	GetFresh(ctx context.Context, city string, maxAge time.Duration) (*StoredEntry, error)

	// ListRecent returns locations of all entries written within the
	// trailing window, across all cities. Best-effort: empty on failure.
	ListRecent(ctx context.Context, window time.Duration) ([]string, error)
}

// EventLog is the contract of the audit log backing the key-value store.
type EventLog interface {
	// Append records one request outcome and returns the new event id.
	Append(ctx context.Context, city, location string, latencyMS float64, cached bool, errMsg string) (string, error)

	// Recent returns up to limit events ordered by timestamp descending.
	// Best-effort: empty on retrieval failure, never an error.
	Recent(ctx context.Context, limit int) ([]Event, error)
}
