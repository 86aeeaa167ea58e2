package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstream covers provider transport failures and non-success
	// provider responses other than "city not found". Surfaced to callers
	// only as a generic unavailability; detail is logged, never returned.
	ErrUpstream = errors.New("weather provider unavailable")

	// ErrMalformedResponse means the provider answered successfully but the
	// payload was missing required fields.
	ErrMalformedResponse = errors.New("malformed provider response")

	// ErrStorage is a persistence failure. Never surfaced to callers.
	ErrStorage = errors.New("storage failure")

	// ErrLog is an audit-log failure. Never surfaced to callers.
	ErrLog = errors.New("event log failure")

	// ErrInternal is anything the request path did not anticipate.
	ErrInternal = errors.New("internal error")
)

// NotFoundError is returned when the upstream provider does not recognize
// the requested city. Unlike the other error kinds, its message is surfaced
// to the caller verbatim.
type NotFoundError struct {
	City string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("city '%s' not found", e.City)
}
