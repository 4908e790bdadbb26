package match

import (
	"errors"
	"fmt"
)

// ErrInvalidQuery is returned when a query is empty or exceeds the length
// bound. The request is rejected before any scoring work happens.
var ErrInvalidQuery = errors.New("invalid query")

// ErrUpstreamUnavailable is returned when a collaborator (profile store or
// language model) is unreachable. Callers may retry.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// ErrUpstreamTimeout is returned when a collaborator call exceeds its time
// budget. The request fails as a whole — a partial ranking is never
// returned as success.
var ErrUpstreamTimeout = errors.New("upstream timeout")

// IntegrityError marks a consultant record that failed validation at the
// store boundary. Records carrying it are skipped and logged; they never
// abort a scoring batch.
type IntegrityError struct {
	ID     string
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("malformed consultant record %s: %s", e.ID, e.Reason)
}
