package placeresolver

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyQuery is returned when a query is blank after normalization.
	// No lookup is made.
	ErrEmptyQuery = errors.New("empty query")

	// ErrNoCandidates is returned when Select is called with no candidates.
	// Callers are expected to check for an empty lookup result first.
	ErrNoCandidates = errors.New("no candidates to select from")

	// ErrNotFound is returned when every lookup attempt came back empty.
	ErrNotFound = errors.New("place not found")

	// ErrNothingToRetry is returned by Retry when the session has no query.
	ErrNothingToRetry = errors.New("no previous query to retry")
)

// NotFoundError reports a query for which no lookup returned a candidate.
type NotFoundError struct {
	Query string // Normalized query text
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no results for %q, try adding a country or state", e.Query)
}

// Is makes errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
