// Package clients provides the instrumented HTTP client used to reach the
// sync remote.
package clients

import (
	"errors"
	"fmt"
)

// Transport-level failures. Callers translate these into domain errors.
var (
	// ErrCircuitOpen is returned without touching the network while the
	// breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrMaxRetriesExceeded wraps the last failure once every attempt is used.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// StatusError reports a 5xx response from the remote.
type StatusError struct {
	Service    string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s responded with status %d", e.Service, e.StatusCode)
}
