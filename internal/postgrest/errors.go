package postgrest

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is returned by Single() queries that matched no row.
var ErrNotFound = errors.New("postgrest: no rows found")

// Error is a failed remote call. StatusCode 0 means the request never got an
// HTTP response (network fault, cancelled context).
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("postgrest: %s", e.Message)
	}
	return fmt.Sprintf("postgrest: status %d: %s", e.StatusCode, e.Message)
}

// Retryable distinguishes transient faults from terminal ones. The client
// itself never retries; callers that poll simply pick the data up on the next
// tick, but the classification is kept so they can tell the difference.
func (e *Error) Retryable() bool {
	switch {
	case e.StatusCode == 0:
		return true
	case e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	}
	return false
}

// IsRetryable reports whether err is a transient remote fault.
func IsRetryable(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	return false
}
