package transport

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/kbukum/convoy/util"
)

// StatusError is returned for HTTP responses with a non-2xx status.
type StatusError struct {
	StatusCode int
	Method     string
	URL        string
	Body       []byte
}

// Error returns the string representation of the error.
func (e *StatusError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s",
		e.Method, e.URL, e.StatusCode, util.Truncate(string(e.Body), 256))
}

// Temporary reports whether the status indicates a transient condition
// worth retrying.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsRetryable reports whether a request error should be retried: network
// failures and transient HTTP statuses are, client errors (4xx) are not.
func IsRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	// Anything that never produced a status is a connection-level failure.
	return true
}
