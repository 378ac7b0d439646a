package upstream

import (
	"errors"
	"fmt"
)

// Error wraps a non-2xx response from the issuer. The raw status and body
// travel with it so the service layer can classify the failure; the issuer
// exposes no structured error codes.
type Error struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("upstream %s failed: status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// IsRetryable reports whether the failure is worth retrying. Only server
// faults qualify; 4xx responses are final.
func (e *Error) IsRetryable() bool {
	return e.StatusCode >= 500
}

func IsUpstreamError(err error) (*Error, bool) {
	var upErr *Error
	ok := errors.As(err, &upErr)
	return upErr, ok
}
