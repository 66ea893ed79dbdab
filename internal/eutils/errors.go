package eutils

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is returned when NCBI answers with a non-200 status.
type StatusError struct {
	Endpoint string
	Code     int
}

func (e *StatusError) Error() string {
	if e.Code == http.StatusTooManyRequests {
		return fmt.Sprintf("NCBI rate limit exceeded (HTTP 429) for %s. Consider setting an API key", e.Endpoint)
	}
	return fmt.Sprintf("NCBI returned HTTP %d for %s", e.Code, e.Endpoint)
}

// ParseError wraps a failure to decode an E-utilities XML document.
type ParseError struct {
	Endpoint string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s response: %v", e.Endpoint, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsStatus reports whether err is a *StatusError.
func IsStatus(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}
