package api

import (
	"errors"
	"fmt"
)

// Kind classifies an API failure for the caller's recovery policy.
type Kind int

const (
	// KindTransport covers network failures and 5xx responses. The
	// client never retries a transition; recovery is rollback + report.
	KindTransport Kind = iota

	// KindUnauthenticated means the bearer token was rejected (401).
	// The stored credential should be discarded and login repeated.
	KindUnauthenticated

	// KindUnauthorized means the server refused the actor's role for
	// the operation (403, or the backend's not-found masking of it).
	KindUnauthorized

	// KindNotFound means the todo does not exist or is not visible to
	// the caller.
	KindNotFound

	// KindConflict means the todo's server-side status no longer
	// matches what the client assumed (concurrent modification).
	KindConflict

	// KindValidation means the server rejected the payload (missing
	// reason/comment or an illegal transition that slipped past the
	// client-side engine).
	KindValidation
)

// Error is a structured API failure.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error: %s", e.Message)
}

// ErrorKind extracts the Kind from err, defaulting to KindTransport for
// anything that is not an *Error (I/O failures, timeouts).
func ErrorKind(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindTransport
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// kindForStatus maps an HTTP status to an error kind.
func kindForStatus(code int) Kind {
	switch {
	case code == 401:
		return KindUnauthenticated
	case code == 403:
		return KindUnauthorized
	case code == 404:
		return KindNotFound
	case code == 409:
		return KindConflict
	case code == 400 || code == 422:
		return KindValidation
	default:
		return KindTransport
	}
}
