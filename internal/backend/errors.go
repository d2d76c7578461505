package backend

import (
	"errors"
	"fmt"
)

// TransportError means the request never produced a response: connection
// refused, DNS failure, or the context deadline expired.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// BackendError means the backend answered with a non-2xx status or a body
// that is not JSON.
type BackendError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *BackendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: backend returned %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: backend: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// ValidationError means the payload parsed but does not have the expected shape.
type ValidationError struct {
	Op     string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid payload: %s", e.Op, e.Reason)
}

// IsUnavailable reports whether err says the backend could not serve the
// request, as opposed to serving something malformed.
func IsUnavailable(err error) bool {
	var te *TransportError
	var be *BackendError
	return errors.As(err, &te) || errors.As(err, &be)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
