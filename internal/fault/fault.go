// Package fault defines the caller-facing error kinds shared by all
// services. Every deterministic failure in the swap core is one of these
// five kinds so handlers can map it to a status code and tests can assert
// on the kind with errors.Is rather than matching message text.
package fault

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound marks a missing swap, profile, skill or rating target.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition marks a state-machine guard failure, e.g.
	// accepting a swap that is no longer pending.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrUnauthorized marks a caller that is not the permitted actor for
	// the requested operation.
	ErrUnauthorized = errors.New("unauthorized action")

	// ErrValidation marks malformed input: rating out of range, self-swap,
	// duplicate rating, unknown skill.
	ErrValidation = errors.New("validation failed")

	// ErrConflict marks a lost concurrent-write race. Safe for the caller
	// to retry; the other kinds are not.
	ErrConflict = errors.New("conflict")
)

// NotFound wraps ErrNotFound with a formatted detail message.
func NotFound(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// InvalidTransition wraps ErrInvalidTransition with a formatted detail message.
func InvalidTransition(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidTransition, fmt.Sprintf(format, args...))
}

// Unauthorized wraps ErrUnauthorized with a formatted detail message.
func Unauthorized(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrUnauthorized, fmt.Sprintf(format, args...))
}

// Validation wraps ErrValidation with a formatted detail message.
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Conflict wraps ErrConflict with a formatted detail message.
func Conflict(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// Status maps an error to the HTTP status code the API boundary should
// return. Unrecognized errors are the persistence collaborator's problem
// and surface as 500.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
