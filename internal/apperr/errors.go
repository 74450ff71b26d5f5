package apperr

import "errors"

var (
	// ErrUnauthorized marks a missing, invalid or expired credential, or an unknown user.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrValidation marks a request rejected before anything was persisted or delivered.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a lookup of a user or message that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPersistence marks a storage failure.
	ErrPersistence = errors.New("persistence failure")
	// ErrForbidden marks an operation the caller is not allowed to perform on an existing record.
	ErrForbidden = errors.New("forbidden")
)

// Code maps an error to the short code carried in socket error events.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrPersistence):
		return "persistence_error"
	default:
		return "internal_error"
	}
}
