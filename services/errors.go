package services

import "errors"

// Error taxonomy. Everything here is recoverable and reported to the
// caller with enough detail to correct the input; handlers map each
// class to an HTTP status with errors.Is.
var (
	// ErrValidation covers user-correctable input problems: blank
	// content, empty or over-long room names, duplicate rooms.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthenticated means the identity is missing or invalid.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrForbidden means the identity is valid but lacks the role.
	ErrForbidden = errors.New("insufficient permissions")

	ErrNotFound = errors.New("not found")
)
