// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Error kinds. Every failure surfaced by the services unwraps to exactly one of these.
var (
	// ErrInvalidInput indicates caller-supplied data failed type/format/length checks.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates failed authentication (bad credentials, unknown or expired token).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken).
	ErrAlreadyExists = errors.New("conflict")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInternal indicates a programming or environment fault, never caused by end-user input.
	ErrInternal = errors.New("internal server error")

	// ErrVersionConflict indicates optimistic concurrency failure (base version mismatch).
	ErrVersionConflict = errors.New("version conflict")
)
