// Package apperr defines the error kinds services surface to handlers.
// Services wrap these with fmt.Errorf("...: %w", ...) so handlers can map
// them to HTTP status codes with errors.Is.
package apperr

import "errors"

var (
	// ErrInvalidArgument marks malformed input (bad coordinates,
	// self-referential ids, empty message content).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound marks a referenced entity that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden marks an actor lacking rights over the resource,
	// including block-gated actions.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict marks duplicate or overlapping state, such as a second
	// connection request for the same pair.
	ErrConflict = errors.New("conflict")

	// ErrInvalidState marks an action not valid for the entity's current
	// state, such as accepting an already-accepted connection.
	ErrInvalidState = errors.New("invalid state")
)
