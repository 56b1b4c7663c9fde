package core

import "errors"

var (
	// ErrNotFound is returned when a session or a referenced persona does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an operation is not valid for the current session state.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput is returned when a request is malformed.
	ErrInvalidInput = errors.New("invalid input")
)
