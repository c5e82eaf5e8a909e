package submissions

import "errors"

var (
	// ErrNotFound indicates no submission has the requested id.
	ErrNotFound = errors.New("submission not found")

	// ErrInvalidVisibility indicates a value outside pending/public/private.
	ErrInvalidVisibility = errors.New("invalid visibility")
)
