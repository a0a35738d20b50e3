package booking

import "errors"

var (
	// ErrNotFound is returned when no active booking matches the lookup.
	ErrNotFound = errors.New("booking: no matching booking")
)
