package booking

import "errors"

// Error taxonomy surfaced to the transport layer. Handlers map these to
// HTTP statuses; messages are wrapped onto the sentinels and are safe to
// show to callers.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("time slot already booked")
)
