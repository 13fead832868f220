package calendar

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")

	// Reserved for an optimistic-concurrency extension; mutations currently
	// serialize on the writer lock, so nothing returns it.
	ErrConflict = errors.New("revision conflict")
)
