package rate

import "errors"

var (
	// ErrRateLimited is returned once an identifier has used up its login attempts.
	ErrRateLimited = errors.New("too many login attempts")
	// ErrCounterUnavailable wraps failures of the counter store.
	ErrCounterUnavailable = errors.New("attempt counter unavailable")
)
