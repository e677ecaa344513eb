package ratelimit

import "errors"

var (
	// ErrInvalidConfig indicates a non-positive limit or window.
	ErrInvalidConfig = errors.New("invalid rate limit configuration")

	// ErrStoreUnavailable indicates the backing store failed; the limiter
	// fails open and callers should log the returned error as a warning.
	ErrStoreUnavailable = errors.New("rate limit store unavailable")
)
