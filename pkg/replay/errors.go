package replay

import "errors"

var (
	// ErrStoreUnavailable indicates the claim could not be recorded because the
	// backing store failed. Callers fail closed on this error.
	ErrStoreUnavailable = errors.New("replay store unavailable")

	// ErrInvalidKey indicates an empty provider name or request ID.
	ErrInvalidKey = errors.New("invalid replay key")
)
