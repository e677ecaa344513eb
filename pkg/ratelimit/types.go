package ratelimit

import (
	"context"
	"time"
)

// Config defines the fixed window dimensions.
type Config struct {
	Limit  int           // Maximum requests per window
	Window time.Duration // Window length
}

func (c Config) validate() error {
	if c.Limit <= 0 || c.Window <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed   bool          // Whether the request was admitted
	Limit     int           // Window capacity
	Remaining int           // Requests left in the current window
	ResetIn   time.Duration // Time until the window resets
}

// Store is the backend contract. Take must atomically test the counter
// against limit and increment it only when admitted.
type Store interface {
	Take(ctx context.Context, key string, cfg Config) (Result, error)
}
