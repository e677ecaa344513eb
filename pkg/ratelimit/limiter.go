package ratelimit

import (
	"context"
	"errors"
)

// Limiter applies a fixed-window limit through a Store.
type Limiter struct {
	store  Store
	config Config
}

// New creates a limiter with the given store and default window config.
func New(store Store, config Config) (*Limiter, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &Limiter{store: store, config: config}, nil
}

// Allow admits or denies one request for key using the limiter's default
// window configuration.
//
// If the store is unreachable the request is admitted and the returned error
// wraps ErrStoreUnavailable; the caller decides how loudly to complain.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	return l.AllowWith(ctx, key, l.config)
}

// AllowWith is Allow with a per-call config override.
func (l *Limiter) AllowWith(ctx context.Context, key string, cfg Config) (Result, error) {
	if err := cfg.validate(); err != nil {
		return Result{}, err
	}

	res, err := l.store.Take(ctx, key, cfg)
	if err != nil {
		// Fail open: admit the request, surface the outage to the caller.
		return Result{
			Allowed:   true,
			Limit:     cfg.Limit,
			Remaining: cfg.Limit,
			ResetIn:   cfg.Window,
		}, errors.Join(ErrStoreUnavailable, err)
	}
	return res, nil
}
