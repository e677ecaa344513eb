package ratelimit

import (
	"context"
	"sync"
	"time"
)

// window holds one fixed window's counter state.
type window struct {
	count   int
	resetAt time.Time
}

// MemoryStore implements Store in process memory. Intended for tests and
// single-node development; production deployments share counters via
// RedisStore.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func (s *MemoryStore) Take(ctx context.Context, key string, cfg Config) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(cfg.Window)}
		s.windows[key] = w
	}

	if w.count >= cfg.Limit {
		return Result{
			Allowed:   false,
			Limit:     cfg.Limit,
			Remaining: 0,
			ResetIn:   w.resetAt.Sub(now),
		}, nil
	}

	w.count++
	return Result{
		Allowed:   true,
		Limit:     cfg.Limit,
		Remaining: cfg.Limit - w.count,
		ResetIn:   w.resetAt.Sub(now),
	}, nil
}
