package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result of a claim attempt.
type Result int

const (
	// ResultFresh means this is the first claim for the key inside the window.
	ResultFresh Result = iota
	// ResultReplay means the key was already claimed inside the window.
	ResultReplay
)

// DefaultWindow is the replay-protection window applied when a claim passes
// a non-positive TTL.
const DefaultWindow = 300 * time.Second

// Store records claimed request IDs in Redis with a TTL equal to the
// replay-protection window.
type Store struct {
	client redis.UniversalClient
}

// NewStore creates a replay store on top of the given Redis client.
func NewStore(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

// Key returns the Redis key for a (provider, request id) pair.
func Key(providerName, requestID string) string {
	return fmt.Sprintf("webhook:%s:%s", providerName, requestID)
}

// Claim atomically claims the (provider, request id) pair for ttl.
//
// Exactly one of any set of concurrent claims for the same pair returns
// ResultFresh; all others return ResultReplay. On store failure Claim returns
// ResultReplay together with an error wrapping ErrStoreUnavailable so the
// caller rejects the request (fail closed).
func (s *Store) Claim(ctx context.Context, providerName, requestID string, ttl time.Duration) (Result, error) {
	if providerName == "" || requestID == "" {
		return ResultReplay, ErrInvalidKey
	}
	if ttl <= 0 {
		ttl = DefaultWindow
	}

	ok, err := s.client.SetNX(ctx, Key(providerName, requestID), "processed", ttl).Result()
	if err != nil {
		return ResultReplay, errors.Join(ErrStoreUnavailable, err)
	}
	if !ok {
		return ResultReplay, nil
	}
	return ResultFresh, nil
}
