package cache

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned (wrapped) when the backing store cannot serve a call.
var ErrUnavailable = errors.New("cache unavailable")

// Cache is the get/put/forget store with an atomic bounded counter.
type Cache interface {
	// Get returns the value stored under key, or def when the key is absent or expired.
	Get(ctx context.Context, key, def string) (string, error)
	// Put stores value under key for ttl. A ttl <= 0 stores without expiry.
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	// Forget removes key. Removing an absent key is not an error.
	Forget(ctx context.Context, key string) error
	// Attempt atomically increments the counter under key unless it already
	// reached max. It returns the count after the call and whether the hit
	// was admitted. The window TTL starts on the first admitted hit.
	Attempt(ctx context.Context, key string, max int64, window time.Duration) (int64, bool, error)
}
