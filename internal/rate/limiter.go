package rate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Counter is the atomic primitive a Limiter needs. cache.Cache satisfies it.
type Counter interface {
	Attempt(ctx context.Context, key string, max int64, window time.Duration) (int64, bool, error)
}

// Policy bounds admits per key per fixed window.
type Policy struct {
	MaxAttempts int64
	Window      time.Duration
}

// Validate reports whether p can be enforced.
func (p Policy) Validate() error {
	if p.MaxAttempts <= 0 || p.Window <= 0 {
		return ErrInvalidPolicy
	}
	return nil
}

// Decision is the outcome of one Limiter.Hit.
type Decision struct {
	Allowed    bool
	Count      int64
	Limit      int64
	Remaining  int64
	RetryAfter time.Duration
}

// Limiter enforces a fixed-window Policy per (client, resource) fingerprint.
type Limiter struct {
	counter Counter
	policy  Policy
	prefix  string
}

// New creates a Limiter. Keys are namespaced under prefix.
func New(counter Counter, policy Policy, prefix string) (*Limiter, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if counter == nil {
		return nil, fmt.Errorf("%w: nil counter", ErrBackendUnavailable)
	}
	return &Limiter{counter: counter, policy: policy, prefix: prefix}, nil
}

func (l *Limiter) Policy() Policy {
	return l.policy
}

// Hit counts one request from addr to resource. The counter is incremented
// only when the request is admitted.
func (l *Limiter) Hit(ctx context.Context, addr, resource string) (Decision, error) {
	key := Key(l.prefix, addr, resource)

	count, ok, err := l.counter.Attempt(ctx, key, l.policy.MaxAttempts, l.policy.Window)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	d := Decision{
		Allowed: ok,
		Count:   count,
		Limit:   l.policy.MaxAttempts,
	}
	if ok {
		d.Remaining = Remaining(l.policy.MaxAttempts, count)
	} else {
		d.RetryAfter = l.policy.Window
	}
	return d, nil
}

// Key fingerprints (addr, resource) as prefix + hex(SHA-256(addr|resource)),
// so raw client addresses never appear in the backing store.
func Key(prefix, addr, resource string) string {
	sum := sha256.Sum256([]byte(addr + "|" + resource))
	return prefix + hex.EncodeToString(sum[:])
}

// Remaining is max-count floored at zero.
func Remaining(max, count int64) int64 {
	if count >= max {
		return 0
	}
	return max - count
}
