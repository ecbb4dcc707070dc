package token

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goGuard/identity"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps opaque tokens in Redis, keyed by their SHA-256 digest.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a Redis token store. An empty prefix defaults to "tok".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "tok"
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *RedisStore) key(token string) string {
	sum := hashToken(token)
	return s.prefix + ":" + hex.EncodeToString(sum[:])
}

// Issue stores a new opaque token for id that expires after ttl.
func (s *RedisStore) Issue(ctx context.Context, id *identity.Identity, ttl time.Duration) (string, error) {
	if err := validateIssue(id, ttl); err != nil {
		return "", err
	}

	tok, err := newOpaqueToken()
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(record{
		UserID:     id.UserID,
		Attributes: id.Attributes,
		ExpiresAt:  s.now().Add(ttl).Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("token: marshal: %w", err)
	}

	if err := s.redis.Set(ctx, s.key(tok), data, ttl).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return tok, nil
}

// Resolve returns the identity bound to token. Corrupt records resolve to no
// identity so that a bad write can never grant access.
func (s *RedisStore) Resolve(ctx context.Context, token string) (*identity.Identity, error) {
	if token == "" {
		return nil, nil
	}

	raw, err := s.redis.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil || rec.UserID == "" {
		return nil, nil
	}
	if rec.ExpiresAt > 0 && s.now().Unix() >= rec.ExpiresAt {
		return nil, nil
	}

	return rec.identity(), nil
}

// Revoke deletes token. Revoking an unknown token is not an error.
func (s *RedisStore) Revoke(ctx context.Context, token string) error {
	if err := s.redis.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
