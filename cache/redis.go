package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const attemptScript = `
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
local limit = tonumber(ARGV[1])
if current >= limit then
  return {current, 0}
end
current = redis.call("INCR", KEYS[1])
if current == 1 or redis.call("PTTL", KEYS[1]) == -1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return {current, 1}
`

var attemptLua = redis.NewScript(attemptScript)

// RedisCache is a [Cache] backed by Redis.
type RedisCache struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisCache creates a cache that namespaces every key with prefix.
func NewRedisCache(client redis.UniversalClient, prefix string) *RedisCache {
	return &RedisCache{
		redis:  client,
		prefix: prefix,
	}
}

func (c *RedisCache) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

// Get returns the stored string or def when the key does not exist.
func (c *RedisCache) Get(ctx context.Context, key, def string) (string, error) {
	val, err := c.redis.Get(ctx, c.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return def, nil
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return val, nil
}

// Put stores value with ttl. A non-positive ttl keeps the key until it is forgotten.
func (c *RedisCache) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := c.redis.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Forget deletes key.
func (c *RedisCache) Forget(ctx context.Context, key string) error {
	if err := c.redis.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Attempt runs the bounded increment as a single server-side script so that
// concurrent callers sharing key serialize on Redis.
func (c *RedisCache) Attempt(ctx context.Context, key string, max int64, window time.Duration) (int64, bool, error) {
	if max <= 0 {
		return 0, false, nil
	}
	ms := window.Milliseconds()
	if ms <= 0 {
		ms = 1
	}

	res, err := attemptLua.Run(ctx, c.redis, []string{c.key(key)}, max, ms).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("%w: unexpected script reply %v", ErrUnavailable, res)
	}

	return res[0], res[1] == 1, nil
}
