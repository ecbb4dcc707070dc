package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is returned (wrapped) when the backing store cannot serve a call.
var ErrUnavailable = errors.New("session store unavailable")

// ErrCorrupt is returned when a stored record cannot be decoded.
var ErrCorrupt = errors.New("session record corrupt")

// Store persists session records.
type Store interface {
	// Load returns the record for id. A missing or expired record yields ok=false
	// and a nil error; only backend failures produce an error.
	Load(ctx context.Context, id string) (rec Record, ok bool, err error)
	// Save writes rec under id for ttl.
	Save(ctx context.Context, id string, rec Record, ttl time.Duration) error
	// Delete removes id. Deleting a missing record is not an error.
	Delete(ctx context.Context, id string) error
}

// RedisStore keeps JSON-encoded records in Redis.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore creates a Redis-backed store. An empty prefix defaults to "sess".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "sess"
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
	}
}

func (r *RedisStore) key(id string) string {
	return r.prefix + ":" + id
}

func (r *RedisStore) Load(ctx context.Context, id string) (Record, bool, error) {
	raw, err := r.redis.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, false, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return rec, true, nil
}

func (r *RedisStore) Save(ctx context.Context, id string, rec Record, ttl time.Duration) error {
	if id == "" {
		return errors.New("session: missing id")
	}
	if ttl <= 0 {
		return errors.New("session: ttl must be > 0")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}

	if err := r.redis.Set(ctx, r.key(id), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.redis.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

type memoryRecord struct {
	rec       Record
	expiresAt time.Time
}

// MemoryStore is a process-local [Store].
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
	now     func() time.Time
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]memoryRecord),
		now:     time.Now,
	}
}

func (m *MemoryStore) Load(_ context.Context, id string) (Record, bool, error) {
	m.mu.RLock()
	r, ok := m.records[id]
	m.mu.RUnlock()
	if !ok {
		return Record{}, false, nil
	}
	if !m.now().Before(r.expiresAt) {
		m.mu.Lock()
		delete(m.records, id)
		m.mu.Unlock()
		return Record{}, false, nil
	}
	return cloneRecord(r.rec), true, nil
}

func (m *MemoryStore) Save(_ context.Context, id string, rec Record, ttl time.Duration) error {
	if id == "" {
		return errors.New("session: missing id")
	}
	if ttl <= 0 {
		return errors.New("session: ttl must be > 0")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[id] = memoryRecord{rec: cloneRecord(rec), expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

func cloneRecord(rec Record) Record {
	out := Record{}
	if rec.Values != nil {
		out.Values = make(map[string]string, len(rec.Values))
		for k, v := range rec.Values {
			out.Values[k] = v
		}
	}
	if len(rec.Flashed) > 0 {
		out.Flashed = append([]string(nil), rec.Flashed...)
	}
	return out
}
