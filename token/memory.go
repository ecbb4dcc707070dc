package token

import (
	"context"
	"sync"
	"time"

	"github.com/MrEthical07/goGuard/identity"
)

// MemoryStore is a process-local opaque token store for tests and
// single-instance deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[[32]byte]record
	now     func() time.Time
}

var (
	_ Store  = (*MemoryStore)(nil)
	_ Issuer = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[[32]byte]record),
		now:     time.Now,
	}
}

func (m *MemoryStore) Issue(_ context.Context, id *identity.Identity, ttl time.Duration) (string, error) {
	if err := validateIssue(id, ttl); err != nil {
		return "", err
	}
	tok, err := newOpaqueToken()
	if err != nil {
		return "", err
	}

	rec := id.Clone()
	m.mu.Lock()
	m.records[hashToken(tok)] = record{
		UserID:     rec.UserID,
		Attributes: rec.Attributes,
		ExpiresAt:  m.now().Add(ttl).UnixNano(),
	}
	m.mu.Unlock()
	return tok, nil
}

func (m *MemoryStore) Resolve(_ context.Context, token string) (*identity.Identity, error) {
	if token == "" {
		return nil, nil
	}
	key := hashToken(token)

	m.mu.RLock()
	rec, ok := m.records[key]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if m.now().UnixNano() >= rec.ExpiresAt {
		m.mu.Lock()
		delete(m.records, key)
		m.mu.Unlock()
		return nil, nil
	}
	return rec.identity().Clone(), nil
}

func (m *MemoryStore) Revoke(_ context.Context, token string) error {
	m.mu.Lock()
	delete(m.records, hashToken(token))
	m.mu.Unlock()
	return nil
}
