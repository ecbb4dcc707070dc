package token

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goGuard/identity"
)

var (
	// ErrUnavailable is returned (wrapped) when the backing store cannot serve a call.
	ErrUnavailable = errors.New("token store unavailable")
	// ErrRevokeUnsupported is returned by stores that cannot revoke individual tokens.
	ErrRevokeUnsupported = errors.New("token revocation unsupported")
	// ErrInvalidIdentity is returned when issuing for an identity without a user id.
	ErrInvalidIdentity = errors.New("identity requires a user id")
	// ErrInvalidTTL is returned when issuing with a non-positive lifetime.
	ErrInvalidTTL = errors.New("token ttl must be > 0")
)

// Store maps a bearer token to at most one identity.
type Store interface {
	Resolve(ctx context.Context, token string) (*identity.Identity, error)
}

// Issuer mints and revokes tokens.
type Issuer interface {
	Issue(ctx context.Context, id *identity.Identity, ttl time.Duration) (string, error)
	Revoke(ctx context.Context, token string) error
}

// record is the persisted form shared by the opaque-token stores.
type record struct {
	UserID     string         `json:"user_id"`
	Attributes map[string]any `json:"attributes,omitempty"`
	ExpiresAt  int64          `json:"expires_at"`
}

func (r record) identity() *identity.Identity {
	return &identity.Identity{UserID: r.UserID, Attributes: r.Attributes}
}

// opaqueBytes is the random payload size of opaque tokens (256 bits).
const opaqueBytes = 32

func newOpaqueToken() (string, error) {
	b := make([]byte, opaqueBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("token: generate: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashToken(token string) [32]byte {
	return sha256.Sum256([]byte(token))
}

func validateIssue(id *identity.Identity, ttl time.Duration) error {
	if id == nil || id.UserID == "" {
		return ErrInvalidIdentity
	}
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	return nil
}
