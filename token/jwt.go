package token

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goGuard/identity"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the JWT signature algorithm.
type SigningMethod string

const (
	// MethodHS256 signs with a shared HMAC secret.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 key pair.
	MethodEd25519 SigningMethod = "ed25519"
)

// JWTConfig configures a [JWTStore].
type JWTConfig struct {
	SigningMethod SigningMethod
	// PrivateKey is the HMAC secret for HS256, or an Ed25519 private key
	// (raw or PEM). Only needed to issue.
	PrivateKey []byte
	// PublicKey is an Ed25519 public key (raw or PEM). Ignored for HS256.
	PublicKey []byte
	Issuer    string
	Audience  string
	// Leeway tolerates clock skew when validating exp and nbf (max 2m).
	Leeway time.Duration
	KeyID  string
}

// JWTStore resolves self-contained signed tokens. Nothing is persisted, so
// individual tokens cannot be revoked before they expire.
type JWTStore struct {
	config JWTConfig
	now    func() time.Time
}

var (
	_ Store  = (*JWTStore)(nil)
	_ Issuer = (*JWTStore)(nil)
)

type claims struct {
	Attributes map[string]any `json:"attrs,omitempty"`
	jwt.RegisteredClaims
}

// NewJWTStore validates cfg and returns a store.
func NewJWTStore(cfg JWTConfig) (*JWTStore, error) {
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires a secret")
		}
		if len(cfg.PrivateKey) < 32 {
			return nil, errors.New("hs256 secret must be at least 32 bytes")
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) > 0 {
			if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires a public key")
		}
		if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &JWTStore{config: cfg, now: time.Now}, nil
}

// Issue signs a token carrying id that expires after ttl.
func (s *JWTStore) Issue(_ context.Context, id *identity.Identity, ttl time.Duration) (string, error) {
	if err := validateIssue(id, ttl); err != nil {
		return "", err
	}

	now := s.now()
	c := claims{
		Attributes: id.Attributes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.config.Issuer,
			ID:        uuid.NewString(),
		},
	}
	if s.config.Audience != "" {
		c.Audience = jwt.ClaimStrings{s.config.Audience}
	}

	tok := jwt.NewWithClaims(s.method(), c)
	if s.config.KeyID != "" {
		tok.Header["kid"] = s.config.KeyID
	}

	key, err := s.signKey()
	if err != nil {
		return "", err
	}
	signed, err := tok.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Resolve verifies token. Any verification failure, expiry included, means
// no identity.
func (s *JWTStore) Resolve(_ context.Context, token string) (*identity.Identity, error) {
	if token == "" {
		return nil, nil
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{s.method().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.config.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(s.config.Leeway))
	}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	if s.config.Audience != "" {
		opts = append(opts, jwt.WithAudience(s.config.Audience))
	}

	parsed, err := jwt.NewParser(opts...).ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if s.config.KeyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid != s.config.KeyID {
				return nil, errors.New("unknown kid")
			}
		}
		return s.verifyKey()
	})
	if err != nil {
		return nil, nil
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || c.Subject == "" {
		return nil, nil
	}
	return &identity.Identity{UserID: c.Subject, Attributes: c.Attributes}, nil
}

// Revoke always fails with [ErrRevokeUnsupported].
func (s *JWTStore) Revoke(context.Context, string) error {
	return ErrRevokeUnsupported
}

func (s *JWTStore) method() jwt.SigningMethod {
	if s.config.SigningMethod == MethodHS256 {
		return jwt.SigningMethodHS256
	}
	return jwt.SigningMethodEdDSA
}

func (s *JWTStore) signKey() (interface{}, error) {
	if s.config.SigningMethod == MethodHS256 {
		return s.config.PrivateKey, nil
	}
	if len(s.config.PrivateKey) == 0 {
		return nil, errors.New("token: store has no signing key")
	}
	return parseEdPrivateKey(s.config.PrivateKey)
}

func (s *JWTStore) verifyKey() (interface{}, error) {
	if s.config.SigningMethod == MethodHS256 {
		return s.config.PrivateKey, nil
	}
	return parseEdPublicKey(s.config.PublicKey)
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
