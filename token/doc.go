// Package token resolves bearer tokens to identities.
//
// # Stores
//
//   - [RedisStore]: opaque tokens, SHA-256 hashed, TTL enforced by Redis.
//   - [PostgresStore]: opaque tokens, SHA-256 hashed, expiry checked in SQL (pgx/v5).
//   - [JWTStore]: self-contained signed tokens (HS256 or Ed25519), no backing store.
//   - [MemoryStore]: opaque tokens in a process-local map.
//
// # Resolution contract
//
// Resolve returns (nil, nil) for unknown, revoked, malformed, or expired tokens.
// A non-nil error is returned only when the backing store itself failed, and it
// always wraps [ErrUnavailable]. Callers must not treat that error as "no identity".
//
// # What this package must NOT do
//
//   - Store plaintext opaque tokens.
//   - Import goGuard or any sibling package other than identity.
package token
