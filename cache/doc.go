// Package cache provides the key/value cache consumed by the rate limiter.
//
// # Implementations
//
//   - [RedisCache]: go-redis backed; [RedisCache.Attempt] runs as one Lua script.
//   - [MemoryCache]: process-local map guarded by a mutex, for tests and single-node use.
//
// # Attempt semantics
//
// Attempt is a bounded, fixed-window increment: when the stored count has already
// reached max the call reports a denial and leaves the count unchanged; otherwise the
// count is incremented and the window TTL is applied on the first hit only. The whole
// read-compare-increment-expire sequence is atomic per key.
//
// # What this package must NOT do
//
//   - Interpret counter values (policy lives in the root rate limiter).
//   - Import goGuard or any sibling package.
package cache
