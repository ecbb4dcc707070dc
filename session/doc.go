// Package session provides request-scoped session state and its persistence.
//
// # Model
//
// A [Session] is a string-keyed bag loaded once per request, mutated by guards and
// handlers, and written back as a [Record] when the response starts. Flash values live
// for exactly one subsequent request: a key flashed during request N is readable during
// request N+1 and dropped when N+1 saves.
//
// # Stores
//
//   - [RedisStore]: JSON records under a key prefix with per-record TTL.
//   - [MemoryStore]: process-local map, for tests and single-node deployments.
//
// # Architecture boundaries
//
// This package owns the [Session] model and the [Store] contract. It does NOT set
// cookies, decide when a session starts, or interpret identity values; the root
// package's SessionGuard and AuthGuard own those decisions.
//
// # What this package must NOT do
//
//   - Import goGuard or any sibling package.
//   - Treat a store failure as an empty session.
package session
