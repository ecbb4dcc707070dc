// Package goGuard provides request-time guards for net/http services:
// session and bearer-token authentication, guest-only gating, CSRF
// verification, and fixed-window rate limiting, composed by a [Pipeline].
//
// Guards are built by an [Engine] (see [Builder]) so they share one session
// store, token store, cache, logger, metrics registry, and audit dispatcher.
// Every guard is safe for concurrent use once built.
//
// # Architecture boundaries
//
// goGuard is the public surface. Persistence lives in the session, token and
// cache packages, which never import goGuard. Guards translate expected
// rejections (no identity, CSRF mismatch, guest-only route, quota exhausted)
// into complete, content-negotiated responses. Store failures are returned to
// the pipeline as [ErrStoreUnavailable] and are never mistaken for a missing
// identity.
//
// # What this package must NOT do
//
//   - Match routes or render views.
//   - Compare secrets with anything other than crypto/subtle.
//   - Read and then write a rate-limit counter in two separate store calls.
package goGuard
