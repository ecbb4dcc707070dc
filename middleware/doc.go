// Package middleware adapts goGuard guards to the func(http.Handler)
// http.Handler shape used by net/http routers.
//
// # Adapters
//
//   - [Wrap]: any single goGuard.Guard.
//   - [Pipeline]: a whole goGuard.Pipeline.
//   - [StartSession], [RequireAuth], [RequireGuest], [VerifyCSRF] and
//     [Throttle]: the engine's guards, one per middleware.
//
// Stacking adapters is equivalent to a Pipeline built from the same guards in
// the same order, except that each adapter renders its own errors.
//
// # Architecture boundaries
//
// This package translates router semantics into guard calls. It does not
// decide anything itself; every admit or reject comes from the wrapped guard.
package middleware
