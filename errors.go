package goGuard

import "errors"

var (
	// ErrUnauthenticated tags requests that carried no resolvable identity.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrCSRFTokenMismatch tags state-changing requests with a missing or wrong CSRF token.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
	// ErrAlreadyAuthenticated tags guest-only requests made by an identified principal.
	ErrAlreadyAuthenticated = errors.New("already authenticated")
	// ErrRateLimited tags requests rejected by the rate limiter.
	ErrRateLimited = errors.New("too many requests")

	// ErrStoreUnavailable is returned by a guard when the session store, token
	// store, or cache failed. It is never interpreted as "no identity".
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrSessionMissing is returned by guards that need a session when no
	// session guard ran earlier in the pipeline.
	ErrSessionMissing = errors.New("session not started")
	// ErrEngineNotReady is returned by Engine methods called on a nil or closed engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrMissingDependency is returned by Build when a required store is absent.
	ErrMissingDependency = errors.New("missing dependency")
)
