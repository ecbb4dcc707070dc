package middleware

import (
	"net/http"

	goGuard "github.com/MrEthical07/goGuard"
)

// The engine adapters run through engine.Pipeline, so store failures are
// logged, counted and audited like any other pipeline error. A nil engine
// answers every request with goGuard.ErrEngineNotReady.

// StartSession loads and saves the session around the request.
func StartSession(engine *goGuard.Engine) func(http.Handler) http.Handler {
	return engineGuard(engine, func(e *goGuard.Engine) goGuard.Guard { return e.SessionGuard() })
}

// RequireAuth rejects requests without a session or bearer identity.
func RequireAuth(engine *goGuard.Engine) func(http.Handler) http.Handler {
	return engineGuard(engine, func(e *goGuard.Engine) goGuard.Guard { return e.AuthGuard() })
}

// RequireGuest rejects requests that already carry an identity.
func RequireGuest(engine *goGuard.Engine) func(http.Handler) http.Handler {
	return engineGuard(engine, func(e *goGuard.Engine) goGuard.Guard { return e.GuestGuard() })
}

// VerifyCSRF checks the CSRF token of state-changing requests. It must be
// stacked inside StartSession.
func VerifyCSRF(engine *goGuard.Engine) func(http.Handler) http.Handler {
	return engineGuard(engine, func(e *goGuard.Engine) goGuard.Guard { return e.CSRFGuard() })
}

// Throttle limits requests per client address and path. cfg inherits the
// engine's key prefix and forwarded-for policy.
func Throttle(engine *goGuard.Engine, cfg goGuard.RateLimitConfig) (func(http.Handler) http.Handler, error) {
	if engine == nil {
		return Wrap(nil, nil), nil
	}
	l, err := engine.RateLimiter(cfg)
	if err != nil {
		return nil, err
	}
	return Pipeline(engine.Pipeline(l)), nil
}

func engineGuard(engine *goGuard.Engine, pick func(*goGuard.Engine) goGuard.Guard) func(http.Handler) http.Handler {
	if engine == nil {
		return Wrap(nil, nil)
	}
	return Pipeline(engine.Pipeline(pick(engine)))
}
