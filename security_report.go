package goGuard

import "time"

// SecurityReport is a read-only summary of the engine's protective settings,
// meant for startup logs and health endpoints. It never contains secrets.
type SecurityReport struct {
	SessionStore     string
	TokenStore       string
	SigningAlgorithm string
	SessionLifetime  time.Duration
	TokenDefaultTTL  time.Duration

	CookieSecure   bool
	CookieHTTPOnly bool
	CookieSameSite string

	CSRFExemptPaths   []string
	RateLimit         int
	RateLimitWindow   time.Duration
	TrustForwardedFor bool

	AuditEnabled   bool
	MetricsEnabled bool
}

// Warnings lists settings that weaken protection. An empty result does not
// mean the deployment is safe.
func (r SecurityReport) Warnings() []string {
	var out []string
	if !r.CookieSecure {
		out = append(out, "session cookie is sent over plain HTTP")
	}
	if !r.CookieHTTPOnly {
		out = append(out, "session cookie is readable from scripts")
	}
	if r.TrustForwardedFor {
		out = append(out, "rate limiting trusts X-Forwarded-For")
	}
	if len(r.CSRFExemptPaths) > 0 {
		out = append(out, "some paths skip CSRF verification")
	}
	if r.SessionStore == "memory" || r.TokenStore == "memory" {
		out = append(out, "in-memory stores do not survive restarts or span instances")
	}
	return out
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	cfg := e.config

	signing := ""
	if cfg.Token.Store == "jwt" {
		signing = cfg.Token.JWT.SigningMethod
	}

	return SecurityReport{
		SessionStore:      cfg.Session.Store,
		TokenStore:        cfg.Token.Store,
		SigningAlgorithm:  signing,
		SessionLifetime:   cfg.Session.Lifetime,
		TokenDefaultTTL:   cfg.Token.DefaultTTL,
		CookieSecure:      cfg.Session.Secure,
		CookieHTTPOnly:    cfg.Session.HTTPOnly,
		CookieSameSite:    cfg.Session.SameSite,
		CSRFExemptPaths:   append([]string(nil), cfg.CSRF.Except...),
		RateLimit:         cfg.RateLimit.MaxAttempts,
		RateLimitWindow:   cfg.RateLimit.Decay(),
		TrustForwardedFor: cfg.RateLimit.TrustForwardedFor,
		AuditEnabled:      cfg.Audit.Enabled,
		MetricsEnabled:    cfg.Metrics.Enabled,
	}
}
