package goGuard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goGuard/cache"
	"github.com/MrEthical07/goGuard/internal/audit"
	"github.com/MrEthical07/goGuard/session"
	"github.com/MrEthical07/goGuard/token"
)

// Engine owns the stores and observability shared by every guard it builds.
// All methods are safe for concurrent use.
type Engine struct {
	config   Config
	sessions session.Store
	tokens   token.Store
	cache    cache.Cache

	metrics *Metrics
	audit   *audit.Dispatcher
	obs     *observer

	auth *AuthGuard
	csrf *CSRFGuard

	closers   []func()
	closed    atomic.Bool
	closeOnce sync.Once
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Close flushes the audit dispatcher and releases owned stores.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		e.audit.Close()
		for _, fn := range e.closers {
			fn()
		}
	})
}

func (e *Engine) ready() error {
	if e == nil || e.closed.Load() {
		return ErrEngineNotReady
	}
	return nil
}

func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

/*
====================================
GUARDS
====================================
*/

// Pipeline returns a pipeline whose errors are logged, counted and audited
// through this engine.
func (e *Engine) Pipeline(guards ...Guard) *Pipeline {
	p := New(guards...)
	p.obs = e.obs
	return p
}

// Web returns Pipeline(SessionGuard, CSRFGuard, guards...), the usual stack
// for browser routes.
func (e *Engine) Web(guards ...Guard) *Pipeline {
	return e.Pipeline(append([]Guard{e.SessionGuard(), e.CSRFGuard()}, guards...)...)
}

func (e *Engine) SessionGuard() *SessionGuard {
	g := NewSessionGuard(e.sessions, e.config.Session)
	g.obs = e.obs
	return g
}

func (e *Engine) AuthGuard() *AuthGuard {
	return e.auth
}

func (e *Engine) GuestGuard() *GuestGuard {
	return NewGuestGuard(e.auth)
}

func (e *Engine) CSRFGuard() *CSRFGuard {
	return e.csrf
}

// RateLimiter returns a limiter for cfg. Empty KeyPrefix inherits the engine
// default; TrustForwardedFor is inherited when the engine enables it.
func (e *Engine) RateLimiter(cfg RateLimitConfig) (*RateLimiter, error) {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = e.config.RateLimit.KeyPrefix
	}
	cfg.TrustForwardedFor = cfg.TrustForwardedFor || e.config.RateLimit.TrustForwardedFor

	l, err := NewRateLimiter(e.cache, cfg)
	if err != nil {
		return nil, err
	}
	l.obs = e.obs
	return l, nil
}

/*
====================================
SESSION OPERATIONS
====================================
*/

// Login stores id in the request's session, then rotates the session ID and
// the CSRF token.
func (e *Engine) Login(r *http.Request, id *Identity) error {
	if err := e.ready(); err != nil {
		return err
	}
	if id == nil || id.UserID == "" {
		return errors.New("login requires an identity with a user id")
	}
	sess := session.FromContext(r.Context())
	if sess == nil {
		return ErrSessionMissing
	}

	raw, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("encoding identity: %w", err)
	}
	if err := sess.Regenerate(); err != nil {
		return err
	}
	sess.Set(e.config.Auth.SessionKey, string(raw))
	if _, err := e.csrf.Regenerate(sess); err != nil {
		return err
	}

	e.metrics.Inc(MetricLogin)
	e.obs.emit(r.Context(), AuditEvent{
		EventType:  AuditLogin,
		UserID:     id.UserID,
		RemoteAddr: r.RemoteAddr,
		Method:     r.Method,
		Path:       r.URL.Path,
	})
	return nil
}

// Logout clears the session and issues a new session ID and CSRF token.
func (e *Engine) Logout(r *http.Request) error {
	if err := e.ready(); err != nil {
		return err
	}
	sess := session.FromContext(r.Context())
	if sess == nil {
		return ErrSessionMissing
	}

	ev := requestEvent(r, "", AuditLogout, 0, nil)
	if id := e.auth.sessionIdentity(r); id != nil {
		ev.UserID = id.UserID
	}

	if err := sess.Invalidate(); err != nil {
		return err
	}
	if _, err := e.csrf.Regenerate(sess); err != nil {
		return err
	}

	e.metrics.Inc(MetricLogout)
	e.obs.emit(r.Context(), ev)
	return nil
}

// CSRFToken returns the session's token, creating it if needed. Repeated
// calls return the same value until it is regenerated.
func (e *Engine) CSRFToken(r *http.Request) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	sess := session.FromContext(r.Context())
	if sess == nil {
		return "", ErrSessionMissing
	}
	return e.csrf.Token(sess)
}

// RegenerateCSRFToken replaces the session's CSRF token.
func (e *Engine) RegenerateCSRFToken(r *http.Request) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	sess := session.FromContext(r.Context())
	if sess == nil {
		return "", ErrSessionMissing
	}
	return e.csrf.Regenerate(sess)
}

/*
====================================
TOKEN OPERATIONS
====================================
*/

// IssueToken mints a bearer token for id. A non-positive ttl uses
// Token.DefaultTTL.
func (e *Engine) IssueToken(ctx context.Context, id *Identity, ttl time.Duration) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	issuer, ok := e.tokens.(token.Issuer)
	if !ok {
		return "", fmt.Errorf("token store %T cannot issue tokens", e.tokens)
	}
	if ttl <= 0 {
		ttl = e.config.Token.DefaultTTL
	}
	tok, err := issuer.Issue(ctx, id, ttl)
	if errors.Is(err, token.ErrUnavailable) {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return tok, err
}

// RevokeToken invalidates tok where the store supports it.
func (e *Engine) RevokeToken(ctx context.Context, tok string) error {
	if err := e.ready(); err != nil {
		return err
	}
	issuer, ok := e.tokens.(token.Issuer)
	if !ok {
		return token.ErrRevokeUnsupported
	}
	err := issuer.Revoke(ctx, tok)
	if errors.Is(err, token.ErrUnavailable) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}
