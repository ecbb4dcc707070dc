package goGuard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrEthical07/goGuard/session"
	"github.com/MrEthical07/goGuard/token"
)

func sessionRequest(t *testing.T) (*http.Request, *session.Session) {
	t.Helper()
	sess := newSession(t)
	sess.MarkSaved()
	return withSession(httptest.NewRequest(http.MethodPost, "/login", nil), sess), sess
}

func TestEngineLoginRotatesSessionAndCSRF(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	r, sess := sessionRequest(t)

	oldCSRF, err := e.CSRFToken(r)
	if err != nil {
		t.Fatal(err)
	}
	oldID := sess.ID()

	if err := e.Login(r, &Identity{UserID: "alice", Attributes: map[string]any{"role": "admin"}}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.ID() == oldID {
		t.Fatal("session id not rotated on login")
	}
	if sess.PreviousID() != oldID {
		t.Fatalf("PreviousID = %q, want %q", sess.PreviousID(), oldID)
	}
	newCSRF, _ := e.CSRFToken(r)
	if newCSRF == oldCSRF {
		t.Fatal("csrf token not rotated on login")
	}

	id, err := e.AuthGuard().Resolve(r)
	if err != nil || id == nil || id.UserID != "alice" || id.Attr("role") != "admin" {
		t.Fatalf("Resolve = %+v, %v", id, err)
	}
	if got := e.MetricsSnapshot().Counters[MetricLogin]; got != 1 {
		t.Fatalf("logins = %d", got)
	}
}

func TestEngineLogoutClearsIdentity(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	r, sess := sessionRequest(t)
	if err := e.Login(r, &Identity{UserID: "alice"}); err != nil {
		t.Fatal(err)
	}
	sess.MarkSaved()
	before, _ := e.CSRFToken(r)
	idBefore := sess.ID()

	if err := e.Logout(r); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if id, _ := e.AuthGuard().Resolve(r); id != nil {
		t.Fatalf("identity after logout = %+v", id)
	}
	if sess.ID() == idBefore {
		t.Fatal("session id not rotated on logout")
	}
	after, _ := e.CSRFToken(r)
	if after == before || after == "" {
		t.Fatal("csrf token not regenerated on logout")
	}
}

func TestEngineLoginValidation(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	r, _ := sessionRequest(t)
	if err := e.Login(r, &Identity{}); err == nil {
		t.Fatal("expected error for empty user id")
	}
	if err := e.Login(httptest.NewRequest(http.MethodPost, "/", nil), &Identity{UserID: "a"}); !errors.Is(err, ErrSessionMissing) {
		t.Fatalf("err = %v, want ErrSessionMissing", err)
	}
}

func TestEngineCSRFTokenIsStableUntilRegenerated(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	r, _ := sessionRequest(t)

	a, _ := e.CSRFToken(r)
	b, _ := e.CSRFToken(r)
	if a != b {
		t.Fatal("CSRFToken changed between calls")
	}
	c, err := e.RegenerateCSRFToken(r)
	if err != nil || c == a {
		t.Fatalf("RegenerateCSRFToken = %q, %v", c, err)
	}
	if d, _ := e.CSRFToken(r); d != c {
		t.Fatal("CSRFToken did not return the regenerated value")
	}
}

func TestEngineIssueAndRevokeToken(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	ctx := context.Background()

	tok, err := e.IssueToken(ctx, &Identity{UserID: "svc"}, 0)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+tok)

	if id, _ := e.AuthGuard().Resolve(r); id == nil || id.UserID != "svc" {
		t.Fatalf("Resolve = %+v", id)
	}
	if err := e.RevokeToken(ctx, tok); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}
	if id, _ := e.AuthGuard().Resolve(r); id != nil {
		t.Fatalf("revoked token resolved to %+v", id)
	}
}

func TestEngineIssueTokenStoreUnavailable(t *testing.T) {
	mr, rdb := newTestRedis(t)
	e := newTestEngine(t, token.NewRedisStore(rdb, "tok"), nil)
	mr.Close()

	_, err := e.IssueToken(context.Background(), &Identity{UserID: "svc"}, time.Minute)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
}

func TestEngineResolveOnlyStoreCannotIssue(t *testing.T) {
	e := newTestEngine(t, newSpyTokenStore(), nil)
	if _, err := e.IssueToken(context.Background(), &Identity{UserID: "x"}, time.Minute); err == nil {
		t.Fatal("expected error from a resolve-only store")
	}
	if err := e.RevokeToken(context.Background(), "x"); !errors.Is(err, token.ErrRevokeUnsupported) {
		t.Fatalf("err = %v", err)
	}
}

func TestEngineClosed(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	e.Close()
	e.Close()

	r, _ := sessionRequest(t)
	if _, err := e.CSRFToken(r); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("err = %v, want ErrEngineNotReady", err)
	}
	if err := e.Login(r, &Identity{UserID: "a"}); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("err = %v", err)
	}
}

func TestBuilderRequiresRedisClient(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Session.Store = "redis"
	if _, err := NewBuilder().WithConfig(cfg).Build(); !errors.Is(err, ErrMissingDependency) {
		t.Fatalf("err = %v, want ErrMissingDependency", err)
	}

	cfg = DefaultConfig()
	cfg.Token.Store = "redis"
	if _, err := NewBuilder().WithConfig(cfg).Build(); !errors.Is(err, ErrMissingDependency) {
		t.Fatalf("err = %v, want ErrMissingDependency", err)
	}
}

func TestBuilderSingleUse(t *testing.T) {
	b := NewBuilder()
	e, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	if _, err := b.Build(); err == nil {
		t.Fatal("second Build succeeded")
	}
}

func TestBuilderJWTTokenStore(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Token.Store = "jwt"
	cfg.Token.JWT.Secret = "0123456789abcdef0123456789abcdef"
	e, err := NewBuilder().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer e.Close()

	tok, err := e.IssueToken(context.Background(), &Identity{UserID: "jwt-user"}, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+tok)
	if id, _ := e.AuthGuard().Resolve(r); id == nil || id.UserID != "jwt-user" {
		t.Fatalf("Resolve = %+v", id)
	}
	if err := e.RevokeToken(context.Background(), tok); !errors.Is(err, token.ErrRevokeUnsupported) {
		t.Fatalf("RevokeToken err = %v", err)
	}
}
