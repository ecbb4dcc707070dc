package goGuard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goGuard/token"
)

func TestAuthGuardAdmitsValidToken(t *testing.T) {
	tokens := newSpyTokenStore()
	tokens.add("tok-alice", "alice")
	e := newTestEngine(t, tokens, nil)

	var seen *Identity
	h := e.Pipeline(e.AuthGuard()).ThenFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	r := jsonRequest(http.MethodGet, "/api/me", "")
	r.Header.Set("Authorization", "Bearer tok-alice")
	rec := serve(h, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if seen == nil || seen.UserID != "alice" {
		t.Fatalf("identity = %+v, want alice", seen)
	}
	if got := e.MetricsSnapshot().Counters[MetricTokenAdmit]; got != 1 {
		t.Fatalf("token admits = %d, want 1", got)
	}
}

func TestAuthGuardTokenSources(t *testing.T) {
	tokens := newSpyTokenStore()
	tokens.add("tok-bob", "bob")
	e := newTestEngine(t, tokens, nil)
	h := e.Pipeline(e.AuthGuard()).ThenFunc(okHandler)

	tests := []struct {
		name string
		req  func() *http.Request
	}{
		{"lowercase scheme", func() *http.Request {
			r := jsonRequest(http.MethodGet, "/api", "")
			r.Header.Set("Authorization", "bearer tok-bob")
			return r
		}},
		{"query field", func() *http.Request {
			return jsonRequest(http.MethodGet, "/api?api_token=tok-bob", "")
		}},
		{"form field", func() *http.Request {
			form := url.Values{"api_token": {"tok-bob"}}
			r := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(form.Encode()))
			r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			r.Header.Set("Accept", "application/json")
			return r
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := serve(h, tt.req()); rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
		})
	}
}

func TestAuthGuardRejectsUnknownAndExpiredTokens(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := token.NewRedisStore(rdb, "tok")
	e := newTestEngine(t, store, nil)

	tok, err := e.IssueToken(context.Background(), &Identity{UserID: "carol"}, time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	h := e.Pipeline(e.AuthGuard()).ThenFunc(okHandler)

	send := func(bearer string) *httptest.ResponseRecorder {
		r := jsonRequest(http.MethodGet, "/api", "")
		if bearer != "" {
			r.Header.Set("Authorization", "Bearer "+bearer)
		}
		return serve(h, r)
	}

	if rec := send(tok); rec.Code != http.StatusOK {
		t.Fatalf("valid token status = %d", rec.Code)
	}

	noToken := send("")
	unknown := send("not-a-real-token")
	mr.FastForward(2 * time.Minute)
	expired := send(tok)

	for name, rec := range map[string]*httptest.ResponseRecorder{
		"missing": noToken, "unknown": unknown, "expired": expired,
	} {
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status = %d, want 401", name, rec.Code)
		}
		var body ErrorBody
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: decode body: %v", name, err)
		}
		if body.Error != "unauthenticated" {
			t.Fatalf("%s: error = %q", name, body.Error)
		}
	}
	if unknown.Body.String() != expired.Body.String() {
		t.Fatalf("expired and unknown responses differ:\n%s\n%s", unknown.Body, expired.Body)
	}
}

func TestAuthGuardRedirectsBrowsers(t *testing.T) {
	e := newTestEngine(t, newSpyTokenStore(), nil)
	h := e.Pipeline(e.AuthGuard()).ThenFunc(okHandler)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Fatalf("Location = %q, want /login", loc)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("redirect body = %q, want empty", rec.Body)
	}
}

func TestAuthGuardSessionIdentityWinsWithoutStoreCall(t *testing.T) {
	tokens := newSpyTokenStore()
	tokens.add("tok-other", "mallory")
	e := newTestEngine(t, tokens, nil)

	sess := newSession(t)
	raw, _ := json.Marshal(Identity{UserID: "alice"})
	sess.Set(e.Config().Auth.SessionKey, string(raw))

	var seen *Identity
	h := e.Pipeline(e.AuthGuard()).ThenFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFromContext(r.Context())
	})

	r := withSession(jsonRequest(http.MethodGet, "/api", ""), sess)
	r.Header.Set("Authorization", "Bearer tok-other")
	serve(h, r)

	if seen == nil || seen.UserID != "alice" {
		t.Fatalf("identity = %+v, want session identity alice", seen)
	}
	if n := tokens.calls.Load(); n != 0 {
		t.Fatalf("token store called %d times, want 0", n)
	}
	if got := e.MetricsSnapshot().Counters[MetricSessionAdmit]; got != 1 {
		t.Fatalf("session admits = %d, want 1", got)
	}
}

func TestAuthGuardMalformedSessionIdentityFallsThrough(t *testing.T) {
	tokens := newSpyTokenStore()
	tokens.add("tok-bob", "bob")
	e := newTestEngine(t, tokens, nil)

	sess := newSession(t)
	sess.Set(e.Config().Auth.SessionKey, "{not json")

	var seen *Identity
	h := e.Pipeline(e.AuthGuard()).ThenFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFromContext(r.Context())
	})
	r := withSession(jsonRequest(http.MethodGet, "/api", ""), sess)
	r.Header.Set("Authorization", "Bearer tok-bob")
	serve(h, r)

	if seen == nil || seen.UserID != "bob" {
		t.Fatalf("identity = %+v, want bob", seen)
	}
}

func TestAuthGuardStoreFailureIsServiceUnavailable(t *testing.T) {
	tokens := newSpyTokenStore()
	tokens.err = token.ErrUnavailable
	e := newTestEngine(t, tokens, nil)

	reached := false
	h := e.Pipeline(e.AuthGuard()).ThenFunc(func(http.ResponseWriter, *http.Request) { reached = true })

	r := jsonRequest(http.MethodGet, "/api", "")
	r.Header.Set("Authorization", "Bearer anything")
	rec := serve(h, r)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if reached {
		t.Fatal("handler reached despite store failure")
	}
	if got := e.MetricsSnapshot().Counters[MetricStoreFailure]; got != 1 {
		t.Fatalf("store failures = %d, want 1", got)
	}

	_, err := e.AuthGuard().Resolve(r)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("Resolve error = %v, want ErrStoreUnavailable", err)
	}
}

func TestAuthGuardContextIdentityIsReused(t *testing.T) {
	tokens := newSpyTokenStore()
	g := NewAuthGuard(DefaultConfig().Auth, tokens)

	want := &Identity{UserID: "svc"}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(WithIdentity(r.Context(), want))

	got, err := g.Resolve(r)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != want {
		t.Fatalf("Resolve = %+v, want the bound identity", got)
	}
	if tokens.calls.Load() != 0 {
		t.Fatal("token store consulted despite context identity")
	}
}
