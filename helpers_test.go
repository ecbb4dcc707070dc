package goGuard

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/MrEthical07/goGuard/identity"
	"github.com/MrEthical07/goGuard/session"
	"github.com/MrEthical07/goGuard/token"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// spyTokenStore counts Resolve calls so tests can prove the store was skipped.
type spyTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*identity.Identity
	err    error
	calls  atomic.Int64
}

func newSpyTokenStore() *spyTokenStore {
	return &spyTokenStore{tokens: make(map[string]*identity.Identity)}
}

func (s *spyTokenStore) add(tok, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tok] = &identity.Identity{UserID: userID}
}

func (s *spyTokenStore) Resolve(_ context.Context, tok string) (*identity.Identity, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[tok].Clone(), nil
}

func newTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

// newTestEngine builds an engine over in-memory stores and the given token store.
func newTestEngine(t testing.TB, tokens token.Store, mutate func(*Builder)) *Engine {
	t.Helper()
	b := NewBuilder().WithMetricsEnabled(true)
	if tokens != nil {
		b.WithTokenStore(tokens)
	}
	if mutate != nil {
		mutate(b)
	}
	e, err := b.Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok")
}

// withSession attaches sess to r as SessionGuard would.
func withSession(r *http.Request, sess *session.Session) *http.Request {
	return r.WithContext(session.WithSession(r.Context(), sess))
}

func newSession(t testing.TB) *session.Session {
	t.Helper()
	id, err := session.NewID()
	if err != nil {
		t.Fatalf("session id: %v", err)
	}
	return session.New(id)
}

func jsonRequest(method, target, body string) *http.Request {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, target, rd)
	r.Header.Set("Accept", "application/json")
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	return r
}

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

// cookieJar replays the session cookie between requests.
type cookieJar struct {
	cookies map[string]*http.Cookie
}

func newCookieJar() *cookieJar {
	return &cookieJar{cookies: make(map[string]*http.Cookie)}
}

func (j *cookieJar) do(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	for _, c := range j.cookies {
		r.AddCookie(c)
	}
	rec := serve(h, r)
	for _, c := range rec.Result().Cookies() {
		j.cookies[c.Name] = c
	}
	return rec
}
