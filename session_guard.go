package goGuard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/MrEthical07/goGuard/session"
)

// SessionGuard loads the session named by the session cookie, attaches it to
// the request context, and writes it back before the first response byte.
// Place it before any guard that needs a session.
type SessionGuard struct {
	store session.Store
	cfg   SessionConfig
	obs   *observer
}

// NewSessionGuard returns a session guard over store.
func NewSessionGuard(store session.Store, cfg SessionConfig) *SessionGuard {
	return &SessionGuard{store: store, cfg: cfg}
}

func (g *SessionGuard) Handle(w http.ResponseWriter, r *http.Request, next http.Handler) error {
	sess, err := g.load(r)
	if err != nil {
		return err
	}

	cw := &commitWriter{ResponseWriter: w}
	cw.commit = func() { g.save(r.Context(), cw.ResponseWriter, sess) }

	next.ServeHTTP(cw, r.WithContext(session.WithSession(r.Context(), sess)))
	cw.once.Do(cw.commit)
	return nil
}

func (g *SessionGuard) load(r *http.Request) (*session.Session, error) {
	if c, err := r.Cookie(g.cfg.CookieName); err == nil && session.ValidID(c.Value) {
		rec, ok, err := g.store.Load(r.Context(), c.Value)
		switch {
		case errors.Is(err, session.ErrCorrupt):
			g.obs.log().WarnContext(r.Context(), "discarding corrupt session", "error", err)
		case err != nil:
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		case ok:
			return session.FromRecord(c.Value, rec), nil
		}
	}

	id, err := session.NewID()
	if err != nil {
		return nil, err
	}
	return session.New(id), nil
}

// save persists sess and sets the cookie. A failure here cannot change the
// response any more, so it is logged and counted.
func (g *SessionGuard) save(ctx context.Context, w http.ResponseWriter, sess *session.Session) {
	if prev := sess.PreviousID(); prev != "" {
		if err := g.store.Delete(ctx, prev); err != nil {
			g.obs.inc(MetricStoreFailure)
			g.obs.log().ErrorContext(ctx, "session delete failed", "error", err)
		}
	}

	fresh := sess.Fresh()
	if err := g.store.Save(ctx, sess.ID(), sess.Record(), g.cfg.Lifetime); err != nil {
		g.obs.inc(MetricStoreFailure)
		g.obs.log().ErrorContext(ctx, "session save failed", "error", err)
		return
	}
	if fresh {
		g.obs.inc(MetricSessionStarted)
	}
	sess.MarkSaved()

	http.SetCookie(w, &http.Cookie{
		Name:     g.cfg.CookieName,
		Value:    sess.ID(),
		Path:     g.cfg.CookiePath,
		Domain:   g.cfg.CookieDomain,
		MaxAge:   int(g.cfg.Lifetime / time.Second),
		Secure:   g.cfg.Secure,
		HttpOnly: g.cfg.HTTPOnly,
		SameSite: g.cfg.SameSiteMode(),
	})
}

// commitWriter runs commit once, before anything reaches the client.
type commitWriter struct {
	http.ResponseWriter
	commit func()
	once   sync.Once
}

func (cw *commitWriter) WriteHeader(code int) {
	cw.once.Do(cw.commit)
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *commitWriter) Write(b []byte) (int, error) {
	cw.once.Do(cw.commit)
	return cw.ResponseWriter.Write(b)
}

func (cw *commitWriter) Flush() {
	cw.once.Do(cw.commit)
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (cw *commitWriter) Unwrap() http.ResponseWriter {
	return cw.ResponseWriter
}
