package goGuard

import (
	"errors"
	"net/http"
	"slices"
	"time"
)

// Guard admits a request by calling next, or terminates it by writing a
// response and returning nil. A non-nil error means the guard could not
// decide (typically [ErrStoreUnavailable]); the pipeline renders it.
//
// A guard must call next at most once.
type Guard interface {
	Handle(w http.ResponseWriter, r *http.Request, next http.Handler) error
}

// GuardFunc adapts a function to [Guard].
type GuardFunc func(w http.ResponseWriter, r *http.Request, next http.Handler) error

func (f GuardFunc) Handle(w http.ResponseWriter, r *http.Request, next http.Handler) error {
	return f(w, r, next)
}

// ErrorHandler renders an error returned by a guard.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Pipeline runs guards in the order given. It has no ordering policy of its
// own: whether to throttle before authenticating is the caller's choice.
type Pipeline struct {
	guards []Guard

	// ErrorHandler overrides the default rendering of guard errors.
	ErrorHandler ErrorHandler

	obs *observer
}

// New creates a pipeline from guards. Nil guards are skipped.
func New(guards ...Guard) *Pipeline {
	return &Pipeline{guards: compact(guards)}
}

// Append returns a new pipeline with guards added after the existing ones.
// The receiver is not modified.
func (p *Pipeline) Append(guards ...Guard) *Pipeline {
	out := &Pipeline{
		guards:       append(slices.Clone(p.guards), compact(guards)...),
		ErrorHandler: p.ErrorHandler,
		obs:          p.obs,
	}
	return out
}

// Len returns the number of guards.
func (p *Pipeline) Len() int {
	return len(p.guards)
}

// Then returns h wrapped by every guard. A nil h is replaced by
// http.NotFoundHandler.
func (p *Pipeline) Then(h http.Handler) http.Handler {
	if h == nil {
		h = http.NotFoundHandler()
	}
	guards := slices.Clone(p.guards)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := &chain{p: p, guards: guards, final: h, start: time.Now()}
		c.ServeHTTP(w, r)
		if !c.reached {
			c.record()
		}
	})
}

// ThenFunc is Then for a handler function.
func (p *Pipeline) ThenFunc(fn http.HandlerFunc) http.Handler {
	if fn == nil {
		return p.Then(nil)
	}
	return p.Then(fn)
}

// chain is the per-request continuation handed to each guard.
type chain struct {
	p       *Pipeline
	guards  []Guard
	final   http.Handler
	pos     int
	start   time.Time
	reached bool
}

func (c *chain) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if c.pos >= len(c.guards) {
		if c.reached {
			return
		}
		c.reached = true
		c.record()
		c.final.ServeHTTP(w, r)
		return
	}

	g := c.guards[c.pos]
	c.pos++
	if err := g.Handle(w, r, c); err != nil {
		c.p.fail(w, r, err)
	}
}

func (c *chain) record() {
	if c.p.obs.latencyEnabled() {
		c.p.obs.observe(MetricGuardLatency, time.Since(c.start))
	}
}

func (p *Pipeline) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, ErrStoreUnavailable) {
		status = http.StatusServiceUnavailable
		p.obs.storeFailure(r, status, err)
	} else {
		p.obs.log().ErrorContext(r.Context(), "guard failed",
			"path", r.URL.Path,
			"error", err,
		)
	}

	if p.ErrorHandler != nil {
		p.ErrorHandler(w, r, err)
		return
	}
	DefaultErrorHandler(w, r, err)
}

// DefaultErrorHandler renders 503 for [ErrStoreUnavailable] and 500 for
// anything else. The underlying error is never sent to the client.
func DefaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := http.StatusInternalServerError, "internal_error", "The request could not be processed."
	if errors.Is(err, ErrStoreUnavailable) {
		status, code, msg = http.StatusServiceUnavailable, "service_unavailable", "A backing store is temporarily unavailable."
	}

	if ExpectsJSON(r) {
		WriteJSON(w, status, ErrorBody{Error: code, Message: msg})
		return
	}
	WriteHTML(w, status, http.StatusText(status), msg)
}

func compact(guards []Guard) []Guard {
	out := make([]Guard, 0, len(guards))
	for _, g := range guards {
		if g != nil {
			out = append(out, g)
		}
	}
	return out
}
