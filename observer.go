package goGuard

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/goGuard/internal/audit"
)

// observer bundles the logger, metrics and audit dispatcher shared by every
// guard built from one Engine. A nil observer logs to slog.Default and
// records nothing else.
type observer struct {
	logger  *slog.Logger
	metrics *Metrics
	audit   *audit.Dispatcher
}

func (o *observer) log() *slog.Logger {
	if o == nil || o.logger == nil {
		return slog.Default()
	}
	return o.logger
}

func (o *observer) inc(id MetricID) {
	if o != nil {
		o.metrics.Inc(id)
	}
}

func (o *observer) observe(id MetricID, d time.Duration) {
	if o != nil {
		o.metrics.Observe(id, d)
	}
}

func (o *observer) latencyEnabled() bool {
	return o != nil && o.metrics.LatencyEnabled()
}

func (o *observer) admit(r *http.Request, guard, via string) {
	o.log().LogAttrs(r.Context(), slog.LevelDebug, "request admitted",
		slog.String("guard", guard),
		slog.String("via", via),
		slog.String("path", r.URL.Path),
	)
}

// reject records an expected rejection at Warn and emits an audit event.
func (o *observer) reject(r *http.Request, guard, eventType string, status int, reason error) {
	o.log().LogAttrs(r.Context(), slog.LevelWarn, "request rejected",
		slog.String("guard", guard),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("remote_addr", r.RemoteAddr),
		slog.Int("status", status),
		slog.String("reason", reason.Error()),
	)
	o.emit(r.Context(), requestEvent(r, guard, eventType, status, reason))
}

// storeFailure records a failed store call at Error.
func (o *observer) storeFailure(r *http.Request, status int, err error) {
	o.inc(MetricStoreFailure)
	o.log().LogAttrs(r.Context(), slog.LevelError, "guard store unavailable",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("error", err.Error()),
	)
	o.emit(r.Context(), requestEvent(r, "", AuditStoreUnavailable, status, err))
}

func (o *observer) emit(ctx context.Context, event AuditEvent) {
	if o == nil || o.audit == nil {
		return
	}
	o.audit.Emit(ctx, event)
}

func requestEvent(r *http.Request, guard, eventType string, status int, err error) AuditEvent {
	ev := AuditEvent{
		EventType:  eventType,
		Guard:      guard,
		RemoteAddr: r.RemoteAddr,
		Method:     r.Method,
		Path:       r.URL.Path,
		Status:     status,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	if id, ok := IdentityFromContext(r.Context()); ok {
		ev.UserID = id.UserID
	}
	return ev
}
