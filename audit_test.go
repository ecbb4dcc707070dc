package goGuard

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func drainAudit(sink *ChannelSink) []AuditEvent {
	var out []AuditEvent
	for {
		select {
		case ev := <-sink.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestRejectionsAreAudited(t *testing.T) {
	sink := NewChannelSink(16)
	e := newTestEngine(t, newSpyTokenStore(), func(b *Builder) { b.WithAuditSink(sink) })

	serve(e.Pipeline(e.AuthGuard()).ThenFunc(okHandler), jsonRequest(http.MethodGet, "/api/orders", ""))
	e.Close()

	events := drainAudit(sink)
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	ev := events[0]
	if ev.EventType != AuditAuthRejected || ev.Guard != "auth" || ev.Status != http.StatusUnauthorized {
		t.Fatalf("event = %+v", ev)
	}
	if ev.Path != "/api/orders" || ev.ID == "" || ev.Timestamp.IsZero() {
		t.Fatalf("event not stamped: %+v", ev)
	}
}

func TestLoginLogoutAudited(t *testing.T) {
	sink := NewChannelSink(16)
	e := newTestEngine(t, nil, func(b *Builder) { b.WithAuditSink(sink) })

	r, _ := sessionRequest(t)
	if err := e.Login(r, &Identity{UserID: "alice"}); err != nil {
		t.Fatal(err)
	}
	if err := e.Logout(r); err != nil {
		t.Fatal(err)
	}
	e.Close()

	events := drainAudit(sink)
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].EventType != AuditLogin || events[0].UserID != "alice" {
		t.Fatalf("login event = %+v", events[0])
	}
	if events[1].EventType != AuditLogout || events[1].UserID != "alice" {
		t.Fatalf("logout event = %+v", events[1])
	}
	if events[0].ID == events[1].ID {
		t.Fatal("event ids collide")
	}
}

func TestDefaultAuditSinkLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	cfg := DefaultConfig()
	cfg.Audit.Enabled = true
	e := newTestEngine(t, nil, func(b *Builder) { b.WithConfig(cfg).WithLogger(logger) })

	sess := newSession(t)
	h := e.Pipeline(e.CSRFGuard()).ThenFunc(okHandler)
	serve(h, withSession(httptest.NewRequest(http.MethodPost, "/x", nil), sess))
	e.Close()

	var found bool
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		if rec["msg"] == "audit: "+AuditCSRFMismatch {
			found = true
			if rec["status"] != float64(http.StatusForbidden) {
				t.Fatalf("status attr = %v", rec["status"])
			}
		}
	}
	if !found {
		t.Fatalf("no audit record in log:\n%s", buf.String())
	}
}
