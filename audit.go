package goGuard

import (
	"io"
	"log/slog"

	"github.com/MrEthical07/goGuard/internal/audit"
)

// AuditEvent describes one guard rejection, store failure, login or logout.
type AuditEvent = audit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = audit.Sink

type (
	NoOpSink       = audit.NoOpSink
	ChannelSink    = audit.ChannelSink
	JSONWriterSink = audit.JSONWriterSink
	SlogSink       = audit.SlogSink
)

// Audit event types.
const (
	AuditAuthRejected     = "auth_rejected"
	AuditGuestRejected    = "guest_rejected"
	AuditCSRFMismatch     = "csrf_mismatch"
	AuditRateLimited      = "rate_limited"
	AuditStoreUnavailable = "store_unavailable"
	AuditLogin            = "login"
	AuditLogout           = "logout"
)

func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	return audit.NewSlogSink(logger)
}
