package internaldefs

import (
	goGuard "github.com/MrEthical07/goGuard"
)

// CounterDef names one goGuard counter for exporters.
type CounterDef struct {
	ID   goGuard.MetricID
	Name string
	Help string
}

// HistogramDef names one goGuard latency histogram for exporters.
type HistogramDef struct {
	ID   goGuard.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goGuard.MetricSessionAdmit, Name: "goguard_session_admit_total", Help: "Requests admitted by a session identity."},
	{ID: goGuard.MetricTokenAdmit, Name: "goguard_token_admit_total", Help: "Requests admitted by a bearer token."},
	{ID: goGuard.MetricAuthReject, Name: "goguard_auth_reject_total", Help: "Requests rejected for lack of identity."},
	{ID: goGuard.MetricGuestReject, Name: "goguard_guest_reject_total", Help: "Identified requests rejected by guest-only routes."},
	{ID: goGuard.MetricCSRFTokenGenerated, Name: "goguard_csrf_token_generated_total", Help: "CSRF tokens generated."},
	{ID: goGuard.MetricCSRFMismatch, Name: "goguard_csrf_mismatch_total", Help: "Requests rejected for a CSRF token mismatch."},
	{ID: goGuard.MetricRateLimitAdmit, Name: "goguard_rate_limit_admit_total", Help: "Requests admitted by the rate limiter."},
	{ID: goGuard.MetricRateLimitHit, Name: "goguard_rate_limit_hit_total", Help: "Requests rejected by the rate limiter."},
	{ID: goGuard.MetricStoreFailure, Name: "goguard_store_failure_total", Help: "Guard calls aborted by an unavailable store."},
	{ID: goGuard.MetricSessionStarted, Name: "goguard_session_started_total", Help: "New sessions persisted."},
	{ID: goGuard.MetricLogin, Name: "goguard_login_total", Help: "Successful logins."},
	{ID: goGuard.MetricLogout, Name: "goguard_logout_total", Help: "Successful logouts."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goGuard.MetricGuardLatency, Name: "goguard_guard_latency_seconds", Help: "Latency of the full guard chain."},
}

// AuditDroppedName is the counter of audit events lost to backpressure.
const (
	AuditDroppedName = "goguard_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// HistogramUpperBounds are the finite bucket bounds in seconds. The last
// snapshot bucket is +Inf.
var HistogramUpperBounds = []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters
// without native histograms.
var HistogramBoundSuffix = []string{
	"0_001",
	"0_0025",
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
