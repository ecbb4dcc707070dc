package goGuard

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one pipeline counter or histogram.
type MetricID uint16

const (
	// MetricSessionAdmit counts requests admitted by a session identity.
	MetricSessionAdmit MetricID = iota
	// MetricTokenAdmit counts requests admitted by a bearer token.
	MetricTokenAdmit
	// MetricAuthReject counts requests rejected for lack of identity.
	MetricAuthReject
	// MetricGuestReject counts identified requests rejected by a guest-only route.
	MetricGuestReject
	// MetricCSRFTokenGenerated counts CSRF tokens minted for a session.
	MetricCSRFTokenGenerated
	// MetricCSRFMismatch counts state-changing requests rejected for a bad CSRF token.
	MetricCSRFMismatch
	// MetricRateLimitAdmit counts requests admitted by the rate limiter.
	MetricRateLimitAdmit
	// MetricRateLimitHit counts requests rejected by the rate limiter.
	MetricRateLimitHit
	// MetricStoreFailure counts guard calls aborted because a store was unavailable.
	MetricStoreFailure
	// MetricSessionStarted counts brand-new sessions persisted.
	MetricSessionStarted
	// MetricLogin counts Engine.Login calls that succeeded.
	MetricLogin
	// MetricLogout counts Engine.Logout calls that succeeded.
	MetricLogout
	// MetricGuardLatency is the histogram of full guard-chain latency.
	MetricGuardLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters updated on the request path.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a Metrics configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram id. Only MetricGuardLatency has buckets.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id != MetricGuardLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies the current values. Disabled metrics yield empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricGuardLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricGuardLatency].buckets[i])
		}
		s.Histograms[MetricGuardLatency] = buckets
	}

	return s
}

// bucketIndex maps d onto upper bounds of
// 1ms, 2.5ms, 5ms, 10ms, 25ms, 50ms, 100ms and +Inf.
func bucketIndex(d time.Duration) int {
	us := d.Microseconds()

	switch {
	case us <= 1000:
		return 0
	case us <= 2500:
		return 1
	case us <= 5000:
		return 2
	case us <= 10000:
		return 3
	case us <= 25000:
		return 4
	case us <= 50000:
		return 5
	case us <= 100000:
		return 6
	default:
		return 7
	}
}
