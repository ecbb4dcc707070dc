package goGuard

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/MrEthical07/goGuard/cache"
	"github.com/MrEthical07/goGuard/internal/rate"
)

const guardRateLimit = "rate_limit"

// RateLimiter admits at most MaxAttempts requests per client address and
// path in each fixed window of DecaySeconds. The window starts at the first
// admitted request and is never extended, so bursts straddling a window
// boundary are accepted.
type RateLimiter struct {
	limiter *rate.Limiter
	cfg     RateLimitConfig
	obs     *observer
}

// NewRateLimiter returns a limiter counting in c.
func NewRateLimiter(c cache.Cache, cfg RateLimitConfig) (*RateLimiter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	l, err := rate.New(c, rate.Policy{
		MaxAttempts: int64(cfg.MaxAttempts),
		Window:      cfg.Decay(),
	}, cfg.KeyPrefix)
	if err != nil {
		return nil, err
	}
	return &RateLimiter{limiter: l, cfg: cfg}, nil
}

func (l *RateLimiter) Handle(w http.ResponseWriter, r *http.Request, next http.Handler) error {
	addr := ClientAddr(r, l.cfg.TrustForwardedFor)
	d, err := l.limiter.Hit(r.Context(), addr, r.URL.Path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.FormatInt(d.Limit, 10))
	h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))

	if d.Allowed {
		l.obs.inc(MetricRateLimitAdmit)
		next.ServeHTTP(w, r)
		return nil
	}

	retryAfter := l.cfg.DecaySeconds
	h.Set("Retry-After", strconv.Itoa(retryAfter))
	l.obs.inc(MetricRateLimitHit)
	l.obs.reject(r, guardRateLimit, AuditRateLimited, http.StatusTooManyRequests, ErrRateLimited)

	if ExpectsJSON(r) {
		WriteJSON(w, http.StatusTooManyRequests, ErrorBody{
			Error:      "too_many_requests",
			Message:    "Too many requests. Please slow down.",
			RetryAfter: &retryAfter,
		})
		return nil
	}
	WriteHTML(w, http.StatusTooManyRequests, "Too Many Requests",
		fmt.Sprintf("Too many requests. Please try again in %d seconds.", retryAfter))
	return nil
}
