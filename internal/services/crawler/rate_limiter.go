package crawler

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// HostLimiter holds one token bucket per host. The bucket refills at
// 1000/rate_limit_ms requests per second (minimum 1/s) with a burst of 1,
// so at most one request per interval per host.
type HostLimiter struct {
	mu        sync.RWMutex
	limiters  map[string]*rate.Limiter
	perSecond rate.Limit
}

// NewHostLimiter creates a limiter table for the given per-request
// interval in milliseconds.
func NewHostLimiter(rateLimitMs int) *HostLimiter {
	perSecond := 1
	if rateLimitMs > 0 && rateLimitMs < 1000 {
		perSecond = 1000 / rateLimitMs
	}
	return &HostLimiter{
		limiters:  make(map[string]*rate.Limiter),
		perSecond: rate.Limit(perSecond),
	}
}

// get returns the limiter for a host, creating it on first use. Reads
// are contention-free after the first request per host.
func (h *HostLimiter) get(host string) *rate.Limiter {
	h.mu.RLock()
	limiter, ok := h.limiters[host]
	h.mu.RUnlock()
	if ok {
		return limiter
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if limiter, ok = h.limiters[host]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(h.perSecond, 1)
	h.limiters[host] = limiter
	return limiter
}

// Wait blocks until the host's bucket grants a token or the context is
// cancelled.
func (h *HostLimiter) Wait(ctx context.Context, host string) error {
	return h.get(host).Wait(ctx)
}
