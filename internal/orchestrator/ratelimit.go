// internal/orchestrator/ratelimit.go
package orchestrator

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// hostLimiter throttles renders per vendor host. Timing vendors are small
// shops; one limiter per host keeps a large batch from hammering a single
// results server while leaving mixed batches unconstrained.
type hostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// newHostLimiter creates a limiter set; rps <= 0 disables limiting.
func newHostLimiter(rps float64, burst int) *hostLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &hostLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// Wait blocks until the host's limiter grants a token or ctx is done.
func (h *hostLimiter) Wait(ctx context.Context, host string) error {
	if h.rps <= 0 {
		return nil
	}

	h.mu.Lock()
	lim, ok := h.limiters[host]
	if !ok {
		lim = rate.NewLimiter(h.rps, h.burst)
		h.limiters[host] = lim
	}
	h.mu.Unlock()

	return lim.Wait(ctx)
}
