package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// HostLimiter spaces requests to the same host by a minimum delay.
// A nil *HostLimiter is valid and never waits.
type HostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter // hostname -> token bucket
	delay    time.Duration
	log      *logrus.Entry
}

// NewHostLimiter returns a limiter enforcing delay between requests per host, or nil when delay <= 0
func NewHostLimiter(delay time.Duration, log *logrus.Entry) *HostLimiter {
	if delay <= 0 {
		return nil
	}
	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		delay:    delay,
		log:      log,
	}
}

// Wait blocks until a request to host is allowed or ctx is done
func (h *HostLimiter) Wait(ctx context.Context, host string) error {
	if h == nil {
		return nil
	}

	h.mu.Lock()
	lim, ok := h.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Every(h.delay), 1)
		h.limiters[host] = lim
		h.log.WithFields(logrus.Fields{"host": host, "delay": h.delay}).Debug("Created host limiter")
	}
	h.mu.Unlock()

	return lim.Wait(ctx)
}

// Len returns the number of hosts tracked.
func (h *HostLimiter) Len() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.limiters)
}
