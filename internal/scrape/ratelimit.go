package scrape

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// domainLimiter applies golang.org/x/time/rate per host so one slow
// source's backoff never throttles another (spec §5 "Timeouts").
type domainLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perSec   rate.Limit
	burst    int
}

// newDomainLimiter builds a limiter allowing requestsPerSecond sustained
// requests per host, with a burst of 1 (no bursting beyond the steady
// rate, since scraper HTTP calls are deliberately paced).
func newDomainLimiter(requestsPerSecond float64) *domainLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &domainLimiter{
		limiters: make(map[string]*rate.Limiter),
		perSec:   rate.Limit(requestsPerSecond),
		burst:    1,
	}
}

// Wait blocks until the rate limit for rawURL's host is satisfied.
func (d *domainLimiter) Wait(ctx context.Context, rawURL string) error {
	host := limiterHost(rawURL)
	if host == "" {
		return nil
	}

	d.mu.Lock()
	limiter, ok := d.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(d.perSec, d.burst)
		d.limiters[host] = limiter
	}
	d.mu.Unlock()

	return limiter.Wait(ctx)
}

func limiterHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
