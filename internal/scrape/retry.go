package scrape

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"time"

	"github.com/ternarybob/arbor"
)

// retryPolicy controls exponential backoff with jitter for scraper HTTP
// calls, adapted from the crawler package's retry policy to map outcomes
// onto the scrape error taxonomy (spec §4.2, §7).
type retryPolicy struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	RetryableStatus   map[int]bool
}

func newRetryPolicy() *retryPolicy {
	return &retryPolicy{
		MaxAttempts:       3,
		InitialBackoff:    time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		RetryableStatus: map[int]bool{
			408: true, 429: true, 500: true, 502: true, 503: true, 504: true,
		},
	}
}

func (p *retryPolicy) shouldRetry(attempt, statusCode int, err error) bool {
	if attempt >= p.MaxAttempts-1 {
		return false
	}
	if statusCode > 0 {
		return p.RetryableStatus[statusCode]
	}
	return isRetryableNetErr(err)
}

func (p *retryPolicy) backoff(attempt int) time.Duration {
	d := float64(p.InitialBackoff)
	for i := 0; i < attempt; i++ {
		d *= p.BackoffMultiplier
	}
	if d > float64(p.MaxBackoff) {
		d = float64(p.MaxBackoff)
	}
	jitter := d * 0.25 * (rand.Float64()*2 - 1)
	d += jitter
	if d < 0 {
		d = float64(p.InitialBackoff)
	}
	return time.Duration(d)
}

// fetchAttempt is one HTTP round trip's outcome, used by withRetry to
// decide whether to retry and, on final failure, which typed error to
// return.
type fetchAttempt struct {
	statusCode int
	retryAfter int
	err        error
}

// withRetry runs fn up to the policy's MaxAttempts, sleeping with backoff
// between attempts, and returns the last attempt's result.
func (p *retryPolicy) withRetry(ctx context.Context, logger arbor.ILogger, source string, fn func(attempt int) fetchAttempt) fetchAttempt {
	var last fetchAttempt
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		last = fn(attempt)
		if last.err == nil && !p.RetryableStatus[last.statusCode] {
			return last
		}
		if last.retryAfter > 0 {
			// A Retry-After header means the caller should not burn
			// further attempts; report immediately (spec §7).
			return last
		}
		if !p.shouldRetry(attempt, last.statusCode, last.err) {
			return last
		}
		wait := p.backoff(attempt)
		if logger != nil {
			logger.Debug().
				Str("source", source).
				Int("attempt", attempt+1).
				Int("status_code", last.statusCode).
				Dur("backoff", wait).
				Msg("retrying scrape fetch after backoff")
		}
		select {
		case <-ctx.Done():
			last.err = ctx.Err()
			return last
		case <-time.After(wait):
		}
	}
	return last
}

func isRetryableNetErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
