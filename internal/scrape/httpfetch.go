package scrape

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"
)

// fetcher issues rate-limited, retried HTTP requests on behalf of every
// adapter in this package, mapping non-2xx outcomes onto the scrape error
// taxonomy (spec §4.2).
type fetcher struct {
	client  *http.Client
	limiter *domainLimiter
	retry   *retryPolicy
	logger  arbor.ILogger
}

func newFetcher(timeout time.Duration, requestsPerSecond float64, logger arbor.ILogger) *fetcher {
	return &fetcher{
		client:  &http.Client{Timeout: timeout},
		limiter: newDomainLimiter(requestsPerSecond),
		retry:   newRetryPolicy(),
		logger:  logger,
	}
}

// Get fetches rawURL, returning the decoded body on 2xx and a typed scrape
// error otherwise.
func (f *fetcher) Get(ctx context.Context, source, rawURL string, headers map[string]string) ([]byte, error) {
	return f.do(ctx, source, http.MethodGet, rawURL, headers, nil)
}

// Post fetches rawURL with a request body, used by adapters like Workday
// that require POST-with-pagination (spec §4.2).
func (f *fetcher) Post(ctx context.Context, source, rawURL string, headers map[string]string, body []byte) ([]byte, error) {
	return f.do(ctx, source, http.MethodPost, rawURL, headers, body)
}

func (f *fetcher) do(ctx context.Context, source, method, rawURL string, headers map[string]string, body []byte) ([]byte, error) {
	var respBody []byte

	attempt := f.retry.withRetry(ctx, f.logger, source, func(attemptNum int) fetchAttempt {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return fetchAttempt{err: err}
		}

		var reqBody io.Reader
		if body != nil {
			reqBody = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
		if err != nil {
			return fetchAttempt{err: err}
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return fetchAttempt{err: err}
		}
		defer resp.Body.Close()

		data, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fetchAttempt{statusCode: resp.StatusCode, err: readErr}
		}

		retryAfter := 0
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil {
					retryAfter = secs
				}
			}
		}

		respBody = data
		return fetchAttempt{statusCode: resp.StatusCode, retryAfter: retryAfter}
	})

	return respBody, f.classify(source, rawURL, attempt)
}

// classify turns a terminal fetch attempt into the scrape error taxonomy,
// or nil on success.
func (f *fetcher) classify(source, rawURL string, a fetchAttempt) error {
	switch {
	case a.err != nil && a.statusCode == 0:
		return &ScrapeTransientError{Source: source, Err: a.err}
	case a.statusCode >= 200 && a.statusCode < 300:
		return nil
	case a.statusCode == http.StatusNotFound:
		return &ScrapeNotFoundError{Source: source, URL: rawURL}
	case a.statusCode == http.StatusUnauthorized || a.statusCode == http.StatusForbidden:
		return &ScrapeAuthError{Source: source, URL: rawURL}
	case a.statusCode == http.StatusTooManyRequests || a.statusCode >= 500:
		return &ScrapeTransientError{Source: source, RetryAfter: a.retryAfter, Err: a.err}
	case a.statusCode >= 400:
		return &ScrapeConfigError{Source: source, Err: a.err}
	default:
		return nil
	}
}
