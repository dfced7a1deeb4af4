// Package scrape implements the per-source-type adapters (component B):
// ATS API adapters, generic HTML/JSON adapters, RSS/Atom, detail
// enrichment, and the ATS prober.
package scrape

import "fmt"

// ScrapeTransientError covers 5xx, timeouts, DNS failures and rate limits.
// When the response carried a Retry-After header its value is recorded so
// the scrape runner can treat the failure as a deferred no-op rather than
// a strike (spec §4.2, §4.8, §7).
type ScrapeTransientError struct {
	Source     string
	RetryAfter int // seconds, 0 when absent
	Err        error
}

func (e *ScrapeTransientError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("scrape %s: transient error (retry after %ds): %v", e.Source, e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("scrape %s: transient error: %v", e.Source, e.Err)
}

func (e *ScrapeTransientError) Unwrap() error { return e.Err }

// ScrapeConfigError covers 4xx responses other than auth or not-found.
type ScrapeConfigError struct {
	Source string
	Err    error
}

func (e *ScrapeConfigError) Error() string {
	return fmt.Sprintf("scrape %s: config error: %v", e.Source, e.Err)
}

func (e *ScrapeConfigError) Unwrap() error { return e.Err }

// ScrapeNotFoundError is a 404 response.
type ScrapeNotFoundError struct {
	Source string
	URL    string
}

func (e *ScrapeNotFoundError) Error() string {
	return fmt.Sprintf("scrape %s: not found: %s", e.Source, e.URL)
}

// ScrapeAuthError is a 401/403 indicating a login wall.
type ScrapeAuthError struct {
	Source string
	URL    string
}

func (e *ScrapeAuthError) Error() string {
	return fmt.Sprintf("scrape %s: auth wall at %s", e.Source, e.URL)
}

// ScrapeBotProtectionError is raised when content carries Cloudflare
// challenge markers, reCAPTCHA scripts, or similar bot-wall evidence.
type ScrapeBotProtectionError struct {
	Source string
	Marker string
}

func (e *ScrapeBotProtectionError) Error() string {
	return fmt.Sprintf("scrape %s: bot protection detected (%s)", e.Source, e.Marker)
}

// ScrapeProtectedApiError is raised on an explicit "requires token" style
// response from an API adapter.
type ScrapeProtectedApiError struct {
	Source string
	Detail string
}

func (e *ScrapeProtectedApiError) Error() string {
	return fmt.Sprintf("scrape %s: protected api: %s", e.Source, e.Detail)
}

// botProtectionMarkers are substrings whose presence in response HTML
// indicates a challenge page regardless of what the renderer reported
// (spec §4.2 "Rendered-HTML detection").
var botProtectionMarkers = []string{
	"cf-browser-verification",
	"cf-ray",
	"cf-chl-",
	"checking your browser before accessing",
	"g-recaptcha",
	"recaptcha/api.js",
	"Attention Required! | Cloudflare",
	"hcaptcha.com",
}

// authWallMarkers indicate the page is a login form rather than job
// content.
var authWallMarkers = []string{
	"id=\"login\"",
	"name=\"password\"",
	"Sign in to continue",
	"You must log in",
}

// DetectBotProtection scans HTML for known bot-wall markers, returning the
// matched marker or "" when none are found.
func DetectBotProtection(htmlBody string) string {
	return firstMatch(htmlBody, botProtectionMarkers)
}

// DetectAuthWall scans HTML for known login-wall markers.
func DetectAuthWall(htmlBody string) string {
	return firstMatch(htmlBody, authWallMarkers)
}

func firstMatch(haystack string, markers []string) string {
	for _, m := range markers {
		if containsFold(haystack, m) {
			return m
		}
	}
	return ""
}
