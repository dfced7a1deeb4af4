package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeURL_StripsTrackingParams(t *testing.T) {
	got := NormalizeURL("https://Example.com/jobs/123/?utm_source=linkedin&ref=abc&id=1")
	assert.Equal(t, "https://example.com/jobs/123?id=1", got)
}

func TestNormalizeURL_TrimsTrailingSlash(t *testing.T) {
	assert.Equal(t, "https://example.com/jobs/1", NormalizeURL("https://example.com/jobs/1/"))
	assert.Equal(t, "https://example.com/", NormalizeURL("https://example.com/"))
}

func TestNormalizeURL_Idempotent(t *testing.T) {
	urls := []string{
		"https://boards.greenhouse.io/acme/jobs/1?utm_source=x&gh_src=y",
		"HTTPS://Example.com/a/b/c/",
		"https://example.com/jobs?b=2&a=1",
	}
	for _, u := range urls {
		once := NormalizeURL(u)
		twice := NormalizeURL(once)
		assert.Equal(t, once, twice, "normalize should be idempotent for %q", u)
	}
}

func TestNormalizeURL_LowercasesHostAndScheme(t *testing.T) {
	got := NormalizeURL("HTTPS://BOARDS.GREENHOUSE.IO/acme/jobs/1")
	assert.Equal(t, "https://boards.greenhouse.io/acme/jobs/1", got)
}
