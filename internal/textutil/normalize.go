package textutil

import (
	"net/url"
	"sort"
	"strings"
)

// trackingParams are query parameters stripped during normalisation
// because they vary per-impression without changing the identity of the
// posting they point at.
var trackingParams = map[string]bool{
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
	"utm_term":     true,
	"utm_content":  true,
	"gh_src":       true,
	"ref":          true,
	"fbclid":       true,
	"gclid":        true,
}

// NormalizeURL canonicalises a job posting URL so duplicate postings from
// different scrapes collapse onto the same store row (spec §4.9, §8
// invariant 7: normalize is idempotent).
func NormalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.TrimSpace(raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	if u.Path != "/" {
		u.Path = strings.TrimRight(u.Path, "/")
	}

	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			if trackingParams[strings.ToLower(key)] {
				q.Del(key)
			}
		}
		keys := make([]string, 0, len(q))
		for k := range q {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		cleaned := url.Values{}
		for _, k := range keys {
			for _, v := range q[k] {
				cleaned.Add(k, v)
			}
		}
		u.RawQuery = cleaned.Encode()
	}

	return u.String()
}
