package scrape

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobfinder/internal/interfaces"
	"github.com/ternarybob/jobfinder/internal/models"
)

// Prober generates candidate slugs for a company and probes every known
// ATS provider in parallel (spec §4.2.2).
type Prober struct {
	fetch  *fetcher
	logger arbor.ILogger
}

func NewProber(fetch *fetcher, logger arbor.ILogger) *Prober {
	return &Prober{fetch: fetch, logger: logger}
}

var _ interfaces.ATSProber = (*Prober)(nil)

// candidateSlugs returns the alphanumeric-join, hyphenated, first-word, and
// camel-split forms of companyName (spec §4.2.2).
func candidateSlugs(companyName string) []string {
	trimmed := strings.TrimSpace(companyName)
	if trimmed == "" {
		return nil
	}

	words := splitWords(trimmed)
	seen := map[string]bool{}
	var out []string
	add := func(s string) {
		s = strings.ToLower(s)
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	add(alphanumericOnly(strings.Join(words, "")))
	add(alphanumericOnly(strings.Join(words, "-")))
	if len(words) > 0 {
		add(alphanumericOnly(words[0]))
	}
	add(alphanumericOnly(strings.Join(camelSplit(trimmed), "-")))

	return out
}

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9-]`)

func alphanumericOnly(s string) string {
	return nonAlphanumeric.ReplaceAllString(s, "")
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '.' || r == ','
	})
}

var camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// camelSplit splits "AcmeCorp" into ["Acme", "Corp"], falling back to the
// word split for names that are already space-separated.
func camelSplit(s string) []string {
	marked := camelBoundary.ReplaceAllString(s, "$1 $2")
	return splitWords(marked)
}

// providerProbe describes how to build a candidate listing URL and adapter
// for one ATS provider, used uniformly by both Probe and ProbeDetailed.
type providerProbe struct {
	sourceType models.SourceType
	newAdapter func(slug string, fetch *fetcher) interfaces.Scraper
}

func (p *Prober) providers() []providerProbe {
	return []providerProbe{
		{models.SourceTypeGreenhouse, func(slug string, f *fetcher) interfaces.Scraper { return NewGreenhouseAdapter(slug, f) }},
		{models.SourceTypeLever, func(slug string, f *fetcher) interfaces.Scraper { return NewLeverAdapter(slug, f) }},
		{models.SourceTypeAshby, func(slug string, f *fetcher) interfaces.Scraper { return NewAshbyAdapter(slug, f) }},
		{models.SourceTypeSmartRecruiters, func(slug string, f *fetcher) interfaces.Scraper {
			return NewSmartRecruitersAdapter(slug, f, nil)
		}},
		{models.SourceTypeRecruitee, func(slug string, f *fetcher) interfaces.Scraper { return NewRecruiteeAdapter(slug, f) }},
		{models.SourceTypeBreezy, func(slug string, f *fetcher) interfaces.Scraper { return NewBreezyAdapter(slug, f) }},
		{models.SourceTypeWorkable, func(slug string, f *fetcher) interfaces.Scraper { return NewWorkableAdapter(slug, f) }},
	}
}

// Probe returns the single best hit, preferring the one whose sample job
// URL domain matches companyURL's domain.
func (p *Prober) Probe(ctx context.Context, companyName, companyURL string) (*interfaces.ProbeHit, error) {
	hits, _, err := p.ProbeDetailed(ctx, companyName, companyURL)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	targetHost := hostOf(companyURL)
	for i := range hits {
		if targetHost != "" && hostOf(hits[i].SampleJobURL) == targetHost {
			return &hits[i], nil
		}
	}
	return &hits[0], nil
}

// ProbeDetailed returns every hit plus a collision flag when more than one
// provider matched slugs resolving to different domains.
func (p *Prober) ProbeDetailed(ctx context.Context, companyName, companyURL string) ([]interfaces.ProbeHit, bool, error) {
	slugs := candidateSlugs(companyName)
	providers := p.providers()

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		hits []interfaces.ProbeHit
	)

	for _, slug := range slugs {
		for _, prov := range providers {
			slug, prov := slug, prov
			wg.Add(1)
			go func() {
				defer wg.Done()
				adapter := prov.newAdapter(slug, p.fetch)
				jobs, err := adapter.Scrape(ctx)
				if err != nil || len(jobs) == 0 {
					return
				}
				mu.Lock()
				hits = append(hits, interfaces.ProbeHit{
					SourceType:   prov.sourceType,
					BoardToken:   slug,
					SampleJobURL: jobs[0].URL,
					JobCount:     len(jobs),
				})
				mu.Unlock()
			}()
		}
	}
	wg.Wait()

	collision := false
	hosts := map[string]bool{}
	for _, h := range hits {
		if host := hostOf(h.SampleJobURL); host != "" {
			hosts[host] = true
		}
	}
	if len(hosts) > 1 {
		collision = true
	}

	return hits, collision, nil
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
