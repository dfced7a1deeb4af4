package interfaces

import (
	"context"

	"github.com/ternarybob/jobfinder/internal/models"
)

// Scraper produces the job records found at a source (spec §4.2). Results
// are returned as a slice rather than a lazy sequence; callers that need to
// bound memory on very large feeds should page at the adapter level
// instead (pagination is already part of each adapter's own config).
type Scraper interface {
	Scrape(ctx context.Context) ([]models.ScrapedJob, error)
}

// RenderStatus is the outcome of a render request (spec §4.2.1).
type RenderStatus string

const (
	RenderOK      RenderStatus = "ok"
	RenderPartial RenderStatus = "partial"
	RenderTimeout RenderStatus = "timeout"
	RenderError   RenderStatus = "error"
)

// RenderRequest asks the renderer collaborator to load a page.
type RenderRequest struct {
	URL             string
	WaitForSelector string
	TimeoutMS       int
}

// RenderResult is what the renderer collaborator returns. On a selector
// timeout where the page otherwise loaded, HTML still carries the partial
// content so bot/auth detection heuristics can run on it (spec §4.2.1).
type RenderResult struct {
	FinalURL string
	Status   RenderStatus
	HTML     string
	Errors   []string
}

// Renderer is the shared, bounded-concurrency rendering collaborator
// (spec §4.2.1).
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) (RenderResult, error)
}

// ProbeHit is one ATS provider match from the prober (spec §4.2.2).
type ProbeHit struct {
	SourceType   models.SourceType
	BoardToken   string
	SampleJobURL string
	JobCount     int
}

// ContentSampler fetches a bounded content sample from a URL for
// SOURCE_RECOVER's repair proposal step: rendered HTML for html sources,
// a raw static fetch for everything else, falling back to a static fetch
// if rendering fails (spec §4.7 SOURCE_RECOVER step 1).
type ContentSampler interface {
	Sample(ctx context.Context, rawURL string, sourceType models.SourceType) (sample string, status RenderStatus, err error)
}

// ATSProber generates candidate slugs for a company and probes every known
// ATS provider (spec §4.2.2).
type ATSProber interface {
	// Probe returns the single best hit, preferring the one whose sample
	// job URL domain matches companyURL's domain.
	Probe(ctx context.Context, companyName, companyURL string) (*ProbeHit, error)

	// ProbeDetailed returns every hit plus a Collision flag when more than
	// one provider matched different domains for the same slug.
	ProbeDetailed(ctx context.Context, companyName, companyURL string) (hits []ProbeHit, collision bool, err error)
}

// TargetedScraper fetches a single job posting's detail page, using a
// source's field configuration when one is bound and falling back to
// generic JSON-LD/body extraction otherwise (spec §4.5 stage 1).
type TargetedScraper interface {
	ScrapeURL(ctx context.Context, url string, source *models.Source) (models.ScrapedJob, error)
}

// SourceAdapterFactory instantiates the Scraper matching a Source's
// source_type and config (spec §4.2, §4.8).
type SourceAdapterFactory interface {
	NewAdapter(source *models.Source) (Scraper, error)
}
