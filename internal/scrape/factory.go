package scrape

import (
	"fmt"

	"github.com/ternarybob/jobfinder/internal/interfaces"
	"github.com/ternarybob/jobfinder/internal/models"
)

// AdapterFactory builds the interfaces.Scraper matching a Source's
// source_type and config (spec §4.2, §4.8 "instantiate the adapter from
// the source's source_type and config"). One fetcher and detail enricher
// are shared across every adapter it builds, mirroring the way the
// per-host rate limiter and HTTP client in the teacher's scraper package
// are built once and handed to each worker.
type AdapterFactory struct {
	fetch    *fetcher
	detail   *DetailEnricher
	renderer interfaces.Renderer
}

func NewAdapterFactory(fetch *fetcher, detail *DetailEnricher, renderer interfaces.Renderer) *AdapterFactory {
	return &AdapterFactory{fetch: fetch, detail: detail, renderer: renderer}
}

var _ interfaces.SourceAdapterFactory = (*AdapterFactory)(nil)

// NewAdapter implements interfaces.SourceAdapterFactory.
func (f *AdapterFactory) NewAdapter(source *models.Source) (interfaces.Scraper, error) {
	if source == nil {
		return nil, fmt.Errorf("source is nil")
	}
	cfg := source.DecodeConfig()

	switch source.SourceType {
	case models.SourceTypeHTML:
		htmlCfg, err := ParseGenericHTMLConfig(cfg)
		if err != nil {
			return nil, &ScrapeConfigError{Source: source.Name, Err: err}
		}
		return NewGenericHTMLAdapter(source.Name, htmlCfg, f.fetch, f.renderer), nil

	case models.SourceTypeAPI:
		apiCfg, err := ParseGenericAPIConfig(cfg)
		if err != nil {
			return nil, &ScrapeConfigError{Source: source.Name, Err: err}
		}
		return NewGenericAPIAdapter(source.Name, apiCfg, f.fetch), nil

	case models.SourceTypeRSS:
		feedURL := stringConfig(cfg, "feed_url", "url")
		if feedURL == "" {
			return nil, &ScrapeConfigError{Source: source.Name, Err: fmt.Errorf("feed_url is required for rss sources")}
		}
		return NewRSSAdapter(source.Name, feedURL, f.fetch, f.detail), nil

	case models.SourceTypeGreenhouse:
		token := stringConfig(cfg, "board_token")
		if token == "" {
			return nil, &ScrapeConfigError{Source: source.Name, Err: fmt.Errorf("board_token is required for greenhouse sources")}
		}
		return NewGreenhouseAdapter(token, f.fetch), nil

	case models.SourceTypeLever:
		slug := stringConfig(cfg, "company_slug", "board_token")
		if slug == "" {
			return nil, &ScrapeConfigError{Source: source.Name, Err: fmt.Errorf("company_slug is required for lever sources")}
		}
		return NewLeverAdapter(slug, f.fetch), nil

	case models.SourceTypeAshby:
		name := stringConfig(cfg, "job_board_name", "board_token", "company_slug")
		if name == "" {
			return nil, &ScrapeConfigError{Source: source.Name, Err: fmt.Errorf("job_board_name is required for ashby sources")}
		}
		return NewAshbyAdapter(name, f.fetch), nil

	case models.SourceTypeSmartRecruiters:
		identifier := stringConfig(cfg, "company_identifier", "company_slug", "board_token")
		if identifier == "" {
			return nil, &ScrapeConfigError{Source: source.Name, Err: fmt.Errorf("company_identifier is required for smartrecruiters sources")}
		}
		return NewSmartRecruitersAdapter(identifier, f.fetch, f.detail), nil

	case models.SourceTypeRecruitee:
		slug := stringConfig(cfg, "company_slug", "board_token")
		if slug == "" {
			return nil, &ScrapeConfigError{Source: source.Name, Err: fmt.Errorf("company_slug is required for recruitee sources")}
		}
		return NewRecruiteeAdapter(slug, f.fetch), nil

	case models.SourceTypeBreezy:
		slug := stringConfig(cfg, "company_slug", "board_token")
		if slug == "" {
			return nil, &ScrapeConfigError{Source: source.Name, Err: fmt.Errorf("company_slug is required for breezy sources")}
		}
		return NewBreezyAdapter(slug, f.fetch), nil

	case models.SourceTypeWorkable:
		slug := stringConfig(cfg, "company_slug", "board_token")
		if slug == "" {
			return nil, &ScrapeConfigError{Source: source.Name, Err: fmt.Errorf("company_slug is required for workable sources")}
		}
		return NewWorkableAdapter(slug, f.fetch), nil

	case models.SourceTypeWorkday:
		tenant := stringConfig(cfg, "tenant")
		host := stringConfig(cfg, "host", "wd_instance")
		siteSlug := stringConfig(cfg, "site_slug", "site_id")
		if tenant == "" || host == "" || siteSlug == "" {
			return nil, &ScrapeConfigError{Source: source.Name, Err: fmt.Errorf("tenant, host and site_slug are required for workday sources")}
		}
		return NewWorkdayAdapter(tenant, host, siteSlug, intConfig(cfg, "page_size"), f.fetch, f.detail), nil

	default:
		return nil, &ScrapeConfigError{Source: source.Name, Err: fmt.Errorf("unknown source type %q", source.SourceType)}
	}
}

// stringConfig returns the first non-empty string value found in cfg under
// any of keys, so adapters can accept the couple of historical aliases
// seen in migrated source records (e.g. "board_token" reused across ATS
// providers that the original scrapers called "company_slug").
func stringConfig(cfg models.JSONMap, keys ...string) string {
	for _, k := range keys {
		if v, ok := cfg[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// intConfig reads an integer-valued config field, tolerating the
// float64 JSON decodes into when a source's config round-tripped through
// encoding/json.
func intConfig(cfg models.JSONMap, key string) int {
	switch v := cfg[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
