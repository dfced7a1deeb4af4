package scrape

import (
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobfinder/internal/common"
	"github.com/ternarybob/jobfinder/internal/interfaces"
)

// Stack bundles every scrape-side collaborator the worker needs, wired from
// a single ScrapeConfig so callers outside this package never have to name
// the unexported fetcher type directly.
type Stack struct {
	Factory  *AdapterFactory
	Targeted interfaces.TargetedScraper
	Prober   *Prober
	Sampler  interfaces.ContentSampler
	Renderer interfaces.Renderer
}

// NewStack builds the fetcher, renderer, detail enricher, adapter factory,
// ATS prober, targeted scraper and content sampler from the worker's scrape
// config (spec §4.2).
func NewStack(cfg common.ScrapeConfig, logger arbor.ILogger) *Stack {
	timeout := time.Duration(cfg.HTTPTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	fetch := newFetcher(timeout, cfg.RequestsPerSecond, logger)

	maxPages := cfg.RendererMaxPages
	if maxPages <= 0 {
		maxPages = 2
	}
	renderer := NewChromeRenderer(maxPages, logger)

	detail := NewDetailEnricher(fetch, logger)
	factory := NewAdapterFactory(fetch, detail, renderer)
	prober := NewProber(fetch, logger)
	targeted := NewTargetedScraper(fetch, detail)
	sampler := NewContentSampler(fetch, renderer)

	return &Stack{
		Factory:  factory,
		Targeted: targeted,
		Prober:   prober,
		Sampler:  sampler,
		Renderer: renderer,
	}
}
