package pipeline

import (
	"context"
	"fmt"

	"github.com/ternarybob/jobfinder/internal/interfaces"
	"github.com/ternarybob/jobfinder/internal/models"
	"github.com/ternarybob/jobfinder/internal/scrape"
)

// SourceProcessor handles the three source-management item kinds plus the
// plain SCRAPE request (spec §4.7, §4.8).
type SourceProcessor struct {
	ctx interfaces.ProcessorContext
}

func NewSourceProcessor(pc interfaces.ProcessorContext) *SourceProcessor {
	return &SourceProcessor{ctx: pc}
}

// ProcessScrapeRequest runs the scrape runner across eligible sources,
// bounded by the item's own scrape_config or the configured default
// (spec §4.4 "SCRAPE: run the scrape runner").
func (p *SourceProcessor) ProcessScrapeRequest(ctx context.Context, item *models.QueueItem) error {
	cfg := scrapeRunConfigFromItem(item)
	result, err := p.ctx.ScrapeRunner.Run(ctx, cfg)
	if err != nil {
		return fmt.Errorf("running scrape: %w", err)
	}
	message := fmt.Sprintf("Scraped %d source(s), queued %d job(s)", result.SourcesAttempted, result.JobsQueued)
	return p.ctx.Queue.UpdateStatus(ctx, item.ID, models.StatusSuccess, message, "")
}

func scrapeRunConfigFromItem(item *models.QueueItem) interfaces.ScrapeRunConfig {
	cfg := interfaces.ScrapeRunConfig{}
	if item.ScrapeConfig == nil {
		return cfg
	}
	if v, ok := item.ScrapeConfig["target_matches"]; ok && v != nil {
		n := intFromAny(v)
		cfg.TargetMatches = &n
	}
	cfg.MaxSources = intFromAny(item.ScrapeConfig["max_sources"])
	cfg.SourceIDs = stringSliceFromAny(item.ScrapeConfig["source_ids"])
	return cfg
}

// ProcessScrapeSource invokes the scrape runner for exactly one source
// (spec §4.7 SCRAPE_SOURCE).
func (p *SourceProcessor) ProcessScrapeSource(ctx context.Context, item *models.QueueItem) error {
	if item.SourceID == nil || *item.SourceID == "" {
		return fmt.Errorf("scrape_source item requires a source_id")
	}
	outcome, err := p.ctx.ScrapeRunner.RunSource(ctx, *item.SourceID)
	if err != nil {
		return fmt.Errorf("running source %s: %w", *item.SourceID, err)
	}
	if outcome.Err != nil {
		return outcome.Err
	}
	message := fmt.Sprintf("Found %d job(s), queued %d", outcome.JobsFound, outcome.JobsQueued)
	return p.ctx.Queue.UpdateStatus(ctx, item.ID, models.StatusSuccess, message, "")
}

// ProcessSourceDiscovery probes a candidate URL for a known ATS vendor and,
// failing that, asks the AI classifier; materialises a Source row on a
// usable result or records why it couldn't (spec §4.7 SOURCE_DISCOVERY).
func (p *SourceProcessor) ProcessSourceDiscovery(ctx context.Context, item *models.QueueItem) error {
	website := stringFromAny(item.SourceDiscoveryConfig["website"])
	if website == "" {
		website = item.URL
	}

	hit, err := p.ctx.Prober.Probe(ctx, item.CompanyName, website)
	if err != nil {
		p.ctx.Logger.Warn().Err(err).Str("company", item.CompanyName).Msg("ats probe failed")
	}
	if hit != nil {
		return p.materialiseFromProbe(ctx, item, *hit)
	}

	if website == "" || p.ctx.Classifier == nil || p.ctx.Sampler == nil {
		return p.ctx.Queue.UpdateStatus(ctx, item.ID, models.StatusFailed, "no known ats vendor matched and no URL to classify", "")
	}

	sample, _, err := p.ctx.Sampler.Sample(ctx, website, models.SourceTypeHTML)
	if err != nil {
		return p.ctx.Queue.UpdateStatus(ctx, item.ID, models.StatusFailed, fmt.Sprintf("could not fetch sample for classification: %v", err), "")
	}

	classification, err := p.ctx.Classifier.Classify(ctx, item.CompanyName, website, sample)
	if err != nil {
		return fmt.Errorf("classifying source candidate: %w", err)
	}

	switch classification.Kind {
	case interfaces.SourceKindCompanySpecific, interfaces.SourceKindAggregator:
		if classification.SourceType == "" || classification.Config == nil {
			return p.ctx.Queue.UpdateStatus(ctx, item.ID, models.StatusFailed,
				fmt.Sprintf("classified as %s but no usable config proposed: %s", classification.Kind, classification.Notes), "")
		}
		source := &models.Source{
			Name:       item.CompanyName,
			SourceType: classification.SourceType,
			Config:     classification.Config,
			Status:     models.SourceStatusActive,
		}
		if item.CompanyID != nil {
			source.CompanyID = item.CompanyID
		}
		if _, err := p.ctx.Sources.Create(ctx, source); err != nil {
			return fmt.Errorf("creating discovered source: %w", err)
		}
		return p.ctx.Queue.UpdateStatus(ctx, item.ID, models.StatusSuccess, fmt.Sprintf("source discovered: %s", classification.Kind), "")
	default:
		return p.ctx.Queue.UpdateStatus(ctx, item.ID, models.StatusFailed,
			fmt.Sprintf("not usable as a source (%s)", classification.Kind), classification.Notes)
	}
}

func (p *SourceProcessor) materialiseFromProbe(ctx context.Context, item *models.QueueItem, hit interfaces.ProbeHit) error {
	source := &models.Source{
		Name:       item.CompanyName,
		SourceType: hit.SourceType,
		Config:     models.JSONMap{"board_token": hit.BoardToken, "company_slug": hit.BoardToken, "job_board_name": hit.BoardToken},
		Status:     models.SourceStatusActive,
	}
	if item.CompanyID != nil {
		source.CompanyID = item.CompanyID
	}
	if _, err := p.ctx.Sources.Create(ctx, source); err != nil {
		return fmt.Errorf("creating discovered source: %w", err)
	}
	return p.ctx.Queue.UpdateStatus(ctx, item.ID, models.StatusSuccess,
		fmt.Sprintf("matched ats vendor %s (%d jobs)", hit.SourceType, hit.JobCount), "")
}

// ProcessSourceRecover attempts to repair a disabled or zero-job source
// (spec §4.7 SOURCE_RECOVER).
func (p *SourceProcessor) ProcessSourceRecover(ctx context.Context, item *models.QueueItem) error {
	if item.SourceID == nil || *item.SourceID == "" {
		return fmt.Errorf("source_recover item requires a source_id")
	}
	source, err := p.ctx.Sources.Get(ctx, *item.SourceID)
	if err != nil {
		return fmt.Errorf("loading source: %w", err)
	}

	sampleURL := source.Name
	if v, ok := source.Config["url"]; ok {
		if s, ok := v.(string); ok && s != "" {
			sampleURL = s
		}
	}

	sample, _, err := p.ctx.Sampler.Sample(ctx, sampleURL, source.SourceType)
	if err != nil {
		return p.ctx.Queue.UpdateStatus(ctx, item.ID, models.StatusFailed, fmt.Sprintf("could not fetch content sample: %v", err), "")
	}

	if marker := scrape.DetectBotProtection(sample); marker != "" {
		return p.ctx.Queue.UpdateStatus(ctx, item.ID, models.StatusFailed, fmt.Sprintf("bot protection detected: %s", marker), "")
	}

	proposal, err := p.ctx.SourceRepairer.ProposeConfig(ctx, sample, source.Config, source.DisabledNotes)
	if err != nil {
		return fmt.Errorf("proposing source repair: %w", err)
	}
	if proposal.SourceType == "" || proposal.Config == nil {
		return p.ctx.Queue.UpdateStatus(ctx, item.ID, models.StatusFailed, "repair proposal was empty", "")
	}

	candidate := &models.Source{ID: source.ID, Name: source.Name, SourceType: proposal.SourceType, Config: proposal.Config}
	adapter, err := p.ctx.SourceAdapters.NewAdapter(candidate)
	if err != nil {
		return p.ctx.Queue.UpdateStatus(ctx, item.ID, models.StatusFailed, fmt.Sprintf("proposed config is invalid: %v", err), "")
	}

	jobs, err := adapter.Scrape(ctx)
	if err != nil || len(jobs) == 0 {
		hint := "probe returned zero jobs"
		if err != nil {
			hint = err.Error()
		}
		return p.ctx.Queue.UpdateStatus(ctx, item.ID, models.StatusFailed, fmt.Sprintf("repair probe failed: %s", hint), "")
	}

	source.SourceType = proposal.SourceType
	source.Config = proposal.Config
	source.ConsecutiveFailures = 0
	source.ConsecutiveZeroJobs = 0
	source.Status = models.SourceStatusActive
	source.DisabledNotes = ""
	source.DisabledTags = nil
	if err := p.ctx.Sources.Update(ctx, source); err != nil {
		return fmt.Errorf("updating repaired source: %w", err)
	}

	return p.ctx.Queue.UpdateStatus(ctx, item.ID, models.StatusSuccess, fmt.Sprintf("source repaired, probe found %d job(s)", len(jobs)), "")
}
