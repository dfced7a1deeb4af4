// Package scraperun implements the scrape runner collaborator (component
// H, spec §4.8): for each eligible source it instantiates the matching
// adapter, runs it, filters and dedupes the results, and hands surviving
// postings to the queue as JOB items, all while maintaining the per-source
// strike system that disables persistently broken sources.
package scraperun

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobfinder/internal/common"
	"github.com/ternarybob/jobfinder/internal/filter"
	"github.com/ternarybob/jobfinder/internal/interfaces"
	"github.com/ternarybob/jobfinder/internal/models"
	"github.com/ternarybob/jobfinder/internal/queue"
	"github.com/ternarybob/jobfinder/internal/scrape"
	"github.com/ternarybob/jobfinder/internal/textutil"
)

// Runner implements interfaces.ScrapeRunner.
type Runner struct {
	sources  interfaces.SourceStorage
	queue    interfaces.QueueStorage
	adapters interfaces.SourceAdapterFactory
	profile  interfaces.UserProfile
	recovery common.RecoveryConfig
	logger   arbor.ILogger
}

func NewRunner(
	sources interfaces.SourceStorage,
	queueStore interfaces.QueueStorage,
	adapters interfaces.SourceAdapterFactory,
	profile interfaces.UserProfile,
	recovery common.RecoveryConfig,
	logger arbor.ILogger,
) *Runner {
	return &Runner{sources: sources, queue: queueStore, adapters: adapters, profile: profile, recovery: recovery, logger: logger}
}

var _ interfaces.ScrapeRunner = (*Runner)(nil)

// Run selects eligible sources per cfg and scrapes each, stopping early
// once TargetMatches is reached (spec §4.8).
func (r *Runner) Run(ctx context.Context, cfg interfaces.ScrapeRunConfig) (interfaces.ScrapeRunResult, error) {
	sources, err := r.sources.ListEligible(ctx, cfg.SourceIDs, cfg.MaxSources)
	if err != nil {
		return interfaces.ScrapeRunResult{}, err
	}

	result := interfaces.ScrapeRunResult{}
	for _, source := range sources {
		outcome := r.runOne(ctx, source)
		result.Outcomes = append(result.Outcomes, outcome)
		result.SourcesAttempted++
		result.JobsQueued += outcome.JobsQueued

		if cfg.TargetMatches != nil && result.JobsQueued >= *cfg.TargetMatches {
			r.logger.Info().Int("jobs_queued", result.JobsQueued).Msg("scrape run reached target_matches, stopping early")
			break
		}
	}
	return result, nil
}

// RunSource scrapes exactly one source by id (spec §4.7 SCRAPE_SOURCE).
func (r *Runner) RunSource(ctx context.Context, sourceID string) (interfaces.SourceRunOutcome, error) {
	source, err := r.sources.Get(ctx, sourceID)
	if err != nil {
		return interfaces.SourceRunOutcome{SourceID: sourceID}, err
	}
	return r.runOne(ctx, source), nil
}

func (r *Runner) runOne(ctx context.Context, source *models.Source) interfaces.SourceRunOutcome {
	outcome := interfaces.SourceRunOutcome{SourceID: source.ID}

	adapter, err := r.adapters.NewAdapter(source)
	if err != nil {
		outcome.Err = err
		r.strikeConfigOrNotFound(ctx, source)
		return outcome
	}

	jobs, err := adapter.Scrape(ctx)
	if err != nil {
		r.handleScrapeError(ctx, source, err)
		outcome.Err = err
		return outcome
	}
	outcome.JobsFound = len(jobs)

	queued := r.ingest(ctx, source, jobs)
	outcome.JobsQueued = queued

	if queued == 0 && len(jobs) == 0 {
		r.handleZeroJobs(ctx, source)
	} else {
		_ = r.sources.RecordScrapeSuccess(ctx, source.ID, time.Now().UTC())
		_ = r.sources.ResetFailures(ctx, source.ID)
	}
	return outcome
}

// ingest applies a cheap title pre-filter, dedupes by normalised URL, and
// enqueues surviving jobs as JOB items, ignoring the expected duplicate-URL
// rejection (spec §4.8 step 3).
func (r *Runner) ingest(ctx context.Context, source *models.Source, jobs []models.ScrapedJob) int {
	seen := map[string]bool{}
	queued := 0
	trackingID := common.NewTrackingID()

	for _, job := range jobs {
		normalized := textutil.NormalizeURL(job.URL)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true

		result := filter.Prefilter(r.profile, job, models.ExtractionRecord{})
		if !result.Passed {
			continue
		}

		item := &models.QueueItem{
			ID:          common.NewQueueItemID(),
			Type:        models.ItemTypeJob,
			URL:         normalized,
			CompanyName: job.Company,
			Source:      source.Name,
			SourceID:    &source.ID,
			TrackingID:  trackingID,
			SubTask:     models.JobStageScrape,
			ScrapedData: job.ToJSONMap(),
		}
		if source.CompanyID != nil {
			item.CompanyID = source.CompanyID
		}

		if _, err := r.queue.Add(ctx, item); err != nil {
			if queue.IsDuplicateQueueItem(err) {
				continue
			}
			r.logger.Warn().Err(err).Str("url", normalized).Msg("failed to enqueue scraped job")
			continue
		}
		queued++
	}
	return queued
}

// handleScrapeError applies the per-source strike table (spec §4.8), a
// system distinct from the per-job strikes in internal/filter.
func (r *Runner) handleScrapeError(ctx context.Context, source *models.Source, err error) {
	switch e := err.(type) {
	case *scrape.ScrapeTransientError:
		if e.RetryAfter > 0 {
			// Neither strike nor record a success: the source will be retried once the
			// backoff window passes (spec §4.8 "Transient with Retry-After").
			return
		}
		r.strikeConfigOrNotFound(ctx, source)
	case *scrape.ScrapeConfigError, *scrape.ScrapeNotFoundError:
		r.strikeConfigOrNotFound(ctx, source)
	case *scrape.ScrapeAuthError:
		r.disable(ctx, source, models.DisableTagAuthRequired, e.Error())
	case *scrape.ScrapeProtectedApiError:
		r.disable(ctx, source, models.DisableTagProtectedAPI, e.Error())
	case *scrape.ScrapeBotProtectionError:
		r.disable(ctx, source, models.DisableTagAntiBot, e.Error())
	default:
		r.strikeConfigOrNotFound(ctx, source)
	}
}

func (r *Runner) strikeConfigOrNotFound(ctx context.Context, source *models.Source) {
	if err := r.sources.RecordScrapeFailure(ctx, source.ID); err != nil {
		r.logger.Warn().Err(err).Str("source_id", source.ID).Msg("failed to record scrape failure")
		return
	}
	threshold := r.recovery.FailureStrikeThreshold
	if threshold <= 0 {
		threshold = 3
	}
	if source.ConsecutiveFailures+1 >= threshold {
		r.disable(ctx, source, "", "disabled after repeated scrape failures")
	}
}

func (r *Runner) disable(ctx context.Context, source *models.Source, tag, notes string) {
	var tags []string
	if tag != "" {
		tags = []string{tag}
	}
	if err := r.sources.Disable(ctx, source.ID, notes, tags); err != nil {
		r.logger.Error().Err(err).Str("source_id", source.ID).Msg("failed to disable source")
	}
}

// handleZeroJobs tracks consecutive zero-job runs for JS-rendered HTML
// sources and spawns a single SOURCE_RECOVER item once the threshold is
// reached (spec §4.8).
func (r *Runner) handleZeroJobs(ctx context.Context, source *models.Source) {
	if !source.RequiresJS() {
		_ = r.sources.RecordScrapeSuccess(ctx, source.ID, time.Now().UTC())
		return
	}

	threshold := r.recovery.ZeroJobThreshold
	if threshold <= 0 {
		return
	}

	next := source.ConsecutiveZeroJobs + 1
	if next == threshold {
		recoverItem := &models.QueueItem{
			ID:         common.NewQueueItemID(),
			Type:       models.ItemTypeSourceRecover,
			SourceID:   &source.ID,
			TrackingID: common.NewTrackingID(),
		}
		if _, err := r.queue.Add(ctx, recoverItem); err != nil && !queue.IsDuplicateQueueItem(err) {
			r.logger.Warn().Err(err).Str("source_id", source.ID).Msg("failed to spawn source_recover item")
		}
	}

	now := time.Now().UTC()
	source.ConsecutiveZeroJobs = next
	source.ConsecutiveFailures = 0
	source.LastScrapedAt = &now
	if err := r.sources.Update(ctx, source); err != nil {
		r.logger.Warn().Err(err).Str("source_id", source.ID).Msg("failed to persist consecutive_zero_jobs")
	}
}
