// Package pipeline dispatches queue items to the stage handler for their
// kind and runs the retry/fail bookkeeping shared by every kind (spec §4.4,
// §9 "collapse to composition with a ProcessorContext value").
package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/ternarybob/jobfinder/internal/interfaces"
	"github.com/ternarybob/jobfinder/internal/models"
)

// Dispatcher routes one queue item at a time to its stage handler.
type Dispatcher struct {
	ctx interfaces.ProcessorContext

	job     *JobProcessor
	company *CompanyProcessor
	source  *SourceProcessor
}

func NewDispatcher(pc interfaces.ProcessorContext) *Dispatcher {
	return &Dispatcher{
		ctx:     pc,
		job:     NewJobProcessor(pc),
		company: NewCompanyProcessor(pc),
		source:  NewSourceProcessor(pc),
	}
}

// Process runs the full pre-processing -> dispatch -> failure-handling
// sequence for one item (spec §4.4, grounded on the source's
// process_item/_should_skip_by_stop_list/_handle_failure).
func (d *Dispatcher) Process(ctx context.Context, item *models.QueueItem) {
	if item.ID == "" {
		d.ctx.Logger.Error().Msg("cannot process queue item without id")
		return
	}

	if item.Type == models.ItemTypeScrape {
		d.ctx.Logger.Info().Str("item_id", item.ID).Msg("processing queue item: SCRAPE request")
	} else {
		d.ctx.Logger.Info().Str("item_id", item.ID).Str("type", string(item.Type)).Str("url", truncate(item.URL, 50)).Msg("processing queue item")
	}

	if err := d.ctx.Queue.UpdateStatus(ctx, item.ID, models.StatusProcessing, "", ""); err != nil {
		d.ctx.Logger.Error().Err(err).Str("item_id", item.ID).Msg("failed to mark item processing")
		return
	}

	if item.Type != models.ItemTypeScrape && d.shouldSkipByStopList(item) {
		d.updateStatus(ctx, item.ID, models.StatusSkipped, "Excluded by stop list")
		return
	}

	if item.Type == models.ItemTypeJob {
		exists, err := d.ctx.Published.JobExists(ctx, item.URL)
		if err != nil {
			d.handleFailure(ctx, item, fmt.Errorf("checking job existence: %w", err), "")
			return
		}
		if exists {
			d.updateStatus(ctx, item.ID, models.StatusSkipped, "Job already exists in database")
			return
		}
	}

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		err = d.dispatch(ctx, item)
	}()

	if err != nil {
		d.handleFailure(ctx, item, err, string(debug.Stack()))
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, item *models.QueueItem) error {
	switch item.Type {
	case models.ItemTypeCompany:
		if item.CompanySubTask == "" {
			return fmt.Errorf("company items must have a company_sub_task set")
		}
		return d.company.Process(ctx, item)
	case models.ItemTypeJob:
		return d.job.Process(ctx, item)
	case models.ItemTypeScrape:
		return d.source.ProcessScrapeRequest(ctx, item)
	case models.ItemTypeSourceDiscovery:
		return d.source.ProcessSourceDiscovery(ctx, item)
	case models.ItemTypeScrapeSource:
		return d.source.ProcessScrapeSource(ctx, item)
	case models.ItemTypeSourceRecover:
		return d.source.ProcessSourceRecover(ctx, item)
	default:
		return fmt.Errorf("unknown item type: %s", item.Type)
	}
}

// shouldSkipByStopList reports whether item matches a configured stop-list
// entry (spec §6, grounded on _should_skip_by_stop_list).
func (d *Dispatcher) shouldSkipByStopList(item *models.QueueItem) bool {
	stop := d.ctx.StopList

	if item.CompanyName != "" {
		for _, excluded := range stop.ExcludedCompanies {
			if containsFold(item.CompanyName, excluded) {
				d.ctx.Logger.Info().Str("company", item.CompanyName).Msg("skipping due to excluded company")
				return true
			}
		}
	}

	for _, domain := range stop.ExcludedDomains {
		if containsFold(item.URL, domain) {
			d.ctx.Logger.Info().Str("domain", domain).Msg("skipping due to excluded domain")
			return true
		}
	}

	for _, keyword := range stop.ExcludedKeywords {
		if containsFold(item.URL, keyword) {
			d.ctx.Logger.Info().Str("keyword", keyword).Msg("skipping due to excluded keyword in url")
			return true
		}
	}

	return false
}

// handleFailure increments the item's retry count and either resets it to
// PENDING for another attempt or marks it FAILED with troubleshooting hints
// (spec §4.4, grounded on _handle_failure's exact message format).
func (d *Dispatcher) handleFailure(ctx context.Context, item *models.QueueItem, cause error, stackTrace string) {
	if err := d.ctx.Queue.IncrementRetry(ctx, item.ID); err != nil {
		d.ctx.Logger.Error().Err(err).Str("item_id", item.ID).Msg("failed to increment retry count")
	}

	maxRetries := item.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	attempt := item.RetryCount + 1

	errorContext := fmt.Sprintf(
		"Queue Item: %s\nType: %s\nURL: %s\nCompany: %s\nRetry Count: %d/%d\n\n",
		item.ID, item.Type, item.URL, item.CompanyName, attempt, maxRetries,
	)

	var stackSection string
	if stackTrace != "" {
		stackSection = "Stack Trace:\n" + stackTrace
	}

	if attempt < maxRetries {
		message := fmt.Sprintf("Processing failed. Will retry (%d/%d)", attempt, maxRetries)
		details := fmt.Sprintf("%sError: %s\n\nThis item will be automatically retried.\n\n%s", errorContext, cause, stackSection)
		d.updateStatusDetailed(ctx, item.ID, models.StatusPending, message, details)
		d.ctx.Logger.Warn().Str("item_id", item.ID).Int("attempt", attempt).Msg("item will be retried")
		return
	}

	message := fmt.Sprintf("Failed after %d retries: %s", maxRetries, cause)
	details := fmt.Sprintf(
		"%sError: %s\n\nMax retries (%d) exceeded. Manual intervention may be required.\n\n"+
			"Troubleshooting:\n"+
			"1. Check if the URL is still valid\n"+
			"2. Review error details below for specific issues\n"+
			"3. Verify network connectivity and API credentials\n"+
			"4. Check if the source website has changed structure\n\n%s",
		errorContext, cause, maxRetries, stackSection,
	)
	d.updateStatusDetailed(ctx, item.ID, models.StatusFailed, message, details)
	d.ctx.Logger.Error().Str("item_id", item.ID).Int("max_retries", maxRetries).Msg("item failed after max retries")
}

func (d *Dispatcher) updateStatus(ctx context.Context, id string, status models.QueueItemStatus, message string) {
	if err := d.ctx.Queue.UpdateStatus(ctx, id, status, message, ""); err != nil {
		d.ctx.Logger.Error().Err(err).Str("item_id", id).Msg("failed to update item status")
	}
}

func (d *Dispatcher) updateStatusDetailed(ctx context.Context, id string, status models.QueueItemStatus, message, details string) {
	if err := d.ctx.Queue.UpdateStatus(ctx, id, status, message, details); err != nil {
		d.ctx.Logger.Error().Err(err).Str("item_id", id).Msg("failed to update item status")
	}
}

func containsFold(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
