package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ternarybob/jobfinder/internal/common"
	"github.com/ternarybob/jobfinder/internal/filter"
	"github.com/ternarybob/jobfinder/internal/interfaces"
	"github.com/ternarybob/jobfinder/internal/models"
)

// JobProcessor runs the six-stage JOB pipeline (spec §4.5): scrape,
// prefilter, extract, score, analyse, save. Each stage records the next
// stage in pipeline_state.pipeline_stage and re-queues the item rather than
// looping in-process, so a crash mid-pipeline resumes at the last
// completed stage.
type JobProcessor struct {
	ctx interfaces.ProcessorContext
}

func NewJobProcessor(pc interfaces.ProcessorContext) *JobProcessor {
	return &JobProcessor{ctx: pc}
}

// Process runs the stage named by pipeline_state.pipeline_stage, falling
// back to item.SubTask and then to the first stage for items that have none.
func (p *JobProcessor) Process(ctx context.Context, item *models.QueueItem) error {
	// pipeline_state.pipeline_stage is authoritative once set; the
	// sub_task column only tells us the starting stage of a freshly
	// spawned item (spec §4.4 "dispatched by current sub-stage, stored in
	// pipeline_state.pipeline_stage").
	stage := item.PipelineState.PipelineStage
	if stage == "" {
		stage = item.SubTask
	}
	if stage == "" {
		stage = models.JobStageScrape
	}

	switch stage {
	case models.JobStageScrape:
		return p.scrape(ctx, item)
	case models.JobStagePrefilter:
		return p.prefilter(ctx, item)
	case models.JobStageExtract:
		return p.extract(ctx, item)
	case models.JobStageScore:
		return p.score(ctx, item)
	case models.JobStageAnalyse:
		return p.analyse(ctx, item)
	case models.JobStageSave:
		return p.save(ctx, item)
	default:
		return fmt.Errorf("unknown job sub-task: %s", stage)
	}
}

// scrape fetches the posting's detail page, using the bound source's field
// configuration when present, and advances to prefilter (spec §4.5 stage
// 1). The job payload may arrive pre-populated on items submitted with
// scraped_data already attached (e.g. from the scrape runner); in that case
// the fetch is skipped and the payload is unwrapped directly.
func (p *JobProcessor) scrape(ctx context.Context, item *models.QueueItem) error {
	var job models.ScrapedJob

	if item.ScrapedData != nil {
		job = unwrapScrapedJob(item.ScrapedData)
	} else {
		var source *models.Source
		if item.SourceID != nil && *item.SourceID != "" {
			s, err := p.ctx.Sources.Get(ctx, *item.SourceID)
			if err != nil {
				return fmt.Errorf("loading source for targeted scrape: %w", err)
			}
			source = s
		}
		scraped, err := p.ctx.Targeted.ScrapeURL(ctx, item.URL, source)
		if err != nil {
			return fmt.Errorf("scraping job detail: %w", err)
		}
		job = scraped
	}
	if job.URL == "" {
		job.URL = item.URL
	}
	if job.Company == "" {
		job.Company = item.CompanyName
	}

	state := item.PipelineState
	state.JobData = job.ToJSONMap()
	return p.ctx.Queue.RequeueWithState(ctx, item.ID, withStage(state, models.JobStagePrefilter))
}

// unwrapScrapedJob resolves the double-nested scraped_data.job_data.job_data
// shape a few legacy submitters produce, descending until a dict carrying
// "title" is found or no further job_data level exists.
func unwrapScrapedJob(raw models.JSONMap) models.ScrapedJob {
	data := raw
	if nested, ok := raw["job_data"].(models.JSONMap); ok {
		data = nested
	} else if nested, ok := asJSONMap(raw["job_data"]); ok {
		data = nested
	}
	for {
		if _, hasTitle := data["title"]; hasTitle {
			break
		}
		inner, ok := asJSONMap(data["job_data"])
		if !ok {
			break
		}
		data = inner
	}
	return models.ScrapedJobFromJSONMap(data)
}

func asJSONMap(v interface{}) (models.JSONMap, bool) {
	switch m := v.(type) {
	case models.JSONMap:
		return m, true
	case map[string]interface{}:
		return models.JSONMap(m), true
	default:
		return nil, false
	}
}

// prefilter runs Stage A against the raw scraped fields, before extraction
// has populated anything beyond title/location/posted-date (spec §4.3
// Stage A, §4.5 stage 2). An item submitted with prefilter_bypass set
// skips straight to extraction.
func (p *JobProcessor) prefilter(ctx context.Context, item *models.QueueItem) error {
	state := item.PipelineState
	if state.PrefilterBypass {
		return p.ctx.Queue.RequeueWithState(ctx, item.ID, withStage(state, models.JobStageExtract))
	}

	job := models.ScrapedJobFromJSONMap(state.JobData)
	result := filter.Prefilter(p.ctx.Profile, job, models.ExtractionRecord{})
	if !result.Passed {
		return p.reject(ctx, item, result)
	}

	state.FilterResult = filterResultToJSONMap(result)
	return p.ctx.Queue.RequeueWithState(ctx, item.ID, withStage(state, models.JobStageExtract))
}

// extract calls the LLM extraction adapter, repairing missing fields up to
// the configured attempt limit when confidence falls below threshold
// (spec §4.5 stage 3, §8 invariant 8).
func (p *JobProcessor) extract(ctx context.Context, item *models.QueueItem) error {
	state := item.PipelineState
	job := models.ScrapedJobFromJSONMap(state.JobData)

	record, err := p.ctx.Extractor.Extract(ctx, job)
	if err != nil {
		return fmt.Errorf("extracting job fields: %w", err)
	}

	attempts := 0
	for record.Confidence < p.ctx.AI.ExtractionConfidenceMin &&
		len(record.MissingFields) > 0 &&
		attempts < p.ctx.AI.MaxRepairAttempts {
		repaired, err := p.ctx.Extractor.Repair(ctx, job, record, record.MissingFields)
		if err != nil {
			return fmt.Errorf("repairing extraction (attempt %d): %w", attempts+1, err)
		}
		record = repaired
		attempts++
	}

	state.Extraction = extractionToJSONMap(record)
	return p.ctx.Queue.RequeueWithState(ctx, item.ID, withStage(state, models.JobStageScore))
}

// score runs Stage B strikes and the deterministic [0,100] score, filtering
// the item out once its strikes reach the configured threshold, or when a
// positive MinMatchScore is set and the score falls below it (spec §4.3
// Stage B, §4.5 stage 4).
func (p *JobProcessor) score(ctx context.Context, item *models.QueueItem) error {
	state := item.PipelineState
	job := models.ScrapedJobFromJSONMap(state.JobData)
	extraction := extractionFromJSONMap(state.Extraction)

	result := models.FilterResult{Passed: true}
	if state.FilterResult != nil {
		result = filterResultFromJSONMap(state.FilterResult)
	}
	filter.ApplyStrikes(*p.ctx.Filters, p.ctx.Profile, job, extraction, &result)
	if !result.Passed {
		return p.reject(ctx, item, result)
	}

	var company models.Company
	if item.CompanyID != nil && *item.CompanyID != "" {
		if c, err := p.ctx.Companies.Get(ctx, *item.CompanyID); err == nil && c != nil {
			company = *c
		}
	}
	score := filter.Score(*p.ctx.Filters, p.ctx.Profile, job, extraction, company)

	if p.ctx.Filters.MinMatchScore > 0 && score < p.ctx.Filters.MinMatchScore {
		result.AddHardReject("min_match_score", "score", fmt.Sprintf("score %.1f below configured minimum %.1f", score, p.ctx.Filters.MinMatchScore))
		return p.reject(ctx, item, result)
	}

	state.FilterResult = filterResultToJSONMap(result)
	state.Score = &score
	return p.ctx.Queue.RequeueWithState(ctx, item.ID, withStage(state, models.JobStageAnalyse))
}

// analyse ensures the job's company has enough data before calling the
// match analyser, spawning or waiting on a COMPANY item when it doesn't
// (spec §4.5 stage 5, §4.6, §9 bounded company wait).
func (p *JobProcessor) analyse(ctx context.Context, item *models.QueueItem) error {
	state := item.PipelineState
	job := models.ScrapedJobFromJSONMap(state.JobData)
	extraction := extractionFromJSONMap(state.Extraction)

	company, err := p.resolveCompany(ctx, item, job)
	if err != nil {
		return fmt.Errorf("resolving company: %w", err)
	}

	goodDataMinLen := p.ctx.Filters.CompanyGoodDataMinLen
	waitMax := p.ctx.Recovery.CompanyWaitMax
	if (company == nil || !company.HasGoodData(goodDataMinLen)) && !(waitMax > 0 && state.CompanyWaitCount >= waitMax) {
		return p.awaitCompany(ctx, item, state, job)
	}

	match, err := p.ctx.MatchAnalyser.Analyse(ctx, p.ctx.Profile, job, extraction)
	if err != nil {
		return fmt.Errorf("analysing match: %w", err)
	}

	state.AwaitingCompany = false
	state.CompanyWaitCount = 0
	state.MatchResult = matchResultToJSONMap(match)
	if item.CompanyID == nil && company != nil && company.ID != "" {
		item.CompanyID = &company.ID
	}
	return p.ctx.Queue.RequeueWithState(ctx, item.ID, withStage(state, models.JobStageSave))
}

func (p *JobProcessor) resolveCompany(ctx context.Context, item *models.QueueItem, job models.ScrapedJob) (*models.Company, error) {
	var company *models.Company
	var err error
	if item.CompanyID != nil && *item.CompanyID != "" {
		company, err = p.ctx.Companies.Get(ctx, *item.CompanyID)
	} else {
		name := job.Company
		if name == "" {
			name = item.CompanyName
		}
		if name == "" {
			return nil, nil
		}
		company, err = p.ctx.Companies.GetByName(ctx, name)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return company, err
}

// awaitCompany spawns a COMPANY enrichment item when one isn't already in
// flight for this company, then requeues this JOB with an incremented wait
// counter (spec §4.5, §4.6, §9 bounded company wait). The caller in
// analyse proceeds without waiting once the counter hits its configured
// maximum, so a stalled company pipeline never blocks the job forever.
func (p *JobProcessor) awaitCompany(ctx context.Context, item *models.QueueItem, state models.PipelineState, job models.ScrapedJob) error {
	name := job.Company
	if name == "" {
		name = item.CompanyName
	}

	if name != "" {
		active := false
		if item.CompanyID != nil && *item.CompanyID != "" {
			has, err := p.ctx.Queue.HasCompanyTask(ctx, *item.CompanyID)
			if err != nil {
				p.ctx.Logger.Warn().Err(err).Str("company_id", *item.CompanyID).Msg("could not check for active company task")
			}
			active = has
		}
		if !active {
			companyItem := &models.QueueItem{
				ID:             common.NewQueueItemID(),
				Type:           models.ItemTypeCompany,
				Status:         models.StatusPending,
				CompanyID:      item.CompanyID,
				CompanyName:    name,
				CompanySubTask: models.CompanyStageFetch,
				TrackingID:     item.TrackingID,
				PipelineState: models.PipelineState{
					Extensions: models.JSONMap{"company_website": job.CompanyWebsite},
				},
			}
			if _, err := p.ctx.Queue.SpawnItemSafely(ctx, item, companyItem); err != nil {
				p.ctx.Logger.Warn().Err(err).Str("company", name).Msg("could not spawn company enrichment item")
			}
		}
	}

	state.AwaitingCompany = true
	state.CompanyWaitCount++
	return p.ctx.Queue.RequeueWithState(ctx, item.ID, withStage(state, models.JobStageAnalyse))
}

// save persists the scored, analysed job as a published match (spec §4.5
// stage 6, §4.9).
func (p *JobProcessor) save(ctx context.Context, item *models.QueueItem) error {
	state := item.PipelineState
	job := models.ScrapedJobFromJSONMap(state.JobData)
	extraction := extractionFromJSONMap(state.Extraction)
	match := matchResultFromJSONMap(state.MatchResult)

	listing := &models.JobListing{
		URL:         job.URL,
		Title:       job.Title,
		Company:     job.Company,
		Location:    job.Location,
		Description: job.Description,
		PostedDate:  job.PostedDate,
		Salary:      job.Salary,
		Extraction:  extractionToJSONMap(extraction),
		QueueItemID: item.ID,
		TrackingID:  item.TrackingID,
	}
	score := 0.0
	if state.Score != nil {
		score = *state.Score
	}
	jobMatch := &models.JobMatch{
		URL:                         job.URL,
		Score:                       score,
		MatchedSkills:               match.MatchedSkills,
		MissingSkills:               match.MissingSkills,
		ExperienceMatch:             match.ExperienceMatch,
		KeyStrengths:                match.KeyStrengths,
		PotentialConcerns:           match.PotentialConcerns,
		CustomizationRecommendation: match.CustomizationRecommendations,
		Status:                      models.MatchStatusNew,
		QueueItemID:                 item.ID,
		TrackingID:                  item.TrackingID,
	}

	if _, err := p.ctx.Published.SaveMatch(ctx, listing, jobMatch); err != nil {
		return fmt.Errorf("saving match: %w", err)
	}

	return p.ctx.Queue.UpdateStatus(ctx, item.ID, models.StatusSuccess, "Match saved", "")
}

// reject marks the item FILTERED and persists the rejection reasons to
// error_details for operator review.
func (p *JobProcessor) reject(ctx context.Context, item *models.QueueItem, result models.FilterResult) error {
	reason := "rejected by filter"
	if len(result.Rejections) > 0 {
		reason = result.Rejections[len(result.Rejections)-1].Reason
	}
	return p.ctx.Queue.UpdateStatus(ctx, item.ID, models.StatusFiltered, reason, filterResultDetails(result))
}

func withStage(state models.PipelineState, stage models.JobSubTask) models.PipelineState {
	state.PipelineStage = stage
	return state
}
