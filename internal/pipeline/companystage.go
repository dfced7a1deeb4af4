package pipeline

import (
	"context"
	"fmt"

	"github.com/ternarybob/jobfinder/internal/interfaces"
	"github.com/ternarybob/jobfinder/internal/models"
)

// CompanyProcessor runs the four-stage COMPANY pipeline (spec §4.6): fetch,
// extract, analyse, save. Stages advance in place via RequeueCompanyStep
// rather than by spawning a new item per stage, since a company is keyed
// by name/website and has no natural per-stage URL to dedupe a spawn
// against (spec §4.1 "In-place requeue fallback").
type CompanyProcessor struct {
	ctx interfaces.ProcessorContext
}

func NewCompanyProcessor(pc interfaces.ProcessorContext) *CompanyProcessor {
	return &CompanyProcessor{ctx: pc}
}

func (p *CompanyProcessor) Process(ctx context.Context, item *models.QueueItem) error {
	switch item.CompanySubTask {
	case models.CompanyStageFetch:
		return p.fetch(ctx, item)
	case models.CompanyStageExtract:
		return p.extract(ctx, item)
	case models.CompanyStageAnalyse:
		return p.analyse(ctx, item)
	case models.CompanyStageSave:
		return p.save(ctx, item)
	default:
		return fmt.Errorf("unknown company sub-task: %s", item.CompanySubTask)
	}
}

func (p *CompanyProcessor) company(ctx context.Context, item *models.QueueItem) (*models.Company, error) {
	if item.CompanyID != nil && *item.CompanyID != "" {
		c, err := p.ctx.Companies.Get(ctx, *item.CompanyID)
		if err == nil && c != nil {
			return c, nil
		}
	}
	if item.CompanyName != "" {
		c, err := p.ctx.Companies.GetByName(ctx, item.CompanyName)
		if err == nil && c != nil {
			return c, nil
		}
	}
	return &models.Company{Name: item.CompanyName}, nil
}

// fetch resolves the company's website and retrieves its HTML via the same
// content sampler the SOURCE_RECOVER path uses to probe a source (spec
// §4.6, §4.7), storing the page in state.Extensions for extract to read. A
// website that can't be resolved or fails to fetch still advances the
// pipeline with an empty page, since the LLM extractor copes with a blank
// page by falling back to whatever the job posting already told us.
func (p *CompanyProcessor) fetch(ctx context.Context, item *models.QueueItem) error {
	company, err := p.company(ctx, item)
	if err != nil {
		return fmt.Errorf("loading company: %w", err)
	}

	state := item.PipelineState
	if state.Extensions == nil {
		state.Extensions = models.JSONMap{}
	}

	website := company.Website
	if website == "" {
		website = stringFromAny(state.Extensions["company_website"])
	}

	state.Extensions["company_name"] = company.Name
	state.Extensions["company_website"] = website

	if website != "" && p.ctx.Sampler != nil {
		html, _, err := p.ctx.Sampler.Sample(ctx, website, models.SourceTypeHTML)
		if err != nil {
			p.ctx.Logger.Warn().Err(err).Str("company", company.Name).Str("website", website).Msg("could not fetch company website")
		} else {
			state.Extensions["company_site_html"] = html
		}
	}

	return p.ctx.Queue.RequeueCompanyStep(ctx, item.ID, models.CompanyStageExtract, state)
}

// extract calls the company analyser to populate about/culture/mission and
// tech stack from whatever site content was fetched (spec §4.6).
func (p *CompanyProcessor) extract(ctx context.Context, item *models.QueueItem) error {
	state := item.PipelineState
	name := stringFromAny(state.Extensions["company_name"])
	if name == "" {
		name = item.CompanyName
	}
	websiteHTML := stringFromAny(state.Extensions["company_site_html"])

	profile, err := p.ctx.CompanyAnalyser.ExtractProfile(ctx, name, websiteHTML)
	if err != nil {
		return fmt.Errorf("extracting company profile: %w", err)
	}

	state.Extensions["company_profile"] = companyToJSONMap(profile)
	return p.ctx.Queue.RequeueCompanyStep(ctx, item.ID, models.CompanyStageAnalyse, state)
}

// analyse classifies the company's tier and priority score.
func (p *CompanyProcessor) analyse(ctx context.Context, item *models.QueueItem) error {
	state := item.PipelineState
	profile := companyFromJSONMap(state.Extensions["company_profile"])

	classified, err := p.ctx.CompanyAnalyser.Classify(ctx, profile)
	if err != nil {
		return fmt.Errorf("classifying company: %w", err)
	}

	state.Extensions["company_profile"] = companyToJSONMap(classified)
	return p.ctx.Queue.RequeueCompanyStep(ctx, item.ID, models.CompanyStageSave, state)
}

// save persists the enriched company record (spec §3, §4.6).
func (p *CompanyProcessor) save(ctx context.Context, item *models.QueueItem) error {
	state := item.PipelineState
	company := companyFromJSONMap(state.Extensions["company_profile"])
	if company.Name == "" {
		company.Name = item.CompanyName
	}

	existing, err := p.company(ctx, item)
	if err != nil {
		return fmt.Errorf("loading existing company: %w", err)
	}

	if existing != nil && existing.ID != "" {
		company.ID = existing.ID
		if err := p.ctx.Companies.Update(ctx, &company); err != nil {
			return fmt.Errorf("updating company: %w", err)
		}
	} else {
		id, err := p.ctx.Companies.Create(ctx, &company)
		if err != nil {
			return fmt.Errorf("creating company: %w", err)
		}
		company.ID = id
	}

	return p.ctx.Queue.UpdateStatus(ctx, item.ID, models.StatusSuccess, "Company enriched", "")
}

func companyToJSONMap(c models.Company) models.JSONMap {
	return models.JSONMap{
		"id":                   c.ID,
		"name":                 c.Name,
		"website":              c.Website,
		"about":                c.About,
		"culture":              c.Culture,
		"mission":              c.Mission,
		"tech_stack":           c.TechStack,
		"tier":                 string(c.Tier),
		"priority_score":       c.PriorityScore,
		"has_portland_office":  c.HasPortlandOffice,
	}
}

func companyFromJSONMap(v interface{}) models.Company {
	m, ok := asJSONMap(v)
	if !ok {
		return models.Company{}
	}
	return models.Company{
		ID:                stringFromAny(m["id"]),
		Name:              stringFromAny(m["name"]),
		Website:           stringFromAny(m["website"]),
		About:             stringFromAny(m["about"]),
		Culture:           stringFromAny(m["culture"]),
		Mission:           stringFromAny(m["mission"]),
		TechStack:         stringSliceFromAny(m["tech_stack"]),
		Tier:              models.CompanyTier(stringFromAny(m["tier"])),
		PriorityScore:     floatFromAny(m["priority_score"]),
		HasPortlandOffice: boolFromAny(m["has_portland_office"]),
	}
}

func boolFromAny(v interface{}) bool {
	b, _ := v.(bool)
	return b
}
