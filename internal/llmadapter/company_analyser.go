package llmadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobfinder/internal/interfaces"
	"github.com/ternarybob/jobfinder/internal/models"
)

// CompanyAnalyser implements interfaces.CompanyAnalyser against a provider
// chain (spec §4.6).
type CompanyAnalyser struct {
	provider interfaces.LLMProvider
	logger   arbor.ILogger
}

func NewCompanyAnalyser(provider interfaces.LLMProvider, logger arbor.ILogger) *CompanyAnalyser {
	return &CompanyAnalyser{provider: provider, logger: logger}
}

var _ interfaces.CompanyAnalyser = (*CompanyAnalyser)(nil)

type companyExtractionWire struct {
	About     string   `json:"about"`
	Culture   string   `json:"culture"`
	Mission   string   `json:"mission"`
	TechStack []string `json:"tech_stack"`
}

func (a *CompanyAnalyser) ExtractProfile(ctx context.Context, companyName, websiteHTML string) (models.Company, error) {
	prompt := buildCompanyExtractionPrompt(companyName, websiteHTML)
	raw, err := a.provider.Complete(ctx, interfaces.TaskCompanyAnalysis, companyAnalysisSystemPrompt, prompt)
	if err != nil {
		return models.Company{}, fmt.Errorf("company extraction call failed: %w", err)
	}

	var wire companyExtractionWire
	if err := json.Unmarshal([]byte(stripJSONFence(raw)), &wire); err != nil {
		return models.Company{}, fmt.Errorf("company extraction response parse failed: %w", err)
	}

	return models.Company{
		Name:      companyName,
		About:     wire.About,
		Culture:   wire.Culture,
		Mission:   wire.Mission,
		TechStack: wire.TechStack,
	}, nil
}

type companyClassificationWire struct {
	Tier              string  `json:"tier"`
	PriorityScore     float64 `json:"priority_score"`
	HasPortlandOffice bool    `json:"has_portland_office"`
}

func (a *CompanyAnalyser) Classify(ctx context.Context, company models.Company) (models.Company, error) {
	prompt := buildCompanyClassificationPrompt(company)
	raw, err := a.provider.Complete(ctx, interfaces.TaskCompanyAnalysis, companyClassificationSystemPrompt, prompt)
	if err != nil {
		return company, fmt.Errorf("company classification call failed: %w", err)
	}

	var wire companyClassificationWire
	if err := json.Unmarshal([]byte(stripJSONFence(raw)), &wire); err != nil {
		return company, fmt.Errorf("company classification response parse failed: %w", err)
	}

	classified := company
	switch models.CompanyTier(wire.Tier) {
	case models.CompanyTierStartup, models.CompanyTierGrowth, models.CompanyTierEnterprise:
		classified.Tier = models.CompanyTier(wire.Tier)
	default:
		classified.Tier = models.CompanyTierUnknown
	}
	classified.PriorityScore = wire.PriorityScore
	classified.HasPortlandOffice = wire.HasPortlandOffice
	return classified, nil
}
