package llmadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobfinder/internal/interfaces"
	"github.com/ternarybob/jobfinder/internal/models"
)

// MatchAnalyser implements interfaces.MatchAnalyser against a provider
// chain (spec §4.5 stage 5). It never computes match_score itself — that
// figure comes from the deterministic scorer in internal/filter.
type MatchAnalyser struct {
	provider interfaces.LLMProvider
	logger   arbor.ILogger
}

func NewMatchAnalyser(provider interfaces.LLMProvider, logger arbor.ILogger) *MatchAnalyser {
	return &MatchAnalyser{provider: provider, logger: logger}
}

var _ interfaces.MatchAnalyser = (*MatchAnalyser)(nil)

type matchAnalysisWire struct {
	MatchedSkills                []string `json:"matched_skills"`
	MissingSkills                []string `json:"missing_skills"`
	ExperienceMatch              string   `json:"experience_match"`
	KeyStrengths                 string   `json:"key_strengths"`
	PotentialConcerns            string   `json:"potential_concerns"`
	CustomizationRecommendations string   `json:"customization_recommendations"`
}

func (a *MatchAnalyser) Analyse(ctx context.Context, profile interfaces.UserProfile, job models.ScrapedJob, extraction models.ExtractionRecord) (models.MatchResult, error) {
	prompt := buildMatchAnalysisPrompt(profile, job, extraction)
	raw, err := a.provider.Complete(ctx, interfaces.TaskMatchAnalysis, matchAnalysisSystemPrompt, prompt)
	if err != nil {
		return models.MatchResult{}, fmt.Errorf("match analysis call failed: %w", err)
	}

	var wire matchAnalysisWire
	if err := json.Unmarshal([]byte(stripJSONFence(raw)), &wire); err != nil {
		return models.MatchResult{}, fmt.Errorf("match analysis response parse failed: %w", err)
	}

	return models.MatchResult{
		MatchedSkills:                wire.MatchedSkills,
		MissingSkills:                wire.MissingSkills,
		ExperienceMatch:              wire.ExperienceMatch,
		KeyStrengths:                 wire.KeyStrengths,
		PotentialConcerns:            wire.PotentialConcerns,
		CustomizationRecommendations: wire.CustomizationRecommendations,
	}, nil
}
