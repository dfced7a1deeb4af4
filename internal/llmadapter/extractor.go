package llmadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobfinder/internal/interfaces"
	"github.com/ternarybob/jobfinder/internal/models"
)

// Extractor implements interfaces.Extractor against a provider chain. The
// confidence-threshold decision of whether to issue a repair pass belongs
// to the job processor (spec §4.5 stage 3), not this adapter.
type Extractor struct {
	provider interfaces.LLMProvider
	logger   arbor.ILogger
}

func NewExtractor(provider interfaces.LLMProvider, logger arbor.ILogger) *Extractor {
	return &Extractor{provider: provider, logger: logger}
}

var _ interfaces.Extractor = (*Extractor)(nil)

// extractionWire is the JSON shape the model returns; pointers distinguish
// "not mentioned" from a genuine zero.
type extractionWire struct {
	Seniority       string   `json:"seniority"`
	WorkArrangement string   `json:"work_arrangement"`
	Timezone        string   `json:"timezone"`
	City            string   `json:"city"`
	SalaryMin       *float64 `json:"salary_min"`
	SalaryMax       *float64 `json:"salary_max"`
	ExperienceMin   *int     `json:"experience_min"`
	ExperienceMax   *int     `json:"experience_max"`
	Technologies    []string `json:"technologies"`
	EmploymentType  string   `json:"employment_type"`
	RoleTypes       []string `json:"role_types"`
	FreshnessDays   *int     `json:"freshness_days"`
	Confidence      float64  `json:"confidence"`
}

func (e *Extractor) Extract(ctx context.Context, job models.ScrapedJob) (models.ExtractionRecord, error) {
	prompt := buildExtractionPrompt(job)
	raw, err := e.provider.Complete(ctx, interfaces.TaskExtraction, extractionSystemPrompt, prompt)
	if err != nil {
		return models.ExtractionRecord{}, fmt.Errorf("extraction call failed: %w", err)
	}

	record, err := parseExtractionWire(raw)
	if err != nil {
		return models.ExtractionRecord{}, fmt.Errorf("extraction response parse failed: %w", err)
	}

	record.MissingFields = missingExtractionFields(record)
	return record, nil
}

// Repair re-asks for the fields named in missingFields, merging the
// result into existing. Per spec §8 invariant 8, the merged confidence is
// never allowed to drop below the pre-repair value.
func (e *Extractor) Repair(ctx context.Context, job models.ScrapedJob, existing models.ExtractionRecord, missingFields []string) (models.ExtractionRecord, error) {
	if len(missingFields) == 0 {
		return existing, nil
	}

	prompt := buildRepairPrompt(job, existing, missingFields)
	raw, err := e.provider.Complete(ctx, interfaces.TaskRepair, extractionSystemPrompt, prompt)
	if err != nil {
		return existing, fmt.Errorf("repair call failed: %w", err)
	}

	repaired, err := parseExtractionWire(raw)
	if err != nil {
		return existing, fmt.Errorf("repair response parse failed: %w", err)
	}

	merged := mergeExtraction(existing, repaired)
	if merged.Confidence < existing.Confidence {
		merged.Confidence = existing.Confidence
	}
	merged.MissingFields = missingExtractionFields(merged)
	return merged, nil
}

func parseExtractionWire(raw string) (models.ExtractionRecord, error) {
	clean := stripJSONFence(raw)
	var wire extractionWire
	if err := json.Unmarshal([]byte(clean), &wire); err != nil {
		return models.ExtractionRecord{}, err
	}
	return models.ExtractionRecord{
		Seniority:       wire.Seniority,
		WorkArrangement: wire.WorkArrangement,
		Timezone:        wire.Timezone,
		City:            wire.City,
		SalaryMin:       wire.SalaryMin,
		SalaryMax:       wire.SalaryMax,
		ExperienceMin:   wire.ExperienceMin,
		ExperienceMax:   wire.ExperienceMax,
		Technologies:    wire.Technologies,
		EmploymentType:  wire.EmploymentType,
		RoleTypes:       wire.RoleTypes,
		FreshnessDays:   wire.FreshnessDays,
		Confidence:      wire.Confidence,
	}, nil
}

// mergeExtraction fills zero-value fields on base from patch, used to
// combine a repair pass's targeted answers with the original extraction.
func mergeExtraction(base, patch models.ExtractionRecord) models.ExtractionRecord {
	out := base
	if out.Seniority == "" {
		out.Seniority = patch.Seniority
	}
	if out.WorkArrangement == "" {
		out.WorkArrangement = patch.WorkArrangement
	}
	if out.Timezone == "" {
		out.Timezone = patch.Timezone
	}
	if out.City == "" {
		out.City = patch.City
	}
	if out.SalaryMin == nil {
		out.SalaryMin = patch.SalaryMin
	}
	if out.SalaryMax == nil {
		out.SalaryMax = patch.SalaryMax
	}
	if out.ExperienceMin == nil {
		out.ExperienceMin = patch.ExperienceMin
	}
	if out.ExperienceMax == nil {
		out.ExperienceMax = patch.ExperienceMax
	}
	if len(out.Technologies) == 0 {
		out.Technologies = patch.Technologies
	}
	if out.EmploymentType == "" {
		out.EmploymentType = patch.EmploymentType
	}
	if len(out.RoleTypes) == 0 {
		out.RoleTypes = patch.RoleTypes
	}
	if out.FreshnessDays == nil {
		out.FreshnessDays = patch.FreshnessDays
	}
	if patch.Confidence > out.Confidence {
		out.Confidence = patch.Confidence
	}
	return out
}

func missingExtractionFields(r models.ExtractionRecord) []string {
	var missing []string
	if r.Seniority == "" {
		missing = append(missing, "seniority")
	}
	if r.WorkArrangement == "" {
		missing = append(missing, "work_arrangement")
	}
	if r.SalaryMin == nil && r.SalaryMax == nil {
		missing = append(missing, "salary")
	}
	if r.ExperienceMin == nil {
		missing = append(missing, "experience_min")
	}
	if len(r.Technologies) == 0 {
		missing = append(missing, "technologies")
	}
	return missing
}

// stripJSONFence removes a ```json ... ``` or ``` ... ``` wrapper some
// models add despite instructions not to.
func stripJSONFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
