package interfaces

import (
	"context"

	"github.com/ternarybob/jobfinder/internal/models"
)

// LLMTaskType names the kind of LLM call and is passed to every provider in
// the fallback chain. The chain does not route on it: every task type is
// tried against the same provider order.
type LLMTaskType string

const (
	TaskExtraction      LLMTaskType = "extraction"
	TaskRepair          LLMTaskType = "repair"
	TaskCompanyAnalysis LLMTaskType = "company_analysis"
	TaskMatchAnalysis   LLMTaskType = "match_analysis"
	TaskSourceRepair    LLMTaskType = "source_repair"
	TaskSourceDiscovery LLMTaskType = "source_discovery"
)

// LLMProvider is a single backend in the fallback chain. The core never
// implements an inference backend itself (spec §1 Non-goals); it consumes
// providers through this narrow adapter.
type LLMProvider interface {
	Name() string
	Complete(ctx context.Context, taskType LLMTaskType, systemPrompt, userPrompt string) (string, error)
}

// Extractor calls the LLM extraction adapter (spec §4.5 stage 3).
type Extractor interface {
	Extract(ctx context.Context, job models.ScrapedJob) (models.ExtractionRecord, error)
	// Repair re-asks for the fields named in missingFields, merging the
	// result into the existing record. Confidence after repair must be >=
	// confidence before (spec §8 invariant 8).
	Repair(ctx context.Context, job models.ScrapedJob, existing models.ExtractionRecord, missingFields []string) (models.ExtractionRecord, error)
}

// UserProfile is the static preference document the analyser adapters and
// the score calculator read (spec §4.3, §4.5).
type UserProfile struct {
	RequiredTitleKeywords []string
	ExcludedTitleKeywords []string
	PreferredCities       []string
	AllowedCities         []string
	RemoteAllowed         bool
	HybridAllowed         bool
	OnsiteAllowed         bool
	FullTimeAllowed       bool
	PartTimeAllowed       bool
	ContractAllowed       bool
	MinSalary             float64
	MaxAgeDays            int
	RejectedTechnologies  []string
	UndesiredTechnologies []string
	ExcludedCompanies     []string
	ExcludedSeniorities   []string
	TargetExperienceYears int
	Timezone              string
	PreferredRoleTypes    []string
	ExcludedRoleTypes     []string
}

// CompanyAnalyser extracts and classifies a Company record (spec §4.6).
type CompanyAnalyser interface {
	ExtractProfile(ctx context.Context, companyName, websiteHTML string) (models.Company, error)
	Classify(ctx context.Context, company models.Company) (models.Company, error)
}

// MatchAnalyser analyses how well a job fits the user profile (skills,
// strengths, concerns); it returns no score of its own, the deterministic
// score stays the only one (spec §4.5 stage 5).
type MatchAnalyser interface {
	Analyse(ctx context.Context, profile UserProfile, job models.ScrapedJob, extraction models.ExtractionRecord) (models.MatchResult, error)
}

// SourceConfigProposal is the AI adapter's proposed repair for a broken
// source (spec §4.7 SOURCE_RECOVER).
type SourceConfigProposal struct {
	SourceType models.SourceType
	Config     models.JSONMap
	Rationale  string
}

// SourceConfigRepairer proposes a new Source config from a content sample
// and the source's current (broken) config (spec §4.7 step 3).
type SourceConfigRepairer interface {
	ProposeConfig(ctx context.Context, sample string, current models.JSONMap, disableNotes string) (SourceConfigProposal, error)
}

// SourceKind is the URL classification returned by SOURCE_DISCOVERY's AI
// pass (spec §4.7).
type SourceKind string

const (
	SourceKindCompanySpecific SourceKind = "company_specific"
	SourceKindAggregator      SourceKind = "aggregator"
	SourceKindSingleJob       SourceKind = "single_job_listing"
	SourceKindATSVendorPage   SourceKind = "ats_vendor_page"
	SourceKindInvalid         SourceKind = "invalid"
)

// SourceClassification is the AI adapter's read on a candidate source URL.
type SourceClassification struct {
	Kind       SourceKind
	SourceType models.SourceType
	Config     models.JSONMap
	Notes      string
}

// SourceClassifier classifies a candidate URL when the ATS prober finds no
// known-vendor match, so SOURCE_DISCOVERY can still materialise a generic
// html/api source or record why it can't (spec §4.7 SOURCE_DISCOVERY).
type SourceClassifier interface {
	Classify(ctx context.Context, companyName, url, sampleHTML string) (SourceClassification, error)
}
