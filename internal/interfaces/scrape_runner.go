package interfaces

import "context"

// ScrapeRunConfig bounds one invocation of the scrape runner (spec §4.8,
// §6 "scrape_config"). A nil TargetMatches or zero MaxSources means
// unlimited; a non-empty SourceIDs restricts the run to that subset.
type ScrapeRunConfig struct {
	TargetMatches *int
	MaxSources    int
	SourceIDs     []string
}

// SourceRunOutcome summarises what one source contributed to a run, for
// logging and for the SOURCE_RECOVER zero-job counter.
type SourceRunOutcome struct {
	SourceID     string
	JobsFound    int
	JobsQueued   int
	Disabled     bool
	DisableTag   string
	Err          error
}

// ScrapeRunResult is returned by a full multi-source run (spec §4.8).
type ScrapeRunResult struct {
	SourcesAttempted int
	JobsQueued       int
	Outcomes         []SourceRunOutcome
}

// ScrapeRunner is the scrape runner collaborator (component H, spec §4.8),
// invoked by the SCRAPE and SCRAPE_SOURCE queue item kinds.
type ScrapeRunner interface {
	// Run selects eligible sources per cfg and scrapes each in turn,
	// stopping early once cfg.TargetMatches is reached.
	Run(ctx context.Context, cfg ScrapeRunConfig) (ScrapeRunResult, error)

	// RunSource scrapes exactly one source, regardless of eligibility
	// ordering (spec §4.7 SCRAPE_SOURCE).
	RunSource(ctx context.Context, sourceID string) (SourceRunOutcome, error)
}
