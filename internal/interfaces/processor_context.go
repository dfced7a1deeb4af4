package interfaces

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobfinder/internal/common"
)

// ProcessorContext carries every shared adapter a stage handler needs, in
// place of the multiple-inheritance processor classes in the source (spec
// §9 "collapse to composition with a ProcessorContext value").
type ProcessorContext struct {
	Queue     QueueStorage
	Sources   SourceStorage
	Companies CompanyStorage
	Published PublishedStore

	Extractor       Extractor
	CompanyAnalyser CompanyAnalyser
	MatchAnalyser   MatchAnalyser
	SourceRepairer  SourceConfigRepairer
	Classifier      SourceClassifier

	Prober         ATSProber
	Renderer       Renderer
	Targeted       TargetedScraper
	SourceAdapters SourceAdapterFactory
	ScrapeRunner   ScrapeRunner
	Sampler        ContentSampler

	Events EventService
	Logger arbor.ILogger

	// Filters, AI, Recovery and StopList point into the live *common.Config
	// rather than holding copies, so POST /config/reload's mutations are
	// visible to the next item the dispatcher processes (spec §6).
	Profile  UserProfile
	Filters  *common.FilterConfig
	AI       *common.AIConfig
	Recovery *common.RecoveryConfig
	StopList *common.StopListConfig
}
