// Package runtime wires every collaborator into a ProcessorContext and
// drives the worker's single-threaded poll loop plus its minimal admin
// HTTP surface (spec §4.4, §5, §6; component I).
package runtime

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobfinder/internal/common"
	"github.com/ternarybob/jobfinder/internal/interfaces"
	"github.com/ternarybob/jobfinder/internal/llmadapter"
	"github.com/ternarybob/jobfinder/internal/pipeline"
	"github.com/ternarybob/jobfinder/internal/published"
	"github.com/ternarybob/jobfinder/internal/queue"
	"github.com/ternarybob/jobfinder/internal/scrape"
	"github.com/ternarybob/jobfinder/internal/scraperun"
	"github.com/ternarybob/jobfinder/internal/services/events"
	"github.com/ternarybob/jobfinder/internal/storage/sqlite"
)

// App owns every long-lived collaborator the worker needs and the database
// connection they share.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	db            *sqlite.SQLiteDB
	Events        interfaces.EventService
	Dispatcher    *Dispatcher
	Queue         interfaces.QueueStorage
	Sources       interfaces.SourceStorage
	providerChain *llmadapter.ProviderChain
}

// Dispatcher is the subset of pipeline.Dispatcher the runtime depends on,
// named locally so this package doesn't re-export pipeline's type.
type Dispatcher = pipeline.Dispatcher

// New wires the storage layer, LLM provider chain, scrape stack, scrape
// runner and pipeline dispatcher from cfg (spec §9 "collapse to composition
// with a ProcessorContext value").
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	db, err := sqlite.NewSQLiteDB(logger, &cfg.Storage.SQLite)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	eventSink := events.NewService(logger)
	queueStore := queue.New(db.DB(), eventSink, logger)
	sourceStore := sqlite.NewSourceStore(db, logger)
	companyStore := sqlite.NewCompanyStore(db, logger)
	publishedStore := published.New(db.DB(), logger)

	scrapeStack := scrape.NewStack(cfg.Scrape, logger)

	provider := buildProviderChain(cfg.AI, logger)
	extractor := llmadapter.NewExtractor(provider, logger)
	companyAnalyser := llmadapter.NewCompanyAnalyser(provider, logger)
	matchAnalyser := llmadapter.NewMatchAnalyser(provider, logger)
	sourceRepairer := llmadapter.NewSourceConfigRepairer(provider, logger)
	classifier := llmadapter.NewSourceClassifier(provider, logger)

	profile := userProfileFromFilters(cfg.Filters)

	runner := scraperun.NewRunner(sourceStore, queueStore, scrapeStack.Factory, profile, cfg.Recovery, logger)

	pc := interfaces.ProcessorContext{
		Queue:     queueStore,
		Sources:   sourceStore,
		Companies: companyStore,
		Published: publishedStore,

		Extractor:       extractor,
		CompanyAnalyser: companyAnalyser,
		MatchAnalyser:   matchAnalyser,
		SourceRepairer:  sourceRepairer,
		Classifier:      classifier,

		Prober:         scrapeStack.Prober,
		Renderer:       scrapeStack.Renderer,
		Targeted:       scrapeStack.Targeted,
		SourceAdapters: scrapeStack.Factory,
		ScrapeRunner:   runner,
		Sampler:        scrapeStack.Sampler,

		Events: eventSink,
		Logger: logger,

		Profile:  profile,
		Filters:  &cfg.Filters,
		AI:       &cfg.AI,
		Recovery: &cfg.Recovery,
		StopList: &cfg.StopList,
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		db:            db,
		Events:        eventSink,
		Dispatcher:    pipeline.NewDispatcher(pc),
		Queue:         queueStore,
		Sources:       sourceStore,
		providerChain: provider,
	}, nil
}

// ReloadProviders rebuilds the live provider set from names and swaps it
// into the shared chain, so every already-constructed LLM collaborator
// (extractor, analysers, repairer, classifier) picks up the change on its
// next call without a restart (spec §6 "reload ... provider selection").
func (a *App) ReloadProviders(names []string) {
	a.providerChain.SetProviders(buildProviders(names, a.Config.AI, a.Logger))
	a.Config.AI.Providers = names
}

func buildProviders(names []string, cfg common.AIConfig, logger arbor.ILogger) []interfaces.LLMProvider {
	var providers []interfaces.LLMProvider
	for _, name := range names {
		switch name {
		case "claude", "anthropic":
			providers = append(providers, llmadapter.NewClaudeProvider(cfg.AnthropicAPIKey, cfg.Model, aiTimeout(cfg), logger))
		default:
			logger.Warn().Str("provider", name).Msg("unknown AI provider in config, skipping")
		}
	}
	return providers
}

// buildProviderChain constructs the provider fallback chain named in
// cfg.Providers, in order; every task type is tried against that same
// order. Unknown provider names are skipped with a warning.
func buildProviderChain(cfg common.AIConfig, logger arbor.ILogger) *llmadapter.ProviderChain {
	return llmadapter.NewProviderChain(logger, buildProviders(cfg.Providers, cfg, logger)...)
}

// aiTimeout parses cfg.Timeout, defaulting to 60s on a bad value, matching
// (*common.Config).AITimeout's fallback without needing a full Config.
func aiTimeout(cfg common.AIConfig) time.Duration {
	d, err := time.ParseDuration(cfg.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// userProfileFromFilters derives the read-only UserProfile every analysis
// collaborator consumes from the operator-facing FilterConfig; the two
// shapes mirror each other field-for-field except for the strike/threshold
// settings that belong to the filter engine alone.
func userProfileFromFilters(f common.FilterConfig) interfaces.UserProfile {
	return interfaces.UserProfile{
		RequiredTitleKeywords: f.RequiredTitleKeywords,
		ExcludedTitleKeywords: f.ExcludedTitleKeywords,
		PreferredCities:       f.PreferredCities,
		AllowedCities:         f.AllowedCities,
		RemoteAllowed:         f.RemoteAllowed,
		HybridAllowed:         f.HybridAllowed,
		OnsiteAllowed:         f.OnsiteAllowed,
		FullTimeAllowed:       f.FullTimeAllowed,
		PartTimeAllowed:       f.PartTimeAllowed,
		ContractAllowed:       f.ContractAllowed,
		MinSalary:             f.MinSalary,
		MaxAgeDays:            f.MaxAgeDays,
		RejectedTechnologies:  f.RejectedTechnologies,
		UndesiredTechnologies: f.UndesiredTechnologies,
		ExcludedCompanies:     f.ExcludedCompanies,
		ExcludedSeniorities:   f.ExcludedSeniorities,
		TargetExperienceYears: f.TargetExperienceYears,
		Timezone:              f.Timezone,
		PreferredRoleTypes:    f.PreferredRoleTypes,
		ExcludedRoleTypes:     f.ExcludedRoleTypes,
	}
}

// Close releases the database connection and event subscriptions.
func (a *App) Close() error {
	_ = a.Events.Close()
	return a.db.Close()
}
