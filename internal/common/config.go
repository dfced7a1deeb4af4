package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the top-level application configuration, loaded with priority
// defaults -> file(s) -> environment -> CLI flags (spec §6 "Environment
// variables consumed").
type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	Queue       QueueConfig    `toml:"queue"`
	Storage     StorageConfig  `toml:"storage"`
	Logging     LoggingConfig  `toml:"logging"`
	Filters     FilterConfig   `toml:"filters"`
	AI          AIConfig       `toml:"ai"`
	Scrape      ScrapeConfig   `toml:"scrape"`
	Recovery    RecoveryConfig `toml:"recovery"`
	StopList    StopListConfig `toml:"stop_list"`
}

// ServerConfig controls the minimal admin HTTP surface (spec §6).
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// QueueConfig controls the worker runtime's poll loop (spec §4.1, §5).
type QueueConfig struct {
	PollInterval string `toml:"poll_interval"` // e.g. "2s"
	BatchSize    int    `toml:"batch_size"`    // GetPending limit per poll
	MaxRetries   int    `toml:"max_retries"`   // default max_retries for new items
}

// StorageConfig is the SQLite storage layer configuration.
type StorageConfig struct {
	SQLite SQLiteConfig `toml:"sqlite"`
}

// SQLiteConfig mirrors the pragmas the storage layer configures on open.
type SQLiteConfig struct {
	Path           string `toml:"path"`
	Environment    string `toml:"-"` // populated from Config.Environment at load time
	ResetOnStartup bool   `toml:"reset_on_startup"`
	WALMode        bool   `toml:"wal_mode"`
	BusyTimeoutMS  int    `toml:"busy_timeout_ms"`
	CacheSizeMB    int    `toml:"cache_size_mb"`
}

// LoggingConfig controls the arbor logger (spec §6 "Structured log schema").
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Format     string   `toml:"format"`
	Output     []string `toml:"output"`
	TimeFormat string   `toml:"time_format"`
	Service    string   `toml:"service"`
}

// FilterConfig carries the pre-filter and strike-engine thresholds (spec
// §4.3). NewDefaultConfig supplies starting values for some of these
// fields; those values are defaults of this worker, not fixed rules of the
// filter engine, and config files override them.
type FilterConfig struct {
	RequiredTitleKeywords []string `toml:"required_title_keywords"`
	ExcludedTitleKeywords []string `toml:"excluded_title_keywords"`
	MaxAgeDays            int      `toml:"max_age_days"` // 0 disables freshness check
	RemoteAllowed         bool     `toml:"remote_allowed"`
	HybridAllowed         bool     `toml:"hybrid_allowed"`
	OnsiteAllowed         bool     `toml:"onsite_allowed"`
	AllowedCities         []string `toml:"allowed_cities"`
	FullTimeAllowed       bool     `toml:"full_time_allowed"`
	PartTimeAllowed       bool     `toml:"part_time_allowed"`
	ContractAllowed       bool     `toml:"contract_allowed"`
	MinSalary             float64  `toml:"min_salary"`
	RejectedTechnologies  []string `toml:"rejected_technologies"`
	UndesiredTechnologies []string `toml:"undesired_technologies"`
	ExcludedCompanies     []string `toml:"excluded_companies"`
	ExcludedSeniorities   []string `toml:"excluded_seniorities"`
	StrikeThreshold       int      `toml:"strike_threshold"`
	StrikeAgeCutoffDays   int      `toml:"strike_age_cutoff_days"`
	StrikeSalaryThreshold float64  `toml:"strike_salary_threshold"`
	MinDescriptionLength  int      `toml:"min_description_length"`
	Buzzwords             []string `toml:"buzzwords"`
	PreferredCities       []string `toml:"preferred_cities"`
	TargetExperienceYears int      `toml:"target_experience_years"`
	Timezone              string   `toml:"timezone"`
	CompanyGoodDataMinLen int      `toml:"company_good_data_min_length"`
	PreferredRoleTypes    []string `toml:"preferred_role_types"`
	ExcludedRoleTypes     []string `toml:"excluded_role_types"`
	// MinMatchScore rejects a scored job below this threshold before it
	// reaches match analysis; 0 disables the check. Reloadable at runtime
	// via POST /config/reload (spec §6).
	MinMatchScore float64 `toml:"min_match_score"`
}

// AIConfig selects the LLM provider fallback chain and task thresholds
// (spec §1 "plural providers behind a task-type fallback chain", §4.5).
type AIConfig struct {
	Providers               []string `toml:"providers"` // fallback order, e.g. ["claude"]
	AnthropicAPIKey         string   `toml:"-"`         // resolved from env, never written to disk
	Model                   string   `toml:"model"`
	Timeout                 string   `toml:"timeout"`
	ExtractionConfidenceMin float64  `toml:"extraction_confidence_min"`
	MaxRepairAttempts       int      `toml:"max_repair_attempts"`
}

// ScrapeConfig is the default per-run scrape constraint (spec §6
// "scrape_config"), used when a SCRAPE item omits its own.
type ScrapeConfig struct {
	TargetMatches      *int    `toml:"target_matches"` // nil = unlimited
	MaxSources         int     `toml:"max_sources"`    // 0 = unlimited
	RequestsPerSecond  float64 `toml:"requests_per_second"`
	HTTPTimeoutSeconds int     `toml:"http_timeout_seconds"`
	RendererTimeoutMS  int     `toml:"renderer_timeout_ms"`
	RendererMaxPages   int     `toml:"renderer_max_concurrent_pages"`

	// Schedule is a standard 5-field cron expression on which a SCRAPE item
	// is submitted automatically; empty disables periodic submission and
	// leaves scraping to explicit SCRAPE/SCRAPE_SOURCE items.
	Schedule string `toml:"schedule"`
}

// RecoveryConfig controls source-strike and zero-job-recovery thresholds
// (spec §4.7, §4.8).
type RecoveryConfig struct {
	FailureStrikeThreshold int `toml:"failure_strike_threshold"` // default 3
	ZeroJobThreshold       int `toml:"zero_job_threshold"`
	CompanyWaitMax         int `toml:"company_wait_max"` // spec §4.5 bounded wait
}

// StopListConfig is applied before any non-SCRAPE stage handling (spec §6).
type StopListConfig struct {
	ExcludedCompanies []string `toml:"excluded_companies"`
	ExcludedKeywords  []string `toml:"excluded_keywords"`
	ExcludedDomains   []string `toml:"excluded_domains"`
}

// NewDefaultConfig returns a configuration with sane defaults; TOML files
// and environment variables override these (priority: default -> files ->
// env -> CLI per the teacher's layered loader pattern).
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8090,
			Host: "localhost",
		},
		Queue: QueueConfig{
			PollInterval: "2s",
			BatchSize:    10,
			MaxRetries:   3,
		},
		Storage: StorageConfig{
			SQLite: SQLiteConfig{
				Path:          "./data/jobfinder.db",
				WALMode:       true,
				BusyTimeoutMS: 5000,
				CacheSizeMB:   32,
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05.000",
			Service:    "jobfinder-worker",
		},
		Filters: FilterConfig{
			RemoteAllowed:         true,
			HybridAllowed:         true,
			OnsiteAllowed:         false,
			FullTimeAllowed:       true,
			PartTimeAllowed:       false,
			ContractAllowed:       false,
			StrikeThreshold:       5,
			StrikeAgeCutoffDays:   30,
			MinDescriptionLength:  200,
			CompanyGoodDataMinLen: 40,
			TargetExperienceYears: 5,
		},
		AI: AIConfig{
			Providers:               []string{"claude"},
			Model:                   "claude-haiku-4-5-20251001",
			Timeout:                 "60s",
			ExtractionConfidenceMin: 0.7,
			MaxRepairAttempts:       1,
		},
		Scrape: ScrapeConfig{
			MaxSources:         0,
			RequestsPerSecond:  1.0,
			HTTPTimeoutSeconds: 30,
			RendererTimeoutMS:  20000,
			RendererMaxPages:   3,
		},
		Recovery: RecoveryConfig{
			FailureStrikeThreshold: 3,
			ZeroJobThreshold:       3,
			CompanyWaitMax:         3,
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 ->
// file2 -> ... -> env, each later file overriding fields set by the ones
// before it (spec §6, teacher's `internal/common/config.go` pattern).
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)
	config.Storage.SQLite.Environment = config.Environment
	return config, nil
}

// applyEnvOverrides applies the environment variables named in spec §6.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		config.Environment = v
	}
	if v := os.Getenv("WORKER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			config.Server.Port = p
		}
	}
	if v := os.Getenv("WORKER_HOST"); v != "" {
		config.Server.Host = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("SQLITE_DB_PATH"); v != "" {
		config.Storage.SQLite.Path = v
	}
	if v := os.Getenv("JF_SQLITE_DB_PATH"); v != "" {
		config.Storage.SQLite.Path = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		config.AI.AnthropicAPIKey = v
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority).
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// PollInterval parses Queue.PollInterval, defaulting to 2s on a bad value.
func (c *Config) PollInterval() time.Duration {
	d, err := time.ParseDuration(c.Queue.PollInterval)
	if err != nil || d <= 0 {
		return 2 * time.Second
	}
	return d
}

// AITimeout parses AI.Timeout, defaulting to 60s on a bad value.
func (c *Config) AITimeout() time.Duration {
	d, err := time.ParseDuration(c.AI.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// IsProduction reports whether the environment is "production"/"prod".
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
