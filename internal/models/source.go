package models

import (
	"fmt"
	"time"
)

// SourceType is the adapter family a Source uses (spec §4.2, §6).
type SourceType string

const (
	SourceTypeHTML            SourceType = "html"
	SourceTypeAPI             SourceType = "api"
	SourceTypeRSS             SourceType = "rss"
	SourceTypeGreenhouse      SourceType = "greenhouse"
	SourceTypeLever           SourceType = "lever"
	SourceTypeAshby           SourceType = "ashby"
	SourceTypeSmartRecruiters SourceType = "smartrecruiters"
	SourceTypeRecruitee       SourceType = "recruitee"
	SourceTypeBreezy          SourceType = "breezy"
	SourceTypeWorkable        SourceType = "workable"
	SourceTypeWorkday         SourceType = "workday"
)

// SourceStatus is the operating state of a scraping target.
type SourceStatus string

const (
	SourceStatusActive   SourceStatus = "active"
	SourceStatusDisabled SourceStatus = "disabled"
	SourceStatusFailed   SourceStatus = "failed"
)

// Disable tags recorded on disabled_tags (spec §4.8).
const (
	DisableTagAuthRequired = "auth_required"
	DisableTagProtectedAPI = "protected_api"
	DisableTagAntiBot      = "anti_bot"
)

// Source is a scraping target (spec §3).
type Source struct {
	ID         string     `db:"id" json:"id"`
	Name       string     `db:"name" json:"name"`
	SourceType SourceType `db:"source_type" json:"source_type"`
	Config     JSONMap    `db:"config" json:"config"`

	Status SourceStatus `db:"status" json:"status"`

	CompanyID        *string `db:"company_id" json:"company_id,omitempty"`
	AggregatorDomain *string `db:"aggregator_domain" json:"aggregator_domain,omitempty"`

	LastScrapedAt *time.Time `db:"last_scraped_at" json:"last_scraped_at,omitempty"`

	ConsecutiveFailures int `db:"consecutive_failures" json:"consecutive_failures"`
	ConsecutiveZeroJobs int `db:"consecutive_zero_jobs" json:"consecutive_zero_jobs"`

	DisabledNotes string   `db:"disabled_notes" json:"disabled_notes,omitempty"`
	DisabledTags  []string `db:"disabled_tags" json:"disabled_tags,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsSingleCompany reports whether the source belongs to exactly one
// company rather than aggregating postings for many (spec §3).
func (s *Source) IsSingleCompany() bool {
	return s.CompanyID != nil && *s.CompanyID != "" && s.AggregatorDomain == nil
}

// Validate checks the fields required before a Source row can be created.
func (s *Source) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("source name is required")
	}
	if s.SourceType == "" {
		return fmt.Errorf("source type is required")
	}
	if s.Config == nil {
		return fmt.Errorf("source config is required")
	}
	return nil
}

// legacyConsecutiveFailures is the key some source rows store inside their
// config blob instead of the first-class column (spec §9 open question).
const legacyConsecutiveFailures = "consecutive_failures"

// DecodeConfig returns s.Config, migrating a legacy consecutive_failures
// key found inside it onto the first-class column when the column itself
// is still at its zero value.
func (s *Source) DecodeConfig() JSONMap {
	if s.Config == nil {
		return JSONMap{}
	}
	if s.ConsecutiveFailures == 0 {
		if raw, ok := s.Config[legacyConsecutiveFailures]; ok {
			if n, ok := toInt(raw); ok {
				s.ConsecutiveFailures = n
			}
			delete(s.Config, legacyConsecutiveFailures)
		}
	}
	return s.Config
}

// RequiresJS reports whether this source's adapter config asks for headless
// rendering, the signal the zero-job strike table uses to scope SOURCE_RECOVER
// to JS-rendered sources (spec §4.7, §4.8) rather than every HTML source.
func (s *Source) RequiresJS() bool {
	if s.SourceType != SourceTypeHTML || s.Config == nil {
		return false
	}
	v, ok := s.Config["requires_js"]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
