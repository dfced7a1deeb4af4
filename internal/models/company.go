package models

import "time"

// CompanyTier is a coarse classification assigned by the company analyser.
type CompanyTier string

const (
	CompanyTierUnknown    CompanyTier = "unknown"
	CompanyTierStartup    CompanyTier = "startup"
	CompanyTierGrowth     CompanyTier = "growth"
	CompanyTierEnterprise CompanyTier = "enterprise"
)

// Company is the normalised record produced by the company processor
// (spec §3, §4.6).
type Company struct {
	ID      string `db:"id" json:"id"`
	Name    string `db:"name" json:"name"`
	Website string `db:"website" json:"website,omitempty"`

	About   string `db:"about" json:"about,omitempty"`
	Culture string `db:"culture" json:"culture,omitempty"`
	Mission string `db:"mission" json:"mission,omitempty"`

	TechStack []string `db:"tech_stack" json:"tech_stack,omitempty"`

	Tier              CompanyTier `db:"tier" json:"tier"`
	PriorityScore     float64     `db:"priority_score" json:"priority_score"`
	HasPortlandOffice bool        `db:"has_portland_office" json:"has_portland_office"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// minGoodDataLength is the default minimum length for About/Culture before
// a company is considered to have "good data" (spec GLOSSARY, §4.6);
// callers should prefer the configured threshold, this is only the
// fallback used when none is supplied.
const minGoodDataLength = 40

// HasGoodData reports whether About and Culture are both present and each
// at least minLen runes long. A minLen of 0 uses the package default.
func (c *Company) HasGoodData(minLen int) bool {
	if minLen <= 0 {
		minLen = minGoodDataLength
	}
	return len([]rune(c.About)) >= minLen && len([]rune(c.Culture)) >= minLen
}
