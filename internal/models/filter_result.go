package models

// RejectionSeverity distinguishes a short-circuiting hard rejection from
// an accumulated strike (spec §4.3 Stage B).
type RejectionSeverity string

const (
	SeverityHardReject RejectionSeverity = "hard_reject"
	SeverityStrike     RejectionSeverity = "strike"
)

// Rejection records one filter rule that fired against a posting.
type Rejection struct {
	FilterName     string            `json:"filter_name"`
	FilterCategory string            `json:"filter_category"`
	Severity       RejectionSeverity `json:"severity"`
	Reason         string            `json:"reason"`
	Points         int               `json:"points"`
}

// FilterResult is the verdict of the two-stage filter engine (spec §4.3).
type FilterResult struct {
	Passed       bool        `json:"passed"`
	TotalStrikes int         `json:"total_strikes"`
	Rejections   []Rejection `json:"rejections"`
}

// AddHardReject records a short-circuiting rejection and marks the result
// failed.
func (f *FilterResult) AddHardReject(filterName, category, reason string) {
	f.Passed = false
	f.Rejections = append(f.Rejections, Rejection{
		FilterName:     filterName,
		FilterCategory: category,
		Severity:       SeverityHardReject,
		Reason:         reason,
	})
}

// AddStrike accumulates strike points without itself failing the result;
// the caller compares TotalStrikes against the configured threshold.
func (f *FilterResult) AddStrike(filterName, category, reason string, points int) {
	f.TotalStrikes += points
	f.Rejections = append(f.Rejections, Rejection{
		FilterName:     filterName,
		FilterCategory: category,
		Severity:       SeverityStrike,
		Reason:         reason,
		Points:         points,
	})
}
