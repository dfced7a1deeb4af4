// Package common provides shared utilities and default configuration.
package common

// DefaultStopListEntry represents a default stop-list value seeded when no
// operator-supplied list overrides it (spec §6 "stop list").
type DefaultStopListEntry struct {
	Value       string `json:"value"`
	Description string `json:"description"`
}

// GetDefaultExcludedKeywords returns a default list of title keywords to
// exclude. Nothing in the worker applies it automatically; only keywords
// set in the filter or stop-list config are enforced.
func GetDefaultExcludedKeywords() []DefaultStopListEntry {
	return []DefaultStopListEntry{
		{Value: "intern", Description: "internship postings"},
		{Value: "internship", Description: "internship postings"},
		{Value: "junior", Description: "junior-level postings"},
		{Value: "staffing", Description: "staffing/recruiting agency postings"},
	}
}
