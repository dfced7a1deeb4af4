// Package filter implements the deterministic two-stage filter & scoring
// engine (component C, spec §4.3): a pre-filter that never calls an LLM, a
// strike accumulator, and a score calculator. The LLM analyser (spec §4.5
// stage 5) only ever sees postings that already passed both stages here.
package filter

import (
	"regexp"
	"strings"
	"time"

	"github.com/ternarybob/jobfinder/internal/interfaces"
	"github.com/ternarybob/jobfinder/internal/models"
)

// Prefilter runs Stage A (spec §4.3): fast schema-based rejection with no
// LLM calls. Every check is skipped when the data it needs is absent —
// missing data passes, it never fails a posting. Pre-filter rejections are
// always hard; Prefilter returns as soon as the first one fires.
func Prefilter(profile interfaces.UserProfile, job models.ScrapedJob, extraction models.ExtractionRecord) models.FilterResult {
	result := models.FilterResult{Passed: true}

	if reason, ok := checkTitleKeywords(profile, job.Title); !ok {
		result.AddHardReject("title_keywords", "title", reason)
		return result
	}

	if reason, ok := checkFreshness(profile, job, extraction); !ok {
		result.AddHardReject("freshness", "freshness", reason)
		return result
	}

	if reason, ok := checkWorkArrangement(profile, extraction); !ok {
		result.AddHardReject("work_arrangement", "location", reason)
		return result
	}

	if reason, ok := checkEmploymentType(profile, extraction); !ok {
		result.AddHardReject("employment_type", "employment", reason)
		return result
	}

	if reason, ok := checkSalaryFloor(profile, extraction); !ok {
		result.AddHardReject("salary_floor", "salary", reason)
		return result
	}

	if reason, ok := checkRejectedTech(profile, extraction); !ok {
		result.AddHardReject("rejected_tech", "technology", reason)
		return result
	}

	return result
}

func checkTitleKeywords(profile interfaces.UserProfile, title string) (string, bool) {
	lowerTitle := strings.ToLower(title)

	if len(profile.RequiredTitleKeywords) > 0 {
		found := false
		for _, kw := range profile.RequiredTitleKeywords {
			if strings.Contains(lowerTitle, strings.ToLower(kw)) {
				found = true
				break
			}
		}
		if !found {
			return "title does not contain any required keyword", false
		}
	}

	for _, kw := range profile.ExcludedTitleKeywords {
		if strings.Contains(lowerTitle, strings.ToLower(kw)) {
			return "title contains excluded keyword: " + kw, false
		}
	}

	return "", true
}

func checkFreshness(profile interfaces.UserProfile, job models.ScrapedJob, extraction models.ExtractionRecord) (string, bool) {
	if profile.MaxAgeDays <= 0 {
		return "", true
	}

	var ageDays int
	switch {
	case extraction.FreshnessDays != nil:
		ageDays = *extraction.FreshnessDays
	case job.PostedDate != "":
		parsed, err := parsePostedDate(job.PostedDate)
		if err != nil {
			return "", true // unparseable date: missing data passes
		}
		ageDays = int(time.Since(parsed).Hours() / 24)
	default:
		return "", true
	}

	if ageDays > profile.MaxAgeDays {
		return "posting older than max age", false
	}
	return "", true
}

func parsePostedDate(raw string) (time.Time, error) {
	layouts := []string{time.RFC3339, "2006-01-02", "2006-01-02T15:04:05", "January 2, 2006"}
	var lastErr error
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, lastErr
}

func checkWorkArrangement(profile interfaces.UserProfile, extraction models.ExtractionRecord) (string, bool) {
	arrangement := strings.ToLower(extraction.WorkArrangement)
	if arrangement == "" {
		return "", true
	}

	switch arrangement {
	case "remote":
		if !profile.RemoteAllowed {
			return "remote arrangement not allowed", false
		}
	case "hybrid":
		if !profile.HybridAllowed {
			return "hybrid arrangement not allowed", false
		}
		if !cityAllowed(profile, extraction.City) {
			return "hybrid city not in allowed list", false
		}
	case "onsite":
		if !profile.OnsiteAllowed {
			return "onsite arrangement not allowed", false
		}
		if !cityAllowed(profile, extraction.City) {
			return "onsite city not in allowed list", false
		}
	}
	return "", true
}

func cityAllowed(profile interfaces.UserProfile, city string) bool {
	if len(profile.AllowedCities) == 0 {
		return true
	}
	if city == "" {
		return true
	}
	for _, c := range profile.AllowedCities {
		if strings.EqualFold(c, city) {
			return true
		}
	}
	return false
}

func checkEmploymentType(profile interfaces.UserProfile, extraction models.ExtractionRecord) (string, bool) {
	switch strings.ToLower(extraction.EmploymentType) {
	case "":
		return "", true
	case "full-time", "full_time", "fulltime":
		if !profile.FullTimeAllowed {
			return "full-time employment not allowed", false
		}
	case "part-time", "part_time", "parttime":
		if !profile.PartTimeAllowed {
			return "part-time employment not allowed", false
		}
	case "contract":
		if !profile.ContractAllowed {
			return "contract employment not allowed", false
		}
	}
	return "", true
}

func checkSalaryFloor(profile interfaces.UserProfile, extraction models.ExtractionRecord) (string, bool) {
	if profile.MinSalary <= 0 || extraction.SalaryMax == nil {
		return "", true
	}
	if *extraction.SalaryMax < profile.MinSalary {
		return "salary maximum below minimum floor", false
	}
	return "", true
}

func checkRejectedTech(profile interfaces.UserProfile, extraction models.ExtractionRecord) (string, bool) {
	if len(profile.RejectedTechnologies) == 0 || len(extraction.Technologies) == 0 {
		return "", true
	}
	for _, rejected := range profile.RejectedTechnologies {
		if techMatches(extraction.Technologies, rejected) {
			return "rejected technology present: " + rejected, false
		}
	}
	return "", true
}

// techMatches reports a word-boundary match of needle in any of haystack,
// case-insensitive (spec §4.3 "no token from the rejected-tech set appears
// as a word boundary match").
func techMatches(haystack []string, needle string) bool {
	pattern := `(?i)\b` + regexp.QuoteMeta(needle) + `\b`
	re := regexp.MustCompile(pattern)
	for _, tech := range haystack {
		if re.MatchString(tech) {
			return true
		}
	}
	return false
}
