package filter

import (
	"regexp"
	"strings"
	"time"

	"github.com/ternarybob/jobfinder/internal/common"
	"github.com/ternarybob/jobfinder/internal/interfaces"
	"github.com/ternarybob/jobfinder/internal/models"
)

var commissionOnlyPattern = regexp.MustCompile(`(?i)100%\s*commission|commission[\s-]only|commission\s+based\s+only`)

// ApplyStrikes runs Stage B against a posting that already passed Stage A
// (spec §4.3). Hard rejections short-circuit immediately; strikes
// accumulate, and once result.TotalStrikes >= cfg.StrikeThreshold (with a
// positive threshold) ApplyStrikes itself marks the result as not passed.
func ApplyStrikes(cfg common.FilterConfig, profile interfaces.UserProfile, job models.ScrapedJob, extraction models.ExtractionRecord, result *models.FilterResult) {
	if hardRejectExcludedCompany(cfg, job.Company, result) {
		return
	}
	if hardRejectSeniority(cfg, extraction.Seniority, result) {
		return
	}
	if hardRejectCommissionOnly(job, result) {
		return
	}

	applySalaryStrike(cfg, extraction, result)
	applySeniorityStrike(extraction, result)
	applyDescriptionLengthStrike(cfg, job, result)
	applyBuzzwordStrike(cfg, job, result)
	applyAgeStrike(cfg, job, extraction, result)
	applyUndesiredTechStrike(cfg, extraction, result)

	if result.TotalStrikes >= cfg.StrikeThreshold && cfg.StrikeThreshold > 0 {
		result.Passed = false
	}
}

func hardRejectExcludedCompany(cfg common.FilterConfig, company string, result *models.FilterResult) bool {
	for _, excluded := range cfg.ExcludedCompanies {
		if strings.EqualFold(excluded, company) {
			result.AddHardReject("excluded_company", "company", "company is on the exclusion list")
			return true
		}
	}
	return false
}

func hardRejectSeniority(cfg common.FilterConfig, seniority string, result *models.FilterResult) bool {
	if seniority == "" {
		return false
	}
	for _, excluded := range cfg.ExcludedSeniorities {
		if strings.EqualFold(excluded, seniority) {
			result.AddHardReject("excluded_seniority", "seniority", "seniority tier is excluded: "+seniority)
			return true
		}
	}
	return false
}

func hardRejectCommissionOnly(job models.ScrapedJob, result *models.FilterResult) bool {
	if commissionOnlyPattern.MatchString(job.Description) || commissionOnlyPattern.MatchString(job.Title) {
		result.AddHardReject("commission_only", "compensation", "posting is commission-only")
		return true
	}
	return false
}

func applySalaryStrike(cfg common.FilterConfig, extraction models.ExtractionRecord, result *models.FilterResult) {
	if cfg.StrikeSalaryThreshold <= 0 || extraction.SalaryMax == nil {
		return
	}
	if *extraction.SalaryMax < cfg.StrikeSalaryThreshold {
		result.AddStrike("salary_below_threshold", "compensation", "salary below preferred threshold", 2)
	}
}

var seniorSignalWords = []string{"staff", "principal", "director", "vp", "head of", "chief"}

func applySeniorityStrike(extraction models.ExtractionRecord, result *models.FilterResult) {
	seniority := strings.ToLower(extraction.Seniority)
	for _, w := range seniorSignalWords {
		if strings.Contains(seniority, w) {
			result.AddStrike("seniority_signal", "seniority", "title seniority signal above target level: "+w, 1)
			return
		}
	}
}

func applyDescriptionLengthStrike(cfg common.FilterConfig, job models.ScrapedJob, result *models.FilterResult) {
	if cfg.MinDescriptionLength <= 0 {
		return
	}
	if len([]rune(job.Description)) < cfg.MinDescriptionLength {
		result.AddStrike("short_description", "content", "description shorter than minimum length", 1)
	}
}

func applyBuzzwordStrike(cfg common.FilterConfig, job models.ScrapedJob, result *models.FilterResult) {
	if len(cfg.Buzzwords) == 0 {
		return
	}
	lower := strings.ToLower(job.Title + " " + job.Description)
	count := 0
	for _, word := range cfg.Buzzwords {
		if strings.Contains(lower, strings.ToLower(word)) {
			count++
		}
	}
	if count > 0 {
		result.AddStrike("buzzwords", "content", "buzzword count in posting", count)
	}
}

func applyAgeStrike(cfg common.FilterConfig, job models.ScrapedJob, extraction models.ExtractionRecord, result *models.FilterResult) {
	if cfg.StrikeAgeCutoffDays <= 0 {
		return
	}
	var ageDays int
	switch {
	case extraction.FreshnessDays != nil:
		ageDays = *extraction.FreshnessDays
	case job.PostedDate != "":
		parsed, err := parsePostedDate(job.PostedDate)
		if err != nil {
			return
		}
		ageDays = int(time.Since(parsed).Hours() / 24)
	default:
		return
	}
	if ageDays > cfg.StrikeAgeCutoffDays {
		result.AddStrike("stale_posting", "freshness", "posting older than strike age cutoff", 1)
	}
}

func applyUndesiredTechStrike(cfg common.FilterConfig, extraction models.ExtractionRecord, result *models.FilterResult) {
	if len(cfg.UndesiredTechnologies) == 0 || len(extraction.Technologies) == 0 {
		return
	}
	for _, undesired := range cfg.UndesiredTechnologies {
		if techMatches(extraction.Technologies, undesired) {
			result.AddStrike("undesired_technology", "technology", "undesired technology present: "+undesired, 1)
		}
	}
}
