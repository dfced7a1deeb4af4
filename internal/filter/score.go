package filter

import (
	"strings"
	"time"

	"github.com/ternarybob/jobfinder/internal/common"
	"github.com/ternarybob/jobfinder/internal/interfaces"
	"github.com/ternarybob/jobfinder/internal/models"
)

// ScoreWeights are the point allocations summing to 100, matching spec
// §4.3's listed factors. Kept as package constants rather than config
// since the relative weighting (not the thresholds) defines "the score"
// as a stable, comparable metric across runs.
const (
	weightSeniority  = 15.0
	weightLocation   = 15.0
	weightSkills     = 20.0
	weightSalary     = 15.0
	weightExperience = 10.0
	weightFreshness  = 10.0
	weightCompany    = 5.0
	weightRoleFit    = 10.0
)

// Score computes the deterministic [0, 100] score that gates the AI
// analyser (spec §4.3 "Score calculation"). It is the sole filter-stage
// output the analyser consults; postings below the caller's configured
// threshold become FILTERED before the match-analysis LLM call is made
// (extraction, which runs earlier, has already called the LLM).
func Score(cfg common.FilterConfig, profile interfaces.UserProfile, job models.ScrapedJob, extraction models.ExtractionRecord, company models.Company) float64 {
	total := 0.0
	total += scoreSeniority(profile, extraction)
	total += scoreLocation(cfg, profile, extraction)
	total += scoreSkills(profile, extraction)
	total += scoreSalary(profile, extraction)
	total += scoreExperience(profile, extraction)
	total += scoreFreshness(job, extraction)
	total += scoreCompany(cfg, company)
	total += scoreRoleFit(profile, extraction)

	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}
	return total
}

func scoreSeniority(profile interfaces.UserProfile, extraction models.ExtractionRecord) float64 {
	if extraction.ExperienceMin == nil && extraction.ExperienceMax == nil {
		return weightSeniority * 0.5 // unknown: neutral half credit
	}
	target := profile.TargetExperienceYears
	if target <= 0 {
		return weightSeniority * 0.5
	}

	min, max := 0, target
	if extraction.ExperienceMin != nil {
		min = *extraction.ExperienceMin
	}
	if extraction.ExperienceMax != nil {
		max = *extraction.ExperienceMax
	} else {
		max = min + 2
	}

	if target >= min && target <= max {
		return weightSeniority
	}
	gap := min - target
	if target > max {
		gap = target - max
	}
	penalty := float64(gap) * 2.0
	score := weightSeniority - penalty
	if score < 0 {
		score = 0
	}
	return score
}

func scoreLocation(cfg common.FilterConfig, profile interfaces.UserProfile, extraction models.ExtractionRecord) float64 {
	score := weightLocation * 0.6 // baseline for passing pre-filter's arrangement check

	if extraction.City != "" {
		for _, preferred := range cfg.PreferredCities {
			if strings.EqualFold(preferred, extraction.City) {
				score += weightLocation * 0.2
				break
			}
		}
	}

	if extraction.Timezone != "" && cfg.Timezone != "" && !strings.EqualFold(extraction.Timezone, cfg.Timezone) {
		score -= weightLocation * 0.2
	}

	if score < 0 {
		score = 0
	}
	if score > weightLocation {
		score = weightLocation
	}
	return score
}

func scoreSkills(profile interfaces.UserProfile, extraction models.ExtractionRecord) float64 {
	if len(extraction.Technologies) == 0 {
		return weightSkills * 0.5
	}
	matched := 0
	for _, tech := range extraction.Technologies {
		if !techMatches(profile.RejectedTechnologies, tech) && !techMatches(profile.UndesiredTechnologies, tech) {
			matched++
		}
	}
	ratio := float64(matched) / float64(len(extraction.Technologies))
	return weightSkills * ratio
}

func scoreSalary(profile interfaces.UserProfile, extraction models.ExtractionRecord) float64 {
	if profile.MinSalary <= 0 || extraction.SalaryMax == nil {
		return weightSalary * 0.5
	}
	if *extraction.SalaryMax >= profile.MinSalary {
		excess := (*extraction.SalaryMax - profile.MinSalary) / profile.MinSalary
		bonus := excess * weightSalary * 0.5
		if bonus > weightSalary*0.5 {
			bonus = weightSalary * 0.5
		}
		return weightSalary*0.5 + bonus
	}
	return 0
}

func scoreExperience(profile interfaces.UserProfile, extraction models.ExtractionRecord) float64 {
	if extraction.ExperienceMin == nil || profile.TargetExperienceYears <= 0 {
		return weightExperience * 0.5
	}
	diff := profile.TargetExperienceYears - *extraction.ExperienceMin
	if diff < 0 {
		diff = -diff
	}
	penalty := float64(diff) * 1.5
	score := weightExperience - penalty
	if score < 0 {
		score = 0
	}
	return score
}

func scoreFreshness(job models.ScrapedJob, extraction models.ExtractionRecord) float64 {
	var ageDays int
	switch {
	case extraction.FreshnessDays != nil:
		ageDays = *extraction.FreshnessDays
	case job.PostedDate != "":
		parsed, err := parsePostedDate(job.PostedDate)
		if err != nil {
			return weightFreshness * 0.5
		}
		ageDays = int(time.Since(parsed).Hours() / 24)
	default:
		return weightFreshness * 0.5
	}

	switch {
	case ageDays <= 3:
		return weightFreshness
	case ageDays <= 7:
		return weightFreshness * 0.8
	case ageDays <= 14:
		return weightFreshness * 0.5
	case ageDays <= 30:
		return weightFreshness * 0.2
	default:
		return 0
	}
}

// scoreRoleFit rewards a posting whose extracted role classification (e.g.
// "individual_contributor", "manager", "architect") matches the profile's
// preferred role types and penalises one on the excluded list (spec §4.3
// "role-fit class").
func scoreRoleFit(profile interfaces.UserProfile, extraction models.ExtractionRecord) float64 {
	if len(extraction.RoleTypes) == 0 {
		return weightRoleFit * 0.5
	}

	for _, rt := range extraction.RoleTypes {
		if roleTypeMatches(profile.ExcludedRoleTypes, rt) {
			return 0
		}
	}

	if len(profile.PreferredRoleTypes) == 0 {
		return weightRoleFit * 0.5
	}

	for _, rt := range extraction.RoleTypes {
		if roleTypeMatches(profile.PreferredRoleTypes, rt) {
			return weightRoleFit
		}
	}
	return weightRoleFit * 0.2
}

func roleTypeMatches(list []string, roleType string) bool {
	for _, candidate := range list {
		if strings.EqualFold(candidate, roleType) {
			return true
		}
	}
	return false
}

func scoreCompany(cfg common.FilterConfig, company models.Company) float64 {
	score := 0.0
	if company.HasPortlandOffice {
		score += weightCompany * 0.4
	}
	lowerTech := strings.Join(company.TechStack, " ")
	lowerTech = strings.ToLower(lowerTech)
	if strings.Contains(lowerTech, "machine learning") || strings.Contains(lowerTech, "ml ") || strings.Contains(strings.ToLower(company.About), "machine learning") {
		score += weightCompany * 0.3
	}
	if company.Tier == models.CompanyTierStartup || company.Tier == models.CompanyTierGrowth {
		score += weightCompany * 0.3
	}
	if score > weightCompany {
		score = weightCompany
	}
	return score
}
