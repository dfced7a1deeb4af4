package models

// ScrapedJob is the uniform record every scraper adapter produces (spec
// §4.2): required fields plus the two optionals.
type ScrapedJob struct {
	Title          string `json:"title"`
	Company        string `json:"company"`
	CompanyWebsite string `json:"company_website,omitempty"`
	Location       string `json:"location"`
	Description    string `json:"description"`
	URL            string `json:"url"`
	PostedDate     string `json:"posted_date,omitempty"`
	Salary         string `json:"salary,omitempty"`
}

// ToJSONMap converts the record to the loosely typed payload stored on
// pipeline_state.job_data / scraped_data, matching the shape produced by
// JSON-LD/detail-enrichment fallbacks that don't populate a ScrapedJob
// directly.
func (j *ScrapedJob) ToJSONMap() JSONMap {
	return JSONMap{
		"title":           j.Title,
		"company":         j.Company,
		"company_website": j.CompanyWebsite,
		"location":        j.Location,
		"description":     j.Description,
		"url":             j.URL,
		"posted_date":     j.PostedDate,
		"salary":          j.Salary,
	}
}

// ScrapedJobFromJSONMap reconstructs a ScrapedJob from a loosely typed
// payload, tolerating missing optional fields.
func ScrapedJobFromJSONMap(m JSONMap) ScrapedJob {
	get := func(k string) string {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	return ScrapedJob{
		Title:          get("title"),
		Company:        get("company"),
		CompanyWebsite: get("company_website"),
		Location:       get("location"),
		Description:    get("description"),
		URL:            get("url"),
		PostedDate:     get("posted_date"),
		Salary:         get("salary"),
	}
}

// ExtractionRecord is the structured output of the LLM extraction adapter
// (spec §4.5 stage 3).
type ExtractionRecord struct {
	Seniority       string   `json:"seniority,omitempty"`
	WorkArrangement string   `json:"work_arrangement,omitempty"`
	Timezone        string   `json:"timezone,omitempty"`
	City            string   `json:"city,omitempty"`
	SalaryMin       *float64 `json:"salary_min,omitempty"`
	SalaryMax       *float64 `json:"salary_max,omitempty"`
	ExperienceMin   *int     `json:"experience_min,omitempty"`
	ExperienceMax   *int     `json:"experience_max,omitempty"`
	Technologies    []string `json:"technologies,omitempty"`
	EmploymentType  string   `json:"employment_type,omitempty"`
	RoleTypes       []string `json:"role_types,omitempty"`
	FreshnessDays   *int     `json:"freshness_days,omitempty"`
	Confidence      float64  `json:"confidence"`
	MissingFields   []string `json:"missing_fields,omitempty"`
}

// MatchResult is the analyser adapter's output (spec §4.5 stage 5).
type MatchResult struct {
	MatchedSkills                []string `json:"matched_skills"`
	MissingSkills                []string `json:"missing_skills"`
	ExperienceMatch              string   `json:"experience_match"`
	KeyStrengths                 string   `json:"key_strengths"`
	PotentialConcerns            string   `json:"potential_concerns"`
	CustomizationRecommendations string   `json:"customization_recommendations"`
}
