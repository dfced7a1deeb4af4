package llmadapter

import (
	"fmt"
	"strings"

	"github.com/ternarybob/jobfinder/internal/interfaces"
	"github.com/ternarybob/jobfinder/internal/models"
)

// extractionSystemPrompt instructs the model to return only the structured
// record the parser expects.
const extractionSystemPrompt = `You are a precise job-posting data extraction engine. Read the posting and return ONLY valid JSON matching the requested schema. Never include prose, markdown fences, or commentary outside the JSON object.`

// buildExtractionPrompt asks the model to pull enumerated fields out of a
// scraped job posting (spec §4.5 stage 3).
func buildExtractionPrompt(job models.ScrapedJob) string {
	var b strings.Builder
	b.WriteString("Extract structured fields from this job posting.\n\n")
	fmt.Fprintf(&b, "Title: %s\n", job.Title)
	fmt.Fprintf(&b, "Company: %s\n", job.Company)
	fmt.Fprintf(&b, "Location: %s\n", job.Location)
	fmt.Fprintf(&b, "Posted date: %s\n", job.PostedDate)
	fmt.Fprintf(&b, "Salary: %s\n", job.Salary)
	fmt.Fprintf(&b, "URL: %s\n\n", job.URL)
	b.WriteString("Description:\n")
	b.WriteString(job.Description)
	b.WriteString("\n\n")
	b.WriteString(`Respond with only this JSON shape:
{
  "seniority": "",
  "work_arrangement": "",
  "timezone": "",
  "city": "",
  "salary_min": null,
  "salary_max": null,
  "experience_min": null,
  "experience_max": null,
  "technologies": [],
  "employment_type": "",
  "role_types": [],
  "freshness_days": null,
  "confidence": 0.0
}`)
	return b.String()
}

// buildRepairPrompt re-asks for only the fields named in missingFields,
// giving the model the missing field names, the title and the description.
// The already-extracted record is not included in the prompt; merging the
// answer into it is done by mergeExtraction (spec §4.5 stage 3, §8
// invariant 8).
func buildRepairPrompt(job models.ScrapedJob, existing models.ExtractionRecord, missingFields []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The following fields were missing or low-confidence from a prior extraction: %s\n\n", strings.Join(missingFields, ", "))
	b.WriteString("Original posting:\n")
	fmt.Fprintf(&b, "Title: %s\nDescription:\n%s\n\n", job.Title, job.Description)
	b.WriteString("Re-extract ONLY the missing fields listed above, returning the same JSON shape as before but leaving fields you are not asked about as null/empty.")
	return b.String()
}

// companyAnalysisSystemPrompt instructs the model to produce structured
// about/culture/mission/tech-stack fields (spec §4.6).
const companyAnalysisSystemPrompt = `You are a company research analyst. Read the provided website content and summarise the company's business, culture, mission, and technology stack. Return ONLY valid JSON, no commentary.`

func buildCompanyExtractionPrompt(companyName, websiteHTML string) string {
	const maxSampleRunes = 20000
	sample := websiteHTML
	if len([]rune(sample)) > maxSampleRunes {
		sample = string([]rune(sample)[:maxSampleRunes])
	}
	return fmt.Sprintf(`Company name: %s

Website content (may include HTML markup):
%s

Respond with only this JSON shape:
{
  "about": "",
  "culture": "",
  "mission": "",
  "tech_stack": []
}`, companyName, sample)
}

const companyClassificationSystemPrompt = `You are classifying a company profile for a job-matching system. Return ONLY valid JSON.`

func buildCompanyClassificationPrompt(company models.Company) string {
	return fmt.Sprintf(`Company: %s
About: %s
Culture: %s
Tech stack: %s

Classify this company. Respond with only this JSON shape:
{
  "tier": "startup|growth|enterprise|unknown",
  "priority_score": 0.0,
  "has_portland_office": false
}`, company.Name, company.About, company.Culture, strings.Join(company.TechStack, ", "))
}

// matchAnalysisSystemPrompt grounds the analyser in the same honest,
// detail-oriented grading posture as the original adapter's strict-scoring
// rubric, minus the match_score itself (the core's deterministic scorer
// owns that number, per spec §4.5 stage 5).
const matchAnalysisSystemPrompt = `You are an expert career advisor analyzing how well a job posting matches a candidate profile. Be honest and specific - false positives waste the candidate's time. Do not compute or return a numeric score; a separate deterministic engine already owns that. Return ONLY valid JSON, no prose or markdown fences.`

func buildMatchAnalysisPrompt(profile interfaces.UserProfile, job models.ScrapedJob, extraction models.ExtractionRecord) string {
	var b strings.Builder
	b.WriteString("# Candidate preferences\n")
	fmt.Fprintf(&b, "Target experience (years): %d\n", profile.TargetExperienceYears)
	fmt.Fprintf(&b, "Preferred cities: %s\n", strings.Join(profile.PreferredCities, ", "))
	fmt.Fprintf(&b, "Timezone: %s\n\n", profile.Timezone)

	b.WriteString("# Job posting\n")
	fmt.Fprintf(&b, "Title: %s\nCompany: %s\nLocation: %s\n", job.Title, job.Company, job.Location)
	fmt.Fprintf(&b, "Description:\n%s\n\n", job.Description)

	b.WriteString("# Extracted signal\n")
	fmt.Fprintf(&b, "Seniority: %s\nWork arrangement: %s\nTechnologies: %s\n\n",
		extraction.Seniority, extraction.WorkArrangement, strings.Join(extraction.Technologies, ", "))

	b.WriteString(`Respond with only this JSON shape:
{
  "matched_skills": [],
  "missing_skills": [],
  "experience_match": "",
  "key_strengths": "",
  "potential_concerns": "",
  "customization_recommendations": ""
}`)
	return b.String()
}

// sourceRepairSystemPrompt grounds the source-recovery adapter (spec §4.7
// SOURCE_RECOVER step 3): given a broken config and a content sample, it
// proposes a corrected one, possibly changing the adapter type entirely.
const sourceRepairSystemPrompt = `You repair broken job-scraper source configurations. Given a content sample from the target URL, the current (failing) configuration, and any operator notes about why it was disabled, propose a corrected configuration. You may change the source type entirely (e.g. html to api) if the sample suggests a better fit. Return ONLY valid JSON, no commentary.`

func buildSourceRepairPrompt(sample string, current models.JSONMap, disableNotes string) string {
	const maxSampleRunes = 15000
	if len([]rune(sample)) > maxSampleRunes {
		sample = string([]rune(sample)[:maxSampleRunes])
	}

	var currentJSON strings.Builder
	for k, v := range current {
		fmt.Fprintf(&currentJSON, "  %s: %v\n", k, v)
	}

	return fmt.Sprintf(`Current (broken) config:
%s

Disable notes: %s

Content sample from the target URL:
%s

Respond with only this JSON shape:
{
  "source_type": "html|api|rss|greenhouse|lever|ashby|smartrecruiters|recruitee|breezy|workable|workday",
  "config": {},
  "rationale": ""
}`, currentJSON.String(), disableNotes, sample)
}

// sourceClassificationSystemPrompt grounds SOURCE_DISCOVERY's AI pass
// (spec §4.7): given a candidate URL the ATS prober couldn't match to a
// known vendor, classify it and, where usable, propose a generic config.
const sourceClassificationSystemPrompt = `You classify candidate job-source URLs for a scraper. Given a company name, a URL, and a content sample, decide whether it is company-specific careers content, a job aggregator, a single job listing, an ATS vendor landing page with no listings, or not a usable source at all. When it is usable as a company-specific or aggregator source, propose a generic html or api config (selectors or response paths) that would extract postings from it. Return ONLY valid JSON, no commentary.`

func buildSourceClassificationPrompt(companyName, url, sampleHTML string) string {
	const maxSampleRunes = 15000
	sample := sampleHTML
	if len([]rune(sample)) > maxSampleRunes {
		sample = string([]rune(sample)[:maxSampleRunes])
	}

	return fmt.Sprintf(`Company: %s
URL: %s

Content sample:
%s

Respond with only this JSON shape:
{
  "kind": "company_specific|aggregator|single_job_listing|ats_vendor_page|invalid",
  "source_type": "html|api",
  "config": {},
  "notes": ""
}`, companyName, url, sample)
}
