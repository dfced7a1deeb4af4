package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobfinder/internal/models"
	"github.com/ternarybob/jobfinder/internal/textutil"
)

// DetailEnricher follows a thin listing row (title + link only) to its
// detail page or detail API and fills in the description, matching spec
// §4.2's "Detail enrichment" adapter family. It is shared by every adapter
// whose listing endpoint is thin: RSS, SmartRecruiters, Workday.
type DetailEnricher struct {
	fetch  *fetcher
	logger arbor.ILogger
}

func NewDetailEnricher(fetch *fetcher, logger arbor.ILogger) *DetailEnricher {
	return &DetailEnricher{fetch: fetch, logger: logger}
}

// EnrichAPI fetches detailURL as JSON and extracts a description field from
// common shapes used by ATS detail endpoints (SmartRecruiters, Workday),
// returning job with Description filled in.
func (d *DetailEnricher) EnrichAPI(ctx context.Context, source, detailURL string, job models.ScrapedJob) (models.ScrapedJob, error) {
	body, err := d.fetch.Get(ctx, source, detailURL, nil)
	if err != nil {
		return job, err
	}

	var generic map[string]interface{}
	if err := json.Unmarshal(body, &generic); err != nil {
		return job, &ScrapeConfigError{Source: source, Err: err}
	}

	desc := extractDescriptionField(generic)
	if desc != "" {
		job.Description = textutil.SanitizeHTML(desc)
	}
	return job, nil
}

// extractDescriptionField walks a handful of known key paths used by ATS
// detail JSON payloads (flat "jobAd.sections.jobDescription.text" for
// SmartRecruiters, flat "description" for simpler providers).
func extractDescriptionField(m map[string]interface{}) string {
	if v, ok := m["description"].(string); ok && v != "" {
		return v
	}
	if jobAd, ok := m["jobAd"].(map[string]interface{}); ok {
		if sections, ok := jobAd["sections"].(map[string]interface{}); ok {
			var b strings.Builder
			for _, key := range []string{"jobDescription", "qualifications", "additionalInformation"} {
				if section, ok := sections[key].(map[string]interface{}); ok {
					if text, ok := section["text"].(string); ok {
						b.WriteString(text)
						b.WriteString("\n")
					}
				}
			}
			if b.Len() > 0 {
				return b.String()
			}
		}
	}
	if info, ok := m["jobPostingInfo"].(map[string]interface{}); ok {
		if v, ok := info["jobDescription"].(string); ok {
			return v
		}
	}
	return ""
}

// EnrichHTML follows link to a detail HTML page and extracts the
// description using the JSON-LD JobPosting block when present, falling
// back to a plain-text rendering of the page body (spec §4.2 "JSON-LD
// JobPosting blocks are used as a fallback for HTML detail pages").
func (d *DetailEnricher) EnrichHTML(ctx context.Context, source, link string, job models.ScrapedJob) (models.ScrapedJob, error) {
	body, err := d.fetch.Get(ctx, source, link, nil)
	if err != nil {
		return job, err
	}

	if marker := DetectBotProtection(string(body)); marker != "" {
		return job, &ScrapeBotProtectionError{Source: source, Marker: marker}
	}
	if marker := DetectAuthWall(string(body)); marker != "" {
		return job, &ScrapeAuthError{Source: source, URL: link}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return job, &ScrapeConfigError{Source: source, Err: err}
	}

	if posting, ok := findJSONLDJobPosting(doc); ok {
		if posting.Description != "" {
			job.Description = textutil.SanitizeHTML(posting.Description)
		}
		if job.Location == "" {
			job.Location = posting.jobLocationText()
		}
		if job.Company == "" {
			job.Company = posting.HiringOrganization.Name
		}
		if job.PostedDate == "" {
			job.PostedDate = posting.DatePosted
		}
		return job, nil
	}

	job.Description = textutil.SanitizeHTML(doc.Find("body").Text())
	return job, nil
}

// jsonLDJobPosting is the subset of schema.org JobPosting fields detail
// pages commonly embed.
type jsonLDJobPosting struct {
	Type               string `json:"@type"`
	Description        string `json:"description"`
	DatePosted         string `json:"datePosted"`
	HiringOrganization struct {
		Name string `json:"name"`
	} `json:"hiringOrganization"`
	JobLocation struct {
		Address struct {
			AddressLocality string `json:"addressLocality"`
			AddressRegion   string `json:"addressRegion"`
		} `json:"address"`
	} `json:"jobLocation"`
}

func (p jsonLDJobPosting) jobLocationText() string {
	loc := p.JobLocation.Address
	if loc.AddressLocality == "" {
		return loc.AddressRegion
	}
	if loc.AddressRegion == "" {
		return loc.AddressLocality
	}
	return fmt.Sprintf("%s, %s", loc.AddressLocality, loc.AddressRegion)
}

// findJSONLDJobPosting scans every <script type="application/ld+json">
// block for a JobPosting object.
func findJSONLDJobPosting(doc *goquery.Document) (jsonLDJobPosting, bool) {
	var found jsonLDJobPosting
	ok := false

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		raw := sel.Text()
		var posting jsonLDJobPosting
		if err := json.Unmarshal([]byte(raw), &posting); err == nil && strings.EqualFold(posting.Type, "JobPosting") {
			found = posting
			ok = true
			return false
		}

		var list []jsonLDJobPosting
		if err := json.Unmarshal([]byte(raw), &list); err == nil {
			for _, p := range list {
				if strings.EqualFold(p.Type, "JobPosting") {
					found = p
					ok = true
					return false
				}
			}
		}
		return true
	})

	return found, ok
}
