package scrape

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ternarybob/jobfinder/internal/interfaces"
	"github.com/ternarybob/jobfinder/internal/models"
)

// WorkdayAdapter fetches a Workday CXS job board. Workday is the one ATS
// that needs special handling (spec §4.2): the tenant slug is the host's
// subdomain and also a CXS path segment, listing requires a POST with an offset/limit
// body, and the listing response omits the description entirely — every
// posting needs a detail-enrichment round trip whose URL is the CXS API
// path, while the job's persisted URL stays the human-readable career-site
// form.
type WorkdayAdapter struct {
	Tenant   string // e.g. "acme"
	Host     string // e.g. "acme.wd5.myworkdayjobs.com"
	SiteSlug string // e.g. "External"
	PageSize int

	fetch  *fetcher
	detail *DetailEnricher
}

func NewWorkdayAdapter(tenant, host, siteSlug string, pageSize int, fetch *fetcher, detail *DetailEnricher) *WorkdayAdapter {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &WorkdayAdapter{
		Tenant:   tenant,
		Host:     host,
		SiteSlug: siteSlug,
		PageSize: pageSize,
		fetch:    fetch,
		detail:   detail,
	}
}

var _ interfaces.Scraper = (*WorkdayAdapter)(nil)

type workdayListRequest struct {
	AppliedFacets struct{} `json:"appliedFacets"`
	Limit         int      `json:"limit"`
	Offset        int      `json:"offset"`
	SearchText    string   `json:"searchText"`
}

type workdayListResponse struct {
	Total       int `json:"total"`
	JobPostings []struct {
		Title         string   `json:"title"`
		ExternalPath  string   `json:"externalPath"`
		LocationsText string   `json:"locationsText"`
		PostedOn      string   `json:"postedOn"`
		BulletFields  []string `json:"bulletFields"`
	} `json:"jobPostings"`
}

const workdayMaxPages = 25

// Scrape pages through the CXS listing endpoint, then enriches every
// posting's description via its CXS job detail path.
func (w *WorkdayAdapter) Scrape(ctx context.Context) ([]models.ScrapedJob, error) {
	listURL := fmt.Sprintf("https://%s/wday/cxs/%s/%s/jobs", w.Host, w.Tenant, w.SiteSlug)

	var jobs []models.ScrapedJob
	offset := 0
	for page := 0; page < workdayMaxPages; page++ {
		reqBody := workdayListRequest{Limit: w.PageSize, Offset: offset}
		payload, err := json.Marshal(reqBody)
		if err != nil {
			return nil, &ScrapeConfigError{Source: "workday", Err: err}
		}

		body, err := w.fetch.Post(ctx, "workday", listURL, map[string]string{"Content-Type": "application/json"}, payload)
		if err != nil {
			return nil, err
		}

		var resp workdayListResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, &ScrapeConfigError{Source: "workday", Err: err}
		}

		for _, p := range resp.JobPostings {
			humanURL := fmt.Sprintf("https://%s/%s%s", w.Host, w.SiteSlug, p.ExternalPath)
			detailURL := fmt.Sprintf("https://%s/wday/cxs/%s/%s%s", w.Host, w.Tenant, w.SiteSlug, p.ExternalPath)

			job := models.ScrapedJob{
				Title:      p.Title,
				Company:    w.Tenant,
				Location:   p.LocationsText,
				URL:        humanURL,
				PostedDate: p.PostedOn,
			}

			if w.detail != nil {
				enriched, err := w.detail.EnrichAPI(ctx, "workday", detailURL, job)
				if err == nil {
					job = enriched
				}
			}
			jobs = append(jobs, job)
		}

		offset += w.PageSize
		if offset >= resp.Total || len(resp.JobPostings) == 0 {
			break
		}
	}

	return jobs, nil
}
