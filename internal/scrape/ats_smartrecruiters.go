package scrape

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ternarybob/jobfinder/internal/interfaces"
	"github.com/ternarybob/jobfinder/internal/models"
)

// SmartRecruitersAdapter fetches a SmartRecruiters company's public JSON
// API. The listing endpoint returns only title and link; full descriptions
// require following each posting to its detail endpoint (spec §4.2
// "Detail enrichment").
type SmartRecruitersAdapter struct {
	CompanyIdentifier string
	fetch             *fetcher
	detail            *DetailEnricher
}

func NewSmartRecruitersAdapter(companyIdentifier string, fetch *fetcher, detail *DetailEnricher) *SmartRecruitersAdapter {
	return &SmartRecruitersAdapter{CompanyIdentifier: companyIdentifier, fetch: fetch, detail: detail}
}

var _ interfaces.Scraper = (*SmartRecruitersAdapter)(nil)

type smartRecruitersListResponse struct {
	Content []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Location struct {
			City    string `json:"city"`
			Country string `json:"country"`
		} `json:"location"`
		ReleasedDate string `json:"releasedDate"`
	} `json:"content"`
}

func (s *SmartRecruitersAdapter) Scrape(ctx context.Context) ([]models.ScrapedJob, error) {
	url := fmt.Sprintf("https://api.smartrecruiters.com/v1/companies/%s/postings", s.CompanyIdentifier)
	body, err := s.fetch.Get(ctx, "smartrecruiters", url, nil)
	if err != nil {
		return nil, err
	}

	var resp smartRecruitersListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ScrapeConfigError{Source: "smartrecruiters", Err: err}
	}

	jobs := make([]models.ScrapedJob, 0, len(resp.Content))
	for _, p := range resp.Content {
		detailURL := fmt.Sprintf("https://api.smartrecruiters.com/v1/companies/%s/postings/%s", s.CompanyIdentifier, p.ID)
		humanURL := fmt.Sprintf("https://jobs.smartrecruiters.com/%s/%s", s.CompanyIdentifier, p.ID)

		job := models.ScrapedJob{
			Title:      p.Name,
			Company:    s.CompanyIdentifier,
			Location:   fmt.Sprintf("%s, %s", p.Location.City, p.Location.Country),
			URL:        humanURL,
			PostedDate: p.ReleasedDate,
		}

		if s.detail != nil {
			enriched, err := s.detail.EnrichAPI(ctx, "smartrecruiters", detailURL, job)
			if err == nil {
				job = enriched
			}
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
