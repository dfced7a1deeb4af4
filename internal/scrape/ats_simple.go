package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/jobfinder/internal/interfaces"
	"github.com/ternarybob/jobfinder/internal/models"
	"github.com/ternarybob/jobfinder/internal/textutil"
)

// GreenhouseAdapter fetches a Greenhouse board's public JSON API (spec
// §4.2 ATS API adapters).
type GreenhouseAdapter struct {
	BoardToken string
	fetch      *fetcher
}

// NewGreenhouseAdapter builds an adapter for the given board token.
func NewGreenhouseAdapter(boardToken string, fetch *fetcher) *GreenhouseAdapter {
	return &GreenhouseAdapter{BoardToken: boardToken, fetch: fetch}
}

var _ interfaces.Scraper = (*GreenhouseAdapter)(nil)

type greenhouseResponse struct {
	Jobs []struct {
		Title    string `json:"title"`
		AbsURL   string `json:"absolute_url"`
		Content  string `json:"content"`
		Location struct {
			Name string `json:"name"`
		} `json:"location"`
		UpdatedAt string `json:"updated_at"`
	} `json:"jobs"`
}

func (g *GreenhouseAdapter) Scrape(ctx context.Context) ([]models.ScrapedJob, error) {
	url := fmt.Sprintf("https://boards-api.greenhouse.io/v1/boards/%s/jobs?content=true", g.BoardToken)
	body, err := g.fetch.Get(ctx, "greenhouse", url, nil)
	if err != nil {
		return nil, err
	}

	var resp greenhouseResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ScrapeConfigError{Source: "greenhouse", Err: err}
	}

	jobs := make([]models.ScrapedJob, 0, len(resp.Jobs))
	for _, j := range resp.Jobs {
		jobs = append(jobs, models.ScrapedJob{
			Title:       j.Title,
			Company:     g.BoardToken,
			Location:    j.Location.Name,
			Description: textutil.SanitizeHTML(j.Content),
			URL:         j.AbsURL,
			PostedDate:  j.UpdatedAt,
		})
	}
	return jobs, nil
}

// LeverAdapter fetches a Lever posting board's public JSON API.
type LeverAdapter struct {
	CompanySlug string
	fetch       *fetcher
}

func NewLeverAdapter(companySlug string, fetch *fetcher) *LeverAdapter {
	return &LeverAdapter{CompanySlug: companySlug, fetch: fetch}
}

var _ interfaces.Scraper = (*LeverAdapter)(nil)

type leverPosting struct {
	Text       string `json:"text"`
	HostedURL  string `json:"hostedUrl"`
	CreatedAt  int64  `json:"createdAt"`
	Categories struct {
		Location string `json:"location"`
	} `json:"categories"`
	Description      string `json:"description"`
	DescriptionPlain string `json:"descriptionPlain"`
}

func (l *LeverAdapter) Scrape(ctx context.Context) ([]models.ScrapedJob, error) {
	url := fmt.Sprintf("https://api.lever.co/v0/postings/%s?mode=json", l.CompanySlug)
	body, err := l.fetch.Get(ctx, "lever", url, nil)
	if err != nil {
		return nil, err
	}

	var postings []leverPosting
	if err := json.Unmarshal(body, &postings); err != nil {
		return nil, &ScrapeConfigError{Source: "lever", Err: err}
	}

	jobs := make([]models.ScrapedJob, 0, len(postings))
	for _, p := range postings {
		desc := p.Description
		if desc == "" {
			desc = p.DescriptionPlain
		}
		jobs = append(jobs, models.ScrapedJob{
			Title:       p.Text,
			Company:     l.CompanySlug,
			Location:    p.Categories.Location,
			Description: textutil.SanitizeHTML(desc),
			URL:         p.HostedURL,
		})
	}
	return jobs, nil
}

// AshbyAdapter fetches an Ashby job board's public JSON API.
type AshbyAdapter struct {
	JobBoardName string
	fetch        *fetcher
}

func NewAshbyAdapter(jobBoardName string, fetch *fetcher) *AshbyAdapter {
	return &AshbyAdapter{JobBoardName: jobBoardName, fetch: fetch}
}

var _ interfaces.Scraper = (*AshbyAdapter)(nil)

type ashbyResponse struct {
	Jobs []struct {
		Title           string `json:"title"`
		JobURL          string `json:"jobUrl"`
		Location        string `json:"location"`
		DescriptionHTML string `json:"descriptionHtml"`
		PublishedAt     string `json:"publishedAt"`
	} `json:"jobs"`
}

func (a *AshbyAdapter) Scrape(ctx context.Context) ([]models.ScrapedJob, error) {
	url := fmt.Sprintf("https://api.ashbyhq.com/posting-api/job-board/%s", a.JobBoardName)
	body, err := a.fetch.Get(ctx, "ashby", url, nil)
	if err != nil {
		return nil, err
	}

	var resp ashbyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ScrapeConfigError{Source: "ashby", Err: err}
	}

	jobs := make([]models.ScrapedJob, 0, len(resp.Jobs))
	for _, j := range resp.Jobs {
		jobs = append(jobs, models.ScrapedJob{
			Title:       j.Title,
			Company:     a.JobBoardName,
			Location:    j.Location,
			Description: textutil.SanitizeHTML(j.DescriptionHTML),
			URL:         j.JobURL,
			PostedDate:  j.PublishedAt,
		})
	}
	return jobs, nil
}

// RecruiteeAdapter fetches a Recruitee careers site's public JSON API.
type RecruiteeAdapter struct {
	CompanySlug string
	fetch       *fetcher
}

func NewRecruiteeAdapter(companySlug string, fetch *fetcher) *RecruiteeAdapter {
	return &RecruiteeAdapter{CompanySlug: companySlug, fetch: fetch}
}

var _ interfaces.Scraper = (*RecruiteeAdapter)(nil)

type recruiteeResponse struct {
	Offers []struct {
		Title       string `json:"title"`
		CareersURL  string `json:"careers_url"`
		City        string `json:"city"`
		Description string `json:"description"`
		CreatedAt   string `json:"created_at"`
	} `json:"offers"`
}

func (r *RecruiteeAdapter) Scrape(ctx context.Context) ([]models.ScrapedJob, error) {
	url := fmt.Sprintf("https://%s.recruitee.com/api/offers/", r.CompanySlug)
	body, err := r.fetch.Get(ctx, "recruitee", url, nil)
	if err != nil {
		return nil, err
	}

	var resp recruiteeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ScrapeConfigError{Source: "recruitee", Err: err}
	}

	jobs := make([]models.ScrapedJob, 0, len(resp.Offers))
	for _, o := range resp.Offers {
		jobs = append(jobs, models.ScrapedJob{
			Title:       o.Title,
			Company:     r.CompanySlug,
			Location:    o.City,
			Description: textutil.SanitizeHTML(o.Description),
			URL:         o.CareersURL,
			PostedDate:  o.CreatedAt,
		})
	}
	return jobs, nil
}

// BreezyAdapter fetches a Breezy HR careers page's public JSON API.
type BreezyAdapter struct {
	CompanySlug string
	fetch       *fetcher
}

func NewBreezyAdapter(companySlug string, fetch *fetcher) *BreezyAdapter {
	return &BreezyAdapter{CompanySlug: companySlug, fetch: fetch}
}

var _ interfaces.Scraper = (*BreezyAdapter)(nil)

type breezyPosition struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Location struct {
		Name string `json:"name"`
	} `json:"location"`
	Description string `json:"description"`
}

func (b *BreezyAdapter) Scrape(ctx context.Context) ([]models.ScrapedJob, error) {
	url := fmt.Sprintf("https://%s.breezy.hr/json", b.CompanySlug)
	body, err := b.fetch.Get(ctx, "breezy", url, nil)
	if err != nil {
		return nil, err
	}

	var positions []breezyPosition
	if err := json.Unmarshal(body, &positions); err != nil {
		return nil, &ScrapeConfigError{Source: "breezy", Err: err}
	}

	jobs := make([]models.ScrapedJob, 0, len(positions))
	for _, p := range positions {
		jobs = append(jobs, models.ScrapedJob{
			Title:       p.Name,
			Company:     b.CompanySlug,
			Location:    p.Location.Name,
			Description: textutil.SanitizeHTML(p.Description),
			URL:         p.URL,
		})
	}
	return jobs, nil
}

// WorkableAdapter fetches a Workable careers site's public JSON API.
type WorkableAdapter struct {
	CompanySlug string
	fetch       *fetcher
}

func NewWorkableAdapter(companySlug string, fetch *fetcher) *WorkableAdapter {
	return &WorkableAdapter{CompanySlug: companySlug, fetch: fetch}
}

var _ interfaces.Scraper = (*WorkableAdapter)(nil)

type workableResponse struct {
	Results []struct {
		Title    string `json:"title"`
		URL      string `json:"url"`
		Location struct {
			City string `json:"city"`
		} `json:"location"`
		Description string `json:"description"`
		CreatedAt   string `json:"created_at"`
	} `json:"results"`
}

func (w *WorkableAdapter) Scrape(ctx context.Context) ([]models.ScrapedJob, error) {
	url := fmt.Sprintf("https://apply.workable.com/api/v3/accounts/%s/jobs", w.CompanySlug)
	body, err := w.fetch.Post(ctx, "workable", url, map[string]string{"Content-Type": "application/json"}, []byte(`{}`))
	if err != nil {
		return nil, err
	}

	var resp workableResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ScrapeConfigError{Source: "workable", Err: err}
	}

	jobs := make([]models.ScrapedJob, 0, len(resp.Results))
	for _, j := range resp.Results {
		jobURL := j.URL
		if !strings.HasPrefix(jobURL, "http") {
			jobURL = fmt.Sprintf("https://apply.workable.com/%s/j/%s/", w.CompanySlug, j.URL)
		}
		jobs = append(jobs, models.ScrapedJob{
			Title:       j.Title,
			Company:     w.CompanySlug,
			Location:    j.Location.City,
			Description: textutil.SanitizeHTML(j.Description),
			URL:         jobURL,
			PostedDate:  j.CreatedAt,
		})
	}
	return jobs, nil
}
