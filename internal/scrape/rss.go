package scrape

import (
	"context"

	"github.com/mmcdole/gofeed"
	"github.com/ternarybob/jobfinder/internal/interfaces"
	"github.com/ternarybob/jobfinder/internal/models"
	"github.com/ternarybob/jobfinder/internal/textutil"
)

// RSSAdapter parses a job board's RSS/Atom feed. Feeds are typically thin
// (title + link only), so an item whose description is shorter than
// minFeedDescriptionLength runes and that has a link is handed to a
// DetailEnricher when one is configured (spec §4.2 point 5 "RSS with thin
// descriptions").
type RSSAdapter struct {
	SourceName string
	FeedURL    string

	fetch  *fetcher
	detail *DetailEnricher
	parser *gofeed.Parser
}

func NewRSSAdapter(sourceName, feedURL string, fetch *fetcher, detail *DetailEnricher) *RSSAdapter {
	return &RSSAdapter{
		SourceName: sourceName,
		FeedURL:    feedURL,
		fetch:      fetch,
		detail:     detail,
		parser:     gofeed.NewParser(),
	}
}

var _ interfaces.Scraper = (*RSSAdapter)(nil)

// minFeedDescriptionLength is the length below which an item's own
// description is treated as "thin" and worth following to its detail page.
const minFeedDescriptionLength = 200

func (r *RSSAdapter) Scrape(ctx context.Context) ([]models.ScrapedJob, error) {
	body, err := r.fetch.Get(ctx, r.SourceName, r.FeedURL, nil)
	if err != nil {
		return nil, err
	}

	feed, err := r.parser.ParseString(string(body))
	if err != nil {
		return nil, &ScrapeConfigError{Source: r.SourceName, Err: err}
	}

	jobs := make([]models.ScrapedJob, 0, len(feed.Items))
	for _, item := range feed.Items {
		desc := item.Description
		if desc == "" {
			desc = item.Content
		}

		job := models.ScrapedJob{
			Title:       item.Title,
			Company:     feed.Title,
			URL:         item.Link,
			Description: textutil.SanitizeHTML(desc),
		}
		if item.PublishedParsed != nil {
			job.PostedDate = item.PublishedParsed.Format("2006-01-02T15:04:05Z07:00")
		}

		if r.detail != nil && len([]rune(job.Description)) < minFeedDescriptionLength && job.URL != "" {
			if enriched, err := r.detail.EnrichHTML(ctx, r.SourceName, job.URL, job); err == nil {
				job = enriched
			}
		}

		jobs = append(jobs, job)
	}
	return jobs, nil
}
