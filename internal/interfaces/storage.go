package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/jobfinder/internal/models"
)

// SourceStorage manages Source rows (spec §3, §4.7, §4.8).
type SourceStorage interface {
	Create(ctx context.Context, source *models.Source) (string, error)
	Get(ctx context.Context, id string) (*models.Source, error)
	Update(ctx context.Context, source *models.Source) error

	// ListEligible returns active sources ordered by last_scraped_at
	// ascending, with never-scraped sources sorting first (spec §4.8). A
	// nil sourceIDs restricts to no subset; limit<=0 means unlimited.
	ListEligible(ctx context.Context, sourceIDs []string, limit int) ([]*models.Source, error)

	RecordScrapeSuccess(ctx context.Context, id string, scrapedAt time.Time) error
	RecordScrapeFailure(ctx context.Context, id string) error
	ResetFailures(ctx context.Context, id string) error

	Disable(ctx context.Context, id string, notes string, tags []string) error

	// ReenableDisabledSources clears disabled status on sources matching
	// the given tag, for maintenance use (spec SUPPLEMENTED FEATURES,
	// grounded on original_source's reenable_disabled_sources.py).
	ReenableDisabledSources(ctx context.Context, tag string) (int, error)
}

// CompanyStorage manages Company rows (spec §3, §4.6).
type CompanyStorage interface {
	Create(ctx context.Context, company *models.Company) (string, error)
	Get(ctx context.Context, id string) (*models.Company, error)
	GetByName(ctx context.Context, name string) (*models.Company, error)
	Update(ctx context.Context, company *models.Company) error
}

// PublishedStore is the external record of job matches and listings
// (spec §4.9). Writes are idempotent per normalised URL.
type PublishedStore interface {
	SaveMatch(ctx context.Context, listing *models.JobListing, match *models.JobMatch) (string, error)
	UpdateDocumentGenerated(ctx context.Context, id string, url string) error
	UpdateStatus(ctx context.Context, id string, status models.MatchStatus, notes string) error
	GetMatches(ctx context.Context, filters map[string]interface{}) ([]*models.JobMatch, error)
	JobExists(ctx context.Context, url string) (bool, error)
	BatchCheckExists(ctx context.Context, urls []string) (map[string]bool, error)
}
