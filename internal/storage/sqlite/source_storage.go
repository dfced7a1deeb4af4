package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobfinder/internal/interfaces"
	"github.com/ternarybob/jobfinder/internal/models"
)

// SourceStore is the SQLite-backed interfaces.SourceStorage implementation
// (spec §3, §4.7, §4.8).
type SourceStore struct {
	db     *sqlx.DB
	logger arbor.ILogger
}

// NewSourceStore wraps the shared connection's *sql.DB with sqlx for
// struct-scanned reads.
func NewSourceStore(conn *SQLiteDB, logger arbor.ILogger) *SourceStore {
	return &SourceStore{db: sqlx.NewDb(conn.DB(), "sqlite"), logger: logger}
}

var _ interfaces.SourceStorage = (*SourceStore)(nil)

type sourceRow struct {
	ID                  string         `db:"id"`
	Name                string         `db:"name"`
	SourceType          string         `db:"source_type"`
	Config              string         `db:"config"`
	Status              string         `db:"status"`
	CompanyID           sql.NullString `db:"company_id"`
	AggregatorDomain    sql.NullString `db:"aggregator_domain"`
	LastScrapedAt       sql.NullTime   `db:"last_scraped_at"`
	ConsecutiveFailures int            `db:"consecutive_failures"`
	ConsecutiveZeroJobs int            `db:"consecutive_zero_jobs"`
	DisabledNotes       string         `db:"disabled_notes"`
	DisabledTags        sql.NullString `db:"disabled_tags"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`
}

func (r *sourceRow) toModel() (*models.Source, error) {
	var cfg models.JSONMap
	if r.Config != "" {
		if err := json.Unmarshal([]byte(r.Config), &cfg); err != nil {
			return nil, fmt.Errorf("decode source config: %w", err)
		}
	}
	var tags []string
	if r.DisabledTags.Valid && r.DisabledTags.String != "" {
		if err := json.Unmarshal([]byte(r.DisabledTags.String), &tags); err != nil {
			return nil, fmt.Errorf("decode disabled_tags: %w", err)
		}
	}
	s := &models.Source{
		ID:                  r.ID,
		Name:                r.Name,
		SourceType:          models.SourceType(r.SourceType),
		Config:              cfg,
		Status:              models.SourceStatus(r.Status),
		ConsecutiveFailures: r.ConsecutiveFailures,
		ConsecutiveZeroJobs: r.ConsecutiveZeroJobs,
		DisabledNotes:       r.DisabledNotes,
		DisabledTags:        tags,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
	if r.CompanyID.Valid {
		s.CompanyID = &r.CompanyID.String
	}
	if r.AggregatorDomain.Valid {
		s.AggregatorDomain = &r.AggregatorDomain.String
	}
	if r.LastScrapedAt.Valid {
		t := r.LastScrapedAt.Time
		s.LastScrapedAt = &t
	}
	return s, nil
}

// Create inserts a new Source row, assigning CreatedAt/UpdatedAt.
func (s *SourceStore) Create(ctx context.Context, source *models.Source) (string, error) {
	if err := source.Validate(); err != nil {
		return "", fmt.Errorf("validate source: %w", err)
	}
	now := time.Now().UTC()
	source.CreatedAt = now
	source.UpdatedAt = now
	if source.Status == "" {
		source.Status = models.SourceStatusActive
	}

	cfgJSON, err := json.Marshal(source.Config)
	if err != nil {
		return "", fmt.Errorf("marshal source config: %w", err)
	}
	var tagsJSON []byte
	if len(source.DisabledTags) > 0 {
		tagsJSON, err = json.Marshal(source.DisabledTags)
		if err != nil {
			return "", fmt.Errorf("marshal disabled_tags: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO job_sources (
			id, name, source_type, config, status, company_id, aggregator_domain,
			last_scraped_at, consecutive_failures, consecutive_zero_jobs,
			disabled_notes, disabled_tags, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		source.ID, source.Name, string(source.SourceType), string(cfgJSON), string(source.Status),
		source.CompanyID, source.AggregatorDomain, source.LastScrapedAt,
		source.ConsecutiveFailures, source.ConsecutiveZeroJobs,
		source.DisabledNotes, nullableJSON(tagsJSON), source.CreatedAt, source.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert source: %w", err)
	}
	return source.ID, nil
}

// Get fetches a Source by ID.
func (s *SourceStore) Get(ctx context.Context, id string) (*models.Source, error) {
	var row sourceRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM job_sources WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("source %s: %w", id, sql.ErrNoRows)
	}
	if err != nil {
		return nil, fmt.Errorf("get source: %w", err)
	}
	return row.toModel()
}

// Update writes every mutable field of source, bumping UpdatedAt.
func (s *SourceStore) Update(ctx context.Context, source *models.Source) error {
	source.UpdatedAt = time.Now().UTC()

	cfgJSON, err := json.Marshal(source.Config)
	if err != nil {
		return fmt.Errorf("marshal source config: %w", err)
	}
	var tagsJSON []byte
	if len(source.DisabledTags) > 0 {
		tagsJSON, err = json.Marshal(source.DisabledTags)
		if err != nil {
			return fmt.Errorf("marshal disabled_tags: %w", err)
		}
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE job_sources SET
			name = ?, source_type = ?, config = ?, status = ?, company_id = ?,
			aggregator_domain = ?, last_scraped_at = ?, consecutive_failures = ?,
			consecutive_zero_jobs = ?, disabled_notes = ?, disabled_tags = ?, updated_at = ?
		WHERE id = ?`,
		source.Name, string(source.SourceType), string(cfgJSON), string(source.Status),
		source.CompanyID, source.AggregatorDomain, source.LastScrapedAt,
		source.ConsecutiveFailures, source.ConsecutiveZeroJobs,
		source.DisabledNotes, nullableJSON(tagsJSON), source.UpdatedAt, source.ID,
	)
	if err != nil {
		return fmt.Errorf("update source: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("source %s not found", source.ID)
	}
	return nil
}

// ListEligible returns active sources ordered by last_scraped_at ascending
// with never-scraped sources first (spec §4.8).
func (s *SourceStore) ListEligible(ctx context.Context, sourceIDs []string, limit int) ([]*models.Source, error) {
	query := `SELECT * FROM job_sources WHERE status = 'active'`
	args := []interface{}{}

	if len(sourceIDs) > 0 {
		placeholders := make([]string, len(sourceIDs))
		for i, id := range sourceIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		query += fmt.Sprintf(" AND id IN (%s)", strings.Join(placeholders, ","))
	}

	query += ` ORDER BY (last_scraped_at IS NOT NULL), last_scraped_at ASC`
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows []sourceRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list eligible sources: %w", err)
	}

	out := make([]*models.Source, 0, len(rows))
	for _, r := range rows {
		m, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// RecordScrapeSuccess resets failure counters and stamps last_scraped_at.
func (s *SourceStore) RecordScrapeSuccess(ctx context.Context, id string, scrapedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE job_sources SET last_scraped_at = ?, consecutive_failures = 0, updated_at = ?
		WHERE id = ?`, scrapedAt, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("record scrape success: %w", err)
	}
	return nil
}

// RecordScrapeFailure increments the per-source strike counter (spec §4.7,
// distinct from the per-job filter strike counter).
func (s *SourceStore) RecordScrapeFailure(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE job_sources SET consecutive_failures = consecutive_failures + 1, updated_at = ?
		WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("record scrape failure: %w", err)
	}
	return nil
}

// ResetFailures zeroes the failure counter, used after a successful scrape.
func (s *SourceStore) ResetFailures(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE job_sources SET consecutive_failures = 0, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("reset failures: %w", err)
	}
	return nil
}

// Disable marks a source disabled with the notes and tags that explain why
// (spec §4.8 disable taxonomy).
func (s *SourceStore) Disable(ctx context.Context, id string, notes string, tags []string) error {
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("marshal disabled_tags: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE job_sources SET status = ?, disabled_notes = ?, disabled_tags = ?, updated_at = ?
		WHERE id = ?`, string(models.SourceStatusDisabled), notes, string(tagsJSON), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("disable source: %w", err)
	}
	return nil
}

// ReenableDisabledSources clears disabled status for every source tagged
// with tag, for maintenance use (grounded on
// original_source/job-finder-worker's reenable_disabled_sources.py).
func (s *SourceStore) ReenableDisabledSources(ctx context.Context, tag string) (int, error) {
	var rows []sourceRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM job_sources WHERE status = ? AND disabled_tags LIKE ?`,
		string(models.SourceStatusDisabled), "%\""+tag+"\"%")
	if err != nil {
		return 0, fmt.Errorf("find disabled sources: %w", err)
	}

	count := 0
	for _, r := range rows {
		_, err := s.db.ExecContext(ctx, `
			UPDATE job_sources SET status = ?, consecutive_failures = 0, disabled_notes = '', disabled_tags = NULL, updated_at = ?
			WHERE id = ?`, string(models.SourceStatusActive), time.Now().UTC(), r.ID)
		if err != nil {
			return count, fmt.Errorf("reenable source %s: %w", r.ID, err)
		}
		count++
	}
	s.logger.Info().Str("tag", tag).Int("count", count).Msg("Reenabled disabled sources")
	return count, nil
}

func nullableJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
