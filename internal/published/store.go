// Package published implements the default SQLite-backed PublishedStore
// adapter (spec §4.9): the narrow external collaborator that records job
// matches once a JOB pipeline's save stage completes. A remote
// document-oriented store is the production collaborator per spec §1
// Non-goals; this implementation gives the worker a self-contained default
// and a concrete shape the interface's idempotency contract can be tested
// against.
package published

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobfinder/internal/common"
	"github.com/ternarybob/jobfinder/internal/interfaces"
	"github.com/ternarybob/jobfinder/internal/models"
	"github.com/ternarybob/jobfinder/internal/textutil"
)

// Store is the SQLite-backed interfaces.PublishedStore implementation.
type Store struct {
	db     *sqlx.DB
	logger arbor.ILogger
}

// New wraps rawDB with sqlx.
func New(rawDB *sql.DB, logger arbor.ILogger) *Store {
	return &Store{db: sqlx.NewDb(rawDB, "sqlite"), logger: logger}
}

var _ interfaces.PublishedStore = (*Store)(nil)

// SaveMatch persists listing and match, keyed by the normalised URL.
// Idempotent: a duplicate normalised URL returns the existing match id
// rather than erroring (spec §4.9).
func (s *Store) SaveMatch(ctx context.Context, listing *models.JobListing, match *models.JobMatch) (string, error) {
	normalizedURL := textutil.NormalizeURL(listing.URL)

	var existingID string
	err := s.db.GetContext(ctx, &existingID, `SELECT id FROM job_matches WHERE url = ?`, normalizedURL)
	if err == nil {
		s.logger.Debug().Str("url", normalizedURL).Str("match_id", existingID).Msg("SaveMatch: existing match, returning its id")
		return existingID, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("check existing match: %w", err)
	}

	now := time.Now().UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin save match tx: %w", err)
	}
	defer tx.Rollback()

	if listing.ID == "" {
		listing.ID = common.NewMatchID()
	}
	listing.URL = normalizedURL
	listing.CreatedAt = now
	listing.UpdatedAt = now

	extractionJSON, err := json.Marshal(listing.Extraction)
	if err != nil {
		return "", fmt.Errorf("marshal extraction: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO job_listings (
			id, url, title, company, location, description, posted_date, salary,
			extraction, queue_item_id, tracking_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			title = excluded.title, company = excluded.company, location = excluded.location,
			description = excluded.description, posted_date = excluded.posted_date,
			salary = excluded.salary, extraction = excluded.extraction, updated_at = excluded.updated_at`,
		listing.ID, listing.URL, listing.Title, listing.Company, listing.Location,
		listing.Description, listing.PostedDate, listing.Salary, string(extractionJSON),
		listing.QueueItemID, listing.TrackingID, listing.CreatedAt, listing.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert job listing: %w", err)
	}

	if match.ID == "" {
		match.ID = common.NewMatchID()
	}
	match.URL = normalizedURL
	match.JobListingID = listing.ID
	match.CreatedAt = now
	match.UpdatedAt = now
	if match.Status == "" {
		match.Status = models.MatchStatusNew
	}

	matchedJSON, err := json.Marshal(match.MatchedSkills)
	if err != nil {
		return "", fmt.Errorf("marshal matched_skills: %w", err)
	}
	missingJSON, err := json.Marshal(match.MissingSkills)
	if err != nil {
		return "", fmt.Errorf("marshal missing_skills: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO job_matches (
			id, job_listing_id, url, score, matched_skills, missing_skills,
			experience_match, key_strengths, potential_concerns, customization_recommendations,
			status, document_url, notes, queue_item_id, tracking_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		match.ID, match.JobListingID, match.URL, match.Score, string(matchedJSON), string(missingJSON),
		match.ExperienceMatch, match.KeyStrengths, match.PotentialConcerns, match.CustomizationRecommendation,
		string(match.Status), match.DocumentURL, match.Notes, match.QueueItemID, match.TrackingID,
		match.CreatedAt, match.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintErr(err) {
			// Lost a concurrent race against another SaveMatch for the
			// same URL; re-read and return the winner's id.
			var winnerID string
			if getErr := s.db.GetContext(ctx, &winnerID, `SELECT id FROM job_matches WHERE url = ?`, normalizedURL); getErr == nil {
				return winnerID, nil
			}
		}
		return "", fmt.Errorf("insert job match: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit save match tx: %w", err)
	}
	return match.ID, nil
}

func isUniqueConstraintErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// UpdateDocumentGenerated records the generated resume/cover-letter
// document's URL against match id (spec SUPPLEMENTED FEATURES: downstream
// document generation is out of core scope, but the field it writes to is
// part of the persisted record).
func (s *Store) UpdateDocumentGenerated(ctx context.Context, id string, url string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE job_matches SET document_url = ?, updated_at = ? WHERE id = ?`,
		url, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update document generated: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("job match %s not found", id)
	}
	return nil
}

// UpdateStatus sets the operator-facing status and notes of a job match.
func (s *Store) UpdateStatus(ctx context.Context, id string, status models.MatchStatus, notes string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE job_matches SET status = ?, notes = ?, updated_at = ? WHERE id = ?`,
		string(status), notes, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update match status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("job match %s not found", id)
	}
	return nil
}

// GetMatches returns matches filtered by the given equality filters (keys:
// "status", "tracking_id", "queue_item_id"); an empty filter map returns
// every match.
func (s *Store) GetMatches(ctx context.Context, filters map[string]interface{}) ([]*models.JobMatch, error) {
	allowedColumns := map[string]bool{"status": true, "tracking_id": true, "queue_item_id": true}

	query := `SELECT * FROM job_matches`
	var args []interface{}
	clause := ""
	for key, value := range filters {
		if !allowedColumns[key] {
			continue
		}
		if clause != "" {
			clause += " AND "
		}
		clause += key + " = ?"
		args = append(args, value)
	}
	if clause != "" {
		query += " WHERE " + clause
	}
	query += " ORDER BY created_at DESC"

	var matches []*models.JobMatch
	if err := s.db.SelectContext(ctx, &matches, query, args...); err != nil {
		return nil, fmt.Errorf("get matches: %w", err)
	}
	return matches, nil
}

// JobExists reports whether a match already exists for url's normalised
// form.
func (s *Store) JobExists(ctx context.Context, url string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM job_matches WHERE url = ?`, textutil.NormalizeURL(url))
	if err != nil {
		return false, fmt.Errorf("check job exists: %w", err)
	}
	return count > 0, nil
}

// BatchCheckExists reports existence for each of urls in one query,
// returning a map keyed by the original (non-normalised) input string.
func (s *Store) BatchCheckExists(ctx context.Context, urls []string) (map[string]bool, error) {
	result := make(map[string]bool, len(urls))
	if len(urls) == 0 {
		return result, nil
	}

	normalizedToOriginal := make(map[string]string, len(urls))
	normalized := make([]string, 0, len(urls))
	for _, u := range urls {
		n := textutil.NormalizeURL(u)
		normalizedToOriginal[n] = u
		normalized = append(normalized, n)
		result[u] = false
	}

	query, args, err := sqlx.In(`SELECT url FROM job_matches WHERE url IN (?)`, normalized)
	if err != nil {
		return nil, fmt.Errorf("build batch exists query: %w", err)
	}
	query = s.db.Rebind(query)

	var existing []string
	if err := s.db.SelectContext(ctx, &existing, query, args...); err != nil {
		return nil, fmt.Errorf("batch check exists: %w", err)
	}

	for _, n := range existing {
		if orig, ok := normalizedToOriginal[n]; ok {
			result[orig] = true
		}
	}
	return result, nil
}
