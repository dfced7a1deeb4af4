package sqlite

import "fmt"

// schemaStatements creates the relational tables this store runs on, the
// hand-rolled job_queue table included. Column names track the `db` tags
// on the models in internal/models so sqlx struct scans work without
// manual mapping.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS job_queue (
		id                       TEXT PRIMARY KEY,
		type                     TEXT NOT NULL,
		status                   TEXT NOT NULL,
		url                      TEXT NOT NULL DEFAULT '',
		company_name             TEXT NOT NULL DEFAULT '',
		company_id               TEXT,
		source                   TEXT NOT NULL DEFAULT '',
		source_id                TEXT,
		tracking_id              TEXT NOT NULL,
		parent_item_id           TEXT,
		sub_task                 TEXT NOT NULL DEFAULT '',
		company_sub_task         TEXT NOT NULL DEFAULT '',
		pipeline_state           TEXT NOT NULL DEFAULT '{}',
		scraped_data             TEXT,
		scrape_config            TEXT,
		source_discovery_config  TEXT,
		metadata                 TEXT,
		retry_count              INTEGER NOT NULL DEFAULT 0,
		max_retries              INTEGER NOT NULL DEFAULT 3,
		result_message           TEXT NOT NULL DEFAULT '',
		error_details            TEXT NOT NULL DEFAULT '',
		created_at               DATETIME NOT NULL,
		updated_at               DATETIME NOT NULL,
		processed_at             DATETIME,
		completed_at             DATETIME,
		submitted_by             TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_job_queue_status ON job_queue(status)`,
	`CREATE INDEX IF NOT EXISTS idx_job_queue_tracking_id ON job_queue(tracking_id)`,
	`CREATE INDEX IF NOT EXISTS idx_job_queue_url ON job_queue(url)`,
	`CREATE INDEX IF NOT EXISTS idx_job_queue_parent_item_id ON job_queue(parent_item_id)`,
	`CREATE INDEX IF NOT EXISTS idx_job_queue_source_id ON job_queue(source_id)`,
	// A URL may appear in PENDING or PROCESSING at most once per
	// tracking_id x type (spec §4.1, §8 invariant 2).
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_job_queue_dedupe ON job_queue(tracking_id, type, url)
		WHERE status IN ('PENDING', 'PROCESSING') AND url <> ''`,

	`CREATE TABLE IF NOT EXISTS job_sources (
		id                    TEXT PRIMARY KEY,
		name                  TEXT NOT NULL,
		source_type           TEXT NOT NULL,
		config                TEXT NOT NULL DEFAULT '{}',
		status                TEXT NOT NULL DEFAULT 'active',
		company_id            TEXT,
		aggregator_domain     TEXT,
		last_scraped_at       DATETIME,
		consecutive_failures  INTEGER NOT NULL DEFAULT 0,
		consecutive_zero_jobs INTEGER NOT NULL DEFAULT 0,
		disabled_notes        TEXT NOT NULL DEFAULT '',
		disabled_tags         TEXT,
		created_at            DATETIME NOT NULL,
		updated_at            DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_job_sources_status ON job_sources(status)`,
	`CREATE INDEX IF NOT EXISTS idx_job_sources_last_scraped_at ON job_sources(last_scraped_at)`,
	`CREATE INDEX IF NOT EXISTS idx_job_sources_company_id ON job_sources(company_id)`,

	`CREATE TABLE IF NOT EXISTS companies (
		id                   TEXT PRIMARY KEY,
		name                 TEXT NOT NULL UNIQUE,
		website              TEXT NOT NULL DEFAULT '',
		about                TEXT NOT NULL DEFAULT '',
		culture              TEXT NOT NULL DEFAULT '',
		mission              TEXT NOT NULL DEFAULT '',
		tech_stack           TEXT,
		tier                 TEXT NOT NULL DEFAULT 'unknown',
		priority_score       REAL NOT NULL DEFAULT 0,
		has_portland_office  INTEGER NOT NULL DEFAULT 0,
		created_at           DATETIME NOT NULL,
		updated_at           DATETIME NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS job_listings (
		id            TEXT PRIMARY KEY,
		url           TEXT NOT NULL UNIQUE,
		title         TEXT NOT NULL DEFAULT '',
		company       TEXT NOT NULL DEFAULT '',
		location      TEXT NOT NULL DEFAULT '',
		description   TEXT NOT NULL DEFAULT '',
		posted_date   TEXT NOT NULL DEFAULT '',
		salary        TEXT NOT NULL DEFAULT '',
		extraction    TEXT,
		queue_item_id TEXT NOT NULL DEFAULT '',
		tracking_id   TEXT NOT NULL DEFAULT '',
		created_at    DATETIME NOT NULL,
		updated_at    DATETIME NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS job_matches (
		id                            TEXT PRIMARY KEY,
		job_listing_id                TEXT NOT NULL,
		url                           TEXT NOT NULL,
		score                         REAL NOT NULL DEFAULT 0,
		matched_skills                TEXT,
		missing_skills                TEXT,
		experience_match              TEXT NOT NULL DEFAULT '',
		key_strengths                 TEXT NOT NULL DEFAULT '',
		potential_concerns            TEXT NOT NULL DEFAULT '',
		customization_recommendations TEXT NOT NULL DEFAULT '',
		status                        TEXT NOT NULL DEFAULT 'new',
		document_url                  TEXT NOT NULL DEFAULT '',
		notes                         TEXT NOT NULL DEFAULT '',
		queue_item_id                 TEXT NOT NULL DEFAULT '',
		tracking_id                   TEXT NOT NULL DEFAULT '',
		created_at                    DATETIME NOT NULL,
		updated_at                    DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_job_matches_url ON job_matches(url)`,
	`CREATE INDEX IF NOT EXISTS idx_job_matches_status ON job_matches(status)`,
}

// InitSchema creates every relational table the worker needs if it is
// missing.
func (s *SQLiteDB) InitSchema() error {
	for i, stmt := range schemaStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	s.logger.Debug().Int("statement_count", len(schemaStatements)).Msg("Schema initialized")
	return nil
}
