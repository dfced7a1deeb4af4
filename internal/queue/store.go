// Package queue implements the durable row-per-item work queue (component
// A, spec §4.1): atomic status transitions, lineage-based loop prevention,
// retries, and event-sink notifications on top of internal/storage/sqlite.
package queue

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobfinder/internal/common"
	"github.com/ternarybob/jobfinder/internal/interfaces"
	"github.com/ternarybob/jobfinder/internal/models"
)

// Store is the SQLite-backed interfaces.QueueStorage implementation.
type Store struct {
	db     *sqlx.DB
	events interfaces.EventService
	logger arbor.ILogger
}

// New wraps rawDB with sqlx and subscribes to the inbound command.cancel
// event (spec §4.1 "Notifications").
func New(rawDB *sql.DB, events interfaces.EventService, logger arbor.ILogger) *Store {
	s := &Store{
		db:     sqlx.NewDb(rawDB, "sqlite"),
		events: events,
		logger: logger,
	}
	if events != nil {
		_ = events.Subscribe(interfaces.EventCommandCancel, s.onCancelCommand)
	}
	return s
}

var _ interfaces.QueueStorage = (*Store)(nil)

func (s *Store) onCancelCommand(ctx context.Context, event interfaces.Event) error {
	payload, ok := event.Payload.(map[string]interface{})
	if !ok {
		return fmt.Errorf("command.cancel: unexpected payload type %T", event.Payload)
	}
	id, _ := payload["id"].(string)
	if id == "" {
		return fmt.Errorf("command.cancel: missing id")
	}
	return s.UpdateStatus(ctx, id, models.StatusSkipped, "cancelled via command.cancel", "")
}

func (s *Store) publish(ctx context.Context, eventType interfaces.EventType, payload interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, interfaces.Event{Type: eventType, Payload: payload}); err != nil {
		s.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to publish queue event")
	}
}

// Add inserts item, assigning a tracking_id when the caller did not supply
// one (spec §6 "All items are assigned a fresh tracking_id unless the
// submitter supplies one"). A unique-URL constraint violation at insert
// surfaces as *DuplicateQueueItemError.
func (s *Store) Add(ctx context.Context, item *models.QueueItem) (string, error) {
	if item.ID == "" {
		item.ID = common.NewQueueItemID()
	}
	if item.TrackingID == "" {
		item.TrackingID = common.NewTrackingID()
	}
	if item.Status == "" {
		item.Status = models.StatusPending
	}
	if item.MaxRetries == 0 {
		item.MaxRetries = 3
	}
	if err := item.Validate(); err != nil {
		return "", fmt.Errorf("validate queue item: %w", err)
	}

	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO job_queue (
			id, type, status, url, company_name, company_id, source, source_id,
			tracking_id, parent_item_id, sub_task, company_sub_task, pipeline_state,
			scraped_data, scrape_config, source_discovery_config, metadata,
			retry_count, max_retries, result_message, error_details,
			created_at, updated_at, processed_at, completed_at, submitted_by
		) VALUES (
			:id, :type, :status, :url, :company_name, :company_id, :source, :source_id,
			:tracking_id, :parent_item_id, :sub_task, :company_sub_task, :pipeline_state,
			:scraped_data, :scrape_config, :source_discovery_config, :metadata,
			:retry_count, :max_retries, :result_message, :error_details,
			:created_at, :updated_at, :processed_at, :completed_at, :submitted_by
		)`, item)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return "", &DuplicateQueueItemError{URL: item.URL, TrackingID: item.TrackingID}
		}
		return "", fmt.Errorf("insert queue item: %w", err)
	}

	s.publish(ctx, interfaces.EventItemCreated, map[string]interface{}{"item": item})
	return item.ID, nil
}

func isUniqueConstraintErr(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetPending returns up to limit items ordered by updated_at ascending
// (spec §4.1 "Ordering").
func (s *Store) GetPending(ctx context.Context, limit int) ([]*models.QueueItem, error) {
	if limit <= 0 {
		limit = 10
	}
	var items []*models.QueueItem
	err := s.db.SelectContext(ctx, &items, `
		SELECT * FROM job_queue WHERE status = ? ORDER BY updated_at ASC LIMIT ?`,
		string(models.StatusPending), limit)
	if err != nil {
		return nil, fmt.Errorf("get pending queue items: %w", err)
	}
	return items, nil
}

// UpdateStatus transitions item id to status in a single transaction,
// stamping processed_at on entry to PROCESSING and completed_at on any
// terminal status (spec §3 "processed_at/completed_at timestamp
// discipline").
func (s *Store) UpdateStatus(ctx context.Context, id string, status models.QueueItemStatus, message, errorDetails string) error {
	now := time.Now().UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update status tx: %w", err)
	}
	defer tx.Rollback()

	query := `UPDATE job_queue SET status = ?, result_message = ?, error_details = ?, updated_at = ?`
	args := []interface{}{string(status), message, errorDetails, now}

	if status == models.StatusProcessing {
		query += `, processed_at = ?`
		args = append(args, now)
	}
	if status.IsTerminal() {
		query += `, completed_at = ?`
		args = append(args, now)
	}
	query += ` WHERE id = ?`
	args = append(args, id)

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update queue item status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("queue item %s not found", id)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update status tx: %w", err)
	}

	item, getErr := s.Get(ctx, id)
	if getErr == nil {
		s.publish(ctx, interfaces.EventItemUpdated, map[string]interface{}{"item": item})
	}
	return nil
}

// Get fetches a queue item by ID.
func (s *Store) Get(ctx context.Context, id string) (*models.QueueItem, error) {
	var item models.QueueItem
	err := s.db.GetContext(ctx, &item, `SELECT * FROM job_queue WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("queue item %s: %w", id, sql.ErrNoRows)
	}
	if err != nil {
		return nil, fmt.Errorf("get queue item: %w", err)
	}
	return &item, nil
}

// URLExists reports whether any queue item references url, regardless of
// lineage or status.
func (s *Store) URLExists(ctx context.Context, url string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM job_queue WHERE url = ?`, url)
	if err != nil {
		return false, fmt.Errorf("check url exists: %w", err)
	}
	return count > 0, nil
}

// HasCompanyTask reports whether a non-terminal COMPANY item already
// targets companyID.
func (s *Store) HasCompanyTask(ctx context.Context, companyID string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM job_queue
		WHERE type = ? AND company_id = ? AND status IN (?, ?)`,
		string(models.ItemTypeCompany), companyID, string(models.StatusPending), string(models.StatusProcessing))
	if err != nil {
		return false, fmt.Errorf("check company task: %w", err)
	}
	return count > 0, nil
}

// HasPendingWorkForURL reports whether a PENDING or PROCESSING item of
// itemType exists for url under trackingID (spec §8 invariant 2).
func (s *Store) HasPendingWorkForURL(ctx context.Context, url string, itemType models.QueueItemType, trackingID string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM job_queue
		WHERE url = ? AND type = ? AND tracking_id = ? AND status IN (?, ?)`,
		url, string(itemType), trackingID, string(models.StatusPending), string(models.StatusProcessing))
	if err != nil {
		return false, fmt.Errorf("check pending work for url: %w", err)
	}
	return count > 0, nil
}

// CanSpawnItem applies the loop-prevention rules of spec §4.1: deny when a
// matching URL+type item is pending/processing in the same lineage, is
// terminal-rejected in the same lineage, or already succeeded.
func (s *Store) CanSpawnItem(ctx context.Context, parent *models.QueueItem, targetURL string, targetType models.QueueItemType) (bool, interfaces.SpawnReason, error) {
	var matches []*models.QueueItem
	err := s.db.SelectContext(ctx, &matches, `
		SELECT * FROM job_queue WHERE url = ? AND type = ? AND tracking_id = ?`,
		targetURL, string(targetType), parent.TrackingID)
	if err != nil {
		return false, "", fmt.Errorf("find matching items for spawn check: %w", err)
	}

	for _, m := range matches {
		switch m.Status {
		case models.StatusPending, models.StatusProcessing:
			return false, interfaces.SpawnDeniedPending, nil
		case models.StatusSuccess:
			return false, interfaces.SpawnDeniedSucceeded, nil
		case models.StatusFiltered, models.StatusSkipped, models.StatusFailed:
			return false, interfaces.SpawnDeniedTerminal, nil
		}
	}
	return true, interfaces.SpawnAllowed, nil
}

// SpawnItemSafely inserts newItem as a child of parent after confirming
// CanSpawnItem allows it, inheriting tracking_id and setting parent_item_id
// (spec §4.1 "Spawned children inherit tracking_id...").
func (s *Store) SpawnItemSafely(ctx context.Context, parent *models.QueueItem, newItem *models.QueueItem) (string, error) {
	allowed, reason, err := s.CanSpawnItem(ctx, parent, newItem.URL, newItem.Type)
	if err != nil {
		return "", fmt.Errorf("spawn safety check: %w", err)
	}
	if !allowed {
		s.logger.Debug().
			Str("parent_id", parent.ID).
			Str("target_url", newItem.URL).
			Str("reason", string(reason)).
			Msg("Spawn denied by loop prevention")
		return "", nil
	}

	newItem.TrackingID = parent.TrackingID
	parentID := parent.ID
	newItem.ParentItemID = &parentID

	id, err := s.Add(ctx, newItem)
	if err != nil {
		if IsDuplicateQueueItem(err) {
			s.logger.Debug().Str("url", newItem.URL).Msg("Spawn skipped: duplicate queue item")
			return "", nil
		}
		return "", fmt.Errorf("spawn item: %w", err)
	}
	return id, nil
}

// SpawnNextPipelineStep is the JOB-pipeline-specific convenience over
// SpawnItemSafely: it clones parent's identifying fields into a new item at
// nextStage carrying newState (spec §4.4, §4.5).
func (s *Store) SpawnNextPipelineStep(ctx context.Context, parent *models.QueueItem, nextStage models.JobSubTask, newState models.PipelineState) (string, error) {
	child := &models.QueueItem{
		Type:          models.ItemTypeJob,
		URL:           parent.URL,
		CompanyName:   parent.CompanyName,
		CompanyID:     parent.CompanyID,
		Source:        parent.Source,
		SourceID:      parent.SourceID,
		SubTask:       nextStage,
		PipelineState: newState,
		MaxRetries:    parent.MaxRetries,
		SubmittedBy:   parent.SubmittedBy,
	}
	return s.SpawnItemSafely(ctx, parent, child)
}

// RequeueWithState resets item id to PENDING with newState, clearing
// processed_at/completed_at/error_details so it can be reprocessed from the
// new pipeline_state (spec §4.4 requeue semantics).
func (s *Store) RequeueWithState(ctx context.Context, id string, newState models.PipelineState) error {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE job_queue SET status = ?, pipeline_state = ?, updated_at = ?,
			processed_at = NULL, completed_at = NULL, error_details = ''
		WHERE id = ?`, string(models.StatusPending), newState, now, id)
	if err != nil {
		return fmt.Errorf("requeue with state: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("queue item %s not found", id)
	}

	item, getErr := s.Get(ctx, id)
	if getErr == nil {
		s.publish(ctx, interfaces.EventItemUpdated, map[string]interface{}{"item": item})
	}
	return nil
}

// RequeueCompanyStep is the in-place requeue fallback used when a unique-URL
// constraint prevents spawning a later company stage as a new item: the same
// item advances its company_sub_task and pipeline_state instead (spec §4.1
// "In-place requeue fallback").
func (s *Store) RequeueCompanyStep(ctx context.Context, id string, nextStage models.CompanySubTask, newState models.PipelineState) error {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE job_queue SET status = ?, company_sub_task = ?, pipeline_state = ?, updated_at = ?,
			processed_at = NULL, completed_at = NULL, error_details = ''
		WHERE id = ?`, string(models.StatusPending), string(nextStage), newState, now, id)
	if err != nil {
		return fmt.Errorf("requeue company step: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("queue item %s not found", id)
	}

	item, getErr := s.Get(ctx, id)
	if getErr == nil {
		s.publish(ctx, interfaces.EventItemUpdated, map[string]interface{}{"item": item})
	}
	return nil
}

// IncrementRetry bumps retry_count by one.
func (s *Store) IncrementRetry(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE job_queue SET retry_count = retry_count + 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("increment retry: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("queue item %s not found", id)
	}
	return nil
}

// Retry resets a FAILED item back to PENDING, clearing processed_at,
// completed_at and error_details. Returns false if the item was not FAILED.
func (s *Store) Retry(ctx context.Context, id string) (bool, error) {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE job_queue SET status = ?, updated_at = ?, processed_at = NULL,
			completed_at = NULL, error_details = ''
		WHERE id = ? AND status = ?`,
		string(models.StatusPending), now, id, string(models.StatusFailed))
	if err != nil {
		return false, fmt.Errorf("retry queue item: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return false, nil
	}

	item, getErr := s.Get(ctx, id)
	if getErr == nil {
		s.publish(ctx, interfaces.EventItemUpdated, map[string]interface{}{"item": item})
	}
	return true, nil
}

// Delete removes a queue item, returning false if it did not exist.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM job_queue WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete queue item: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return false, nil
	}
	s.publish(ctx, interfaces.EventItemDeleted, map[string]interface{}{"id": id})
	return true, nil
}

// Stats returns the count of items per status.
func (s *Store) Stats(ctx context.Context) (interfaces.QueueStats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM job_queue GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("query queue stats: %w", err)
	}
	defer rows.Close()

	stats := interfaces.QueueStats{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan queue stats row: %w", err)
		}
		stats[models.QueueItemStatus(status)] = count
	}
	return stats, rows.Err()
}

// HandleCommand dispatches an inbound command (spec §4.1 "Notifications").
// Only command.cancel is currently defined; it is also reachable via the
// event bus subscription set up in New, this method exists for callers that
// hold a direct Store reference rather than going through EventService.
func (s *Store) HandleCommand(ctx context.Context, cmd interfaces.Command) error {
	switch cmd.Name {
	case interfaces.EventCommandCancel:
		return s.UpdateStatus(ctx, cmd.ItemID, models.StatusSkipped, "cancelled via command.cancel", "")
	default:
		return fmt.Errorf("unknown command: %s", cmd.Name)
	}
}
