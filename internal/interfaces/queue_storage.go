package interfaces

import (
	"context"

	"github.com/ternarybob/jobfinder/internal/models"
)

// SpawnReason explains why CanSpawnItem denied a spawn (spec §4.1 "Loop
// prevention").
type SpawnReason string

const (
	SpawnAllowed         SpawnReason = ""
	SpawnDeniedPending   SpawnReason = "matching_item_pending_or_processing"
	SpawnDeniedTerminal  SpawnReason = "matching_item_terminal_in_lineage"
	SpawnDeniedSucceeded SpawnReason = "matching_item_already_succeeded"
)

// QueueStats maps a status to the number of items in it (spec §4.1 Stats).
type QueueStats map[models.QueueItemStatus]int

// Command is an inbound instruction delivered through the event sink
// (spec §4.1 HandleCommand, §5 Cancellation).
type Command struct {
	Name   EventType
	ItemID string
}

// QueueStorage is the durable row-per-item store (component A, spec §4.1).
// Every mutation is a single transaction that also writes updated_at, and
// emits item.created/item.updated/item.deleted via the injected event
// sink.
type QueueStorage interface {
	Add(ctx context.Context, item *models.QueueItem) (string, error)

	GetPending(ctx context.Context, limit int) ([]*models.QueueItem, error)

	UpdateStatus(ctx context.Context, id string, status models.QueueItemStatus, message, errorDetails string) error

	Get(ctx context.Context, id string) (*models.QueueItem, error)

	URLExists(ctx context.Context, url string) (bool, error)

	// HasCompanyTask reports whether a non-terminal COMPANY item already
	// targets companyID, so the job processor doesn't spawn a duplicate
	// enrichment task while one is in flight (spec §4.5, §4.6).
	HasCompanyTask(ctx context.Context, companyID string) (bool, error)

	HasPendingWorkForURL(ctx context.Context, url string, itemType models.QueueItemType, trackingID string) (bool, error)

	CanSpawnItem(ctx context.Context, parent *models.QueueItem, targetURL string, targetType models.QueueItemType) (bool, SpawnReason, error)

	SpawnItemSafely(ctx context.Context, parent *models.QueueItem, newItem *models.QueueItem) (string, error)

	SpawnNextPipelineStep(ctx context.Context, parent *models.QueueItem, nextStage models.JobSubTask, newState models.PipelineState) (string, error)

	RequeueWithState(ctx context.Context, id string, newState models.PipelineState) error

	RequeueCompanyStep(ctx context.Context, id string, nextStage models.CompanySubTask, newState models.PipelineState) error

	IncrementRetry(ctx context.Context, id string) error

	// Retry resets a FAILED item back to PENDING, clearing processed_at,
	// completed_at and error_details. Returns false if the item was not in
	// a state eligible for retry.
	Retry(ctx context.Context, id string) (bool, error)

	Delete(ctx context.Context, id string) (bool, error)

	Stats(ctx context.Context) (QueueStats, error)

	HandleCommand(ctx context.Context, cmd Command) error
}
