package pipeline

import (
	"context"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobfinder/internal/common"
	"github.com/ternarybob/jobfinder/internal/interfaces"
	"github.com/ternarybob/jobfinder/internal/models"
)

// recordingQueue implements interfaces.QueueStorage, recording the last
// RequeueWithState/UpdateStatus call so stage tests can assert on outcome
// without a real database.
type recordingQueue struct {
	requeuedState *models.PipelineState
	requeuedStage models.JobSubTask
	updatedStatus models.QueueItemStatus
	updatedMsg    string
}

func (q *recordingQueue) Add(ctx context.Context, item *models.QueueItem) (string, error) { return "", nil }
func (q *recordingQueue) GetPending(ctx context.Context, limit int) ([]*models.QueueItem, error) {
	return nil, nil
}
func (q *recordingQueue) UpdateStatus(ctx context.Context, id string, status models.QueueItemStatus, message, errDetails string) error {
	q.updatedStatus = status
	q.updatedMsg = message
	return nil
}
func (q *recordingQueue) Get(ctx context.Context, id string) (*models.QueueItem, error) { return nil, nil }
func (q *recordingQueue) URLExists(ctx context.Context, url string) (bool, error)       { return false, nil }
func (q *recordingQueue) HasCompanyTask(ctx context.Context, companyID string) (bool, error) {
	return false, nil
}
func (q *recordingQueue) HasPendingWorkForURL(ctx context.Context, url string, t models.QueueItemType, trackingID string) (bool, error) {
	return false, nil
}
func (q *recordingQueue) CanSpawnItem(ctx context.Context, parent *models.QueueItem, targetURL string, targetType models.QueueItemType) (bool, interfaces.SpawnReason, error) {
	return true, interfaces.SpawnAllowed, nil
}
func (q *recordingQueue) SpawnItemSafely(ctx context.Context, parent, newItem *models.QueueItem) (string, error) {
	return "", nil
}
func (q *recordingQueue) SpawnNextPipelineStep(ctx context.Context, parent *models.QueueItem, nextStage models.JobSubTask, newState models.PipelineState) (string, error) {
	return "", nil
}
func (q *recordingQueue) RequeueWithState(ctx context.Context, id string, newState models.PipelineState) error {
	q.requeuedState = &newState
	q.requeuedStage = newState.PipelineStage
	return nil
}
func (q *recordingQueue) RequeueCompanyStep(ctx context.Context, id string, nextStage models.CompanySubTask, newState models.PipelineState) error {
	return nil
}
func (q *recordingQueue) IncrementRetry(ctx context.Context, id string) error { return nil }
func (q *recordingQueue) Retry(ctx context.Context, id string) (bool, error) { return false, nil }
func (q *recordingQueue) Delete(ctx context.Context, id string) (bool, error) { return false, nil }
func (q *recordingQueue) Stats(ctx context.Context) (interfaces.QueueStats, error) {
	return interfaces.QueueStats{}, nil
}
func (q *recordingQueue) HandleCommand(ctx context.Context, cmd interfaces.Command) error { return nil }

func newScoreTestProcessor(queue *recordingQueue, filters *common.FilterConfig) *JobProcessor {
	pc := interfaces.ProcessorContext{
		Queue:    queue,
		Filters:  filters,
		Recovery: &common.RecoveryConfig{},
		Logger:   arbor.NewLogger(),
	}
	return NewJobProcessor(pc)
}

func scoredItem() *models.QueueItem {
	job := models.ScrapedJob{Title: "Engineer", URL: "https://example.com/1"}
	return &models.QueueItem{
		ID: "item-1",
		PipelineState: models.PipelineState{
			PipelineStage: models.JobStageScore,
			JobData:       job.ToJSONMap(),
		},
	}
}

func TestJobStageScoreRejectsBelowMinMatchScore(t *testing.T) {
	queue := &recordingQueue{}
	filters := &common.FilterConfig{MinMatchScore: 1000}
	p := newScoreTestProcessor(queue, filters)

	if err := p.Process(context.Background(), scoredItem()); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if queue.updatedStatus != models.StatusFiltered {
		t.Fatalf("expected item marked FILTERED, got %q", queue.updatedStatus)
	}
	if queue.requeuedState != nil {
		t.Fatalf("expected no requeue when rejected by min_match_score")
	}
}

func TestJobStageScorePassesWhenThresholdDisabled(t *testing.T) {
	queue := &recordingQueue{}
	filters := &common.FilterConfig{MinMatchScore: 0}
	p := newScoreTestProcessor(queue, filters)

	if err := p.Process(context.Background(), scoredItem()); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if queue.requeuedStage != models.JobStageAnalyse {
		t.Fatalf("expected requeue into analyse stage, got %q", queue.requeuedStage)
	}
	if queue.updatedStatus != "" {
		t.Fatalf("expected no terminal status update, got %q", queue.updatedStatus)
	}
}
