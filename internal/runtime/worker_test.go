package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobfinder/internal/common"
	"github.com/ternarybob/jobfinder/internal/interfaces"
	"github.com/ternarybob/jobfinder/internal/models"
)

type emptyQueue struct {
	pending      []*models.QueueItem
	pendingCalls int
}

func (q *emptyQueue) Add(ctx context.Context, item *models.QueueItem) (string, error) { return "", nil }
func (q *emptyQueue) GetPending(ctx context.Context, limit int) ([]*models.QueueItem, error) {
	q.pendingCalls++
	return q.pending, nil
}
func (q *emptyQueue) UpdateStatus(ctx context.Context, id string, status models.QueueItemStatus, message, errDetails string) error {
	return nil
}
func (q *emptyQueue) Get(ctx context.Context, id string) (*models.QueueItem, error) { return nil, nil }
func (q *emptyQueue) URLExists(ctx context.Context, url string) (bool, error)       { return false, nil }
func (q *emptyQueue) HasCompanyTask(ctx context.Context, companyID string) (bool, error) {
	return false, nil
}
func (q *emptyQueue) HasPendingWorkForURL(ctx context.Context, url string, t models.QueueItemType, trackingID string) (bool, error) {
	return false, nil
}
func (q *emptyQueue) CanSpawnItem(ctx context.Context, parent *models.QueueItem, targetURL string, targetType models.QueueItemType) (bool, interfaces.SpawnReason, error) {
	return true, interfaces.SpawnAllowed, nil
}
func (q *emptyQueue) SpawnItemSafely(ctx context.Context, parent, newItem *models.QueueItem) (string, error) {
	return "", nil
}
func (q *emptyQueue) SpawnNextPipelineStep(ctx context.Context, parent *models.QueueItem, nextStage models.JobSubTask, newState models.PipelineState) (string, error) {
	return "", nil
}
func (q *emptyQueue) RequeueWithState(ctx context.Context, id string, newState models.PipelineState) error {
	return nil
}
func (q *emptyQueue) RequeueCompanyStep(ctx context.Context, id string, nextStage models.CompanySubTask, newState models.PipelineState) error {
	return nil
}
func (q *emptyQueue) IncrementRetry(ctx context.Context, id string) error { return nil }
func (q *emptyQueue) Retry(ctx context.Context, id string) (bool, error) { return false, nil }
func (q *emptyQueue) Delete(ctx context.Context, id string) (bool, error) { return false, nil }
func (q *emptyQueue) Stats(ctx context.Context) (interfaces.QueueStats, error) {
	return interfaces.QueueStats{}, nil
}
func (q *emptyQueue) HandleCommand(ctx context.Context, cmd interfaces.Command) error { return nil }

func newTestApp(q *emptyQueue) *App {
	cfg := common.NewDefaultConfig()
	cfg.Queue.PollInterval = "20ms"
	cfg.Queue.BatchSize = 5
	return &App{
		Config: cfg,
		Logger: arbor.NewLogger(),
		Queue:  q,
	}
}

func TestWorkerStartStopReportsStatus(t *testing.T) {
	q := &emptyQueue{}
	app := newTestApp(q)
	worker := NewWorker(app)

	if worker.Status().Running {
		t.Fatalf("expected worker not running before Start")
	}

	worker.Start()
	defer worker.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if q.pendingCalls > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if q.pendingCalls == 0 {
		t.Fatalf("expected poll loop to call GetPending at least once")
	}
	if !worker.Status().Running {
		t.Fatalf("expected worker running after Start")
	}

	worker.Stop()
	if worker.Status().Running {
		t.Fatalf("expected worker stopped after Stop")
	}
}

func TestWorkerStartIsIdempotent(t *testing.T) {
	app := newTestApp(&emptyQueue{})
	worker := NewWorker(app)
	worker.Start()
	worker.Start() // should be a no-op, not panic or deadlock
	worker.Stop()
}

func TestReloadPollIntervalValidatesDuration(t *testing.T) {
	cfg := common.NewDefaultConfig()
	if err := ReloadPollInterval(cfg, "not-a-duration"); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
	if err := ReloadPollInterval(cfg, "5s"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Queue.PollInterval != "5s" {
		t.Fatalf("expected poll interval updated, got %q", cfg.Queue.PollInterval)
	}
}
