package scraperun

import (
	"context"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobfinder/internal/common"
	"github.com/ternarybob/jobfinder/internal/interfaces"
	"github.com/ternarybob/jobfinder/internal/models"
	"github.com/ternarybob/jobfinder/internal/scrape"
)

type fakeSources struct {
	sources   map[string]*models.Source
	disabled  map[string]string
	failures  map[string]int
	successes map[string]bool
}

func newFakeSources(sources ...*models.Source) *fakeSources {
	m := map[string]*models.Source{}
	for _, s := range sources {
		m[s.ID] = s
	}
	return &fakeSources{sources: m, disabled: map[string]string{}, failures: map[string]int{}, successes: map[string]bool{}}
}

func (f *fakeSources) Create(ctx context.Context, s *models.Source) (string, error) { return "", nil }
func (f *fakeSources) Get(ctx context.Context, id string) (*models.Source, error) {
	// Return a snapshot carrying the recorded failure count, as a fresh
	// read from the real store would.
	s, ok := f.sources[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	cp.ConsecutiveFailures = f.failures[id]
	return &cp, nil
}
func (f *fakeSources) Update(ctx context.Context, s *models.Source) error { return nil }
func (f *fakeSources) ListEligible(ctx context.Context, ids []string, limit int) ([]*models.Source, error) {
	var out []*models.Source
	for _, s := range f.sources {
		out = append(out, s)
	}
	return out, nil
}
func (f *fakeSources) RecordScrapeSuccess(ctx context.Context, id string, t time.Time) error {
	f.successes[id] = true
	return nil
}
func (f *fakeSources) RecordScrapeFailure(ctx context.Context, id string) error {
	f.failures[id]++
	return nil
}
func (f *fakeSources) ResetFailures(ctx context.Context, id string) error { return nil }
func (f *fakeSources) Disable(ctx context.Context, id, notes string, tags []string) error {
	tag := ""
	if len(tags) > 0 {
		tag = tags[0]
	}
	f.disabled[id] = tag
	return nil
}
func (f *fakeSources) ReenableDisabledSources(ctx context.Context, tag string) (int, error) {
	return 0, nil
}

type fakeQueue struct {
	added []*models.QueueItem
}

func (q *fakeQueue) Add(ctx context.Context, item *models.QueueItem) (string, error) {
	q.added = append(q.added, item)
	return item.ID, nil
}
func (q *fakeQueue) GetPending(ctx context.Context, limit int) ([]*models.QueueItem, error) {
	return nil, nil
}
func (q *fakeQueue) UpdateStatus(ctx context.Context, id string, status models.QueueItemStatus, message, errDetails string) error {
	return nil
}
func (q *fakeQueue) Get(ctx context.Context, id string) (*models.QueueItem, error) { return nil, nil }
func (q *fakeQueue) URLExists(ctx context.Context, url string) (bool, error)       { return false, nil }
func (q *fakeQueue) HasCompanyTask(ctx context.Context, companyID string) (bool, error) {
	return false, nil
}
func (q *fakeQueue) HasPendingWorkForURL(ctx context.Context, url string, t models.QueueItemType, trackingID string) (bool, error) {
	return false, nil
}
func (q *fakeQueue) CanSpawnItem(ctx context.Context, parent *models.QueueItem, targetURL string, targetType models.QueueItemType) (bool, interfaces.SpawnReason, error) {
	return true, interfaces.SpawnAllowed, nil
}
func (q *fakeQueue) SpawnItemSafely(ctx context.Context, parent, newItem *models.QueueItem) (string, error) {
	return "", nil
}
func (q *fakeQueue) SpawnNextPipelineStep(ctx context.Context, parent *models.QueueItem, nextStage models.JobSubTask, newState models.PipelineState) (string, error) {
	return "", nil
}
func (q *fakeQueue) RequeueWithState(ctx context.Context, id string, newState models.PipelineState) error {
	return nil
}
func (q *fakeQueue) RequeueCompanyStep(ctx context.Context, id string, nextStage models.CompanySubTask, newState models.PipelineState) error {
	return nil
}
func (q *fakeQueue) IncrementRetry(ctx context.Context, id string) error      { return nil }
func (q *fakeQueue) Retry(ctx context.Context, id string) (bool, error)      { return false, nil }
func (q *fakeQueue) Delete(ctx context.Context, id string) (bool, error)     { return false, nil }
func (q *fakeQueue) Stats(ctx context.Context) (interfaces.QueueStats, error) { return nil, nil }
func (q *fakeQueue) HandleCommand(ctx context.Context, cmd interfaces.Command) error {
	return nil
}

type fakeAdapter struct {
	jobs []models.ScrapedJob
	err  error
}

func (a *fakeAdapter) Scrape(ctx context.Context) ([]models.ScrapedJob, error) {
	return a.jobs, a.err
}

type fakeFactory struct {
	adapter interfaces.Scraper
	err     error
}

func (f *fakeFactory) NewAdapter(source *models.Source) (interfaces.Scraper, error) {
	return f.adapter, f.err
}

func newLogger() arbor.ILogger {
	return arbor.NewLogger()
}

func TestRunnerIngestDedupesAndQueues(t *testing.T) {
	source := &models.Source{ID: "src-1", Name: "Acme", SourceType: models.SourceTypeHTML, Status: models.SourceStatusActive}
	sources := newFakeSources(source)
	q := &fakeQueue{}
	jobs := []models.ScrapedJob{
		{Title: "Engineer", URL: "https://acme.example.com/jobs/1"},
		{Title: "Engineer dup", URL: "https://acme.example.com/jobs/1?utm_source=x"},
		{Title: "Designer", URL: "https://acme.example.com/jobs/2"},
	}
	factory := &fakeFactory{adapter: &fakeAdapter{jobs: jobs}}
	runner := NewRunner(sources, q, factory, interfaces.UserProfile{}, common.RecoveryConfig{}, newLogger())

	outcome, err := runner.RunSource(context.Background(), source.ID)
	if err != nil {
		t.Fatalf("RunSource returned error: %v", err)
	}
	if outcome.JobsFound != 3 {
		t.Fatalf("expected 3 jobs found, got %d", outcome.JobsFound)
	}
	if outcome.JobsQueued != 2 {
		t.Fatalf("expected 2 jobs queued after dedupe, got %d", outcome.JobsQueued)
	}
	if len(q.added) != 2 {
		t.Fatalf("expected 2 queue adds, got %d", len(q.added))
	}
	if !sources.successes[source.ID] {
		t.Fatalf("expected scrape success recorded")
	}
}

func TestRunnerDisablesOnAuthError(t *testing.T) {
	source := &models.Source{ID: "src-2", Name: "Wall", SourceType: models.SourceTypeHTML, Status: models.SourceStatusActive}
	sources := newFakeSources(source)
	q := &fakeQueue{}
	factory := &fakeFactory{adapter: &fakeAdapter{err: &scrape.ScrapeAuthError{Source: "Wall", URL: "https://wall.example.com"}}}
	runner := NewRunner(sources, q, factory, interfaces.UserProfile{}, common.RecoveryConfig{}, newLogger())

	_, err := runner.RunSource(context.Background(), source.ID)
	if err != nil {
		t.Fatalf("RunSource returned error: %v", err)
	}
	if tag, ok := sources.disabled[source.ID]; !ok || tag != models.DisableTagAuthRequired {
		t.Fatalf("expected source disabled with auth_required tag, got %q (ok=%v)", tag, ok)
	}
}

func TestRunnerStrikesOnTransientError(t *testing.T) {
	source := &models.Source{ID: "src-3", Name: "Flaky", SourceType: models.SourceTypeHTML, Status: models.SourceStatusActive}
	sources := newFakeSources(source)
	q := &fakeQueue{}
	factory := &fakeFactory{adapter: &fakeAdapter{err: &scrape.ScrapeTransientError{Source: "Flaky"}}}
	recovery := common.RecoveryConfig{FailureStrikeThreshold: 2}
	runner := NewRunner(sources, q, factory, interfaces.UserProfile{}, recovery, newLogger())

	if _, err := runner.RunSource(context.Background(), source.ID); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, ok := sources.disabled[source.ID]; ok {
		t.Fatalf("source should not be disabled after a single strike")
	}
	if _, err := runner.RunSource(context.Background(), source.ID); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if _, ok := sources.disabled[source.ID]; !ok {
		t.Fatalf("expected source disabled after reaching failure strike threshold")
	}
}

func TestRunnerStopsAtTargetMatches(t *testing.T) {
	sources := newFakeSources(
		&models.Source{ID: "a", Name: "A", SourceType: models.SourceTypeHTML, Status: models.SourceStatusActive},
		&models.Source{ID: "b", Name: "B", SourceType: models.SourceTypeHTML, Status: models.SourceStatusActive},
	)
	q := &fakeQueue{}
	factory := &fakeFactory{adapter: &fakeAdapter{jobs: []models.ScrapedJob{{Title: "x", URL: "https://x.example.com/1"}}}}
	runner := NewRunner(sources, q, factory, interfaces.UserProfile{}, common.RecoveryConfig{}, newLogger())

	target := 1
	result, err := runner.Run(context.Background(), interfaces.ScrapeRunConfig{TargetMatches: &target})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.SourcesAttempted != 1 {
		t.Fatalf("expected early stop after 1 source, attempted %d", result.SourcesAttempted)
	}
}
