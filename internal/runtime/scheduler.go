package runtime

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/jobfinder/internal/common"
	"github.com/ternarybob/jobfinder/internal/models"
)

// Scheduler submits a plain SCRAPE queue item on a cron schedule, giving
// operators periodic scraping without an external cron wrapper around the
// binary (spec §4.7 SCRAPE, driven by cfg.Scrape.Schedule).
type Scheduler struct {
	app *App
	cr  *cron.Cron
}

// NewScheduler starts nothing by itself; call Start to begin running the
// configured schedule. A blank cfg.Scrape.Schedule means periodic scraping
// is disabled and Start is a no-op.
func NewScheduler(app *App) *Scheduler {
	return &Scheduler{app: app, cr: cron.New()}
}

// Start registers the scrape submission job against app.Config.Scrape.Schedule
// and begins running it in the background. Returns an error if the
// expression doesn't parse; does nothing if the schedule is blank.
func (s *Scheduler) Start() error {
	schedule := s.app.Config.Scrape.Schedule
	if schedule == "" {
		return nil
	}

	_, err := s.cr.AddFunc(schedule, s.submitScrape)
	if err != nil {
		return err
	}
	s.cr.Start()
	s.app.Logger.Info().Str("schedule", schedule).Msg("scrape scheduler started")
	return nil
}

// Stop halts the scheduler, waiting for any in-flight run to finish.
func (s *Scheduler) Stop() {
	ctx := s.cr.Stop()
	<-ctx.Done()
}

func (s *Scheduler) submitScrape() {
	item := &models.QueueItem{
		ID:         common.NewQueueItemID(),
		Type:       models.ItemTypeScrape,
		TrackingID: common.NewTrackingID(),
	}
	if _, err := s.app.Queue.Add(context.Background(), item); err != nil {
		s.app.Logger.Warn().Err(err).Msg("scheduled scrape submission failed")
	}
}
