package runtime

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ternarybob/jobfinder/internal/common"
)

// Worker drives the single-threaded polling loop (spec §5 "Scheduling
// model"): fetch a batch of PENDING items, process them sequentially, sleep
// for the configured poll interval, repeat until Stop is called.
type Worker struct {
	app *App

	mu           sync.Mutex
	running      bool
	stop         chan struct{}
	done         chan struct{}
	startedAt    time.Time
	itemsHandled int64
	lastPollAt   atomic.Value // time.Time
}

func NewWorker(app *App) *Worker {
	return &Worker{app: app}
}

// Start begins the poll loop in a new goroutine. Calling Start while
// already running is a no-op.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	w.startedAt = time.Now().UTC()
	w.stop = make(chan struct{})
	w.done = make(chan struct{})

	go w.loop(w.stop, w.done)
}

// Stop requests the poll loop exit and blocks until any in-flight item
// finishes (spec §5 "Cancellation": "any in-flight stage completes, then
// the loop exits").
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	stop, done := w.stop, w.done
	w.running = false
	w.mu.Unlock()

	close(stop)
	<-done
}

// Restart stops and immediately starts the loop again, per the admin
// surface's POST /restart (spec §6).
func (w *Worker) Restart() {
	w.Stop()
	w.Start()
}

func (w *Worker) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ctx := context.Background()
	logger := w.app.Logger
	cfg := w.app.Config

	logger.Info().Dur("poll_interval", cfg.PollInterval()).Int("batch_size", cfg.Queue.BatchSize).Msg("worker poll loop starting")

	for {
		select {
		case <-stop:
			logger.Info().Msg("worker poll loop stopping")
			return
		default:
		}

		w.pollOnce(ctx, stop)

		select {
		case <-stop:
			logger.Info().Msg("worker poll loop stopping")
			return
		case <-time.After(cfg.PollInterval()):
		}
	}
}

func (w *Worker) pollOnce(ctx context.Context, stop <-chan struct{}) {
	w.lastPollAt.Store(time.Now().UTC())

	batchSize := w.app.Config.Queue.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}

	items, err := w.app.Queue.GetPending(ctx, batchSize)
	if err != nil {
		w.app.Logger.Error().Err(err).Msg("failed to fetch pending queue items")
		return
	}

	for _, item := range items {
		select {
		case <-stop:
			return
		default:
		}
		w.app.Dispatcher.Process(ctx, item)
		atomic.AddInt64(&w.itemsHandled, 1)
	}
}

// Status reports the fields the admin surface's /health and /status
// endpoints expose (spec §6).
type Status struct {
	Running      bool
	Uptime       time.Duration
	ItemsHandled int64
	LastPollAt   time.Time
}

func (w *Worker) Status() Status {
	w.mu.Lock()
	running := w.running
	started := w.startedAt
	w.mu.Unlock()

	var uptime time.Duration
	if running {
		uptime = time.Since(started)
	}

	var lastPoll time.Time
	if v := w.lastPollAt.Load(); v != nil {
		lastPoll = v.(time.Time)
	}

	return Status{
		Running:      running,
		Uptime:       uptime,
		ItemsHandled: atomic.LoadInt64(&w.itemsHandled),
		LastPollAt:   lastPoll,
	}
}

// ReloadPollInterval applies a new poll interval string, validating it
// parses before swapping (spec §6 "POST /config/reload").
func ReloadPollInterval(cfg *common.Config, interval string) error {
	if _, err := time.ParseDuration(interval); err != nil {
		return err
	}
	cfg.Queue.PollInterval = interval
	return nil
}
