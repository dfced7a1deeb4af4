package scrape

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobfinder/internal/interfaces"
)

// ChromeRenderer implements interfaces.Renderer on top of a single shared
// headless Chrome instance, with a semaphore bounding how many render
// requests run concurrently against it (spec §4.2.1 "shared,
// bounded-concurrency resource").
type ChromeRenderer struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	sem         chan struct{}
	logger      arbor.ILogger
}

// NewChromeRenderer starts a headless Chrome allocator and returns a
// renderer that admits at most maxConcurrent simultaneous Render calls.
func NewChromeRenderer(maxConcurrent int, logger arbor.ILogger) *ChromeRenderer {
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &ChromeRenderer{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		sem:         make(chan struct{}, maxConcurrent),
		logger:      logger,
	}
}

var _ interfaces.Renderer = (*ChromeRenderer)(nil)

// Close releases the shared Chrome allocator. Call once at worker shutdown.
func (r *ChromeRenderer) Close() {
	r.allocCancel()
}

// Render loads req.URL in a fresh tab drawn from the shared allocator,
// waiting on req.WaitForSelector when set. On a selector timeout where the
// page otherwise loaded, it still returns the partial HTML captured before
// the timeout fired so bot/auth detection heuristics have something to
// inspect (spec §4.2.1).
func (r *ChromeRenderer) Render(ctx context.Context, req interfaces.RenderRequest) (interfaces.RenderResult, error) {
	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return interfaces.RenderResult{Status: interfaces.RenderError, Errors: []string{ctx.Err().Error()}}, ctx.Err()
	}
	defer func() { <-r.sem }()

	tabCtx, tabCancel := chromedp.NewContext(r.allocCtx)
	defer tabCancel()

	timeoutMS := req.TimeoutMS
	if timeoutMS <= 0 {
		timeoutMS = 15000
	}

	// actionCtx bounds only the navigate+wait step; tabCtx itself stays
	// alive afterward so a selector timeout can still harvest whatever HTML
	// the page rendered before the deadline (spec §4.2.1).
	actionCtx, actionCancel := context.WithTimeout(tabCtx, time.Duration(timeoutMS)*time.Millisecond)
	defer actionCancel()

	var finalURL string
	actions := []chromedp.Action{chromedp.Navigate(req.URL)}
	if req.WaitForSelector != "" {
		actions = append(actions, chromedp.WaitVisible(req.WaitForSelector, chromedp.ByQuery))
	}
	actions = append(actions, chromedp.Location(&finalURL))

	runErr := chromedp.Run(actionCtx, actions...)

	var html string
	captureErr := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	switch {
	case runErr == nil:
		return interfaces.RenderResult{FinalURL: finalURL, Status: interfaces.RenderOK, HTML: html}, nil
	case actionCtx.Err() == context.DeadlineExceeded && captureErr == nil && html != "":
		return interfaces.RenderResult{FinalURL: finalURL, Status: interfaces.RenderTimeout, HTML: html, Errors: []string{runErr.Error()}}, nil
	case actionCtx.Err() == context.DeadlineExceeded:
		return interfaces.RenderResult{Status: interfaces.RenderTimeout, Errors: []string{runErr.Error()}}, nil
	default:
		return interfaces.RenderResult{Status: interfaces.RenderError, Errors: []string{runErr.Error()}}, runErr
	}
}
