package scrape

import (
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobfinder/internal/common"
)

func TestNewStackWiresAllCollaborators(t *testing.T) {
	cfg := common.ScrapeConfig{
		RequestsPerSecond:  2,
		HTTPTimeoutSeconds: 10,
		RendererMaxPages:   1,
	}
	stack := NewStack(cfg, arbor.NewLogger())

	if stack.Factory == nil {
		t.Fatalf("expected adapter factory to be wired")
	}
	if stack.Targeted == nil {
		t.Fatalf("expected targeted scraper to be wired")
	}
	if stack.Prober == nil {
		t.Fatalf("expected prober to be wired")
	}
	if stack.Sampler == nil {
		t.Fatalf("expected content sampler to be wired")
	}
	if stack.Renderer == nil {
		t.Fatalf("expected renderer to be wired")
	}
}

func TestNewStackAppliesDefaults(t *testing.T) {
	stack := NewStack(common.ScrapeConfig{}, arbor.NewLogger())
	if stack.Factory == nil {
		t.Fatalf("expected adapter factory wired even with zero-value config")
	}
}
