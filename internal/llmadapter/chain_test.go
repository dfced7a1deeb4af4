package llmadapter

import (
	"context"
	"errors"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobfinder/internal/interfaces"
)

type stubProvider struct {
	name   string
	result string
	err    error
	calls  int
}

func (s *stubProvider) Name() string { return s.name }
func (s *stubProvider) Complete(ctx context.Context, taskType interfaces.LLMTaskType, systemPrompt, userPrompt string) (string, error) {
	s.calls++
	return s.result, s.err
}

func TestProviderChainFallsThroughOnError(t *testing.T) {
	first := &stubProvider{name: "first", err: errors.New("boom")}
	second := &stubProvider{name: "second", result: "ok"}
	chain := NewProviderChain(arbor.NewLogger(), first, second)

	out, err := chain.Complete(context.Background(), interfaces.TaskExtraction, "sys", "user")
	if err != nil {
		t.Fatalf("expected fallback success, got error: %v", err)
	}
	if out != "ok" {
		t.Fatalf("expected result from second provider, got %q", out)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Fatalf("expected both providers called once, got first=%d second=%d", first.calls, second.calls)
	}
}

func TestProviderChainAllFail(t *testing.T) {
	chain := NewProviderChain(arbor.NewLogger(), &stubProvider{name: "a", err: errors.New("x")})
	_, err := chain.Complete(context.Background(), interfaces.TaskExtraction, "sys", "user")
	if err == nil {
		t.Fatalf("expected error when every provider fails")
	}
}

func TestProviderChainEmpty(t *testing.T) {
	chain := NewProviderChain(arbor.NewLogger())
	_, err := chain.Complete(context.Background(), interfaces.TaskExtraction, "sys", "user")
	if err == nil {
		t.Fatalf("expected error with no providers configured")
	}
}

func TestProviderChainSetProvidersSwapsLiveSet(t *testing.T) {
	chain := NewProviderChain(arbor.NewLogger(), &stubProvider{name: "old", result: "old-result"})

	out, err := chain.Complete(context.Background(), interfaces.TaskExtraction, "sys", "user")
	if err != nil || out != "old-result" {
		t.Fatalf("unexpected initial result: %q, err=%v", out, err)
	}

	chain.SetProviders([]interfaces.LLMProvider{&stubProvider{name: "new", result: "new-result"}})

	out, err = chain.Complete(context.Background(), interfaces.TaskExtraction, "sys", "user")
	if err != nil || out != "new-result" {
		t.Fatalf("expected swapped provider result, got %q, err=%v", out, err)
	}
}
