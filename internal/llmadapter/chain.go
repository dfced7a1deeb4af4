package llmadapter

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobfinder/internal/interfaces"
)

// ProviderChain tries each configured provider in order for a given task,
// falling through to the next on error (spec §5 "LLM adapters share a
// provider-fallback chain per task type; each call is isolated").
type ProviderChain struct {
	mu        sync.RWMutex
	providers []interfaces.LLMProvider
	logger    arbor.ILogger
}

func NewProviderChain(logger arbor.ILogger, providers ...interfaces.LLMProvider) *ProviderChain {
	return &ProviderChain{providers: providers, logger: logger}
}

var _ interfaces.LLMProvider = (*ProviderChain)(nil)

// SetProviders swaps the fallback order at runtime, letting POST
// /config/reload change provider selection without restarting the worker
// (spec §6).
func (c *ProviderChain) SetProviders(providers []interfaces.LLMProvider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers = providers
}

func (c *ProviderChain) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return strings.Join(names, ">")
}

func (c *ProviderChain) Complete(ctx context.Context, taskType interfaces.LLMTaskType, systemPrompt, userPrompt string) (string, error) {
	c.mu.RLock()
	providers := append([]interfaces.LLMProvider(nil), c.providers...)
	c.mu.RUnlock()

	if len(providers) == 0 {
		return "", fmt.Errorf("no LLM providers configured for task %s", taskType)
	}

	var lastErr error
	for _, p := range providers {
		result, err := p.Complete(ctx, taskType, systemPrompt, userPrompt)
		if err == nil {
			return result, nil
		}
		c.logger.Warn().Err(err).Str("provider", p.Name()).Str("task", string(taskType)).Msg("llm provider failed, trying next in chain")
		lastErr = err
	}
	return "", fmt.Errorf("all llm providers failed for task %s: %w", taskType, lastErr)
}
