// Package llmadapter implements the LLM-backed collaborators the core
// consumes through narrow interfaces (spec §1 Non-goals, §4.5, §4.6, §4.7):
// extraction, company analysis, match analysis, and source-config repair,
// all routed through a task-type provider fallback chain (spec §5).
package llmadapter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobfinder/internal/interfaces"
)

// ClaudeProvider implements interfaces.LLMProvider against the Anthropic
// Messages API.
type ClaudeProvider struct {
	client    *anthropic.Client
	model     string
	timeout   time.Duration
	maxTokens int
	logger    arbor.ILogger
}

func NewClaudeProvider(apiKey, model string, timeout time.Duration, logger arbor.ILogger) *ClaudeProvider {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &ClaudeProvider{
		client:    client,
		model:     model,
		timeout:   timeout,
		maxTokens: 4096,
		logger:    logger,
	}
}

var _ interfaces.LLMProvider = (*ClaudeProvider)(nil)

func (p *ClaudeProvider) Name() string { return "claude" }

// Complete issues a single-turn completion with an optional system prompt.
// taskType is accepted for logging/routing symmetry with the fallback
// chain; the Anthropic API itself is task-agnostic.
func (p *ClaudeProvider) Complete(ctx context.Context, taskType interfaces.LLMTaskType, systemPrompt, userPrompt string) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(p.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	start := time.Now()
	resp, err := p.client.Messages.New(timeoutCtx, params)
	if err != nil {
		p.logger.Error().Err(err).Str("task", string(taskType)).Msg("claude completion failed")
		return "", fmt.Errorf("claude completion failed for task %s: %w", taskType, err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("claude returned no text content for task %s", taskType)
	}

	p.logger.Debug().
		Str("task", string(taskType)).
		Dur("duration", time.Since(start)).
		Int("response_length", out.Len()).
		Msg("claude completion succeeded")

	return out.String(), nil
}
