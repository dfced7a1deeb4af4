package llmadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobfinder/internal/interfaces"
	"github.com/ternarybob/jobfinder/internal/models"
)

// SourceClassifier implements interfaces.SourceClassifier against a
// provider chain (spec §4.7 SOURCE_DISCOVERY).
type SourceClassifier struct {
	provider interfaces.LLMProvider
	logger   arbor.ILogger
}

func NewSourceClassifier(provider interfaces.LLMProvider, logger arbor.ILogger) *SourceClassifier {
	return &SourceClassifier{provider: provider, logger: logger}
}

var _ interfaces.SourceClassifier = (*SourceClassifier)(nil)

type sourceClassificationWire struct {
	Kind       string         `json:"kind"`
	SourceType string         `json:"source_type"`
	Config     models.JSONMap `json:"config"`
	Notes      string         `json:"notes"`
}

func (c *SourceClassifier) Classify(ctx context.Context, companyName, url, sampleHTML string) (interfaces.SourceClassification, error) {
	prompt := buildSourceClassificationPrompt(companyName, url, sampleHTML)
	raw, err := c.provider.Complete(ctx, interfaces.TaskSourceDiscovery, sourceClassificationSystemPrompt, prompt)
	if err != nil {
		return interfaces.SourceClassification{}, fmt.Errorf("source classification call failed: %w", err)
	}

	var wire sourceClassificationWire
	if err := json.Unmarshal([]byte(stripJSONFence(raw)), &wire); err != nil {
		return interfaces.SourceClassification{}, fmt.Errorf("source classification response parse failed: %w", err)
	}

	return interfaces.SourceClassification{
		Kind:       interfaces.SourceKind(wire.Kind),
		SourceType: models.SourceType(wire.SourceType),
		Config:     wire.Config,
		Notes:      wire.Notes,
	}, nil
}
