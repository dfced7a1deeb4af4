package llmadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobfinder/internal/interfaces"
	"github.com/ternarybob/jobfinder/internal/models"
)

// SourceConfigRepairer implements interfaces.SourceConfigRepairer against a
// provider chain (spec §4.7 SOURCE_RECOVER step 3).
type SourceConfigRepairer struct {
	provider interfaces.LLMProvider
	logger   arbor.ILogger
}

func NewSourceConfigRepairer(provider interfaces.LLMProvider, logger arbor.ILogger) *SourceConfigRepairer {
	return &SourceConfigRepairer{provider: provider, logger: logger}
}

var _ interfaces.SourceConfigRepairer = (*SourceConfigRepairer)(nil)

type sourceRepairWire struct {
	SourceType string         `json:"source_type"`
	Config     models.JSONMap `json:"config"`
	Rationale  string         `json:"rationale"`
}

func (r *SourceConfigRepairer) ProposeConfig(ctx context.Context, sample string, current models.JSONMap, disableNotes string) (interfaces.SourceConfigProposal, error) {
	prompt := buildSourceRepairPrompt(sample, current, disableNotes)
	raw, err := r.provider.Complete(ctx, interfaces.TaskSourceRepair, sourceRepairSystemPrompt, prompt)
	if err != nil {
		return interfaces.SourceConfigProposal{}, fmt.Errorf("source repair call failed: %w", err)
	}

	var wire sourceRepairWire
	if err := json.Unmarshal([]byte(stripJSONFence(raw)), &wire); err != nil {
		return interfaces.SourceConfigProposal{}, fmt.Errorf("source repair response parse failed: %w", err)
	}

	return interfaces.SourceConfigProposal{
		SourceType: models.SourceType(wire.SourceType),
		Config:     wire.Config,
		Rationale:  wire.Rationale,
	}, nil
}
