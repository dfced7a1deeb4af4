package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// PipelineState is the opaque per-item map carried between stages of the
// same queue item (spec §3, §9 "opaque pipeline_state map"). It keeps a
// typed payload for the fields every stage handler reads directly, plus a
// free-form Extensions map so new fields don't require a schema change.
type PipelineState struct {
	// PipelineStage names the current JOB stage when the item's SubTask
	// column is not authoritative (legacy rows store it here instead).
	PipelineStage JobSubTask `json:"pipeline_stage,omitempty"`

	// JobData is the scraped record produced by the scrape stage.
	JobData JSONMap `json:"job_data,omitempty"`

	// Extraction is the structured record returned by the LLM extraction
	// adapter (spec §4.5 stage 3).
	Extraction JSONMap `json:"extraction,omitempty"`

	// FilterResult is the Stage A/B verdict from the filter engine.
	FilterResult JSONMap `json:"filter_result,omitempty"`

	// Score is the deterministic [0,100] score computed in stage 4.
	Score *float64 `json:"score,omitempty"`

	// MatchResult is the analyser adapter's output (spec §4.5 stage 5).
	MatchResult JSONMap `json:"match_result,omitempty"`

	// AwaitingCompany and CompanyWaitCount implement the bounded wait for
	// company enrichment described in spec §4.5 and §9.
	AwaitingCompany  bool `json:"awaiting_company,omitempty"`
	CompanyWaitCount int  `json:"company_wait_count,omitempty"`

	// PrefilterBypass is set at submission time; when true the job
	// processor skips Stage A filtering (spec GLOSSARY "Prefilter bypass").
	PrefilterBypass bool `json:"prefilter_bypass,omitempty"`

	// Extensions carries fields not named above, forward-compatibly.
	Extensions JSONMap `json:"extensions,omitempty"`
}

// Clone returns a deep-enough copy suitable for handing to a spawned child
// item: per spec §3 "when a new child is spawned for a later stage, its
// state is copied, not shared".
func (p PipelineState) Clone() PipelineState {
	clone := p
	clone.JobData = cloneJSONMap(p.JobData)
	clone.Extraction = cloneJSONMap(p.Extraction)
	clone.FilterResult = cloneJSONMap(p.FilterResult)
	clone.MatchResult = cloneJSONMap(p.MatchResult)
	clone.Extensions = cloneJSONMap(p.Extensions)
	if p.Score != nil {
		score := *p.Score
		clone.Score = &score
	}
	return clone
}

func cloneJSONMap(m JSONMap) JSONMap {
	if m == nil {
		return nil
	}
	out := make(JSONMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Value implements driver.Valuer so PipelineState can be written directly
// as a TEXT column by database/sql and sqlx.
func (p PipelineState) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal pipeline_state: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner for reading the TEXT column back.
func (p *PipelineState) Scan(src interface{}) error {
	if src == nil {
		*p = PipelineState{}
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported pipeline_state scan type %T", src)
	}
	if len(data) == 0 {
		*p = PipelineState{}
		return nil
	}
	return json.Unmarshal(data, p)
}

// Value/Scan for JSONMap so the kind-specific payload columns round-trip
// the same way pipeline_state does.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal json map: %w", err)
	}
	return string(data), nil
}

func (m *JSONMap) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported json map scan type %T", src)
	}
	if len(data) == 0 {
		*m = nil
		return nil
	}
	var out JSONMap
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*m = out
	return nil
}
