package models

import (
	"fmt"
	"time"
)

// QueueItemType identifies the kind of work a queue item represents.
type QueueItemType string

const (
	ItemTypeJob             QueueItemType = "JOB"
	ItemTypeCompany         QueueItemType = "COMPANY"
	ItemTypeScrape          QueueItemType = "SCRAPE"
	ItemTypeSourceDiscovery QueueItemType = "SOURCE_DISCOVERY"
	ItemTypeScrapeSource    QueueItemType = "SCRAPE_SOURCE"
	ItemTypeSourceRecover   QueueItemType = "SOURCE_RECOVER"
)

// QueueItemStatus is the lifecycle state of a queue item.
type QueueItemStatus string

const (
	StatusPending    QueueItemStatus = "PENDING"
	StatusProcessing QueueItemStatus = "PROCESSING"
	StatusSuccess    QueueItemStatus = "SUCCESS"
	StatusFailed     QueueItemStatus = "FAILED"
	StatusFiltered   QueueItemStatus = "FILTERED"
	StatusSkipped    QueueItemStatus = "SKIPPED"
)

// IsTerminal reports whether status is one the dispatcher never revisits.
func (s QueueItemStatus) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusFiltered, StatusSkipped:
		return true
	default:
		return false
	}
}

// JobSubTask enumerates the stages of the JOB pipeline (§4.5).
type JobSubTask string

const (
	JobStageScrape    JobSubTask = "scrape"
	JobStagePrefilter JobSubTask = "prefilter"
	JobStageExtract   JobSubTask = "extract"
	JobStageScore     JobSubTask = "score"
	JobStageAnalyse   JobSubTask = "analyse"
	JobStageSave      JobSubTask = "save"
)

// CompanySubTask enumerates the stages of the COMPANY pipeline (§4.6).
type CompanySubTask string

const (
	CompanyStageFetch   CompanySubTask = "fetch"
	CompanyStageExtract CompanySubTask = "extract"
	CompanyStageAnalyse CompanySubTask = "analyse"
	CompanyStageSave    CompanySubTask = "save"
)

// QueueItem is one row of work in the durable queue store (spec §3).
//
// Once created, the fields that identify the item (ID, Type, TrackingID,
// ParentItemID) never change; the dispatcher mutates Status, SubTask,
// PipelineState and the timestamps as the item progresses.
type QueueItem struct {
	ID   string        `db:"id" json:"id"`
	Type QueueItemType `db:"type" json:"type"`

	Status QueueItemStatus `db:"status" json:"status"`

	URL         string  `db:"url" json:"url"`
	CompanyName string  `db:"company_name" json:"company_name,omitempty"`
	CompanyID   *string `db:"company_id" json:"company_id,omitempty"`
	Source      string  `db:"source" json:"source,omitempty"`
	SourceID    *string `db:"source_id" json:"source_id,omitempty"`

	TrackingID   string  `db:"tracking_id" json:"tracking_id"`
	ParentItemID *string `db:"parent_item_id" json:"parent_item_id,omitempty"`

	SubTask        JobSubTask     `db:"sub_task" json:"sub_task,omitempty"`
	CompanySubTask CompanySubTask `db:"company_sub_task" json:"company_sub_task,omitempty"`

	PipelineState PipelineState `db:"pipeline_state" json:"pipeline_state"`

	ScrapedData           JSONMap `db:"scraped_data" json:"scraped_data,omitempty"`
	ScrapeConfig          JSONMap `db:"scrape_config" json:"scrape_config,omitempty"`
	SourceDiscoveryConfig JSONMap `db:"source_discovery_config" json:"source_discovery_config,omitempty"`
	Metadata              JSONMap `db:"metadata" json:"metadata,omitempty"`

	RetryCount    int    `db:"retry_count" json:"retry_count"`
	MaxRetries    int    `db:"max_retries" json:"max_retries"`
	ResultMessage string `db:"result_message" json:"result_message,omitempty"`
	ErrorDetails  string `db:"error_details" json:"error_details,omitempty"`

	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	ProcessedAt *time.Time `db:"processed_at" json:"processed_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`

	SubmittedBy string `db:"submitted_by" json:"submitted_by,omitempty"`
}

// JSONMap is a loosely typed JSON object persisted as a TEXT column.
type JSONMap map[string]interface{}

// Validate checks the minimal set of fields required before the item can
// be enqueued (spec §6 "queue item kinds accepted from external submitters").
func (q *QueueItem) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("queue item id is required")
	}
	switch q.Type {
	case ItemTypeJob:
		if q.URL == "" {
			return fmt.Errorf("job item requires a url")
		}
	case ItemTypeCompany:
		if q.CompanyName == "" {
			return fmt.Errorf("company item requires a company_name")
		}
		if q.CompanySubTask == "" {
			return fmt.Errorf("company item requires a starting sub-stage")
		}
	case ItemTypeScrape:
		// scrape_config is optional
	case ItemTypeSourceDiscovery:
		if q.CompanyName == "" {
			return fmt.Errorf("source discovery item requires a company_name")
		}
	case ItemTypeScrapeSource, ItemTypeSourceRecover:
		if q.SourceID == nil || *q.SourceID == "" {
			return fmt.Errorf("%s item requires a source_id", q.Type)
		}
	default:
		return fmt.Errorf("unknown queue item type: %s", q.Type)
	}
	return nil
}

// IsRoot reports whether this item has no parent (an external submission).
func (q *QueueItem) IsRoot() bool {
	return q.ParentItemID == nil
}
