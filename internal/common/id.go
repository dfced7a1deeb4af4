package common

import (
	"github.com/google/uuid"
)

// NewQueueItemID generates a unique queue item ID ("qi_" prefix).
func NewQueueItemID() string {
	return "qi_" + uuid.New().String()
}

// NewSourceID generates a unique source ID ("src_" prefix).
func NewSourceID() string {
	return "src_" + uuid.New().String()
}

// NewCompanyID generates a unique company ID ("co_" prefix).
func NewCompanyID() string {
	return "co_" + uuid.New().String()
}

// NewTrackingID generates a unique lineage tracking ID ("trk_" prefix),
// shared by every queue item spawned within the same processing chain
// (spec §8 "lineage-based loop prevention").
func NewTrackingID() string {
	return "trk_" + uuid.New().String()
}

// NewMatchID generates a unique job match ID ("match_" prefix).
func NewMatchID() string {
	return "match_" + uuid.New().String()
}
