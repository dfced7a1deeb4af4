package queue

import "fmt"

// DuplicateQueueItemError is returned by Add when the unique-URL-per-lineage
// constraint rejects the insert (spec §4.1 "Duplicate-URL handling"). It is
// benign during concurrent scraping: callers treat it as "already enqueued".
type DuplicateQueueItemError struct {
	URL        string
	TrackingID string
}

func (e *DuplicateQueueItemError) Error() string {
	return fmt.Sprintf("duplicate queue item for url %q in tracking_id %q", e.URL, e.TrackingID)
}

// IsDuplicateQueueItem reports whether err is a DuplicateQueueItemError.
func IsDuplicateQueueItem(err error) bool {
	_, ok := err.(*DuplicateQueueItemError)
	return ok
}
