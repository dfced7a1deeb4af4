package interfaces

import "context"

// EventType represents the event types emitted by the queue store and
// consumed by inbound command handling (spec §4.1 "Notifications").
type EventType string

const (
	// EventItemCreated is published after a queue item is inserted.
	// Payload: map[string]interface{}{"item": *models.QueueItem}
	EventItemCreated EventType = "item.created"

	// EventItemUpdated is published after any status/state mutation.
	// Payload: map[string]interface{}{"item": *models.QueueItem}
	EventItemUpdated EventType = "item.updated"

	// EventItemDeleted is published after a queue item is deleted.
	// Payload: map[string]interface{}{"id": string}
	EventItemDeleted EventType = "item.deleted"

	// EventCommandCancel is an inbound event: the store translates it into
	// a status change to SKIPPED for the named item (spec §4.1, §5).
	// Payload: map[string]interface{}{"id": string}
	EventCommandCancel EventType = "command.cancel"
)

// Event represents a system event.
type Event struct {
	Type    EventType
	Payload interface{}
}

// EventHandler handles one published event.
type EventHandler func(ctx context.Context, event Event) error

// EventService manages the pub/sub bus between the queue store and its
// observers, and the inbound command channel (spec §4.1, §5).
type EventService interface {
	Subscribe(eventType EventType, handler EventHandler) error
	Unsubscribe(eventType EventType, handler EventHandler) error
	Publish(ctx context.Context, event Event) error
	PublishSync(ctx context.Context, event Event) error
	Close() error
}
