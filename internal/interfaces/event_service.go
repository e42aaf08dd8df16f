package interfaces

import "context"

// EventType represents different event types in the system
type EventType string

const (
	// EventSegmentUpdated fires when a segment's target or status changes.
	EventSegmentUpdated EventType = "segment_updated"
	// EventFileProgress fires when a file's processing status or progress changes.
	EventFileProgress EventType = "file_progress"
	// EventJobUpdate fires when a job transitions or its progress advances.
	EventJobUpdate EventType = "job_update"
)

// Event represents a system event
type Event struct {
	Type    EventType
	Payload interface{}
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event) error

// EventService manages the in-process pub/sub event bus connecting the
// worker and services to the broadcast layer. Events are fire-and-forget
// notifications; the stores remain authoritative.
type EventService interface {
	// Subscribe to an event type
	Subscribe(eventType EventType, handler EventHandler) error

	// Publish an event to all subscribers asynchronously
	Publish(ctx context.Context, event Event) error

	// PublishSync publishes an event and waits for all handlers to complete
	PublishSync(ctx context.Context, event Event) error

	// Close shuts down the event service
	Close() error
}
