package interfaces

import (
	"context"
	"time"
)

// EventType names a domain event
type EventType string

const (
	// EventKnowledgeRefreshed carries the models.RefreshStatus of a successful refresh
	EventKnowledgeRefreshed EventType = "knowledge_refreshed"
	// EventKnowledgeRefreshFailed carries the models.RefreshStatus of a failed refresh
	EventKnowledgeRefreshFailed EventType = "knowledge_refresh_failed"
	// EventMessageRouted carries the models.RoutingDecision made for one message
	EventMessageRouted EventType = "message_routed"
)

// AllEventTypes lists every event the service publishes
var AllEventTypes = []EventType{
	EventKnowledgeRefreshed,
	EventKnowledgeRefreshFailed,
	EventMessageRouted,
}

// Event is one published occurrence. At is stamped by the bus when zero.
type Event struct {
	Type    EventType
	Payload interface{}
	At      time.Time
}

// EventHandler reacts to one event
type EventHandler func(ctx context.Context, event Event) error

// EventService is the in-process pub/sub bus between stores, router and observers
type EventService interface {
	// Subscribe registers handler for eventType
	Subscribe(eventType EventType, handler EventHandler) error

	// Publish hands the event to every subscriber without waiting. Handlers run
	// detached from ctx cancellation so a finished request does not abort them.
	Publish(ctx context.Context, event Event) error

	// PublishSync runs every subscriber and returns their joined errors
	PublishSync(ctx context.Context, event Event) error

	// Close rejects further subscriptions and publications
	Close() error
}
