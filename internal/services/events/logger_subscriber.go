package events

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/concierge/internal/interfaces"
	"github.com/ternarybob/concierge/internal/models"
)

// NewLoggerSubscriber creates an event handler that logs knowledge and routing events
func NewLoggerSubscriber(logger arbor.ILogger) interfaces.EventHandler {
	return func(ctx context.Context, event interfaces.Event) error {
		switch payload := event.Payload.(type) {
		case models.RefreshStatus:
			if event.Type == interfaces.EventKnowledgeRefreshFailed {
				logger.Warn().
					Str("event_type", string(event.Type)).
					Str("collection", payload.Collection).
					Int("item_count", payload.ItemCount).
					Int("consecutive_failures", payload.ConsecutiveFailures).
					Str("error", payload.LastError).
					Msg("Knowledge refresh failed, serving previous snapshot")
				return nil
			}
			logger.Info().
				Str("event_type", string(event.Type)).
				Str("collection", payload.Collection).
				Int("item_count", payload.ItemCount).
				Int("dropped", payload.Dropped).
				Msg("Knowledge refreshed")
		case models.RoutingDecision:
			logger.Debug().
				Str("event_type", string(event.Type)).
				Str("kind", string(payload.Kind)).
				Str("query", payload.Query).
				Bool("confident", payload.Confident).
				Msg("Message routed")
		default:
			logger.Debug().
				Str("event_type", string(event.Type)).
				Msg("Event published")
		}
		return nil
	}
}

// SubscribeLoggerToAllEvents subscribes the logger to all known event types
func SubscribeLoggerToAllEvents(eventService interfaces.EventService, logger arbor.ILogger) error {
	subscriber := NewLoggerSubscriber(logger)

	for _, eventType := range interfaces.AllEventTypes {
		if err := eventService.Subscribe(eventType, subscriber); err != nil {
			return fmt.Errorf("failed to subscribe logger to event type %s: %w", eventType, err)
		}
	}

	return nil
}
