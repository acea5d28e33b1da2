package events

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/placefinder/internal/interfaces"
	"github.com/ternarybob/placefinder/internal/models"
)

// NewLoggerSubscriber creates an event handler that logs events with the fields
// relevant to each payload type
func NewLoggerSubscriber(logger arbor.ILogger) interfaces.EventHandler {
	return func(ctx context.Context, event interfaces.Event) error {
		switch payload := event.Payload.(type) {
		case interfaces.AlertPayload:
			logger.Warn().
				Str("event_type", string(event.Type)).
				Str("title", payload.Title).
				Str("message", payload.Message).
				Str("cause", payload.Cause).
				Msg("Alert raised")
		case models.SessionSnapshot:
			logEvent := logger.Debug().
				Str("event_type", string(event.Type)).
				Str("state", string(payload.State)).
				Int("results", len(payload.Results)).
				Int("history", len(payload.History))
			if payload.Selected != nil {
				logEvent = logEvent.Str("selected", payload.Selected.PlaceID)
			}
			logEvent.Msg("Session updated")
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

	eventTypes := []interfaces.EventType{
		interfaces.EventSessionUpdated,
		interfaces.EventAlert,
		interfaces.EventHistoryCleared,
	}

	for _, eventType := range eventTypes {
		if err := eventService.Subscribe(eventType, subscriber); err != nil {
			return fmt.Errorf("failed to subscribe logger to event type %s: %w", eventType, err)
		}
	}

	logger.Debug().
		Int("event_type_count", len(eventTypes)).
		Msg("Logger subscribed to all event types")

	return nil
}
