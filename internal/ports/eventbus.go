// Package ports define the EventBus interface for event-driven communication.
package ports

import (
	"github.com/tejashwikalptaru/audiotracker/internal/domain"
)

// EventBus is the observer channel between the core services and their consumers.
// Services publish state changes; shells (CLI, UI) subscribe to them.
//
// Thread-safety: Implementations must be thread-safe as events may be published and
// subscribed from multiple goroutines simultaneously.
//
// Example usage:
//
//	subID := bus.Subscribe(domain.EventTrackProgress, func(event domain.Event) {
//	    e := event.(domain.TrackProgressEvent)
//	    view.SetPosition(e.PositionMs, e.DurationMs)
//	})
//	defer bus.Unsubscribe(subID)
type EventBus interface {
	// Publish delivers an event to all subscribers of its type and to wildcard subscribers.
	// Handlers must return quickly; they run on the publisher's goroutine.
	Publish(event domain.Event)

	// Subscribe registers a handler for events of the specified type.
	// Each subscription gets a unique SubscriptionID.
	Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID

	// Unsubscribe removes a previously registered handler. Unknown IDs are a no-op.
	Unsubscribe(id domain.SubscriptionID)

	// SubscribeAll registers a handler that receives all events regardless of type.
	SubscribeAll(handler domain.EventHandler) domain.SubscriptionID

	// HasSubscribers returns true if anyone would receive an event of the given type.
	HasSubscribers(eventType domain.EventType) bool

	// Close shuts down the event bus. Publishing after Close is a no-op.
	Close() error
}
