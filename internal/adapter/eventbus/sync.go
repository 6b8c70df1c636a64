// Package eventbus provides implementations of the EventBus interface.
package eventbus

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/tejashwikalptaru/audiotracker/internal/domain"
	"github.com/tejashwikalptaru/audiotracker/internal/ports"
)

// SyncEventBus delivers events synchronously on the publisher's goroutine,
// type-specific subscribers first, then wildcard subscribers, each in subscription order.
//
// Thread-safety: publish, subscribe and unsubscribe may be called concurrently.
// The subscriber lists are snapshotted before delivery, so handlers may
// subscribe or unsubscribe without deadlocking.
type SyncEventBus struct {
	logger *slog.Logger

	subscribers    map[domain.EventType][]subscription
	allSubscribers []subscription

	// mu protects subscribers, allSubscribers and closed
	mu     sync.RWMutex
	nextID atomic.Uint64
	closed bool
}

type subscription struct {
	id      domain.SubscriptionID
	handler domain.EventHandler
}

// NewSyncEventBus creates a new synchronous event bus.
// A nil logger disables handler tracing and panic reports.
func NewSyncEventBus(logger *slog.Logger) *SyncEventBus {
	return &SyncEventBus{
		logger:      logger,
		subscribers: make(map[domain.EventType][]subscription),
	}
}

// Publish publishes an event to all subscribers of that event type.
//
// If the event bus is closed, this method does nothing. Panics in handlers are
// recovered and logged and do not stop delivery to the remaining handlers.
func (bus *SyncEventBus) Publish(event domain.Event) {
	if event == nil {
		return
	}

	bus.mu.RLock()
	if bus.closed {
		bus.mu.RUnlock()
		return
	}
	targets := make([]subscription, 0, len(bus.subscribers[event.Type()])+len(bus.allSubscribers))
	targets = append(targets, bus.subscribers[event.Type()]...)
	targets = append(targets, bus.allSubscribers...)
	bus.mu.RUnlock()

	for _, sub := range targets {
		bus.deliver(sub, event)
	}
}

func (bus *SyncEventBus) deliver(sub subscription, event domain.Event) {
	defer func() {
		if r := recover(); r != nil && bus.logger != nil {
			bus.logger.Error("event handler panicked",
				slog.Any("panic", r),
				slog.String("event_type", string(event.Type())),
				slog.String("subscription", string(sub.id)))
		}
	}()

	if bus.logger != nil && event.Type() != domain.EventTrackProgress {
		bus.logger.Debug("event delivered",
			slog.String("event_type", string(event.Type())),
			slog.String("subscription", string(sub.id)))
	}
	sub.handler(event)
}

// Subscribe registers a handler for events of the specified type.
func (bus *SyncEventBus) Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID {
	return bus.add(eventType, handler, false)
}

// SubscribeAll registers a handler that receives all events regardless of type.
func (bus *SyncEventBus) SubscribeAll(handler domain.EventHandler) domain.SubscriptionID {
	return bus.add("", handler, true)
}

func (bus *SyncEventBus) add(eventType domain.EventType, handler domain.EventHandler, wildcard bool) domain.SubscriptionID {
	if handler == nil {
		panic("event handler cannot be nil")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		panic("cannot subscribe to closed event bus")
	}

	n := bus.nextID.Add(1)
	if wildcard {
		id := domain.SubscriptionID(fmt.Sprintf("sub-all-%d", n))
		bus.allSubscribers = append(bus.allSubscribers, subscription{id: id, handler: handler})
		return id
	}

	id := domain.SubscriptionID(fmt.Sprintf("sub-%d", n))
	bus.subscribers[eventType] = append(bus.subscribers[eventType], subscription{id: id, handler: handler})
	return id
}

// Unsubscribe removes a previously registered event handler, keeping the
// delivery order of the remaining handlers.
func (bus *SyncEventBus) Unsubscribe(id domain.SubscriptionID) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	match := func(s subscription) bool { return s.id == id }

	for eventType, subs := range bus.subscribers {
		if i := slices.IndexFunc(subs, match); i >= 0 {
			bus.subscribers[eventType] = slices.Delete(slices.Clone(subs), i, i+1)
			return
		}
	}

	if i := slices.IndexFunc(bus.allSubscribers, match); i >= 0 {
		bus.allSubscribers = slices.Delete(slices.Clone(bus.allSubscribers), i, i+1)
	}
}

// HasSubscribers returns true if there are any active subscriptions for the given event type.
func (bus *SyncEventBus) HasSubscribers(eventType domain.EventType) bool {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	return len(bus.subscribers[eventType]) > 0 || len(bus.allSubscribers) > 0
}

// Close shuts down the event bus and clears all subscriptions.
// Returns an error if already closed.
func (bus *SyncEventBus) Close() error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		return fmt.Errorf("event bus already closed")
	}

	bus.closed = true
	bus.subscribers = make(map[domain.EventType][]subscription)
	bus.allSubscribers = nil

	return nil
}

// SubscriberCount returns the number of active subscriptions for debugging.
func (bus *SyncEventBus) SubscriberCount() int {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	count := len(bus.allSubscribers)
	for _, subs := range bus.subscribers {
		count += len(subs)
	}
	return count
}

var _ ports.EventBus = (*SyncEventBus)(nil)
