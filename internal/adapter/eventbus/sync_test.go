package eventbus

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tejashwikalptaru/audiotracker/internal/domain"
	"github.com/tejashwikalptaru/audiotracker/internal/logger"
)

var testTrack = domain.TrackRef{ID: "t1", Title: "Song", Artist: "Band"}

func TestPublishSubscribe(t *testing.T) {
	bus := NewSyncEventBus(logger.NewTestLogger())
	defer bus.Close()

	var received domain.Event
	subID := bus.Subscribe(domain.EventTrackStarted, func(e domain.Event) { received = e })
	require.NotEmpty(t, subID)

	bus.Publish(domain.NewTrackStartedEvent(testTrack, 1000))

	require.NotNil(t, received)
	started, ok := received.(domain.TrackStartedEvent)
	require.True(t, ok)
	assert.Equal(t, "t1", started.Track.ID)
	assert.Equal(t, int64(1000), started.DurationMs)
}

func TestDeliveryOrder(t *testing.T) {
	bus := NewSyncEventBus(nil)
	defer bus.Close()

	var order []string
	bus.SubscribeAll(func(domain.Event) { order = append(order, "all") })
	bus.Subscribe(domain.EventTrackPaused, func(domain.Event) { order = append(order, "first") })
	bus.Subscribe(domain.EventTrackPaused, func(domain.Event) { order = append(order, "second") })

	bus.Publish(domain.NewTrackPausedEvent(testTrack, 10))

	assert.Equal(t, []string{"first", "second", "all"}, order)
}

func TestUnsubscribeKeepsOrder(t *testing.T) {
	bus := NewSyncEventBus(nil)
	defer bus.Close()

	var order []int
	bus.Subscribe(domain.EventTrackPaused, func(domain.Event) { order = append(order, 1) })
	middle := bus.Subscribe(domain.EventTrackPaused, func(domain.Event) { order = append(order, 2) })
	bus.Subscribe(domain.EventTrackPaused, func(domain.Event) { order = append(order, 3) })
	bus.Subscribe(domain.EventTrackPaused, func(domain.Event) { order = append(order, 4) })

	bus.Unsubscribe(middle)
	bus.Publish(domain.NewTrackPausedEvent(testTrack, 0))

	assert.Equal(t, []int{1, 3, 4}, order)
	assert.Equal(t, 3, bus.SubscriberCount())
}

func TestUnsubscribeWildcardAndUnknown(t *testing.T) {
	bus := NewSyncEventBus(nil)
	defer bus.Close()

	var calls int
	id := bus.SubscribeAll(func(domain.Event) { calls++ })

	bus.Unsubscribe("missing")
	bus.Unsubscribe("")
	bus.Publish(domain.NewShuffleToggledEvent(true))
	assert.Equal(t, 1, calls)

	bus.Unsubscribe(id)
	bus.Publish(domain.NewShuffleToggledEvent(false))
	assert.Equal(t, 1, calls)
}

func TestHandlerMayUnsubscribeItself(t *testing.T) {
	bus := NewSyncEventBus(nil)
	defer bus.Close()

	var calls int
	var id domain.SubscriptionID
	id = bus.Subscribe(domain.EventRepeatToggled, func(domain.Event) {
		calls++
		bus.Unsubscribe(id)
	})

	bus.Publish(domain.NewRepeatToggledEvent(true))
	bus.Publish(domain.NewRepeatToggledEvent(false))

	assert.Equal(t, 1, calls)
}

func TestHasSubscribers(t *testing.T) {
	bus := NewSyncEventBus(nil)
	defer bus.Close()

	assert.False(t, bus.HasSubscribers(domain.EventTrackStarted))

	bus.Subscribe(domain.EventTrackStarted, func(domain.Event) {})
	assert.True(t, bus.HasSubscribers(domain.EventTrackStarted))
	assert.False(t, bus.HasSubscribers(domain.EventTrackPaused))

	bus.SubscribeAll(func(domain.Event) {})
	assert.True(t, bus.HasSubscribers(domain.EventTrackPaused))
}

func TestHandlerPanic(t *testing.T) {
	bus := NewSyncEventBus(logger.NewTestLogger())
	defer bus.Close()

	var calls int32
	bus.Subscribe(domain.EventTrackStarted, func(domain.Event) { panic("boom") })
	bus.Subscribe(domain.EventTrackStarted, func(domain.Event) { atomic.AddInt32(&calls, 1) })

	assert.NotPanics(t, func() {
		bus.Publish(domain.NewTrackStartedEvent(testTrack, 0))
	})
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClose(t *testing.T) {
	bus := NewSyncEventBus(nil)

	var calls int
	bus.Subscribe(domain.EventTrackStarted, func(domain.Event) { calls++ })
	bus.SubscribeAll(func(domain.Event) { calls++ })
	require.Equal(t, 2, bus.SubscriberCount())

	require.NoError(t, bus.Close())
	assert.Equal(t, 0, bus.SubscriberCount())

	bus.Publish(domain.NewTrackStartedEvent(testTrack, 0))
	assert.Equal(t, 0, calls)

	assert.Error(t, bus.Close())
	assert.Panics(t, func() { bus.Subscribe(domain.EventTrackStarted, func(domain.Event) {}) })
}

func TestNilEventAndHandler(t *testing.T) {
	bus := NewSyncEventBus(nil)
	defer bus.Close()

	var calls int
	bus.SubscribeAll(func(domain.Event) { calls++ })
	bus.Publish(nil)
	assert.Equal(t, 0, calls)

	assert.Panics(t, func() { bus.Subscribe(domain.EventTrackStarted, nil) })
}

func TestConcurrentPublishAndSubscribe(t *testing.T) {
	bus := NewSyncEventBus(nil)
	defer bus.Close()

	var delivered int64
	bus.Subscribe(domain.EventTrackProgress, func(domain.Event) { atomic.AddInt64(&delivered, 1) })

	const publishers = 8
	const perPublisher = 100

	var wg sync.WaitGroup
	for i := 0; i < publishers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < perPublisher; j++ {
				bus.Publish(domain.NewTrackProgressEvent(int64(j), 100))
			}
		}()
		go func() {
			defer wg.Done()
			id := bus.Subscribe(domain.EventTrackPaused, func(domain.Event) {})
			bus.Unsubscribe(id)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(publishers*perPublisher), atomic.LoadInt64(&delivered))
	assert.Equal(t, 1, bus.SubscriberCount())
}
