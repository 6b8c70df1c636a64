// Package domain defines events for the event-driven architecture.
// Events are the observer channel between the core services and whatever shell drives them.
package domain

import (
	"time"
)

// Event is the base interface for all events in the system.
// All events must implement this interface to be published via the event bus.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

// Event type constants define all possible events in the system.
const (
	// Playback events
	EventTrackLoading     EventType = "track.loading"
	EventTrackStarted     EventType = "track.started"
	EventTrackPaused      EventType = "track.paused"
	EventTrackResumed     EventType = "track.resumed"
	EventTrackStopped     EventType = "track.stopped"
	EventTrackCompleted   EventType = "track.completed"
	EventTrackRestarted   EventType = "track.restarted"
	EventTrackProgress    EventType = "track.progress"
	EventPlaybackFailed   EventType = "playback.failed"
	EventPlaybackFinished EventType = "playback.finished"

	// Playback mode events
	EventShuffleToggled EventType = "shuffle.toggled"
	EventRepeatToggled  EventType = "repeat.toggled"

	// Statistics events
	EventPlayRecorded EventType = "stats.play_recorded"
	EventStatsError   EventType = "stats.error"

	// Library events
	EventScanStarted    EventType = "scan.started"
	EventScanCompleted  EventType = "scan.completed"
	EventLibraryUpdated EventType = "library.updated"
)

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
// All concrete events should embed this struct.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

// newBaseEvent creates a new base event with the current timestamp.
func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// TrackLoadingEvent is published when a track has been handed to the media service.
type TrackLoadingEvent struct {
	baseEvent
	Track  TrackRef
	Handle MediaHandle
}

// Type returns the event type.
func (e TrackLoadingEvent) Type() EventType {
	return EventTrackLoading
}

// NewTrackLoadingEvent creates a new TrackLoadingEvent.
func NewTrackLoadingEvent(track TrackRef, handle MediaHandle) TrackLoadingEvent {
	return TrackLoadingEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
		Handle:    handle,
	}
}

// TrackStartedEvent is published when the media service starts a freshly loaded track.
type TrackStartedEvent struct {
	baseEvent
	Track      TrackRef
	DurationMs int64
}

// Type returns the event type.
func (e TrackStartedEvent) Type() EventType {
	return EventTrackStarted
}

// NewTrackStartedEvent creates a new TrackStartedEvent.
func NewTrackStartedEvent(track TrackRef, durationMs int64) TrackStartedEvent {
	return TrackStartedEvent{
		baseEvent:  newBaseEvent(),
		Track:      track,
		DurationMs: durationMs,
	}
}

// TrackPausedEvent is published when playback is paused.
type TrackPausedEvent struct {
	baseEvent
	Track      TrackRef
	PositionMs int64
}

// Type returns the event type.
func (e TrackPausedEvent) Type() EventType {
	return EventTrackPaused
}

// NewTrackPausedEvent creates a new TrackPausedEvent.
func NewTrackPausedEvent(track TrackRef, positionMs int64) TrackPausedEvent {
	return TrackPausedEvent{
		baseEvent:  newBaseEvent(),
		Track:      track,
		PositionMs: positionMs,
	}
}

// TrackResumedEvent is published when paused playback resumes.
type TrackResumedEvent struct {
	baseEvent
	Track      TrackRef
	PositionMs int64
}

// Type returns the event type.
func (e TrackResumedEvent) Type() EventType {
	return EventTrackResumed
}

// NewTrackResumedEvent creates a new TrackResumedEvent.
func NewTrackResumedEvent(track TrackRef, positionMs int64) TrackResumedEvent {
	return TrackResumedEvent{
		baseEvent:  newBaseEvent(),
		Track:      track,
		PositionMs: positionMs,
	}
}

// TrackStoppedEvent is published when playback is stopped explicitly.
type TrackStoppedEvent struct {
	baseEvent
	Track TrackRef
}

// Type returns the event type.
func (e TrackStoppedEvent) Type() EventType {
	return EventTrackStopped
}

// NewTrackStoppedEvent creates a new TrackStoppedEvent.
func NewTrackStoppedEvent(track TrackRef) TrackStoppedEvent {
	return TrackStoppedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
	}
}

// TrackCompletedEvent is published when a track finishes playing naturally.
type TrackCompletedEvent struct {
	baseEvent
	Track  TrackRef
	Repeat bool
}

// Type returns the event type.
func (e TrackCompletedEvent) Type() EventType {
	return EventTrackCompleted
}

// NewTrackCompletedEvent creates a new TrackCompletedEvent.
func NewTrackCompletedEvent(track TrackRef, repeat bool) TrackCompletedEvent {
	return TrackCompletedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
		Repeat:    repeat,
	}
}

// TrackRestartedEvent is published when repeat mode restarts the finished track in place.
type TrackRestartedEvent struct {
	baseEvent
	Track TrackRef
}

// Type returns the event type.
func (e TrackRestartedEvent) Type() EventType {
	return EventTrackRestarted
}

// NewTrackRestartedEvent creates a new TrackRestartedEvent.
func NewTrackRestartedEvent(track TrackRef) TrackRestartedEvent {
	return TrackRestartedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
	}
}

// TrackProgressEvent is published by the position tick and after seeks.
type TrackProgressEvent struct {
	baseEvent
	PositionMs int64
	DurationMs int64
}

// Type returns the event type.
func (e TrackProgressEvent) Type() EventType {
	return EventTrackProgress
}

// NewTrackProgressEvent creates a new TrackProgressEvent.
func NewTrackProgressEvent(positionMs, durationMs int64) TrackProgressEvent {
	return TrackProgressEvent{
		baseEvent:  newBaseEvent(),
		PositionMs: positionMs,
		DurationMs: durationMs,
	}
}

// PlaybackFailedEvent is published when the media service rejects a track.
type PlaybackFailedEvent struct {
	baseEvent
	Track TrackRef
	Err   *EngineError
}

// Type returns the event type.
func (e PlaybackFailedEvent) Type() EventType {
	return EventPlaybackFailed
}

// NewPlaybackFailedEvent creates a new PlaybackFailedEvent.
func NewPlaybackFailedEvent(track TrackRef, err *EngineError) PlaybackFailedEvent {
	return PlaybackFailedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
		Err:       err,
	}
}

// PlaybackFinishedEvent is published when a track ends and there is nothing to advance to.
type PlaybackFinishedEvent struct {
	baseEvent
	Track TrackRef
}

// Type returns the event type.
func (e PlaybackFinishedEvent) Type() EventType {
	return EventPlaybackFinished
}

// NewPlaybackFinishedEvent creates a new PlaybackFinishedEvent.
func NewPlaybackFinishedEvent(track TrackRef) PlaybackFinishedEvent {
	return PlaybackFinishedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
	}
}

// ShuffleToggledEvent is published when shuffle mode is toggled.
type ShuffleToggledEvent struct {
	baseEvent
	Enabled bool
}

// Type returns the event type.
func (e ShuffleToggledEvent) Type() EventType {
	return EventShuffleToggled
}

// NewShuffleToggledEvent creates a new ShuffleToggledEvent.
func NewShuffleToggledEvent(enabled bool) ShuffleToggledEvent {
	return ShuffleToggledEvent{
		baseEvent: newBaseEvent(),
		Enabled:   enabled,
	}
}

// RepeatToggledEvent is published when repeat mode is toggled.
type RepeatToggledEvent struct {
	baseEvent
	Enabled bool
}

// Type returns the event type.
func (e RepeatToggledEvent) Type() EventType {
	return EventRepeatToggled
}

// NewRepeatToggledEvent creates a new RepeatToggledEvent.
func NewRepeatToggledEvent(enabled bool) RepeatToggledEvent {
	return RepeatToggledEvent{
		baseEvent: newBaseEvent(),
		Enabled:   enabled,
	}
}

// PlayRecordedEvent is published after a play-count record was created or incremented.
type PlayRecordedEvent struct {
	baseEvent
	Record PlayCountRecord
}

// Type returns the event type.
func (e PlayRecordedEvent) Type() EventType {
	return EventPlayRecorded
}

// NewPlayRecordedEvent creates a new PlayRecordedEvent.
func NewPlayRecordedEvent(record PlayCountRecord) PlayRecordedEvent {
	return PlayRecordedEvent{
		baseEvent: newBaseEvent(),
		Record:    record,
	}
}

// StatsErrorEvent is published when a statistics write fails.
// Playback is never affected by these failures.
type StatsErrorEvent struct {
	baseEvent
	Key StatsKey
	Err error
}

// Type returns the event type.
func (e StatsErrorEvent) Type() EventType {
	return EventStatsError
}

// NewStatsErrorEvent creates a new StatsErrorEvent.
func NewStatsErrorEvent(key StatsKey, err error) StatsErrorEvent {
	return StatsErrorEvent{
		baseEvent: newBaseEvent(),
		Key:       key,
		Err:       err,
	}
}

// ScanStartedEvent is published when a library refresh starts.
type ScanStartedEvent struct {
	baseEvent
}

// Type returns the event type.
func (e ScanStartedEvent) Type() EventType {
	return EventScanStarted
}

// NewScanStartedEvent creates a new ScanStartedEvent.
func NewScanStartedEvent() ScanStartedEvent {
	return ScanStartedEvent{baseEvent: newBaseEvent()}
}

// ScanCompletedEvent is published when a library refresh finishes, successfully or not.
type ScanCompletedEvent struct {
	baseEvent
	TracksFound int
	Err         error
}

// Type returns the event type.
func (e ScanCompletedEvent) Type() EventType {
	return EventScanCompleted
}

// NewScanCompletedEvent creates a new ScanCompletedEvent.
func NewScanCompletedEvent(tracksFound int, err error) ScanCompletedEvent {
	return ScanCompletedEvent{
		baseEvent:   newBaseEvent(),
		TracksFound: tracksFound,
		Err:         err,
	}
}

// LibraryUpdatedEvent is published when the library snapshot changes.
type LibraryUpdatedEvent struct {
	baseEvent
	Tracks []TrackRef
}

// Type returns the event type.
func (e LibraryUpdatedEvent) Type() EventType {
	return EventLibraryUpdated
}

// NewLibraryUpdatedEvent creates a new LibraryUpdatedEvent.
func NewLibraryUpdatedEvent(tracks []TrackRef) LibraryUpdatedEvent {
	return LibraryUpdatedEvent{
		baseEvent: newBaseEvent(),
		Tracks:    tracks,
	}
}
