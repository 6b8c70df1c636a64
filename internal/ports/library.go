// Package ports define the interfaces the core consumes for the track library.
package ports

import (
	"context"

	"github.com/tejashwikalptaru/audiotracker/internal/domain"
)

// TrackSource produces the ordered list of tracks for the full library.
// The result is a snapshot; the core never mutates it.
type TrackSource interface {
	// Scan returns the current library contents.
	Scan(ctx context.Context) ([]domain.TrackRef, error)
}

// WatchableSource is a TrackSource that can signal when its contents may have changed.
// This is optional and not all sources need to support it.
type WatchableSource interface {
	TrackSource

	// Changes returns a channel that receives a value whenever a rescan is worthwhile.
	// The channel is closed when the source is closed.
	Changes() <-chan struct{}

	// Close stops watching.
	Close() error
}

// TrackList provides the full (unfiltered) library to the player for navigation.
type TrackList interface {
	Tracks() []domain.TrackRef
}

// PlayRecorder receives a notification every time a track successfully starts playing.
// Implementations must not block the caller.
type PlayRecorder interface {
	RecordPlayAsync(track domain.TrackRef)
}
