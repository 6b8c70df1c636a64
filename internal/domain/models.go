// Package domain contains core business models and logic with no external dependencies.
// This package defines the fundamental entities of the audiotracker playback core.
package domain

import (
	"time"
)

// TrackRef describes a single playable audio item from the library.
// It is produced by a TrackSource and never mutated by the core.
type TrackRef struct {
	// ID is a stable identifier assigned by the track source
	ID string

	// Title is the song title (from tags or filename)
	Title string

	// Artist is the performing artist name
	Artist string

	// DurationMs is the length reported by the library scan (0 if unknown)
	DurationMs int64

	// AlbumKey identifies the album for art lookup
	AlbumKey string

	// Source is the reference handed to the media service (file path, URI)
	Source string
}

// Duration returns the library duration as a time.Duration.
func (t TrackRef) Duration() time.Duration {
	return time.Duration(t.DurationMs) * time.Millisecond
}

// StatsKey returns the natural key used for play statistics.
func (t TrackRef) StatsKey() StatsKey {
	return StatsKey{Artist: t.Artist, Title: t.Title}
}

// StatsKey is the (artist, title) pair that identifies a PlayCountRecord.
// Two library entries with identical artist and title share one statistic.
type StatsKey struct {
	Artist string
	Title  string
}

// String renders the key for logs.
func (k StatsKey) String() string {
	return k.Artist + " - " + k.Title
}

// PlayerState is the observable state of the player engine.
type PlayerState struct {
	// CurrentTrack is the loaded (or last attempted) track, nil if none
	CurrentTrack *TrackRef

	// IsPlaying is true while playback is requested and not paused
	IsPlaying bool

	// PositionMs is the last known playback position
	PositionMs int64

	// DurationMs is the track length, preferring the media service's value once known
	DurationMs int64

	// Shuffle selects random next tracks
	Shuffle bool

	// Repeat restarts the current track when it ends
	Repeat bool
}

// HasTrack returns true if a track has been loaded or attempted.
func (s PlayerState) HasTrack() bool {
	return s.CurrentTrack != nil
}

// PlayCountRecord is the persisted tally of plays for one (artist, title) pair.
type PlayCountRecord struct {
	Artist       string
	Title        string
	PlayCount    int64
	LastPlayedAt time.Time
}

// Key returns the natural key of the record.
func (r PlayCountRecord) Key() StatsKey {
	return StatsKey{Artist: r.Artist, Title: r.Title}
}

// MediaHandle is an opaque reference to a source opened in the media service.
type MediaHandle int64

const (
	// InvalidMediaHandle represents no open media resource
	InvalidMediaHandle MediaHandle = 0
)

// MediaEventKind enumerates the asynchronous signals a media service can emit.
type MediaEventKind int

const (
	// MediaReady signals that a loaded source is prepared and its duration is known
	MediaReady MediaEventKind = iota

	// MediaFailed signals that a loaded source could not be prepared
	MediaFailed

	// MediaEnded signals that playback reached the end of the source
	MediaEnded
)

// String returns a human-readable representation of the event kind.
func (k MediaEventKind) String() string {
	switch k {
	case MediaReady:
		return "ready"
	case MediaFailed:
		return "failed"
	case MediaEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// MediaEvent is delivered by the media service on its serialized event channel.
type MediaEvent struct {
	Kind       MediaEventKind
	Handle     MediaHandle
	DurationMs int64
	Err        error
}

// ScanProgress represents the progress of a library scan.
type ScanProgress struct {
	// Root is the directory currently being scanned
	Root string

	// FilesScanned is the number of files processed so far
	FilesScanned int

	// TracksFound is the number of valid tracks found
	TracksFound int
}
