// Package ports define interfaces for dependency inversion.
// These interfaces allow the core business logic to remain independent of external frameworks.
package ports

import (
	"github.com/tejashwikalptaru/audiotracker/internal/domain"
)

// MediaService is the interface for the platform media pipeline.
// It decodes and outputs audio; the player engine only drives it.
//
// Load is asynchronous: it returns a handle immediately and later reports
// domain.MediaReady (with the decoded duration) or domain.MediaFailed on Events().
// End of playback is reported as domain.MediaEnded.
//
// Implementations must be thread-safe and must never block while sending on
// the event channel.
type MediaService interface {
	// Load opens the given source and begins preparing it.
	// A synchronous error means the source was rejected outright.
	Load(source string) (domain.MediaHandle, error)

	// Start starts or resumes playback of a prepared handle.
	// Starting a handle that is still preparing starts it as soon as it is ready.
	Start(handle domain.MediaHandle) error

	// Pause pauses playback, preserving the position.
	Pause(handle domain.MediaHandle) error

	// Seek moves the playback position of the handle.
	Seek(handle domain.MediaHandle, positionMs int64) error

	// Position returns the current playback position of the handle.
	Position(handle domain.MediaHandle) (int64, error)

	// Release stops playback and frees the handle. Releasing an unknown handle is an error.
	Release(handle domain.MediaHandle) error

	// Events returns the single serialized channel of asynchronous media signals.
	Events() <-chan domain.MediaEvent

	// Close releases every resource held by the service.
	Close() error
}
