// Package ports define the View interface for presentation abstraction.
// This interface allows the presenter to update a front end without depending on it.
package ports

// View is the presentation surface driven by the presenter.
//
// The presenter receives events from the event bus and calls these methods,
// keeping business logic (services), presentation logic (presenter) and
// rendering (view) apart.
//
// Thread-safety: Methods may be called from any goroutine; implementations serialize output.
type View interface {
	// SetTrackInfo shows the loaded track.
	SetTrackInfo(title, artist string)

	// SetPlayState shows whether playback is running.
	SetPlayState(playing bool)

	// SetProgress shows the playback position. durationMs is 0 when unknown.
	SetProgress(positionMs, durationMs int64)

	// SetModes shows the shuffle and repeat flags.
	SetModes(shuffle, repeat bool)

	// ShowNotification displays an informational message.
	ShowNotification(title, message string)

	// ShowError displays an error message.
	ShowError(title, message string)
}
