// Package service provides the playback core of audiotracker: the player state
// machine, track navigation, the library snapshot and play statistics.
package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/tejashwikalptaru/audiotracker/internal/domain"
	"github.com/tejashwikalptaru/audiotracker/internal/ports"
)

// DefaultTickInterval is how often the position is refreshed while playing.
const DefaultTickInterval = time.Second

// PlayerService owns the player state and drives the media service.
//
// Media signals (ready, failed, ended) are consumed by a single loop goroutine,
// and a progress tick runs only while playback is requested. All state changes
// happen under one mutex; events are published after it is released, so
// subscribers may call back into the service.
type PlayerService struct {
	// Dependencies (injected)
	logger   *slog.Logger
	media    ports.MediaService
	tracks   ports.TrackList
	recorder ports.PlayRecorder
	bus      ports.EventBus
	nav      Navigator

	tickInterval time.Duration

	// State
	mu            sync.Mutex
	state         domain.PlayerState
	handle        domain.MediaHandle
	ready         bool // media service reported the handle prepared
	started       bool // Start has been issued for the handle after it became ready
	recordPending bool // the current load has not been counted yet
	finished      bool // the current load played to its end with nothing to advance to
	closed        bool

	// Goroutines
	tickStop chan struct{}
	tickWg   sync.WaitGroup
	loopStop chan struct{}
	loopDone chan struct{}
}

// PlayerOption configures a PlayerService.
type PlayerOption func(*PlayerService)

// WithTickInterval overrides the progress tick interval.
func WithTickInterval(d time.Duration) PlayerOption {
	return func(s *PlayerService) {
		if d > 0 {
			s.tickInterval = d
		}
	}
}

// WithNavigator replaces the default navigator.
func WithNavigator(nav Navigator) PlayerOption {
	return func(s *PlayerService) {
		s.nav = nav
	}
}

// WithModes sets the initial shuffle and repeat flags.
func WithModes(shuffle, repeat bool) PlayerOption {
	return func(s *PlayerService) {
		s.state.Shuffle = shuffle
		s.state.Repeat = repeat
	}
}

// NewPlayerService creates a player and starts consuming media events.
// recorder may be nil, in which case plays are not counted.
func NewPlayerService(
	logger *slog.Logger,
	media ports.MediaService,
	tracks ports.TrackList,
	recorder ports.PlayRecorder,
	bus ports.EventBus,
	opts ...PlayerOption,
) *PlayerService {
	s := &PlayerService{
		logger:       logger,
		media:        media,
		tracks:       tracks,
		recorder:     recorder,
		bus:          bus,
		nav:          NewNavigator(),
		tickInterval: DefaultTickInterval,
		handle:       domain.InvalidMediaHandle,
		loopStop:     make(chan struct{}),
		loopDone:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.eventLoop()

	logger.Debug("player service initialized", slog.Duration("tick_interval", s.tickInterval))
	return s
}

// Play loads the track and starts it as soon as the media service has prepared it.
//
// A rejected load is not fatal: the track stays current, playback stops and a
// PlaybackFailedEvent is published. The returned error is the same *EngineError.
func (s *PlayerService) Play(track domain.TrackRef) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrClosed
	}
	events, err := s.playLocked(track)
	s.mu.Unlock()

	s.publish(events)
	return err
}

// playLocked replaces the current track. Caller must hold s.mu.
func (s *PlayerService) playLocked(track domain.TrackRef) ([]domain.Event, error) {
	s.releaseLocked()
	s.stopTickLocked()

	current := track
	s.state.CurrentTrack = &current
	s.state.PositionMs = 0
	s.state.DurationMs = max(track.DurationMs, 0)
	s.state.IsPlaying = true
	s.startTickLocked()

	s.logger.Debug("loading track", slog.String("track_id", track.ID), slog.String("source", track.Source))

	handle, err := s.media.Load(track.Source)
	if err != nil {
		event, engineErr := s.failLocked("load", err)
		return []domain.Event{event}, engineErr
	}

	s.handle = handle
	s.recordPending = true

	return []domain.Event{domain.NewTrackLoadingEvent(track, handle)}, nil
}

// failLocked stops playback after a failed load, keeping the current track.
// Caller must hold s.mu.
func (s *PlayerService) failLocked(op string, cause error) (domain.Event, *domain.EngineError) {
	track := *s.state.CurrentTrack

	s.releaseLocked()
	s.stopTickLocked()
	s.state.IsPlaying = false

	engineErr := domain.NewEngineError(domain.ReasonPlaybackFailed, op, track.Source, cause)
	s.logger.Warn("playback failed",
		slog.String("track_id", track.ID),
		slog.String("op", op),
		slog.Any("error", cause))

	return domain.NewPlaybackFailedEvent(track, engineErr), engineErr
}

// releaseLocked frees the current handle, if any. Caller must hold s.mu.
func (s *PlayerService) releaseLocked() {
	if s.handle != domain.InvalidMediaHandle {
		if err := s.media.Release(s.handle); err != nil {
			s.logger.Warn("failed to release media", slog.Int64("handle", int64(s.handle)), slog.Any("error", err))
		}
	}
	s.handle = domain.InvalidMediaHandle
	s.ready = false
	s.started = false
	s.recordPending = false
	s.finished = false
}

// TogglePlayPause pauses a playing track or resumes a paused one.
// Without a current track it does nothing. A current track without an open
// handle (after a failure or Stop) is loaded again, and a track that played to
// its end starts over from the beginning.
func (s *PlayerService) TogglePlayPause() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrClosed
	}
	if s.state.CurrentTrack == nil {
		s.mu.Unlock()
		return nil
	}
	if s.handle == domain.InvalidMediaHandle {
		events, err := s.playLocked(*s.state.CurrentTrack)
		s.mu.Unlock()
		s.publish(events)
		return err
	}

	var (
		events []domain.Event
		record *domain.TrackRef
	)
	track := *s.state.CurrentTrack

	if s.state.IsPlaying {
		s.state.IsPlaying = false
		s.stopTickLocked()
		if s.started {
			if err := s.media.Pause(s.handle); err != nil {
				s.logger.Warn("failed to pause media", slog.Any("error", err))
			}
			if pos, err := s.media.Position(s.handle); err == nil {
				s.state.PositionMs = s.clampLocked(pos)
			}
		}
		events = append(events, domain.NewTrackPausedEvent(track, s.state.PositionMs))
	} else {
		if s.finished {
			if err := s.rewindLocked(); err != nil {
				event, engineErr := s.failLocked("restart", err)
				s.mu.Unlock()
				s.bus.Publish(event)
				return engineErr
			}
		}
		s.state.IsPlaying = true
		s.startTickLocked()
		if s.ready {
			var event domain.Event
			event, record = s.startLocked()
			events = append(events, event)
		} else {
			// starts once the media service reports ready
			events = append(events, domain.NewTrackResumedEvent(track, s.state.PositionMs))
		}
	}
	s.mu.Unlock()

	s.publish(events)
	s.recordPlay(record)
	return nil
}

// rewindLocked moves a finished track back to its beginning. Caller must hold s.mu.
func (s *PlayerService) rewindLocked() error {
	if err := s.media.Seek(s.handle, 0); err != nil {
		return err
	}
	s.state.PositionMs = 0
	s.finished = false
	return nil
}

// startLocked issues Start for a prepared handle. The first start of a load
// publishes TrackStartedEvent and returns the track to count; later starts
// are resumes. Caller must hold s.mu.
func (s *PlayerService) startLocked() (domain.Event, *domain.TrackRef) {
	track := *s.state.CurrentTrack

	if err := s.media.Start(s.handle); err != nil {
		event, _ := s.failLocked("start", err)
		return event, nil
	}

	if s.started {
		return domain.NewTrackResumedEvent(track, s.state.PositionMs), nil
	}
	s.started = true

	var record *domain.TrackRef
	if s.recordPending {
		s.recordPending = false
		record = &track
	}
	return domain.NewTrackStartedEvent(track, s.state.DurationMs), record
}

// SeekTo moves playback to positionMs, clamped to [0, duration].
// With an unknown duration only the lower bound applies. Without an open
// handle it does nothing.
func (s *PlayerService) SeekTo(positionMs int64) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrClosed
	}
	if s.handle == domain.InvalidMediaHandle {
		s.mu.Unlock()
		return nil
	}

	target := s.clampLocked(positionMs)
	if err := s.media.Seek(s.handle, target); err != nil {
		s.mu.Unlock()
		return domain.NewServiceError("PlayerService", "SeekTo", "media seek failed", err)
	}
	s.state.PositionMs = target
	s.finished = false
	event := domain.NewTrackProgressEvent(target, s.state.DurationMs)
	s.mu.Unlock()

	s.bus.Publish(event)
	return nil
}

func (s *PlayerService) clampLocked(positionMs int64) int64 {
	if positionMs < 0 {
		return 0
	}
	if s.state.DurationMs > 0 && positionMs > s.state.DurationMs {
		return s.state.DurationMs
	}
	return positionMs
}

// SkipNext plays the track after the current one in the full library,
// honoring shuffle. It does nothing without a current track or with an
// empty library.
func (s *PlayerService) SkipNext() error {
	return s.skip(func(list []domain.TrackRef, id string, shuffle bool) (domain.TrackRef, bool) {
		return s.nav.Next(list, id, shuffle)
	})
}

// SkipPrevious plays the track before the current one. Shuffle does not apply.
func (s *PlayerService) SkipPrevious() error {
	return s.skip(func(list []domain.TrackRef, id string, _ bool) (domain.TrackRef, bool) {
		return s.nav.Previous(list, id)
	})
}

func (s *PlayerService) skip(pick func([]domain.TrackRef, string, bool) (domain.TrackRef, bool)) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrClosed
	}
	events, err := s.skipLocked(pick)
	s.mu.Unlock()

	s.publish(events)
	return err
}

func (s *PlayerService) skipLocked(pick func([]domain.TrackRef, string, bool) (domain.TrackRef, bool)) ([]domain.Event, error) {
	if s.state.CurrentTrack == nil {
		return nil, nil
	}

	next, ok := pick(s.tracks.Tracks(), s.state.CurrentTrack.ID, s.state.Shuffle)
	if !ok {
		s.logger.Debug("skip ignored, library is empty")
		return nil, nil
	}
	return s.playLocked(next)
}

// Stop releases the media and stops playback. The current track is kept so
// TogglePlayPause can start it again.
func (s *PlayerService) Stop() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrClosed
	}

	s.releaseLocked()
	s.stopTickLocked()
	s.state.IsPlaying = false
	s.state.PositionMs = 0

	var events []domain.Event
	if s.state.CurrentTrack != nil {
		events = append(events, domain.NewTrackStoppedEvent(*s.state.CurrentTrack))
	}
	s.mu.Unlock()

	s.publish(events)
	return nil
}

// ToggleShuffle flips shuffle mode and returns the new value.
func (s *PlayerService) ToggleShuffle() bool {
	s.mu.Lock()
	s.state.Shuffle = !s.state.Shuffle
	enabled := s.state.Shuffle
	s.mu.Unlock()

	s.bus.Publish(domain.NewShuffleToggledEvent(enabled))
	return enabled
}

// ToggleRepeat flips repeat mode and returns the new value.
func (s *PlayerService) ToggleRepeat() bool {
	s.mu.Lock()
	s.state.Repeat = !s.state.Repeat
	enabled := s.state.Repeat
	s.mu.Unlock()

	s.bus.Publish(domain.NewRepeatToggledEvent(enabled))
	return enabled
}

// State returns a copy of the current player state.
func (s *PlayerService) State() domain.PlayerState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.state
	if s.state.CurrentTrack != nil {
		track := *s.state.CurrentTrack
		state.CurrentTrack = &track
	}
	return state
}

// Shutdown releases the media handle and stops the tick and event loop.
// Calling it more than once is safe. The media service itself is not closed.
func (s *PlayerService) Shutdown() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.releaseLocked()
	s.stopTickLocked()
	s.state.IsPlaying = false
	close(s.loopStop)
	s.mu.Unlock()

	// goroutines take s.mu, wait without holding it
	s.tickWg.Wait()
	<-s.loopDone

	s.logger.Debug("player service shut down")
	return nil
}

// eventLoop consumes media signals one at a time until Shutdown.
func (s *PlayerService) eventLoop() {
	defer close(s.loopDone)

	events := s.media.Events()
	for {
		select {
		case <-s.loopStop:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			s.handleMediaEvent(event)
		}
	}
}

func (s *PlayerService) handleMediaEvent(event domain.MediaEvent) {
	s.mu.Lock()
	if s.closed || s.handle == domain.InvalidMediaHandle || event.Handle != s.handle {
		s.mu.Unlock()
		s.logger.Debug("ignoring stale media event",
			slog.String("kind", event.Kind.String()),
			slog.Int64("handle", int64(event.Handle)))
		return
	}

	var (
		events []domain.Event
		record *domain.TrackRef
	)

	switch event.Kind {
	case domain.MediaReady:
		s.ready = true
		if event.DurationMs > 0 {
			s.state.DurationMs = event.DurationMs
		}
		if s.state.IsPlaying {
			var started domain.Event
			started, record = s.startLocked()
			events = append(events, started)
		}

	case domain.MediaFailed:
		failed, _ := s.failLocked("prepare", event.Err)
		events = append(events, failed)

	case domain.MediaEnded:
		events = s.completeLocked()
	}
	s.mu.Unlock()

	s.publish(events)
	s.recordPlay(record)
}

// completeLocked handles the end of the current track. Caller must hold s.mu.
func (s *PlayerService) completeLocked() []domain.Event {
	track := *s.state.CurrentTrack
	events := []domain.Event{domain.NewTrackCompletedEvent(track, s.state.Repeat)}

	if s.state.DurationMs > 0 {
		s.state.PositionMs = s.state.DurationMs
	}

	if s.state.Repeat {
		if err := s.media.Seek(s.handle, 0); err != nil {
			failed, _ := s.failLocked("restart", err)
			return append(events, failed)
		}
		if err := s.media.Start(s.handle); err != nil {
			failed, _ := s.failLocked("restart", err)
			return append(events, failed)
		}
		s.state.PositionMs = 0
		s.state.IsPlaying = true
		s.startTickLocked()
		return append(events, domain.NewTrackRestartedEvent(track))
	}

	if len(s.tracks.Tracks()) <= 1 {
		s.state.IsPlaying = false
		s.finished = true
		s.stopTickLocked()
		return append(events, domain.NewPlaybackFinishedEvent(track))
	}

	next, err := s.skipLocked(func(list []domain.TrackRef, id string, shuffle bool) (domain.TrackRef, bool) {
		return s.nav.Next(list, id, shuffle)
	})
	if err != nil {
		s.logger.Debug("advance after completion failed", slog.Any("error", err))
	}
	return append(events, next...)
}

// startTickLocked arms the progress tick. Caller must hold s.mu.
func (s *PlayerService) startTickLocked() {
	if s.closed || s.tickStop != nil {
		return
	}
	stop := make(chan struct{})
	s.tickStop = stop
	s.tickWg.Add(1)

	go func() {
		defer s.tickWg.Done()
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.tick(stop)
			}
		}
	}()
}

// stopTickLocked disarms the progress tick. Caller must hold s.mu.
func (s *PlayerService) stopTickLocked() {
	if s.tickStop == nil {
		return
	}
	close(s.tickStop)
	s.tickStop = nil
}

func (s *PlayerService) tick(stop chan struct{}) {
	s.mu.Lock()
	select {
	case <-stop:
		// disarmed while waiting for the lock
		s.mu.Unlock()
		return
	default:
	}
	if !s.state.IsPlaying || !s.started || s.handle == domain.InvalidMediaHandle {
		s.mu.Unlock()
		return
	}

	pos, err := s.media.Position(s.handle)
	if err != nil {
		s.mu.Unlock()
		s.logger.Debug("position unavailable", slog.Any("error", err))
		return
	}
	s.state.PositionMs = s.clampLocked(pos)
	event := domain.NewTrackProgressEvent(s.state.PositionMs, s.state.DurationMs)
	s.mu.Unlock()

	s.bus.Publish(event)
}

func (s *PlayerService) publish(events []domain.Event) {
	for _, event := range events {
		s.bus.Publish(event)
	}
}

func (s *PlayerService) recordPlay(track *domain.TrackRef) {
	if track == nil || s.recorder == nil {
		return
	}
	s.recorder.RecordPlayAsync(*track)
}
