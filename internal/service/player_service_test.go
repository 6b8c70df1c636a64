package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tejashwikalptaru/audiotracker/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/audiotracker/internal/adapter/media/mock"
	"github.com/tejashwikalptaru/audiotracker/internal/domain"
	"github.com/tejashwikalptaru/audiotracker/internal/logger"
	"github.com/tejashwikalptaru/audiotracker/internal/testutil"
)

const (
	waitFor = 2 * time.Second
	pollDt  = 5 * time.Millisecond
)

// Helper to create a test track
func createTestTrack(id, title, artist string) domain.TrackRef {
	return domain.TrackRef{
		ID:         id,
		Title:      title,
		Artist:     artist,
		DurationMs: 3 * 60 * 1000,
		AlbumKey:   artist + "/album",
		Source:     "/music/" + id + ".mp3",
	}
}

// staticTracks is a fixed full-library list.
type staticTracks struct {
	mu   sync.Mutex
	list []domain.TrackRef
}

func (l *staticTracks) Tracks() []domain.TrackRef {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.TrackRef(nil), l.list...)
}

// countingRecorder remembers every play reported by the player.
type countingRecorder struct {
	mu     sync.Mutex
	played []domain.TrackRef
}

func (r *countingRecorder) RecordPlayAsync(track domain.TrackRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.played = append(r.played, track)
}

func (r *countingRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.played)
}

// eventLog collects every event published on the bus.
type eventLog struct {
	mu     sync.Mutex
	events []domain.Event
}

func (l *eventLog) add(e domain.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) count(eventType domain.EventType) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.Type() == eventType {
			n++
		}
	}
	return n
}

func (l *eventLog) last(eventType domain.EventType) domain.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i].Type() == eventType {
			return l.events[i]
		}
	}
	return nil
}

type playerFixture struct {
	player   *PlayerService
	media    *mock.Service
	tracks   *staticTracks
	recorder *countingRecorder
	events   *eventLog
}

// Helper to create a test player service
func newTestPlayer(t *testing.T, list ...domain.TrackRef) *playerFixture {
	t.Helper()

	log := logger.NewTestLogger()
	media := mock.NewService(log)
	bus := eventbus.NewSyncEventBus(log)
	f := &playerFixture{
		media:    media,
		tracks:   &staticTracks{list: list},
		recorder: &countingRecorder{},
		events:   &eventLog{},
	}
	bus.SubscribeAll(f.events.add)

	f.player = NewPlayerService(log, media, f.tracks, f.recorder, bus, WithTickInterval(10*time.Millisecond))

	t.Cleanup(func() {
		_ = f.player.Shutdown()
		_ = media.Close()
		_ = bus.Close()
	})
	return f
}

// handle returns the media handle of the most recent load.
func (f *playerFixture) handle(t *testing.T) domain.MediaHandle {
	t.Helper()
	e := f.events.last(domain.EventTrackLoading)
	require.NotNil(t, e, "no track was loaded")
	return e.(domain.TrackLoadingEvent).Handle
}

func (f *playerFixture) waitStarted(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return f.events.count(domain.EventTrackStarted) >= n
	}, waitFor, pollDt)
}

func TestPlayerService_PlayStartsAndRecordsOnce(t *testing.T) {
	f := newTestPlayer(t)
	track := createTestTrack("a", "Alpha", "Artist")

	require.NoError(t, f.player.Play(track))
	f.waitStarted(t, 1)

	state := f.player.State()
	require.NotNil(t, state.CurrentTrack)
	assert.Equal(t, "a", state.CurrentTrack.ID)
	assert.True(t, state.IsPlaying)

	status, ok := f.media.StatusOf(f.handle(t))
	require.True(t, ok)
	assert.Equal(t, mock.StatusPlaying, status)

	assert.Eventually(t, func() bool { return f.recorder.count() == 1 }, waitFor, pollDt)
}

func TestPlayerService_PlayPrefersMediaDuration(t *testing.T) {
	f := newTestPlayer(t)
	track := createTestTrack("a", "Alpha", "Artist")
	f.media.SetDuration(track.Source, 4200)

	require.NoError(t, f.player.Play(track))
	f.waitStarted(t, 1)

	assert.Equal(t, int64(4200), f.player.State().DurationMs)
	started := f.events.last(domain.EventTrackStarted).(domain.TrackStartedEvent)
	assert.Equal(t, int64(4200), started.DurationMs)
}

func TestPlayerService_PlayRejectedKeepsTrack(t *testing.T) {
	f := newTestPlayer(t)
	f.media.SetFailLoad(true)
	track := createTestTrack("a", "Alpha", "Artist")

	err := f.player.Play(track)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPlaybackFailed)

	var engineErr *domain.EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, domain.ReasonPlaybackFailed, engineErr.Reason)

	state := f.player.State()
	require.NotNil(t, state.CurrentTrack)
	assert.Equal(t, "a", state.CurrentTrack.ID)
	assert.False(t, state.IsPlaying)

	failed, ok := f.events.last(domain.EventPlaybackFailed).(domain.PlaybackFailedEvent)
	require.True(t, ok)
	assert.Equal(t, "a", failed.Track.ID)
	assert.Equal(t, 0, f.recorder.count())
}

func TestPlayerService_PrepareFailure(t *testing.T) {
	f := newTestPlayer(t)
	track := createTestTrack("bad", "Broken", "Artist")
	f.media.FailSource(track.Source, errors.New("corrupt header"))

	require.NoError(t, f.player.Play(track))

	require.Eventually(t, func() bool {
		return f.events.count(domain.EventPlaybackFailed) == 1
	}, waitFor, pollDt)

	state := f.player.State()
	require.NotNil(t, state.CurrentTrack)
	assert.Equal(t, "bad", state.CurrentTrack.ID)
	assert.False(t, state.IsPlaying)
	assert.Equal(t, 0, f.media.OpenHandles())
	assert.Equal(t, 0, f.recorder.count())

	failed := f.events.last(domain.EventPlaybackFailed).(domain.PlaybackFailedEvent)
	assert.ErrorIs(t, failed.Err, domain.ErrPlaybackFailed)
}

func TestPlayerService_PlayReleasesPreviousHandle(t *testing.T) {
	f := newTestPlayer(t)

	require.NoError(t, f.player.Play(createTestTrack("a", "Alpha", "Artist")))
	f.waitStarted(t, 1)
	require.NoError(t, f.player.Play(createTestTrack("b", "Bravo", "Artist")))
	f.waitStarted(t, 2)

	assert.Equal(t, 1, f.media.OpenHandles())
	assert.Equal(t, 1, f.media.ReleaseCount())
	assert.Equal(t, "b", f.player.State().CurrentTrack.ID)
	assert.Eventually(t, func() bool { return f.recorder.count() == 2 }, waitFor, pollDt)
}

func TestPlayerService_TogglePlayPause(t *testing.T) {
	f := newTestPlayer(t)

	// no track, nothing happens
	require.NoError(t, f.player.TogglePlayPause())
	assert.False(t, f.player.State().IsPlaying)
	assert.Equal(t, 0, f.events.count(domain.EventTrackPaused))

	require.NoError(t, f.player.Play(createTestTrack("a", "Alpha", "Artist")))
	f.waitStarted(t, 1)
	h := f.handle(t)

	require.NoError(t, f.player.TogglePlayPause())
	assert.False(t, f.player.State().IsPlaying)
	status, _ := f.media.StatusOf(h)
	assert.Equal(t, mock.StatusPaused, status)
	assert.Equal(t, 1, f.events.count(domain.EventTrackPaused))

	require.NoError(t, f.player.TogglePlayPause())
	assert.True(t, f.player.State().IsPlaying)
	status, _ = f.media.StatusOf(h)
	assert.Equal(t, mock.StatusPlaying, status)
	assert.Equal(t, 1, f.events.count(domain.EventTrackResumed))

	// a resume is not a new play
	assert.Eventually(t, func() bool { return f.recorder.count() == 1 }, waitFor, pollDt)
	assert.Equal(t, 1, f.events.count(domain.EventTrackStarted))
}

func TestPlayerService_PauseBeforeReady(t *testing.T) {
	f := newTestPlayer(t)
	f.media.SetAutoPrepare(false)
	track := createTestTrack("a", "Alpha", "Artist")
	f.media.SetDuration(track.Source, 5000)

	require.NoError(t, f.player.Play(track))
	h := f.handle(t)

	require.NoError(t, f.player.TogglePlayPause())
	require.NoError(t, f.media.CompletePrepare(h))

	// the ready signal carries the decoded duration
	require.Eventually(t, func() bool {
		return f.player.State().DurationMs == 5000
	}, waitFor, pollDt)

	status, _ := f.media.StatusOf(h)
	assert.Equal(t, mock.StatusReady, status)
	assert.Equal(t, 0, f.events.count(domain.EventTrackStarted))
	assert.Equal(t, 0, f.recorder.count())

	require.NoError(t, f.player.TogglePlayPause())
	assert.True(t, f.player.State().IsPlaying)
	assert.Equal(t, 1, f.events.count(domain.EventTrackStarted))

	status, _ = f.media.StatusOf(h)
	assert.Equal(t, mock.StatusPlaying, status)
	assert.Equal(t, 1, f.recorder.count())
}

func TestPlayerService_SeekToClamps(t *testing.T) {
	f := newTestPlayer(t)
	track := createTestTrack("a", "Alpha", "Artist")
	f.media.SetDuration(track.Source, 1000)

	require.NoError(t, f.player.Play(track))
	f.waitStarted(t, 1)
	h := f.handle(t)

	require.NoError(t, f.player.SeekTo(5000))
	assert.Equal(t, int64(1000), f.player.State().PositionMs)

	require.NoError(t, f.player.SeekTo(-5))
	assert.Equal(t, int64(0), f.player.State().PositionMs)

	require.NoError(t, f.player.SeekTo(500))
	assert.Equal(t, int64(500), f.player.State().PositionMs)
	pos, err := f.media.Position(h)
	require.NoError(t, err)
	assert.Equal(t, int64(500), pos)

	progress := f.events.last(domain.EventTrackProgress).(domain.TrackProgressEvent)
	assert.Equal(t, int64(1000), progress.DurationMs)
}

func TestPlayerService_SeekToUnknownDuration(t *testing.T) {
	f := newTestPlayer(t)
	f.media.SetAutoPrepare(false)
	track := createTestTrack("a", "Alpha", "Artist")
	track.DurationMs = 0

	require.NoError(t, f.player.Play(track))

	require.NoError(t, f.player.SeekTo(-10))
	assert.Equal(t, int64(0), f.player.State().PositionMs)

	require.NoError(t, f.player.SeekTo(90000))
	assert.Equal(t, int64(90000), f.player.State().PositionMs)
}

func TestPlayerService_SeekToWithoutTrack(t *testing.T) {
	f := newTestPlayer(t)

	require.NoError(t, f.player.SeekTo(1000))
	assert.Equal(t, int64(0), f.player.State().PositionMs)
	assert.Equal(t, 0, f.events.count(domain.EventTrackProgress))
}

func TestPlayerService_SkipWithEmptyLibrary(t *testing.T) {
	f := newTestPlayer(t)
	track := createTestTrack("a", "Alpha", "Artist")

	// nothing current
	require.NoError(t, f.player.SkipNext())
	assert.Nil(t, f.player.State().CurrentTrack)

	require.NoError(t, f.player.Play(track))
	f.waitStarted(t, 1)
	before := f.player.State()

	require.NoError(t, f.player.SkipNext())
	require.NoError(t, f.player.SkipPrevious())

	assert.Equal(t, before, f.player.State())
	assert.Equal(t, []string{track.Source}, f.media.LoadedSources())
}

func TestPlayerService_SkipNavigation(t *testing.T) {
	list := abc()
	f := newTestPlayer(t, list...)

	require.NoError(t, f.player.Play(list[0]))
	require.NoError(t, f.player.SkipNext())
	assert.Equal(t, "b", f.player.State().CurrentTrack.ID)

	require.NoError(t, f.player.SkipPrevious())
	assert.Equal(t, "a", f.player.State().CurrentTrack.ID)

	require.NoError(t, f.player.SkipPrevious())
	assert.Equal(t, "c", f.player.State().CurrentTrack.ID)

	assert.Equal(t, []string{"/music/a.mp3", "/music/b.mp3", "/music/a.mp3", "/music/c.mp3"}, f.media.LoadedSources())
	assert.Eventually(t, func() bool { return f.media.OpenHandles() == 1 }, waitFor, pollDt)
}

func TestPlayerService_CompletionWithRepeat(t *testing.T) {
	list := abc()
	f := newTestPlayer(t, list...)
	f.player.ToggleRepeat()

	require.NoError(t, f.player.Play(list[0]))
	f.waitStarted(t, 1)
	require.Eventually(t, func() bool { return f.recorder.count() == 1 }, waitFor, pollDt)
	h := f.handle(t)

	require.NoError(t, f.media.Finish(h))

	require.Eventually(t, func() bool {
		return f.events.count(domain.EventTrackRestarted) == 1
	}, waitFor, pollDt)

	completed := f.events.last(domain.EventTrackCompleted).(domain.TrackCompletedEvent)
	assert.True(t, completed.Repeat)

	state := f.player.State()
	assert.Equal(t, "a", state.CurrentTrack.ID)
	assert.True(t, state.IsPlaying)
	assert.Equal(t, int64(0), state.PositionMs)

	status, _ := f.media.StatusOf(h)
	assert.Equal(t, mock.StatusPlaying, status)

	// same handle, no reload and no second count
	assert.Len(t, f.media.LoadedSources(), 1)
	assert.Equal(t, 1, f.recorder.count())
}

func TestPlayerService_CompletionSingleTrackStops(t *testing.T) {
	track := createTestTrack("a", "Alpha", "Artist")
	f := newTestPlayer(t, track)

	require.NoError(t, f.player.Play(track))
	f.waitStarted(t, 1)

	require.NoError(t, f.media.Finish(f.handle(t)))

	require.Eventually(t, func() bool {
		return f.events.count(domain.EventPlaybackFinished) == 1
	}, waitFor, pollDt)

	state := f.player.State()
	assert.False(t, state.IsPlaying)
	assert.Equal(t, "a", state.CurrentTrack.ID)
	assert.Len(t, f.media.LoadedSources(), 1)
}

func TestPlayerService_ResumeAfterFinishStartsOver(t *testing.T) {
	track := createTestTrack("a", "Alpha", "Artist")
	f := newTestPlayer(t, track)

	require.NoError(t, f.player.Play(track))
	f.waitStarted(t, 1)
	require.NoError(t, f.media.Finish(f.handle(t)))
	require.Eventually(t, func() bool {
		return f.events.count(domain.EventPlaybackFinished) == 1
	}, waitFor, pollDt)
	assert.Equal(t, track.DurationMs, f.player.State().PositionMs)

	require.NoError(t, f.player.TogglePlayPause())

	state := f.player.State()
	assert.True(t, state.IsPlaying)
	assert.Zero(t, state.PositionMs)
	assert.Equal(t, 1, f.events.count(domain.EventTrackResumed))

	status, ok := f.media.StatusOf(f.handle(t))
	require.True(t, ok)
	assert.Equal(t, mock.StatusPlaying, status)
	pos, err := f.media.Position(f.handle(t))
	require.NoError(t, err)
	assert.Zero(t, pos)

	// same load, counted once
	assert.Len(t, f.media.LoadedSources(), 1)
	assert.Eventually(t, func() bool { return f.recorder.count() == 1 }, waitFor, pollDt)
	assert.Equal(t, 1, f.events.count(domain.EventPlaybackFinished))
}

func TestPlayerService_SeekAfterFinishKeepsPosition(t *testing.T) {
	track := createTestTrack("a", "Alpha", "Artist")
	f := newTestPlayer(t, track)

	require.NoError(t, f.player.Play(track))
	f.waitStarted(t, 1)
	require.NoError(t, f.media.Finish(f.handle(t)))
	require.Eventually(t, func() bool {
		return f.events.count(domain.EventPlaybackFinished) == 1
	}, waitFor, pollDt)

	require.NoError(t, f.player.SeekTo(30_000))
	require.NoError(t, f.player.TogglePlayPause())
	assert.Equal(t, int64(30_000), f.player.State().PositionMs)
}

func TestPlayerService_CompletionEmptyLibraryStops(t *testing.T) {
	f := newTestPlayer(t)

	require.NoError(t, f.player.Play(createTestTrack("a", "Alpha", "Artist")))
	f.waitStarted(t, 1)
	require.NoError(t, f.media.Finish(f.handle(t)))

	require.Eventually(t, func() bool {
		return f.events.count(domain.EventPlaybackFinished) == 1
	}, waitFor, pollDt)
	assert.False(t, f.player.State().IsPlaying)
}

func TestPlayerService_CompletionAdvances(t *testing.T) {
	list := abc()
	f := newTestPlayer(t, list...)

	require.NoError(t, f.player.Play(list[2]))
	f.waitStarted(t, 1)
	require.NoError(t, f.media.Finish(f.handle(t)))

	f.waitStarted(t, 2)
	state := f.player.State()
	assert.Equal(t, "a", state.CurrentTrack.ID, "completion wraps to the first track")
	assert.True(t, state.IsPlaying)
	assert.Eventually(t, func() bool { return f.recorder.count() == 2 }, waitFor, pollDt)
}

func TestPlayerService_TickPublishesProgress(t *testing.T) {
	f := newTestPlayer(t)
	track := createTestTrack("a", "Alpha", "Artist")
	f.media.SetDuration(track.Source, 10000)

	require.NoError(t, f.player.Play(track))
	f.waitStarted(t, 1)
	require.NoError(t, f.media.Advance(f.handle(t), 2500))

	require.Eventually(t, func() bool {
		return f.player.State().PositionMs == 2500
	}, waitFor, pollDt)

	progress, ok := f.events.last(domain.EventTrackProgress).(domain.TrackProgressEvent)
	require.True(t, ok)
	assert.Equal(t, int64(10000), progress.DurationMs)

	// paused players do not tick
	require.NoError(t, f.player.TogglePlayPause())
	time.Sleep(20 * time.Millisecond)
	ticks := f.events.count(domain.EventTrackProgress)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, ticks, f.events.count(domain.EventTrackProgress))
}

func TestPlayerService_Stop(t *testing.T) {
	f := newTestPlayer(t)

	require.NoError(t, f.player.Play(createTestTrack("a", "Alpha", "Artist")))
	f.waitStarted(t, 1)

	require.NoError(t, f.player.Stop())
	state := f.player.State()
	assert.False(t, state.IsPlaying)
	assert.Equal(t, "a", state.CurrentTrack.ID)
	assert.Equal(t, 0, f.media.OpenHandles())
	assert.Equal(t, 1, f.events.count(domain.EventTrackStopped))

	// play/pause loads the stopped track again
	require.NoError(t, f.player.TogglePlayPause())
	f.waitStarted(t, 2)
	assert.Len(t, f.media.LoadedSources(), 2)
}

func TestPlayerService_ToggleModes(t *testing.T) {
	f := newTestPlayer(t)

	assert.True(t, f.player.ToggleShuffle())
	assert.True(t, f.player.ToggleRepeat())
	assert.False(t, f.player.ToggleShuffle())

	state := f.player.State()
	assert.False(t, state.Shuffle)
	assert.True(t, state.Repeat)

	shuffled := f.events.last(domain.EventShuffleToggled).(domain.ShuffleToggledEvent)
	assert.False(t, shuffled.Enabled)
	assert.Equal(t, 2, f.events.count(domain.EventShuffleToggled))
	assert.Equal(t, 1, f.events.count(domain.EventRepeatToggled))
}

func TestPlayerService_StateIsACopy(t *testing.T) {
	f := newTestPlayer(t)
	require.NoError(t, f.player.Play(createTestTrack("a", "Alpha", "Artist")))

	state := f.player.State()
	state.CurrentTrack.Title = "changed"

	assert.Equal(t, "Alpha", f.player.State().CurrentTrack.Title)
}

func TestPlayerService_Shutdown(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	log := logger.NewTestLogger()
	media := mock.NewService(log)
	bus := eventbus.NewSyncEventBus(log)
	player := NewPlayerService(log, media, &staticTracks{}, nil, bus, WithTickInterval(time.Millisecond))

	require.NoError(t, player.Play(createTestTrack("a", "Alpha", "Artist")))
	require.Eventually(t, func() bool {
		status, _ := media.StatusOf(1)
		return status == mock.StatusPlaying
	}, waitFor, pollDt)

	require.NoError(t, player.Shutdown())
	require.NoError(t, player.Shutdown())

	assert.Equal(t, 0, media.OpenHandles())
	assert.False(t, player.State().IsPlaying)
	assert.ErrorIs(t, player.Play(createTestTrack("b", "Bravo", "Artist")), domain.ErrClosed)
	assert.ErrorIs(t, player.TogglePlayPause(), domain.ErrClosed)

	require.NoError(t, media.Close())
	require.NoError(t, bus.Close())
}
