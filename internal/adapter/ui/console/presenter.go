// Package console provides the terminal front end of the player.
package console

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/tejashwikalptaru/audiotracker/internal/domain"
	"github.com/tejashwikalptaru/audiotracker/internal/ports"
	"github.com/tejashwikalptaru/audiotracker/internal/service"
)

// maxSeekSeconds bounds seek arguments so the millisecond target cannot overflow.
const maxSeekSeconds = 1e9

// ErrQuit is returned by HandleCommand when the user asked to leave.
var ErrQuit = errors.New("quit")

// Presenter implements the Presenter pattern (MVP architecture).
// It maps domain events to view updates and translates typed commands into
// player operations.
//
// Thread-safety: All operations are thread-safe via sync.Mutex.
type Presenter struct {
	logger *slog.Logger

	// Services (injected)
	player  *service.PlayerService
	library *service.LibraryService

	bus  ports.EventBus
	view ports.View

	mu            sync.Mutex
	subscriptions []domain.SubscriptionID
	shutdownOnce  sync.Once
}

// NewPresenter creates a presenter, subscribes it to the bus and syncs the view.
func NewPresenter(
	logger *slog.Logger,
	player *service.PlayerService,
	library *service.LibraryService,
	bus ports.EventBus,
	view ports.View,
) *Presenter {
	p := &Presenter{
		logger:  logger,
		player:  player,
		library: library,
		bus:     bus,
		view:    view,
	}

	p.subscribeToEvents()
	p.syncInitialState()

	return p
}

// subscribeToEvents subscribes to all relevant events from the event bus.
func (p *Presenter) subscribeToEvents() {
	subscriptions := map[domain.EventType]domain.EventHandler{
		// Playback events
		domain.EventTrackLoading:     p.onTrackLoading,
		domain.EventTrackStarted:     p.onPlaying,
		domain.EventTrackResumed:     p.onPlaying,
		domain.EventTrackRestarted:   p.onPlaying,
		domain.EventTrackPaused:      p.onStopped,
		domain.EventTrackStopped:     p.onStopped,
		domain.EventPlaybackFinished: p.onPlaybackFinished,
		domain.EventTrackProgress:    p.onTrackProgress,
		domain.EventPlaybackFailed:   p.onPlaybackFailed,

		// Mode events
		domain.EventShuffleToggled: p.onModesChanged,
		domain.EventRepeatToggled:  p.onModesChanged,

		// Stats events
		domain.EventPlayRecorded: p.onPlayRecorded,
		domain.EventStatsError:   p.onStatsError,

		// Scan events
		domain.EventScanCompleted: p.onScanCompleted,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for eventType, handler := range subscriptions {
		p.subscriptions = append(p.subscriptions, p.bus.Subscribe(eventType, handler))
	}
}

// syncInitialState makes the view reflect the current player state.
func (p *Presenter) syncInitialState() {
	state := p.player.State()

	p.view.SetModes(state.Shuffle, state.Repeat)
	if state.CurrentTrack != nil {
		p.view.SetTrackInfo(state.CurrentTrack.Title, state.CurrentTrack.Artist)
		p.view.SetProgress(state.PositionMs, state.DurationMs)
	}
	p.view.SetPlayState(state.IsPlaying)
}

// Event handlers

func (p *Presenter) onTrackLoading(event domain.Event) {
	e, ok := event.(domain.TrackLoadingEvent)
	if !ok {
		return
	}
	p.view.SetTrackInfo(e.Track.Title, e.Track.Artist)
	p.view.SetProgress(0, e.Track.DurationMs)
}

func (p *Presenter) onPlaying(domain.Event) {
	p.view.SetPlayState(true)
}

func (p *Presenter) onStopped(domain.Event) {
	p.view.SetPlayState(false)
}

func (p *Presenter) onPlaybackFinished(event domain.Event) {
	p.view.SetPlayState(false)
	if e, ok := event.(domain.PlaybackFinishedEvent); ok {
		p.view.ShowNotification("Finished", e.Track.Title)
	}
}

func (p *Presenter) onTrackProgress(event domain.Event) {
	if e, ok := event.(domain.TrackProgressEvent); ok {
		p.view.SetProgress(e.PositionMs, e.DurationMs)
	}
}

func (p *Presenter) onPlaybackFailed(event domain.Event) {
	e, ok := event.(domain.PlaybackFailedEvent)
	if !ok {
		return
	}
	p.view.SetPlayState(false)
	p.view.ShowError("Playback failed", fmt.Sprintf("%s: %v", e.Track.Title, e.Err))
}

func (p *Presenter) onModesChanged(domain.Event) {
	state := p.player.State()
	p.view.SetModes(state.Shuffle, state.Repeat)
}

func (p *Presenter) onPlayRecorded(event domain.Event) {
	if e, ok := event.(domain.PlayRecordedEvent); ok {
		p.view.ShowNotification("Played", fmt.Sprintf("%s (%d plays)", e.Record.Key(), e.Record.PlayCount))
	}
}

func (p *Presenter) onStatsError(event domain.Event) {
	if e, ok := event.(domain.StatsErrorEvent); ok {
		p.view.ShowError("Statistics", fmt.Sprintf("%s: %v", e.Key, e.Err))
	}
}

func (p *Presenter) onScanCompleted(event domain.Event) {
	e, ok := event.(domain.ScanCompletedEvent)
	if !ok {
		return
	}
	if e.Err != nil {
		p.view.ShowError("Library", e.Err.Error())
		return
	}
	p.view.ShowNotification("Library", fmt.Sprintf("%d tracks", e.TracksFound))
}

// HandleCommand runs one typed command:
//
//	p        play/pause          n  next        b  previous
//	x        stop                s  shuffle     r  repeat
//	f SEC    seek to SEC         f +SEC / f -SEC  relative seek
//	/QUERY   play first match    q  quit
func (p *Presenter) HandleCommand(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	if query, ok := strings.CutPrefix(line, "/"); ok {
		return p.OnSearch(query)
	}

	cmd, arg, _ := strings.Cut(line, " ")
	switch strings.ToLower(cmd) {
	case "p", "play", "pause":
		return p.player.TogglePlayPause()
	case "n", "next":
		return p.player.SkipNext()
	case "b", "prev", "previous":
		return p.player.SkipPrevious()
	case "x", "stop":
		return p.player.Stop()
	case "s", "shuffle":
		p.player.ToggleShuffle()
		return nil
	case "r", "repeat":
		p.player.ToggleRepeat()
		return nil
	case "f", "seek":
		return p.OnSeek(strings.TrimSpace(arg))
	case "q", "quit", "exit":
		return ErrQuit
	default:
		return domain.NewValidationError("command", line, "unknown command")
	}
}

// OnSeek seeks to an absolute second, or relative with a leading sign.
// It fails with ErrNoTrackLoaded before anything was played.
func (p *Presenter) OnSeek(arg string) error {
	seconds, err := strconv.ParseFloat(arg, 64)
	if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return domain.NewValidationError("position", arg, "expected seconds")
	}
	if math.Abs(seconds) > maxSeekSeconds {
		return domain.NewValidationError("position", arg, "out of range")
	}

	state := p.player.State()
	if state.CurrentTrack == nil {
		return domain.ErrNoTrackLoaded
	}

	target := int64(seconds * 1000)
	if strings.HasPrefix(arg, "+") || strings.HasPrefix(arg, "-") {
		target += state.PositionMs
	}
	return p.player.SeekTo(target)
}

// OnSearch plays the first library track whose title or artist matches query.
func (p *Presenter) OnSearch(query string) error {
	matches := p.library.Search(query)
	if len(matches) == 0 {
		p.view.ShowNotification("Search", fmt.Sprintf("no match for %q", query))
		return nil
	}
	return p.player.Play(matches[0])
}

// Shutdown unsubscribes from the event bus.
func (p *Presenter) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		subs := p.subscriptions
		p.subscriptions = nil
		p.mu.Unlock()

		for _, id := range subs {
			p.bus.Unsubscribe(id)
		}
		p.logger.Debug("presenter shut down")
	})
}
