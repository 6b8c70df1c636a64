// Package mock provides a scriptable in-memory implementation of ports.MediaService.
// It is used for testing the player without audio hardware and by the CLI's mock engine.
package mock

import (
	"log/slog"
	"sync"

	"github.com/tejashwikalptaru/audiotracker/internal/domain"
	"github.com/tejashwikalptaru/audiotracker/internal/ports"
)

// DefaultDurationMs is the decoded length reported for sources without a configured duration.
const DefaultDurationMs int64 = 3 * 60 * 1000

const eventBuffer = 256

// Status is the simulated state of one opened source.
type Status string

const (
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusPlaying   Status = "playing"
	StatusPaused    Status = "paused"
	StatusEnded     Status = "ended"
)

// Service is a mock implementation of the MediaService interface.
// It simulates preparation, playback position and completion in memory.
//
// Thread-safety: This implementation is thread-safe.
type Service struct {
	logger *slog.Logger

	mu         sync.Mutex
	media      map[domain.MediaHandle]*mockMedia
	nextHandle domain.MediaHandle
	events     chan domain.MediaEvent
	closed     bool

	// Behavior configuration (for testing error scenarios)
	autoPrepare bool
	failLoad    bool
	failStart   bool
	failSources map[string]error
	durations   map[string]int64

	// Counters (for assertions)
	loads    []string
	starts   int
	releases int
}

type mockMedia struct {
	source       string
	durationMs   int64
	positionMs   int64
	status       Status
	startPending bool
}

// NewService creates a mock media service that prepares sources immediately.
func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		logger:      logger,
		media:       make(map[domain.MediaHandle]*mockMedia),
		nextHandle:  1,
		events:      make(chan domain.MediaEvent, eventBuffer),
		autoPrepare: true,
		failSources: make(map[string]error),
		durations:   make(map[string]int64),
	}
}

// SetAutoPrepare controls whether Load reports MediaReady immediately.
// When disabled, tests drive preparation with CompletePrepare or FailPrepare.
func (s *Service) SetAutoPrepare(auto bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoPrepare = auto
}

// SetFailLoad makes Load reject every source synchronously.
func (s *Service) SetFailLoad(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failLoad = fail
}

// SetFailStart makes Start return an error.
func (s *Service) SetFailStart(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStart = fail
}

// FailSource makes preparation of the given source report MediaFailed with err.
func (s *Service) FailSource(source string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failSources, source)
		return
	}
	s.failSources[source] = err
}

// SetDuration sets the decoded duration reported for a source.
func (s *Service) SetDuration(source string, durationMs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.durations[source] = durationMs
}

// Load opens a source and begins preparing it.
func (s *Service) Load(source string) (domain.MediaHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.InvalidMediaHandle, domain.ErrClosed
	}
	if source == "" {
		return domain.InvalidMediaHandle, domain.ErrInvalidSource
	}
	if s.failLoad {
		return domain.InvalidMediaHandle, domain.NewMediaError("load", source, "mock load failed", domain.ErrUnsupportedFormat)
	}

	handle := s.nextHandle
	s.nextHandle++

	duration, ok := s.durations[source]
	if !ok {
		duration = DefaultDurationMs
	}

	s.media[handle] = &mockMedia{
		source:     source,
		durationMs: duration,
		status:     StatusPreparing,
	}
	s.loads = append(s.loads, source)

	if s.autoPrepare {
		s.finishPrepareLocked(handle, s.failSources[source])
	}

	return handle, nil
}

// CompletePrepare reports MediaReady for a preparing handle.
func (s *Service) CompletePrepare(handle domain.MediaHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishPrepareLocked(handle, nil)
}

// FailPrepare reports MediaFailed for a preparing handle.
func (s *Service) FailPrepare(handle domain.MediaHandle, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		err = domain.ErrUnsupportedFormat
	}
	return s.finishPrepareLocked(handle, err)
}

func (s *Service) finishPrepareLocked(handle domain.MediaHandle, failure error) error {
	m, ok := s.media[handle]
	if !ok {
		return domain.ErrInvalidMediaHandle
	}
	if m.status != StatusPreparing {
		return nil
	}

	if failure != nil {
		delete(s.media, handle)
		s.emitLocked(domain.MediaEvent{
			Kind:   domain.MediaFailed,
			Handle: handle,
			Err:    domain.NewMediaError("prepare", m.source, "mock prepare failed", failure),
		})
		return nil
	}

	m.status = StatusReady
	if m.startPending {
		m.status = StatusPlaying
		m.startPending = false
	}
	s.emitLocked(domain.MediaEvent{Kind: domain.MediaReady, Handle: handle, DurationMs: m.durationMs})
	return nil
}

// Start starts or resumes playback.
func (s *Service) Start(handle domain.MediaHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.media[handle]
	if !ok {
		return domain.ErrInvalidMediaHandle
	}
	if s.failStart {
		return domain.NewMediaError("start", m.source, "mock start failed", domain.ErrPlaybackFailed)
	}

	s.starts++
	switch m.status {
	case StatusPreparing:
		m.startPending = true
	case StatusEnded:
		m.positionMs = 0
		m.status = StatusPlaying
	default:
		m.status = StatusPlaying
	}
	return nil
}

// Pause pauses playback.
func (s *Service) Pause(handle domain.MediaHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.media[handle]
	if !ok {
		return domain.ErrInvalidMediaHandle
	}

	switch m.status {
	case StatusPlaying:
		m.status = StatusPaused
	case StatusPreparing:
		m.startPending = false
	}
	return nil
}

// Seek sets the playback position.
func (s *Service) Seek(handle domain.MediaHandle, positionMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.media[handle]
	if !ok {
		return domain.ErrInvalidMediaHandle
	}
	if positionMs < 0 || positionMs > m.durationMs {
		return domain.ErrInvalidPosition
	}

	m.positionMs = positionMs
	if m.status == StatusEnded {
		m.status = StatusPaused
	}
	return nil
}

// Position returns the current playback position.
func (s *Service) Position(handle domain.MediaHandle) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.media[handle]
	if !ok {
		return 0, domain.ErrInvalidMediaHandle
	}
	return m.positionMs, nil
}

// Release stops playback and frees the handle.
func (s *Service) Release(handle domain.MediaHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.media[handle]; !ok {
		return domain.ErrInvalidMediaHandle
	}
	delete(s.media, handle)
	s.releases++
	return nil
}

// Events returns the channel of asynchronous media signals.
func (s *Service) Events() <-chan domain.MediaEvent {
	return s.events
}

// Close releases all media and closes the event channel.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.media = make(map[domain.MediaHandle]*mockMedia)
	close(s.events)
	return nil
}

// Advance simulates playback progress on a playing handle.
// Reaching the end of the source reports MediaEnded.
func (s *Service) Advance(handle domain.MediaHandle, deltaMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.media[handle]
	if !ok {
		return domain.ErrInvalidMediaHandle
	}
	if m.status != StatusPlaying {
		return nil
	}

	m.positionMs += deltaMs
	if m.positionMs >= m.durationMs {
		m.positionMs = m.durationMs
		m.status = StatusEnded
		s.emitLocked(domain.MediaEvent{Kind: domain.MediaEnded, Handle: handle})
	}
	return nil
}

// Finish jumps a playing handle to its end and reports MediaEnded.
func (s *Service) Finish(handle domain.MediaHandle) error {
	s.mu.Lock()
	m, ok := s.media[handle]
	if !ok {
		s.mu.Unlock()
		return domain.ErrInvalidMediaHandle
	}
	remaining := m.durationMs - m.positionMs
	s.mu.Unlock()

	return s.Advance(handle, remaining)
}

// emitLocked sends an event without blocking. Callers must hold s.mu.
func (s *Service) emitLocked(event domain.MediaEvent) {
	if s.closed {
		return
	}
	select {
	case s.events <- event:
	default:
		s.logger.Warn("media event dropped, channel full",
			slog.String("kind", event.Kind.String()),
			slog.Int64("handle", int64(event.Handle)))
	}
}

// StatusOf returns the simulated status of a handle.
func (s *Service) StatusOf(handle domain.MediaHandle) (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.media[handle]
	if !ok {
		return "", false
	}
	return m.status, true
}

// OpenHandles returns the number of handles that have not been released.
func (s *Service) OpenHandles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.media)
}

// LoadedSources returns every source passed to a successful Load, in order.
func (s *Service) LoadedSources() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.loads...)
}

// StartCount returns how many times Start succeeded.
func (s *Service) StartCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}

// ReleaseCount returns how many handles were released.
func (s *Service) ReleaseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releases
}

var _ ports.MediaService = (*Service)(nil)
