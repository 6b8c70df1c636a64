package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/tejashwikalptaru/audiotracker/internal/domain"
	"github.com/tejashwikalptaru/audiotracker/internal/ports"
)

// LibraryService holds the current snapshot of the full track library.
// It is the player's TrackList and the source of filtered views for a shell.
// All operations are thread-safe via sync.RWMutex.
type LibraryService struct {
	// Dependencies (injected)
	logger *slog.Logger
	source ports.TrackSource
	bus    ports.EventBus

	// State
	tracks     []domain.TrackRef
	scanning   bool
	cancelScan context.CancelFunc

	// Concurrency control
	mu sync.RWMutex
}

// NewLibraryService creates a new library service with an empty library.
func NewLibraryService(
	logger *slog.Logger,
	source ports.TrackSource,
	bus ports.EventBus,
) *LibraryService {
	return &LibraryService{
		logger: logger,
		source: source,
		bus:    bus,
	}
}

// Refresh asks the track source for a new snapshot and replaces the library with it.
// Entries without a playable source are dropped. Only one refresh runs at a time.
func (s *LibraryService) Refresh(ctx context.Context) ([]domain.TrackRef, error) {
	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		return nil, domain.NewServiceError("LibraryService", "Refresh", "scan already in progress", domain.ErrScanInProgress)
	}
	s.scanning = true

	// Create cancellable context
	ctx, cancel := context.WithCancel(ctx)
	s.cancelScan = cancel
	s.mu.Unlock()

	// Ensure cleanup
	defer func() {
		cancel()
		s.mu.Lock()
		s.scanning = false
		s.cancelScan = nil
		s.mu.Unlock()
	}()

	s.bus.Publish(domain.NewScanStartedEvent())

	scanned, err := s.source.Scan(ctx)
	if err != nil {
		s.logger.Warn("library scan failed", slog.Any("error", err))
		s.bus.Publish(domain.NewScanCompletedEvent(0, err))
		return nil, domain.NewServiceError("LibraryService", "Refresh", "track source scan failed", err)
	}

	tracks := lo.Filter(scanned, func(t domain.TrackRef, _ int) bool {
		return t.Source != ""
	})
	if dropped := len(scanned) - len(tracks); dropped > 0 {
		s.logger.Debug("dropped tracks without source", slog.Int("count", dropped))
	}

	s.mu.Lock()
	s.tracks = tracks
	s.mu.Unlock()

	s.logger.Info("library refreshed", slog.Int("tracks", len(tracks)))

	s.bus.Publish(domain.NewScanCompletedEvent(len(tracks), nil))
	s.bus.Publish(domain.NewLibraryUpdatedEvent(append([]domain.TrackRef(nil), tracks...)))

	return append([]domain.TrackRef(nil), tracks...), nil
}

// Tracks returns a copy of the full library.
func (s *LibraryService) Tracks() []domain.TrackRef {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.TrackRef(nil), s.tracks...)
}

// Search returns the tracks whose title or artist contains query, ignoring case.
// A blank query returns the full library.
func (s *LibraryService) Search(query string) []domain.TrackRef {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return s.Tracks()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.Filter(s.tracks, func(t domain.TrackRef, _ int) bool {
		return strings.Contains(strings.ToLower(t.Title), query) ||
			strings.Contains(strings.ToLower(t.Artist), query)
	})
}

// Find returns the track with the given id.
func (s *LibraryService) Find(id string) (domain.TrackRef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.Find(s.tracks, func(t domain.TrackRef) bool { return t.ID == id })
}

// Watch refreshes the library every time the source reports a change, until ctx
// ends or the source stops watching. It blocks; run it on its own goroutine.
func (s *LibraryService) Watch(ctx context.Context) error {
	watchable, ok := s.source.(ports.WatchableSource)
	if !ok {
		return domain.NewServiceError("LibraryService", "Watch", "track source does not report changes", domain.ErrNotInitialized)
	}

	changes := watchable.Changes()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			if _, err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("refresh after change failed", slog.Any("error", err))
			}
		}
	}
}

// CancelScan cancels the currently running refresh.
func (s *LibraryService) CancelScan() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.scanning {
		return domain.NewServiceError("LibraryService", "CancelScan", "no scan in progress", nil)
	}

	if s.cancelScan != nil {
		s.cancelScan()
	}

	return nil
}

// IsScanning returns true if a refresh is in progress.
func (s *LibraryService) IsScanning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanning
}

// Shutdown cancels any running refresh.
func (s *LibraryService) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scanning && s.cancelScan != nil {
		s.cancelScan()
	}

	return nil
}

var _ ports.TrackList = (*LibraryService)(nil)
