package service

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/tejashwikalptaru/audiotracker/internal/domain"
	"github.com/tejashwikalptaru/audiotracker/internal/ports"
)

// PreferenceService keeps the user's playback modes and library paths across runs.
// It follows shuffle and repeat toggles on the event bus and saves each change.
// All operations are thread-safe via sync.RWMutex.
type PreferenceService struct {
	// Dependencies (injected)
	logger     *slog.Logger
	repository ports.PreferencesRepository
	bus        ports.EventBus

	// Cached preferences
	shuffle   bool
	repeat    bool
	scanPaths []string

	subscriptions []domain.SubscriptionID

	// Concurrency control
	mu sync.RWMutex
}

// NewPreferenceService loads the saved preferences and starts following mode changes.
func NewPreferenceService(
	logger *slog.Logger,
	repository ports.PreferencesRepository,
	bus ports.EventBus,
) *PreferenceService {
	service := &PreferenceService{
		logger:     logger,
		repository: repository,
		bus:        bus,
	}

	service.loadPreferences()

	service.subscriptions = []domain.SubscriptionID{
		bus.Subscribe(domain.EventShuffleToggled, service.onShuffleToggled),
		bus.Subscribe(domain.EventRepeatToggled, service.onRepeatToggled),
	}

	logger.Debug("preference service initialized")
	return service
}

// loadPreferences loads all preferences from repository into cache.
func (s *PreferenceService) loadPreferences() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if shuffle, repeat, err := s.repository.LoadModes(); err == nil {
		s.shuffle = shuffle
		s.repeat = repeat
	} else {
		s.logger.Warn("failed to load playback modes", slog.Any("error", err))
	}

	if paths, err := s.repository.LoadScanPaths(); err == nil {
		s.scanPaths = paths
	} else {
		s.logger.Warn("failed to load scan paths", slog.Any("error", err))
	}
}

func (s *PreferenceService) onShuffleToggled(event domain.Event) {
	e, ok := event.(domain.ShuffleToggledEvent)
	if !ok {
		return
	}
	s.saveModes(func() { s.shuffle = e.Enabled })
}

func (s *PreferenceService) onRepeatToggled(event domain.Event) {
	e, ok := event.(domain.RepeatToggledEvent)
	if !ok {
		return
	}
	s.saveModes(func() { s.repeat = e.Enabled })
}

func (s *PreferenceService) saveModes(apply func()) {
	s.mu.Lock()
	apply()
	shuffle, repeat := s.shuffle, s.repeat
	s.mu.Unlock()

	if err := s.repository.SaveModes(shuffle, repeat); err != nil {
		s.logger.Warn("failed to save playback modes", slog.Any("error", err))
	}
}

// Modes returns the saved shuffle and repeat flags.
func (s *PreferenceService) Modes() (shuffle, repeat bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.shuffle, s.repeat
}

// ScanPaths returns the saved library directories.
func (s *PreferenceService) ScanPaths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]string(nil), s.scanPaths...)
}

// SetScanPaths cleans, de-duplicates and saves the library directories.
func (s *PreferenceService) SetScanPaths(paths []string) error {
	cleaned := lo.Uniq(lo.FilterMap(paths, func(p string, _ int) (string, bool) {
		p = strings.TrimSpace(p)
		if p == "" {
			return "", false
		}
		return filepath.Clean(p), true
	}))
	if len(paths) > 0 && len(cleaned) == 0 {
		return domain.NewValidationError("scan_paths", paths, "must contain at least one non-empty path")
	}

	if err := s.repository.SaveScanPaths(cleaned); err != nil {
		return err
	}

	s.mu.Lock()
	s.scanPaths = cleaned
	s.mu.Unlock()

	return nil
}

// ResetToDefaults clears all saved preferences.
func (s *PreferenceService) ResetToDefaults() error {
	if err := s.repository.Clear(); err != nil {
		return err
	}

	s.mu.Lock()
	s.shuffle = false
	s.repeat = false
	s.scanPaths = nil
	s.mu.Unlock()

	return nil
}

// Shutdown stops following mode changes.
func (s *PreferenceService) Shutdown() error {
	s.mu.Lock()
	subs := s.subscriptions
	s.subscriptions = nil
	s.mu.Unlock()

	for _, id := range subs {
		s.bus.Unsubscribe(id)
	}
	return nil
}
