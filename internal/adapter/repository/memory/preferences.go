package memory

import (
	"encoding/json"
	"sync"

	"fyne.io/fyne/v2"
	"github.com/tejashwikalptaru/audiotracker/internal/domain"
	"github.com/tejashwikalptaru/audiotracker/internal/ports"
)

const (
	keyShuffle   = "preferences.shuffle"
	keyRepeat    = "preferences.repeat"
	keyScanPaths = "preferences.scan_paths"
)

// PreferencesRepository implements ports.PreferencesRepository using Fyne preferences.
// This provides a thin wrapper around Fyne's preferences system with proper error handling.
//
// Thread-safe: All operations protected by sync.RWMutex.
type PreferencesRepository struct {
	prefs fyne.Preferences
	mu    sync.RWMutex
}

// NewPreferencesRepository creates a new preferences' repository.
// The preferences parameter should be obtained from the fyne app's Preferences().
func NewPreferencesRepository(prefs fyne.Preferences) *PreferencesRepository {
	return &PreferencesRepository{
		prefs: prefs,
	}
}

// SaveModes persists the shuffle and repeat flags.
func (r *PreferencesRepository) SaveModes(shuffle, repeat bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.SetBool(keyShuffle, shuffle)
	r.prefs.SetBool(keyRepeat, repeat)
	return nil
}

// LoadModes retrieves the saved shuffle and repeat flags.
func (r *PreferencesRepository) LoadModes() (bool, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.prefs.BoolWithFallback(keyShuffle, false), r.prefs.BoolWithFallback(keyRepeat, false), nil
}

// SaveScanPaths persists the list of directories to scan for music.
func (r *PreferencesRepository) SaveScanPaths(paths []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(paths)
	if err != nil {
		return domain.NewRepositoryError("SaveScanPaths", "preferences", "failed to marshal paths", err)
	}

	r.prefs.SetString(keyScanPaths, string(data))
	return nil
}

// LoadScanPaths retrieves the saved scan paths.
func (r *PreferencesRepository) LoadScanPaths() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data := r.prefs.String(keyScanPaths)
	if data == "" {
		// No saved paths - return empty slice
		return []string{}, nil
	}

	var paths []string
	if err := json.Unmarshal([]byte(data), &paths); err != nil {
		return nil, domain.NewRepositoryError("LoadScanPaths", "preferences", "failed to unmarshal paths", err)
	}

	return paths, nil
}

// Clear removes all saved preferences.
func (r *PreferencesRepository) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.RemoveValue(keyShuffle)
	r.prefs.RemoveValue(keyRepeat)
	r.prefs.RemoveValue(keyScanPaths)

	return nil
}

// Verify interface implementation
var _ ports.PreferencesRepository = (*PreferencesRepository)(nil)
