// Package memory provides repository implementations backed by Fyne preferences.
package memory

import (
	"cmp"
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"github.com/tejashwikalptaru/audiotracker/internal/domain"
	"github.com/tejashwikalptaru/audiotracker/internal/ports"
)

const keyPlayCounts = "stats.play_counts"

// storedRecord is the JSON form of a play-count record.
type storedRecord struct {
	Artist       string    `json:"artist"`
	Title        string    `json:"title"`
	PlayCount    int64     `json:"play_count"`
	LastPlayedAt time.Time `json:"last_played_at"`
}

// PlayCountRepository implements ports.PlayCountRepository using Fyne preferences.
//
// Fyne preferences automatically use OS-specific app data directories:
// - macOS: ~/Library/Preferences/<app id>.plist
// - Linux: ~/.config/fyne/<app id>/
// - Windows: %APPDATA%\fyne\<app id>\
//
// All records live in one JSON array kept in insertion order.
// Thread-safe: All operations protected by sync.RWMutex.
type PlayCountRepository struct {
	prefs fyne.Preferences
	mu    sync.RWMutex
}

// NewPlayCountRepository creates a new play-count repository.
func NewPlayCountRepository(prefs fyne.Preferences) *PlayCountRepository {
	return &PlayCountRepository{
		prefs: prefs,
	}
}

func (r *PlayCountRepository) load() ([]storedRecord, error) {
	data := r.prefs.String(keyPlayCounts)
	if data == "" {
		return nil, nil
	}

	var records []storedRecord
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		return nil, domain.NewRepositoryError("load", "preferences", "failed to unmarshal records", err)
	}
	return records, nil
}

func (r *PlayCountRepository) save(records []storedRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return domain.NewRepositoryError("save", "preferences", "failed to marshal records", err)
	}

	r.prefs.SetString(keyPlayCounts, string(data))
	return nil
}

func indexOfKey(records []storedRecord, artist, title string) int {
	return slices.IndexFunc(records, func(s storedRecord) bool {
		return s.Artist == artist && s.Title == title
	})
}

// Find retrieves the record for (artist, title).
func (r *PlayCountRepository) Find(_ context.Context, artist, title string) (*domain.PlayCountRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records, err := r.load()
	if err != nil {
		return nil, err
	}

	idx := indexOfKey(records, artist, title)
	if idx < 0 {
		return nil, domain.ErrRecordNotFound
	}
	rec := toDomain(records[idx])
	return &rec, nil
}

// Insert stores a new record.
func (r *PlayCountRepository) Insert(_ context.Context, record domain.PlayCountRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load()
	if err != nil {
		return err
	}
	if indexOfKey(records, record.Artist, record.Title) >= 0 {
		return domain.ErrRecordExists
	}

	return r.save(append(records, fromDomain(record)))
}

// Update replaces an existing record.
func (r *PlayCountRepository) Update(_ context.Context, record domain.PlayCountRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load()
	if err != nil {
		return err
	}
	idx := indexOfKey(records, record.Artist, record.Title)
	if idx < 0 {
		return domain.ErrRecordNotFound
	}

	records[idx] = fromDomain(record)
	return r.save(records)
}

// Upsert creates or increments the record while holding the write lock.
func (r *PlayCountRepository) Upsert(_ context.Context, artist, title string, at time.Time) (domain.PlayCountRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load()
	if err != nil {
		return domain.PlayCountRecord{}, err
	}

	idx := indexOfKey(records, artist, title)
	if idx < 0 {
		records = append(records, storedRecord{Artist: artist, Title: title})
		idx = len(records) - 1
	}
	records[idx].PlayCount++
	records[idx].LastPlayedAt = at

	if err := r.save(records); err != nil {
		return domain.PlayCountRecord{}, err
	}
	return toDomain(records[idx]), nil
}

// ListByCountDesc returns all records, most played first. Ties keep insertion order.
func (r *PlayCountRepository) ListByCountDesc(_ context.Context) ([]domain.PlayCountRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records, err := r.load()
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(records, func(a, b storedRecord) int {
		return cmp.Compare(b.PlayCount, a.PlayCount)
	})

	out := make([]domain.PlayCountRecord, len(records))
	for i, s := range records {
		out[i] = toDomain(s)
	}
	return out, nil
}

// Clear removes all saved records.
func (r *PlayCountRepository) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.RemoveValue(keyPlayCounts)
	return nil
}

// Close is a no-op; Fyne persists preferences itself.
func (r *PlayCountRepository) Close() error {
	return nil
}

func toDomain(s storedRecord) domain.PlayCountRecord {
	return domain.PlayCountRecord{
		Artist:       s.Artist,
		Title:        s.Title,
		PlayCount:    s.PlayCount,
		LastPlayedAt: s.LastPlayedAt,
	}
}

func fromDomain(rec domain.PlayCountRecord) storedRecord {
	return storedRecord{
		Artist:       rec.Artist,
		Title:        rec.Title,
		PlayCount:    rec.PlayCount,
		LastPlayedAt: rec.LastPlayedAt,
	}
}

// Verify interface implementation
var (
	_ ports.PlayCountRepository = (*PlayCountRepository)(nil)
	_ ports.PlayCountUpserter   = (*PlayCountRepository)(nil)
)
