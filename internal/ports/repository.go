// Package ports define repository interfaces for data persistence abstraction.
// These interfaces enable the repository pattern and allow swapping persistence mechanisms.
package ports

import (
	"context"
	"time"

	"github.com/tejashwikalptaru/audiotracker/internal/domain"
)

// PlayCountRepository handles the persistence of play-count records.
// Records are keyed by the exact (artist, title) pair.
//
// Thread-safety: Implementations must be thread-safe.
type PlayCountRepository interface {
	// Find retrieves the record for the given key.
	// If the record doesn't exist, returns (nil, domain.ErrRecordNotFound).
	Find(ctx context.Context, artist, title string) (*domain.PlayCountRecord, error)

	// Insert stores a new record.
	// Returns domain.ErrRecordExists if a record with the same key is stored.
	Insert(ctx context.Context, record domain.PlayCountRecord) error

	// Update replaces an existing record.
	// Returns domain.ErrRecordNotFound if no record with the same key is stored.
	Update(ctx context.Context, record domain.PlayCountRecord) error

	// ListByCountDesc returns all records ordered by descending play count.
	// Ties keep a stable, implementation-defined order.
	ListByCountDesc(ctx context.Context) ([]domain.PlayCountRecord, error)

	// Close releases the underlying store.
	Close() error
}

// PlayCountUpserter is implemented by repositories that can create-or-increment a
// record as a single atomic operation. This is optional; the stats service falls
// back to Find followed by Insert or Update.
type PlayCountUpserter interface {
	// Upsert creates the record with PlayCount=1 or increments it, setting LastPlayedAt to at.
	// Returns the stored record after the write.
	Upsert(ctx context.Context, artist, title string, at time.Time) (domain.PlayCountRecord, error)
}

// PreferencesRepository persists user settings between runs.
//
// Thread-safety: Implementations must be thread-safe.
type PreferencesRepository interface {
	// SaveModes persists the shuffle and repeat flags.
	SaveModes(shuffle, repeat bool) error

	// LoadModes retrieves the saved flags. Both default to false.
	LoadModes() (shuffle, repeat bool, err error)

	// SaveScanPaths persists the library directories.
	SaveScanPaths(paths []string) error

	// LoadScanPaths retrieves the library directories. Returns an empty slice if none are saved.
	LoadScanPaths() ([]string, error)

	// Clear removes all saved preferences.
	Clear() error
}
