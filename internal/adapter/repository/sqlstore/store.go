// Package sqlstore persists play counts in a SQL database through gorm.
// SQLite is the embedded default; MySQL is supported for shared installs.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/tejashwikalptaru/audiotracker/internal/domain"
	"github.com/tejashwikalptaru/audiotracker/internal/ports"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Supported drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Config selects the database.
type Config struct {
	Driver string
	DSN    string
}

// playCountRow is the play_counts table. (artist, title) is unique.
type playCountRow struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`
	Artist       string    `gorm:"size:255;not null;uniqueIndex:idx_play_counts_key,priority:1"`
	Title        string    `gorm:"size:255;not null;uniqueIndex:idx_play_counts_key,priority:2"`
	PlayCount    int64     `gorm:"not null;default:1;index"`
	LastPlayedAt time.Time `gorm:"not null"`
}

func (playCountRow) TableName() string {
	return "play_counts"
}

func (r playCountRow) toDomain() domain.PlayCountRecord {
	return domain.PlayCountRecord{
		Artist:       r.Artist,
		Title:        r.Title,
		PlayCount:    r.PlayCount,
		LastPlayedAt: r.LastPlayedAt,
	}
}

// Store implements ports.PlayCountRepository on gorm.
type Store struct {
	db *gorm.DB
}

// Open connects to the configured database and migrates the schema.
func Open(cfg Config, log *slog.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverSQLite, "":
		dialector = sqlite.Open(cfg.DSN)
	case DriverMySQL:
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, domain.NewValidationError("driver", cfg.Driver, "must be sqlite or mysql")
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(log),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.Driver == DriverMySQL {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	} else {
		// single writer avoids SQLITE_BUSY between pooled connections
		sqlDB.SetMaxOpenConns(1)
	}

	store, err := New(db)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an open gorm connection and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&playCountRow{}); err != nil {
		return nil, fmt.Errorf("failed to auto migrate play counts: %w", err)
	}
	return &Store{db: db}, nil
}

func byKey(artist, title string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("artist = ? AND title = ?", artist, title)
	}
}

// Find retrieves the record for (artist, title).
func (s *Store) Find(ctx context.Context, artist, title string) (*domain.PlayCountRecord, error) {
	var row playCountRow
	err := s.db.WithContext(ctx).Scopes(byKey(artist, title)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, domain.NewRepositoryError("find", "sql", "query failed", err)
	}
	rec := row.toDomain()
	return &rec, nil
}

// Insert stores a new record.
func (s *Store) Insert(ctx context.Context, record domain.PlayCountRecord) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&playCountRow{}).Scopes(byKey(record.Artist, record.Title)).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrRecordExists
		}
		return tx.Create(&playCountRow{
			Artist:       record.Artist,
			Title:        record.Title,
			PlayCount:    record.PlayCount,
			LastPlayedAt: record.LastPlayedAt,
		}).Error
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrRecordExists), errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.ErrRecordExists
	default:
		return domain.NewRepositoryError("insert", "sql", "insert failed", err)
	}
}

// Update replaces the count and timestamp of an existing record.
func (s *Store) Update(ctx context.Context, record domain.PlayCountRecord) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row playCountRow
		if err := tx.Scopes(byKey(record.Artist, record.Title)).First(&row).Error; err != nil {
			return err
		}
		return tx.Model(&row).Updates(map[string]interface{}{
			"play_count":     record.PlayCount,
			"last_played_at": record.LastPlayedAt,
		}).Error
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrRecordNotFound
	default:
		return domain.NewRepositoryError("update", "sql", "update failed", err)
	}
}

// Upsert creates the record or increments it in one transaction and returns the stored row.
func (s *Store) Upsert(ctx context.Context, artist, title string, at time.Time) (domain.PlayCountRecord, error) {
	var row playCountRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		insert := playCountRow{Artist: artist, Title: title, PlayCount: 1, LastPlayedAt: at}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "artist"}, {Name: "title"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"play_count":     gorm.Expr("play_count + 1"),
				"last_played_at": at,
			}),
		}).Create(&insert).Error
		if err != nil {
			return err
		}
		return tx.Scopes(byKey(artist, title)).First(&row).Error
	})
	if err != nil {
		return domain.PlayCountRecord{}, domain.NewRepositoryError("upsert", "sql", "upsert failed", err)
	}
	return row.toDomain(), nil
}

// ListByCountDesc returns all records, most played first. Ties keep insertion order.
func (s *Store) ListByCountDesc(ctx context.Context) ([]domain.PlayCountRecord, error) {
	var rows []playCountRow
	if err := s.db.WithContext(ctx).Order("play_count DESC, id ASC").Find(&rows).Error; err != nil {
		return nil, domain.NewRepositoryError("list", "sql", "query failed", err)
	}

	records := make([]domain.PlayCountRecord, len(rows))
	for i, row := range rows {
		records[i] = row.toDomain()
	}
	return records, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Verify interface implementation
var (
	_ ports.PlayCountRepository = (*Store)(nil)
	_ ports.PlayCountUpserter   = (*Store)(nil)
)
