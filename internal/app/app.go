// Package app provides application-level orchestration and dependency injection.
// This package wires together all components and manages the application lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"github.com/samber/lo"
	"github.com/tejashwikalptaru/audiotracker/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/audiotracker/internal/adapter/library/filesystem"
	"github.com/tejashwikalptaru/audiotracker/internal/adapter/media/beep"
	"github.com/tejashwikalptaru/audiotracker/internal/adapter/media/mock"
	"github.com/tejashwikalptaru/audiotracker/internal/adapter/repository/memory"
	"github.com/tejashwikalptaru/audiotracker/internal/adapter/repository/redisstore"
	"github.com/tejashwikalptaru/audiotracker/internal/adapter/repository/sqlstore"
	"github.com/tejashwikalptaru/audiotracker/internal/config"
	"github.com/tejashwikalptaru/audiotracker/internal/domain"
	"github.com/tejashwikalptaru/audiotracker/internal/logger"
	"github.com/tejashwikalptaru/audiotracker/internal/ports"
	"github.com/tejashwikalptaru/audiotracker/internal/service"
)

// Application is the root application structure that holds all dependencies.
// It follows the Dependency Injection pattern with constructor-based injection.
//
// The Application struct is responsible for:
// - Creating and wiring all dependencies
// - Managing the application lifecycle (startup, shutdown)
// - Providing a clean entry point for the CLI
type Application struct {
	// Core dependencies
	logger   *slog.Logger
	fyneApp  fyne.App
	settings *config.Config

	// Infrastructure
	eventBus ports.EventBus
	media    ports.MediaService
	source   ports.TrackSource

	// Repositories
	statsRepo       ports.PlayCountRepository
	preferencesRepo ports.PreferencesRepository

	// Services
	playerService     *service.PlayerService
	libraryService    *service.LibraryService
	statsService      *service.StatsService
	preferenceService *service.PreferenceService

	// Library watching
	watchCancel context.CancelFunc
	watchWg     sync.WaitGroup

	shutdownOnce sync.Once
	shutdownErr  error
}

// Config holds application configuration.
type Config struct {
	// AppID is the unique application identifier (names the preferences store)
	AppID string

	// AppName is the display name
	AppName string

	// Settings is the loaded configuration file
	Settings *config.Config

	// LibraryPaths are scanned in addition to Settings.Library.Paths and the saved paths
	LibraryPaths []string

	// FyneApp allows injecting a test Fyne app for testing (nil for production)
	FyneApp fyne.App

	// Media allows injecting a media service (nil selects one from Settings.Player.Engine)
	Media ports.MediaService
}

// DefaultConfig returns the default application configuration.
func DefaultConfig() Config {
	return Config{
		AppID:    "com.audiotracker.app",
		AppName:  "AudioTracker",
		Settings: config.Default(),
	}
}

// NewApplication creates a new application with all dependencies wired.
// This is the main dependency injection function.
func NewApplication(cfg Config) (*Application, error) {
	if cfg.Settings == nil {
		cfg.Settings = config.Default()
	}
	settings := cfg.Settings

	app := &Application{settings: settings}

	// Step 1: Create logger
	app.logger = logger.NewLogger(settings.Log.Logger())
	app.logger.Info("initializing application",
		slog.String("app_id", cfg.AppID),
		slog.String("version", GetVersionInfo().Version))

	// Step 2: Create Fyne application (preferences storage only, no window is opened)
	if cfg.FyneApp != nil {
		app.fyneApp = cfg.FyneApp
	} else {
		app.fyneApp = fyneapp.NewWithID(cfg.AppID)
	}

	// Step 3: Create an event bus
	app.eventBus = eventbus.NewSyncEventBus(app.logger.With(slog.String("component", "eventbus")))

	// Step 4: Create the media service
	media, err := app.newMediaService(cfg.Media)
	if err != nil {
		return nil, err
	}
	app.media = media

	// Step 5: Create repositories
	prefs := app.fyneApp.Preferences()
	app.preferencesRepo = memory.NewPreferencesRepository(prefs)

	statsRepo, err := app.openStatsRepository(prefs)
	if err != nil {
		_ = app.media.Close()
		return nil, fmt.Errorf("failed to open stats store: %w", err)
	}
	app.statsRepo = statsRepo

	// Step 6: Create services (with dependency injection)
	app.preferenceService = service.NewPreferenceService(
		app.logger.With(slog.String("service", "preference")),
		app.preferencesRepo,
		app.eventBus,
	)

	source, err := app.newTrackSource(cfg.LibraryPaths)
	if err != nil {
		_ = app.preferenceService.Shutdown()
		_ = app.statsRepo.Close()
		_ = app.media.Close()
		return nil, fmt.Errorf("failed to create library source: %w", err)
	}
	app.source = source

	app.libraryService = service.NewLibraryService(
		app.logger.With(slog.String("service", "library")),
		app.source,
		app.eventBus,
	)

	app.statsService = service.NewStatsService(
		app.logger.With(slog.String("service", "stats")),
		app.statsRepo,
		app.eventBus,
	)

	shuffle, repeat := app.preferenceService.Modes()
	app.playerService = service.NewPlayerService(
		app.logger.With(slog.String("service", "player")),
		app.media,
		app.libraryService,
		app.statsService,
		app.eventBus,
		service.WithTickInterval(time.Duration(settings.Player.TickIntervalMs)*time.Millisecond),
		service.WithModes(shuffle || settings.Player.Shuffle, repeat || settings.Player.Repeat),
	)

	app.logger.Info("all services initialized successfully",
		slog.String("engine", settings.Player.Engine),
		slog.String("stats_driver", settings.Stats.Driver))
	return app, nil
}

// newMediaService selects the media pipeline.
func (a *Application) newMediaService(override ports.MediaService) (ports.MediaService, error) {
	if override != nil {
		return override, nil
	}

	switch a.settings.Player.Engine {
	case config.EngineMock:
		return mock.NewService(a.logger.With(slog.String("engine", "mock"))), nil
	case config.EngineBeep, "":
		if !beep.AudioAvailable {
			return nil, fmt.Errorf("failed to create media service: %w", domain.ErrAudioUnavailable)
		}
		return beep.NewService(a.logger.With(slog.String("engine", "beep"))), nil
	default:
		return nil, fmt.Errorf("unknown engine %q", a.settings.Player.Engine)
	}
}

// openStatsRepository opens the play-count store selected by the stats driver.
func (a *Application) openStatsRepository(prefs fyne.Preferences) (ports.PlayCountRepository, error) {
	stats := a.settings.Stats
	log := a.logger.With(slog.String("repository", stats.Driver))

	switch stats.Driver {
	case config.DriverSQLite, "":
		if dir := filepath.Dir(stats.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		return sqlstore.Open(sqlstore.Config{Driver: sqlstore.DriverSQLite, DSN: stats.DSN}, log)

	case config.DriverMySQL:
		return sqlstore.Open(sqlstore.Config{Driver: sqlstore.DriverMySQL, DSN: stats.DSN}, log)

	case config.DriverRedis:
		return redisstore.Open(context.Background(), redisstore.Config{
			Addr:      stats.Redis.Addr,
			Password:  stats.Redis.Password,
			DB:        stats.Redis.DB,
			KeyPrefix: stats.Redis.KeyPrefix,
		})

	case config.DriverPreferences:
		return memory.NewPlayCountRepository(prefs), nil

	default:
		return nil, fmt.Errorf("unknown stats driver %q", stats.Driver)
	}
}

// libraryRoots returns the configured, requested and saved library directories.
func (a *Application) libraryRoots(extra []string) []string {
	roots := append([]string(nil), a.settings.Library.Paths...)
	roots = append(roots, extra...)
	roots = append(roots, a.preferenceService.ScanPaths()...)
	return lo.Uniq(lo.Map(roots, func(p string, _ int) string { return filepath.Clean(p) }))
}

// newTrackSource creates the filesystem source, watching it when enabled.
func (a *Application) newTrackSource(extra []string) (ports.TrackSource, error) {
	lib := a.settings.Library
	roots := a.libraryRoots(extra)
	log := a.logger.With(slog.String("component", "library"))
	extensions := playableExtensions(a.settings.Player.Engine, lib.Extensions)
	if dropped, _ := lo.Difference(lib.Extensions, extensions); len(dropped) > 0 {
		log.Warn("skipping file types the audio engine cannot decode", slog.Any("extensions", dropped))
	}
	opts := []filesystem.Option{
		filesystem.WithExtensions(extensions...),
		filesystem.WithHidden(lib.IncludeHidden),
	}

	if lib.Watch {
		return filesystem.NewWatched(log, roots, time.Duration(lib.DebounceMs)*time.Millisecond, opts...)
	}
	return filesystem.New(log, roots, opts...), nil
}

// playableExtensions keeps the library extensions the selected engine can decode.
// The mock engine accepts everything.
func playableExtensions(engine string, extensions []string) []string {
	if engine != config.EngineBeep && engine != "" {
		return extensions
	}
	return lo.Filter(extensions, func(ext string, _ int) bool {
		return beep.Supported("track." + strings.TrimPrefix(ext, "."))
	})
}

// Start scans the library and, when watching is enabled, keeps it current until Shutdown.
func (a *Application) Start(ctx context.Context) error {
	if _, err := a.libraryService.Refresh(ctx); err != nil {
		return err
	}

	if _, ok := a.source.(ports.WatchableSource); !ok {
		return nil
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	a.watchCancel = cancel
	a.watchWg.Add(1)
	go func() {
		defer a.watchWg.Done()
		if err := a.libraryService.Watch(watchCtx); err != nil {
			a.logger.Warn("library watch stopped", slog.Any("error", err))
		}
	}()
	return nil
}

// Shutdown gracefully shuts down the application. Safe to call more than once.
func (a *Application) Shutdown() error {
	a.shutdownOnce.Do(func() {
		a.shutdownErr = a.shutdown()
	})
	return a.shutdownErr
}

func (a *Application) shutdown() error {
	a.logger.Info("shutting down application")
	var errs []error

	// Stop playback first so the last play is queued before the stats writer drains
	if err := a.playerService.Shutdown(); err != nil {
		errs = append(errs, fmt.Errorf("player: %w", err))
	}

	if a.watchCancel != nil {
		a.watchCancel()
	}
	a.watchWg.Wait()

	if err := a.libraryService.Shutdown(); err != nil {
		errs = append(errs, fmt.Errorf("library: %w", err))
	}
	if w, ok := a.source.(ports.WatchableSource); ok {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("library source: %w", err))
		}
	}

	if err := a.statsService.Shutdown(); err != nil {
		errs = append(errs, fmt.Errorf("stats: %w", err))
	}
	if err := a.preferenceService.Shutdown(); err != nil {
		errs = append(errs, fmt.Errorf("preferences: %w", err))
	}

	if err := a.media.Close(); err != nil {
		errs = append(errs, fmt.Errorf("media: %w", err))
	}
	if err := a.statsRepo.Close(); err != nil {
		errs = append(errs, fmt.Errorf("stats store: %w", err))
	}

	err := errors.Join(errs...)
	if err != nil {
		a.logger.Warn("application shutdown finished with errors", slog.Any("error", err))
	} else {
		a.logger.Info("application shutdown complete")
	}
	return err
}

// Player returns the player service.
func (a *Application) Player() *service.PlayerService { return a.playerService }

// Library returns the library service.
func (a *Application) Library() *service.LibraryService { return a.libraryService }

// Stats returns the statistics service.
func (a *Application) Stats() *service.StatsService { return a.statsService }

// Preferences returns the preference service.
func (a *Application) Preferences() *service.PreferenceService { return a.preferenceService }

// EventBus returns the application event bus.
func (a *Application) EventBus() ports.EventBus { return a.eventBus }

// Logger returns the root logger.
func (a *Application) Logger() *slog.Logger { return a.logger }

// Settings returns the configuration the application was built from.
func (a *Application) Settings() *config.Config { return a.settings }
