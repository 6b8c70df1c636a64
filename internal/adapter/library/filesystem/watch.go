package filesystem

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/tejashwikalptaru/audiotracker/internal/ports"
)

// DefaultDebounce coalesces bursts of file events (copying an album) into one change signal.
const DefaultDebounce = 500 * time.Millisecond

// WatchedSource is a Source that reports directory changes through fsnotify.
// It implements ports.WatchableSource.
type WatchedSource struct {
	*Source

	watcher  *fsnotify.Watcher
	debounce time.Duration
	changes  chan struct{}

	mu      sync.Mutex
	watched map[string]bool

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewWatched creates a source over roots and starts watching them recursively.
// A debounce of zero uses DefaultDebounce.
func NewWatched(logger *slog.Logger, roots []string, debounce time.Duration, opts ...Option) (*WatchedSource, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &WatchedSource{
		Source:   New(logger, roots, opts...),
		watcher:  watcher,
		debounce: debounce,
		changes:  make(chan struct{}, 1),
		watched:  make(map[string]bool),
		done:     make(chan struct{}),
	}

	for _, root := range w.roots {
		w.addRecursive(root)
	}

	w.wg.Add(1)
	go w.loop()

	return w, nil
}

// Changes returns the change signal channel. It is closed by Close.
func (w *WatchedSource) Changes() <-chan struct{} {
	return w.changes
}

// Close stops watching. Safe to call more than once.
func (w *WatchedSource) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

func (w *WatchedSource) addRecursive(root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.hidden(d.Name()) {
			return filepath.SkipDir
		}
		w.add(path)
		return nil
	})
}

func (w *WatchedSource) add(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watched[path] {
		return
	}
	if err := w.watcher.Add(path); err != nil {
		w.logger.Warn("failed to watch directory", slog.String("path", path), slog.Any("error", err))
		return
	}
	w.watched[path] = true
}

func (w *WatchedSource) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watched[path] {
		_ = w.watcher.Remove(path)
		delete(w.watched, path)
	}
}

func (w *WatchedSource) loop() {
	defer w.wg.Done()
	defer close(w.changes)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("library watcher error", slog.Any("error", err))

		case <-timer.C:
			select {
			case w.changes <- struct{}{}:
			default:
			}
		}
	}
}

// relevant tracks new and removed directories and reports whether the event
// can change the scan result.
func (w *WatchedSource) relevant(event fsnotify.Event) bool {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) {
		return false
	}
	if w.hidden(filepath.Base(event.Name)) {
		return false
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.forget(event.Name)
		return true
	}
	if event.Has(fsnotify.Create) {
		w.addRecursive(event.Name)
		return true
	}
	return w.extensions[extOf(event.Name)]
}

// Verify interface implementation
var _ ports.WatchableSource = (*WatchedSource)(nil)
