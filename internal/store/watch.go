package store

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce coalesces bursts of writes to the backing file.
const DefaultWatchDebounce = 250 * time.Millisecond

// Watcher reconciles a Store whenever another process rewrites its backing
// file. The parent directory is watched because atomic renames replace the
// file's inode.
type Watcher struct {
	store    *Store
	path     string
	debounce time.Duration
	logger   *slog.Logger
	fs       *fsnotify.Watcher

	// OnReconcile, when set, is called after each reconcile attempt.
	OnReconcile func(added int, err error)
}

// NewWatcher starts watching the directory holding path.
func NewWatcher(s *Store, path string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if s == nil {
		return nil, errors.New("watcher requires a store")
	}
	if path == "" {
		return nil, errors.New("watcher requires a file path")
	}
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{store: s, path: abs, debounce: debounce, logger: logger, fs: fsw}, nil
}

// Watch runs a watcher for s until ctx is cancelled. The store backend must
// be file based.
func Watch(ctx context.Context, s *Store, debounce time.Duration, logger *slog.Logger) error {
	loc, ok := s.Backend().(Locator)
	if !ok {
		return errors.New("store backend has no local file to watch")
	}
	w, err := NewWatcher(s, loc.Path(), debounce, logger)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// Run processes file events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	w.logger.Info("watching feedback store", slog.String("path", w.path))
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if pending && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)
			pending = true
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("feedback watcher error", slog.Any("error", err))
		case <-timer.C:
			pending = false
			added, err := w.store.Reconcile(ctx)
			if err != nil {
				w.logger.Warn("feedback reconcile failed", slog.String("path", w.path), slog.Any("error", err))
			} else if added > 0 {
				w.logger.Info("merged external feedback", slog.Int("added", added), slog.Int("records", w.store.Len()))
			}
			if w.OnReconcile != nil {
				w.OnReconcile(added, err)
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
