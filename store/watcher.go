package store

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/maxpert/sqlmap/telemetry"
	"github.com/rs/zerolog/log"
)

// Watcher reloads a Memory store whenever template files change on disk.
type Watcher struct {
	loader   *Loader
	store    *Memory
	debounce time.Duration
	onReload func(err error)

	// serializes Reload between the debounce timer and external callers
	mu sync.Mutex
}

// NewWatcher creates a watcher. onReload, if set, runs after every reload attempt.
func NewWatcher(loader *Loader, store *Memory, debounce time.Duration, onReload func(err error)) *Watcher {
	return &Watcher{
		loader:   loader,
		store:    store,
		debounce: debounce,
		onReload: onReload,
	}
}

// Reload loads from disk into the store. On failure the previous content is kept.
// Concurrent calls run one at a time, so the last load to start is the one kept.
func (w *Watcher) Reload() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	before := w.store.Version()
	err := w.loader.LoadInto(w.store)
	if err != nil {
		telemetry.StoreReloadsTotal.With("failed").Inc()
		log.Error().Err(err).Msg("Template reload failed, keeping previous templates")
	} else {
		telemetry.StoreReloadsTotal.With("success").Inc()
		telemetry.StoreDefinitions.Set(float64(w.store.Len()))
		log.Info().
			Int("templates", w.store.Len()).
			Bool("changed", before != w.store.Version()).
			Msg("Templates reloaded")
	}

	if w.onReload != nil {
		w.onReload(err)
	}
	return err
}

// Run watches the loader's directories until ctx is cancelled.
// Bursts of events within the debounce window trigger a single reload.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	for _, dir := range w.loader.Dirs() {
		if err := watchDirRecursive(watcher, dir); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("Failed to watch template directory")
		}
	}

	// Go 1.23 timers: Reset drops any stale tick, no draining needed
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watchDirRecursive(watcher, event.Name); err != nil {
						log.Warn().Err(err).Str("dir", event.Name).Msg("Failed to watch new directory")
					}
				}
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !isTemplateFile(event.Name) && event.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			log.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("Template file changed")
			timer.Reset(w.debounce)

		case <-timer.C:
			_ = w.Reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("Template watcher error")
		}
	}
}

// watchDirRecursive adds a directory and all subdirectories to the watcher.
func watchDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
