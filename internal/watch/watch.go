// Package watch keeps the index current by running incremental updates
// when files under the discovery roots change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bull/logsearch/internal/indexer"
)

// Updater runs one incremental update. *indexer.Builder satisfies it.
type Updater interface {
	UpdateIndex(ctx context.Context) (*indexer.IndexResult, error)
}

// ignoredDirs are not watched.
var ignoredDirs = []string{".git", "node_modules"}

// Watcher debounces file events under a set of roots and runs updates one
// at a time.
type Watcher struct {
	updater  Updater
	roots    []string
	debounce time.Duration
	logger   *slog.Logger

	// OnUpdate, if set, receives the outcome of every update run.
	OnUpdate func(*indexer.IndexResult, error)

	mu      sync.Mutex
	watched map[string]bool
}

// New creates a watcher. A non-positive debounce means two seconds.
func New(updater Updater, roots []string, debounce time.Duration, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &Watcher{
		updater:  updater,
		roots:    roots,
		debounce: debounce,
		logger:   logger,
		watched:  make(map[string]bool),
	}
}

// Run watches until ctx is canceled. Events arriving while an update is
// running are coalesced into the next run.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	added := 0
	for _, root := range w.roots {
		if _, err := os.Stat(root); err != nil {
			w.logger.Debug("Not watching missing root", "root", root)
			continue
		}
		added += w.addRecursive(fsw, root)
	}
	if added == 0 {
		return fmt.Errorf("no watchable directories among %d roots", len(w.roots))
	}
	w.logger.Info("Watching for log changes", "directories", added, "debounce", w.debounce)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.forget(event.Name)
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.addRecursive(fsw, event.Name)
				}
			}
			w.logger.Debug("File event", "path", event.Name, "op", event.Op.String())
			pending = true
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", "error", err)

		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			w.runUpdate(ctx)
		}
	}
}

func (w *Watcher) runUpdate(ctx context.Context) {
	result, err := w.updater.UpdateIndex(ctx)
	switch {
	case errors.Is(err, context.Canceled):
		return
	case err != nil:
		w.logger.Error("Update failed", "error", err)
	case result.NoOp:
		w.logger.Debug("Update found no changes")
	default:
		w.logger.Info("Index updated",
			"docs_indexed", result.DocsIndexed,
			"files_indexed", result.FilesIndexed,
			"removed", result.FilesRemoved,
			"total_docs", result.TotalDocs,
			"duration", result.Duration,
		)
	}
	if w.OnUpdate != nil {
		w.OnUpdate(result, err)
	}
}

// forget drops path and everything below it from the watched set, so a
// directory recreated at the same place is watched again.
func (w *Watcher) forget(path string) {
	prefix := path + string(filepath.Separator)
	w.mu.Lock()
	defer w.mu.Unlock()
	for dir := range w.watched {
		if dir == path || strings.HasPrefix(dir, prefix) {
			delete(w.watched, dir)
		}
	}
}

// addRecursive watches dir and every subdirectory not yet watched. It
// returns how many directories were added.
func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, dir string) int {
	added := 0
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && slices.Contains(ignoredDirs, d.Name()) {
			return filepath.SkipDir
		}

		w.mu.Lock()
		defer w.mu.Unlock()
		if w.watched[path] {
			return nil
		}
		if err := fsw.Add(path); err != nil {
			w.logger.Warn("Cannot watch directory", "path", path, "error", err)
			return nil
		}
		w.watched[path] = true
		added++
		return nil
	})
	return added
}
