// Package watch re-runs work when files under a data home change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"mirdata/logger"

	"github.com/fsnotify/fsnotify"
)

// DefaultQuiet is how long a path must stay unchanged before it is reported.
const DefaultQuiet = 500 * time.Millisecond

// Watcher watches a directory tree and reports batches of settled changes.
type Watcher struct {
	root  string
	quiet time.Duration
	tick  time.Duration
}

// New creates a Watcher for root. quiet <= 0 uses DefaultQuiet.
func New(root string, quiet time.Duration) *Watcher {
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	tick := quiet / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	return &Watcher{root: root, quiet: quiet, tick: tick}
}

// Run blocks until ctx is done, calling onChange with the sorted paths that
// changed once they have been quiet for the configured period. onChange runs
// on the watcher goroutine, so events arriving meanwhile are batched into the
// next call.
func (w *Watcher) Run(ctx context.Context, onChange func(paths []string)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Close()

	if err := addTree(fw, w.root); err != nil {
		return err
	}
	logger.Info("watching data home", logger.String("root", w.root))

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addTree(fw, event.Name); err != nil {
						logger.Warn("failed to watch new directory", logger.String("path", event.Name), logger.ErrorField(err))
					}
				}
			}
			pending[event.Name] = time.Now()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("file watcher error", logger.ErrorField(err))

		case <-ticker.C:
			now := time.Now()
			var settled []string
			for path, last := range pending {
				if now.Sub(last) < w.quiet {
					continue
				}
				settled = append(settled, path)
				delete(pending, path)
			}
			if len(settled) == 0 {
				continue
			}
			sort.Strings(settled)
			logger.Debug("files changed", logger.Int("count", len(settled)))
			onChange(settled)
		}
	}
}

// addTree adds root and every directory below it; fsnotify is not recursive.
func addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}
