package loader

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits for more changes before
// reporting them.
const DefaultDebounce = 300 * time.Millisecond

// Watch blocks until ctx is done, calling onChange once a burst of
// changes to rule files below dir has settled for debounce.
// Directories created while watching are watched too.
func Watch(ctx context.Context, dir string, debounce time.Duration, logger *slog.Logger, onChange func()) error {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addWatchesRecursive(w, dir, logger); err != nil {
		return err
	}
	logger.Info("rules watcher started", "dir", dir, "debounce", debounce)

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addWatchesRecursive(w, event.Name, logger); err != nil {
						logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
					timer.Reset(debounce)
					continue
				}
			}
			if !IsRuleFile(event.Name) || event.Op == fsnotify.Chmod {
				continue
			}
			logger.Debug("rule file changed", "path", event.Name, "op", event.Op.String())
			timer.Reset(debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", err)

		case <-timer.C:
			onChange()
		}
	}
}

// addWatchesRecursive watches root and its non-hidden subdirectories.
func addWatchesRecursive(w *fsnotify.Watcher, root string, logger *slog.Logger) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if path != root && strings.HasPrefix(base, ".") {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			logger.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}
