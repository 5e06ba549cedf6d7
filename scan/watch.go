package scan

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cwarden/cwarden/violation"
)

// debounceWindow coalesces the burst of write events editors emit for a
// single save.
const debounceWindow = 200 * time.Millisecond

// Watcher rescans C sources as they change on disk.
type Watcher struct {
	runner *Runner
	logger *slog.Logger
}

// NewWatcher creates a watcher that delegates scanning to runner.
func NewWatcher(runner *Runner, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{runner: runner, logger: logger}
}

// Watch monitors the directories containing the given files and invokes
// onResult with a fresh scan of each changed file. It blocks until the
// context is cancelled.
func (w *Watcher) Watch(ctx context.Context, files []string, onResult func(violation.ScanResult)) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsWatcher.Close()

	watched := make(map[string]bool, len(files))
	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			continue
		}
		watched[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsWatcher.Add(dir); err != nil {
			w.logger.Warn("cannot watch directory", slog.String("dir", dir), slog.String("error", err.Error()))
		}
	}

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(debounceWindow)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !watched[abs] {
				continue
			}
			pending[abs] = time.Now()

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", slog.String("error", err.Error()))

		case <-ticker.C:
			now := time.Now()
			for path, stamp := range pending {
				if now.Sub(stamp) < debounceWindow {
					continue
				}
				delete(pending, path)
				w.logger.Info("rescanning changed file", slog.String("file", path))
				results, err := w.runner.Run(ctx, []string{path})
				if err != nil {
					return err
				}
				for _, res := range results {
					onResult(res)
				}
			}
		}
	}
}
