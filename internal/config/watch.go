package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch re-reads path whenever it is written or replaced and passes each
// valid result to apply. Invalid edits are logged and skipped. The watcher
// stops when ctx is cancelled.
func Watch(ctx context.Context, path string, logger *slog.Logger, apply func(Loaded)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config dir %q: %w", filepath.Dir(target), err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}

				loaded, err := loadFile(target)
				if err != nil {
					if logger != nil {
						logger.Warn("config reload failed; keeping previous config", "path", target, "error", err.Error())
					}
					continue
				}
				if logger != nil {
					logger.Info("config reloaded", "path", target, "warnings", len(loaded.Warnings))
				}
				apply(loaded)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if logger != nil {
					logger.Warn("config watcher error", "error", err.Error())
				}
			}
		}
	}()

	return nil
}
