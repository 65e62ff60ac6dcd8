package droid

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchConfig loads the config file at path, passes it to fn, and calls fn
// again each time the file is rewritten, until ctx is done. A reload that
// fails to parse is passed to fn as an error and watching continues.
//
// The initial load error is returned without watching.
func WatchConfig(ctx context.Context, path string, fn func(Config, error)) error {
	cfg, err := LoadConfigFile(path)
	if err != nil {
		return err
	}
	fn(cfg, nil)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace the file, so watch its directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	baseName := filepath.Base(path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != baseName {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			fn(LoadConfigFile(path))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config watcher error", slog.String("path", path), slog.Any("error", err))
		}
	}
}
