package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc produces a freshly resolved config.
type ReloadFunc func() (*Config, error)

// Watch reloads the config into h whenever the file at h.Path() is written or
// replaced, until ctx is canceled. The parent directory is watched because
// editors commonly replace files rather than write them in place. A reload
// that fails validation is logged and the previous config stays active.
func Watch(ctx context.Context, h *Holder, reload ReloadFunc, logger *slog.Logger) error {
	if h.Path() == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: creating watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(h.Path())
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("config: watching %s: %w", filepath.Dir(target), err)
	}

	logger.Debug("watching config file", slog.String("path", target))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}

			cfg, err := reload()
			if err != nil {
				logger.Warn("config reload failed, keeping previous config",
					slog.String("path", target),
					slog.String("error", err.Error()),
				)

				continue
			}

			h.Apply(cfg, "file", logger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.Warn("config watcher error", slog.String("error", err.Error()))
		}
	}
}
