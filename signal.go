package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tonimelisma/projectfolders/internal/config"
)

// shutdownContext returns a context that is canceled on the first SIGINT or
// SIGTERM. In-flight provisioning steps see the cancellation and stop before
// the next remote call; a second signal exits immediately.
func shutdownContext(parent context.Context, logger *slog.Logger) context.Context {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down",
				slog.String("signal", sig.String()),
			)
			cancel()
		case <-ctx.Done():
			return
		}

		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, forcing exit",
				slog.String("signal", sig.String()),
			)
			os.Exit(1)
		case <-parent.Done():
			return
		}
	}()

	return ctx
}

// reloadOnSIGHUP re-resolves the config into h on every SIGHUP until ctx is
// done. It complements the file watcher for deployments that manage the file
// through symlink swaps the watcher cannot see.
func reloadOnSIGHUP(ctx context.Context, h *config.Holder, reload config.ReloadFunc, logger *slog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sigCh:
			cfg, err := reload()
			if err != nil {
				logger.Warn("SIGHUP reload failed, keeping previous config", slog.String("error", err.Error()))
				continue
			}

			h.Apply(cfg, "SIGHUP", logger)
		}
	}
}
