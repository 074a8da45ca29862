package main

import (
	"log/slog"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/projectfolders/internal/config"
	"github.com/tonimelisma/projectfolders/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP project intake",
		Long: `Serve the project API. Every created project gets its cloud folder
provisioned before the response is sent; provisioning failures are returned
as warnings and never undo the save.

The config file is watched. Changes (for example toggling
provisioning.enable_content_sync) apply to the next project without a restart;
"projectfolders reload" or SIGHUP forces a reload, and "projectfolders stop"
shuts the server down gracefully.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String("listen", "", "override server.listen")
	cmd.Flags().Bool("content-sync", false, "override provisioning.enable_content_sync")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := shutdownContext(cmd.Context(), logger)
	cfg := resolvedCfg

	lock, err := acquirePIDFile(cfg.Server.PIDFile, cfg.Server.Listen)
	if err != nil {
		return err
	}
	defer lock.Release()

	holder := config.NewHolder(cfg, resolvedCfgPath)

	svc, closeStore, err := newProjectService(ctx, cfg, holder.Config, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	srv := server.New(svc, server.Options{
		Logger:    logger,
		RateLimit: cfg.Server.RateLimit,
		RateBurst: cfg.Server.RateBurst,
	})

	// CLI overrides must survive reloads, so reloads go through the same
	// resolution as startup.
	reload := func() (*config.Config, error) {
		return loadConfigFrom(cmd)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(gctx, cfg.Server.Listen, cfg.Server.ShutdownTimeoutDuration())
	})

	g.Go(func() error {
		// Live reload is a convenience; serving continues without it.
		if err := config.Watch(gctx, holder, reload, logger); err != nil {
			logger.Warn("config reload disabled", slog.String("error", err.Error()))
		}

		return nil
	})

	g.Go(func() error {
		reloadOnSIGHUP(gctx, holder, reload, logger)
		return nil
	})

	return g.Wait()
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Ask the running server to shut down gracefully",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			info, err := signalServer(resolvedCfg.Server.PIDFile, syscall.SIGTERM)
			if err != nil {
				return err
			}

			statusf(flagQuiet, "Sent stop signal to server (PID %d)\n", info.PID)

			return nil
		},
	}
}
