package project

import (
	"context"
	"log/slog"

	"github.com/tonimelisma/projectfolders/internal/provision"
)

// FolderRunner runs folder provisioning for a folder name.
type FolderRunner interface {
	Run(ctx context.Context, projectID string) *provision.Report
}

// FolderListener provisions the remote folder of every created project and
// records the outcome on the project row.
type FolderListener struct {
	runner FolderRunner
	store  *Store
	logger *slog.Logger
}

// NewFolderListener returns a listener that drives runner for each project.
func NewFolderListener(runner FolderRunner, store *Store, logger *slog.Logger) *FolderListener {
	if logger == nil {
		logger = slog.Default()
	}

	return &FolderListener{runner: runner, store: store, logger: logger}
}

// ProjectCreated implements Listener.
func (l *FolderListener) ProjectCreated(ctx context.Context, ev *CreatedEvent) {
	rep := l.runner.Run(ctx, ev.Project.FolderName())

	for _, w := range rep.Warnings {
		ev.AddWarning(w)
	}

	status, msg := FolderReady, ""
	if !rep.OK() {
		status, msg = FolderFailed, rep.Err.Error()
	}

	// The original context may already be canceled; the status write is
	// bookkeeping for the saved project and must still land.
	if err := l.store.SetFolderStatus(context.WithoutCancel(ctx), ev.Project.ID, status, msg); err != nil {
		l.logger.Error("recording folder status",
			slog.Int64("id", ev.Project.ID),
			slog.String("error", err.Error()),
		)
	}
}
