package provision

import (
	"context"
	"log/slog"
	"strings"
)

// FolderMaker creates a folder, reporting whether it was newly created.
// An already existing folder is not an error. Satisfied by *seafile.Client.
type FolderMaker interface {
	Mkdir(ctx context.Context, folderPath string) (created bool, err error)
}

// Provisioner ensures a project's folder exists.
type Provisioner struct {
	folders FolderMaker
	logger  *slog.Logger
}

// NewProvisioner creates a Provisioner.
func NewProvisioner(folders FolderMaker, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.Default()
	}

	return &Provisioner{folders: folders, logger: logger}
}

// EnsureFolder creates the folder named after projectID, or accepts that it
// already exists. Calling it repeatedly for the same id succeeds every time.
func (p *Provisioner) EnsureFolder(ctx context.Context, projectID string) error {
	name := strings.TrimLeft(strings.TrimSpace(projectID), "/")
	if name == "" {
		return fail(p.logger, OpEnsureFolder, projectID, "", ErrEmptyFolderName)
	}

	created, err := p.folders.Mkdir(ctx, name)
	if err != nil {
		return fail(p.logger, OpEnsureFolder, name, "", err)
	}

	if created {
		p.logger.Info("project folder created", slog.String("folder", name))
	} else {
		p.logger.Info("project folder already exists", slog.String("folder", name))
	}

	return nil
}
