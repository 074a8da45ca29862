// Package provision creates and fills the remote folder that belongs to each
// project: it ensures the folder exists on the Seafile library, optionally
// copies a template folder's contents over WebDAV, and renames the copied
// documents after the project.
package provision

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tonimelisma/projectfolders/internal/remote"
)

// Operation names used in errors and diagnostics.
const (
	OpEnsureFolder   = "ensure_folder"
	OpCopyContents   = "copy_contents"
	OpRenameMatching = "rename_matching"
)

// ErrEmptyFolderName is returned when a folder name is empty after
// normalization.
var ErrEmptyFolderName = errors.New("provision: empty folder name")

var errNoStorage = errors.New("provision: no WebDAV backend configured")

// OpError records which step failed and on which URLs.
type OpError struct {
	Op          string
	Source      string
	Destination string
	Err         error
}

func (e *OpError) Error() string {
	switch {
	case e.Source != "" && e.Destination != "":
		return fmt.Sprintf("provision: %s %s -> %s: %v", e.Op, e.Source, e.Destination, e.Err)
	case e.Source != "":
		return fmt.Sprintf("provision: %s %s: %v", e.Op, e.Source, e.Err)
	default:
		return fmt.Sprintf("provision: %s: %v", e.Op, e.Err)
	}
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// fail wraps err in an *OpError and emits the structured diagnostic once.
func fail(logger *slog.Logger, op, source, destination string, err error) error {
	opErr := &OpError{Op: op, Source: source, Destination: destination, Err: err}

	logger.Error("provisioning step failed",
		slog.String("op", op),
		slog.String("source", source),
		slog.String("destination", destination),
		slog.Int("status", remote.StatusCodeOf(err)),
		slog.String("kind", remote.KindOf(err).String()),
		slog.String("error", err.Error()),
	)

	return opErr
}
