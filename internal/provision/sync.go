package provision

import (
	"context"
	"log/slog"

	"github.com/tonimelisma/projectfolders/internal/webdav"
)

// Synchronizer copies the immediate children of one folder into another.
type Synchronizer struct {
	storage  Storage
	sentinel string
	logger   *slog.Logger
}

// NewSynchronizer creates a Synchronizer. An empty sentinel means
// DefaultSentinel.
func NewSynchronizer(storage Storage, sentinel string, logger *slog.Logger) *Synchronizer {
	if sentinel == "" {
		sentinel = DefaultSentinel
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Synchronizer{storage: storage, sentinel: sentinel, logger: logger}
}

// CopyContents copies every child of sourceFolder into destFolder, skipping
// the sentinel and unnamed entries. It stops at the first failed copy;
// children copied before the failure stay in place.
func (s *Synchronizer) CopyContents(ctx context.Context, sourceFolder, destFolder string) error {
	sourceURL := s.storage.FolderURL(sourceFolder)
	destURL := s.storage.FolderURL(destFolder)

	s.logger.Info("copying folder contents",
		slog.String("source", sourceURL),
		slog.String("destination", destURL),
	)

	items, err := s.storage.Propfind(ctx, sourceURL, webdav.DepthOne)
	if err != nil {
		return fail(s.logger, OpCopyContents, sourceURL, destURL, err)
	}

	copied := 0

	for _, item := range items {
		e := locate(s.storage, sourceURL, item)
		if e.Self || e.Name == "" || e.underSentinel(s.sentinel) {
			continue
		}

		target := webdav.ChildURL(destURL, e.Name)
		if err := s.storage.Copy(ctx, e.URL, target); err != nil {
			return fail(s.logger, OpCopyContents, e.URL, target, err)
		}

		copied++
	}

	s.logger.Info("copied folder contents",
		slog.String("source", sourceURL),
		slog.String("destination", destURL),
		slog.Int("items", copied),
	)

	return nil
}
