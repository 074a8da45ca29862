package provision

import (
	"context"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/tonimelisma/projectfolders/internal/webdav"
)

// Renamer renames template documents throughout a folder tree so their
// names carry the folder's identifier.
type Renamer struct {
	storage  Storage
	patterns []RenamePattern
	sentinel string
	logger   *slog.Logger
}

// NewRenamer creates a Renamer. Nil patterns means DefaultPatterns; an empty
// sentinel means DefaultSentinel.
func NewRenamer(storage Storage, patterns []RenamePattern, sentinel string, logger *slog.Logger) *Renamer {
	if patterns == nil {
		patterns = DefaultPatterns
	}

	if sentinel == "" {
		sentinel = DefaultSentinel
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Renamer{storage: storage, patterns: patterns, sentinel: sentinel, logger: logger}
}

// FolderID returns the identifier substituted into new names: the last
// segment of folderPath.
func FolderID(folderPath string) string {
	trimmed := strings.Trim(folderPath, "/")
	if trimmed == "" {
		return ""
	}

	return path.Base(trimmed)
}

// RenameMatching lists folderPath recursively and renames every item whose
// name matches a pattern. Each item is renamed in place: the target is a
// sibling of the original, wherever in the tree it sits. Files go first in
// listing order, then collections deepest first, so no rename moves an
// entry that is still waiting to be renamed. It stops at the first failed
// rename; earlier renames are kept.
func (r *Renamer) RenameMatching(ctx context.Context, folderPath string) error {
	folderURL := r.storage.FolderURL(folderPath)

	folderID := FolderID(folderPath)
	if folderID == "" {
		return fail(r.logger, OpRenameMatching, folderURL, "", ErrEmptyFolderName)
	}

	items, err := r.storage.Propfind(ctx, folderURL, webdav.DepthInfinity)
	if err != nil {
		return fail(r.logger, OpRenameMatching, folderURL, "", err)
	}

	var files, collections []rename

	for _, item := range items {
		e := locate(r.storage, folderURL, item)
		if e.Self || e.Name == "" || e.underSentinel(r.sentinel) || !HasExtension(e.Name) {
			continue
		}

		newName, ok := NewName(r.patterns, e.Name, folderID)
		if !ok || newName == e.Name {
			continue
		}

		if e.IsCollection {
			collections = append(collections, rename{entry: e, newName: newName})
		} else {
			files = append(files, rename{entry: e, newName: newName})
		}
	}

	sort.SliceStable(collections, func(i, j int) bool {
		return len(collections[i].Rel) > len(collections[j].Rel)
	})

	renamed := 0

	for _, rn := range append(files, collections...) {
		if err := r.move(ctx, rn); err != nil {
			return err
		}

		renamed++
	}

	r.logger.Info("renamed items in folder",
		slog.String("folder", folderURL),
		slog.Int("renamed", renamed),
	)

	return nil
}

// rename is a pending move of entry to newName within its parent.
type rename struct {
	entry
	newName string
}

func (r *Renamer) move(ctx context.Context, rn rename) error {
	parent, err := webdav.ParentURL(rn.URL)
	if err != nil {
		return fail(r.logger, OpRenameMatching, rn.URL, "", err)
	}

	target := webdav.ChildURL(parent, rn.newName)
	if err := r.storage.Move(ctx, rn.URL, target); err != nil {
		return fail(r.logger, OpRenameMatching, rn.URL, target, err)
	}

	return nil
}
