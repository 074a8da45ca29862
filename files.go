package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/projectfolders/internal/provision"
	"github.com/tonimelisma/projectfolders/internal/webdav"
)

func newCopyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy <source-folder> <dest-folder>",
		Short: "Copy the children of one WebDAV folder into another",
		Long: `Copy every direct child of source-folder into dest-folder over WebDAV.
The sentinel entry (provisioning.sentinel) is never copied, existing items
are never overwritten, and the first failure stops the run.`,
		Args: cobra.ExactArgs(2),
		RunE: runCopy,
	}
}

func newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <folder>",
		Short: "Rename template documents in a folder after the folder",
		Long: `Walk folder recursively over WebDAV and rename files that match a
rename rule, substituting the folder name:

  Auftrag_*              -> Auftrag_<folder>.<ext>
  Verfahrensanweisung_*  -> Verfahrensanweisung_<folder>.<ext>
  *_Pruefanweisung*      -> <folder>_Pruefanweisung.<ext>

Files without an extension and anything under the sentinel are left alone.`,
		Args: cobra.ExactArgs(1),
		RunE: runRename,
	}
}

func newLsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls <folder>",
		Short: "List a WebDAV folder",
		Args:  cobra.ExactArgs(1),
		RunE:  runLs,
	}

	cmd.Flags().String("depth", string(webdav.DepthOne), "listing depth: 1 or infinity")

	return cmd
}

func webdavFromConfig(logger *slog.Logger) (*webdav.Client, error) {
	return newWebDAVClient(resolvedCfg, newHTTPClient(resolvedCfg), logger)
}

func runCopy(cmd *cobra.Command, args []string) error {
	logger := buildLogger()

	dav, err := webdavFromConfig(logger)
	if err != nil {
		return err
	}

	s := provision.NewSynchronizer(dav, resolvedCfg.Provisioning.Sentinel, logger)
	if err := s.CopyContents(shutdownContext(cmd.Context(), logger), args[0], args[1]); err != nil {
		return err
	}

	statusf(flagQuiet, "Copied contents of %s into %s\n", args[0], args[1])

	return nil
}

func runRename(cmd *cobra.Command, args []string) error {
	logger := buildLogger()

	dav, err := webdavFromConfig(logger)
	if err != nil {
		return err
	}

	r := provision.NewRenamer(dav, provision.DefaultPatterns, resolvedCfg.Provisioning.Sentinel, logger)
	if err := r.RenameMatching(shutdownContext(cmd.Context(), logger), args[0]); err != nil {
		return err
	}

	statusf(flagQuiet, "Renamed matching documents in %s\n", args[0])

	return nil
}

func runLs(cmd *cobra.Command, args []string) error {
	depthFlag, err := cmd.Flags().GetString("depth")
	if err != nil {
		return err
	}

	depth := webdav.Depth(depthFlag)
	if depth != webdav.DepthOne && depth != webdav.DepthInfinity {
		return fmt.Errorf("ls: --depth must be %q or %q, got %q", webdav.DepthOne, webdav.DepthInfinity, depthFlag)
	}

	dav, err := webdavFromConfig(buildLogger())
	if err != nil {
		return err
	}

	items, err := dav.Propfind(cmd.Context(), dav.FolderURL(args[0]), depth)
	if err != nil {
		return fmt.Errorf("listing %q: %w", args[0], err)
	}

	if flagJSON {
		return printItemsJSON(items)
	}

	printItemsTable(items)

	return nil
}

// lsJSONItem is the JSON output schema for a single item in ls output.
type lsJSONItem struct {
	Name     string `json:"name"`
	Href     string `json:"href"`
	IsFolder bool   `json:"is_folder"`
}

func printItemsJSON(items []webdav.Item) error {
	out := make([]lsJSONItem, 0, len(items))
	for _, it := range items {
		out = append(out, lsJSONItem{Name: it.Name, Href: it.Href, IsFolder: it.IsCollection})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(out)
}

func printItemsTable(items []webdav.Item) {
	rows := make([][]string, 0, len(items))

	for _, it := range items {
		kind := "file"
		if it.IsCollection {
			kind = "dir"
		}

		rows = append(rows, []string{kind, it.Name, it.Href})
	}

	printTable(os.Stdout, []string{"TYPE", "NAME", "HREF"}, rows)
}
