package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/projectfolders/internal/config"
	"github.com/tonimelisma/projectfolders/internal/provision"
	"github.com/tonimelisma/projectfolders/internal/remote"
)

// errProvisionFailed signals that a provisioning report has been printed and
// the process should exit non-zero without printing again.
var errProvisionFailed = errors.New("provisioning failed")

func newProvisionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provision <project-id>",
		Short: "Create (and optionally fill) the cloud folder for a project",
		Long: `Run the provisioning workflow for one project folder: ensure the folder
exists on the Seafile library, then, when content sync is enabled, copy the
template folder into it over WebDAV and rename the copied documents.

The command is safe to repeat; an existing folder is not an error.`,
		Args: cobra.ExactArgs(1),
		RunE: runProvision,
	}

	cmd.Flags().Bool("content-sync", false, "override provisioning.enable_content_sync")

	return cmd
}

func runProvision(cmd *cobra.Command, args []string) error {
	logger := buildLogger()
	ctx := shutdownContext(cmd.Context(), logger)
	cfg := resolvedCfg

	wf, err := buildWorkflow(cfg, func() *config.Config { return cfg }, logger)
	if err != nil {
		return err
	}

	rep := wf.Run(ctx, args[0])

	if flagJSON {
		if err := printReportJSON(os.Stdout, rep); err != nil {
			return err
		}
	} else {
		printReport(os.Stdout, rep)
	}

	if !rep.OK() {
		return errProvisionFailed
	}

	return nil
}

// reportJSON is the JSON output schema for a provisioning report.
type reportJSON struct {
	*provision.Report
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	Status    int    `json:"http_status,omitempty"`
}

func printReportJSON(w io.Writer, rep *provision.Report) error {
	out := reportJSON{Report: rep}
	if rep.Err != nil {
		out.Error = rep.Err.Error()
		out.ErrorKind = remote.KindOf(rep.Err).String()
		out.Status = remote.StatusCodeOf(rep.Err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	return nil
}

func printReport(w io.Writer, rep *provision.Report) {
	printTable(w, []string{"STEP", "STATUS"}, [][]string{
		{provision.OpEnsureFolder, string(rep.Folder)},
		{provision.OpCopyContents, string(rep.Copy)},
		{provision.OpRenameMatching, string(rep.Rename)},
	})

	for _, warn := range rep.Warnings {
		fmt.Fprintf(w, "\nWarning: %s\n", warn)
	}

	if rep.Err != nil {
		fmt.Fprintf(w, "Cause: %v\n", rep.Err)
	}
}
