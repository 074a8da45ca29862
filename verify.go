package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/projectfolders/internal/config"
	"github.com/tonimelisma/projectfolders/internal/remote"
	"github.com/tonimelisma/projectfolders/internal/webdav"
)

// errVerifyFailed signals that the check table has been printed and at least
// one check failed.
var errVerifyFailed = errors.New("verification failed")

// Check outcomes.
const (
	checkOK      = "ok"
	checkFailed  = "failed"
	checkSkipped = "skipped"
)

type checkResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
	Kind   string `json:"error_kind,omitempty"`
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check that both backends are reachable with the configured credentials",
		Long: `Log in to the Seafile API and list the template folder over WebDAV
without changing anything on either side. The token is not cached.

Exit code 0 if every configured check passes; exit code 1 otherwise.`,
		Args: cobra.NoArgs,
		RunE: runVerify,
	}
}

func runVerify(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := shutdownContext(cmd.Context(), logger)

	results := verifyBackends(ctx, resolvedCfg, logger)

	if flagJSON {
		if err := printJSON(results); err != nil {
			return err
		}
	} else {
		printVerifyTable(results)
	}

	for i := range results {
		if results[i].Status == checkFailed {
			return errVerifyFailed
		}
	}

	return nil
}

// verifyBackends runs every backend check. Unconfigured WebDAV is skipped
// unless content sync is enabled, mirroring what provisioning requires.
func verifyBackends(ctx context.Context, cfg *config.Config, logger *slog.Logger) []checkResult {
	hc := newHTTPClient(cfg)

	results := []checkResult{verifySeafile(ctx, cfg, hc, logger)}

	if err := cfg.RequireWebDAV(); err != nil && !cfg.Provisioning.EnableContentSync {
		return append(results, checkResult{Name: "webdav", Status: checkSkipped, Detail: err.Error()})
	}

	return append(results, verifyWebDAV(ctx, cfg, hc, logger))
}

func verifySeafile(ctx context.Context, cfg *config.Config, hc *http.Client, logger *slog.Logger) checkResult {
	p, err := newSeafileTokenProvider(cfg, hc, logger)
	if err != nil {
		return failedCheck("seafile", err)
	}

	if _, err := p.FetchToken(ctx); err != nil {
		return failedCheck("seafile", err)
	}

	return checkResult{Name: "seafile", Status: checkOK, Detail: "login accepted for " + cfg.Seafile.Username}
}

func verifyWebDAV(ctx context.Context, cfg *config.Config, hc *http.Client, logger *slog.Logger) checkResult {
	dav, err := newWebDAVClient(cfg, hc, logger)
	if err != nil {
		return failedCheck("webdav", err)
	}

	items, err := dav.Propfind(ctx, dav.FolderURL(cfg.Provisioning.TemplateFolder), webdav.DepthOne)
	if err != nil {
		return failedCheck("webdav", err)
	}

	return checkResult{
		Name:   "webdav",
		Status: checkOK,
		Detail: fmt.Sprintf("template %s lists %d entries", cfg.Provisioning.TemplateFolder, len(items)),
	}
}

func failedCheck(name string, err error) checkResult {
	return checkResult{Name: name, Status: checkFailed, Detail: err.Error(), Kind: remote.KindOf(err).String()}
}

func printVerifyTable(results []checkResult) {
	headers := []string{"CHECK", "STATUS", "DETAIL"}
	rows := make([][]string, len(results))

	for i := range results {
		rows[i] = []string{results[i].Name, results[i].Status, results[i].Detail}
	}

	printTable(os.Stdout, headers, rows)
}
