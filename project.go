package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/projectfolders/internal/config"
	"github.com/tonimelisma/projectfolders/internal/project"
)

func newProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Create and inspect projects",
	}

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Save a project and provision its cloud folder",
		Long: `Save a new project and provision its folder. The project is kept even
when provisioning fails; failures are reported as warnings and recorded on
the project, and can be retried with "project reprovision".`,
		Args: cobra.ExactArgs(1),
		RunE: runProjectCreate,
	}
	create.Flags().String("comment", "", "free-form comment")
	create.Flags().Bool("content-sync", false, "override provisioning.enable_content_sync")

	reprovision := &cobra.Command{
		Use:   "reprovision <id>",
		Short: "Run folder provisioning again for a saved project",
		Args:  cobra.ExactArgs(1),
		RunE:  runProjectReprovision,
	}
	reprovision.Flags().Bool("content-sync", false, "override provisioning.enable_content_sync")

	cmd.AddCommand(create, reprovision,
		&cobra.Command{
			Use:   "list",
			Short: "List saved projects",
			Args:  cobra.NoArgs,
			RunE:  runProjectList,
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show one project and its folder status",
			Args:  cobra.ExactArgs(1),
			RunE:  runProjectShow,
		},
	)

	return cmd
}

// openStore opens the project database, creating its directory if needed.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*project.Store, error) {
	if cfg.Store.Path == "" {
		return nil, errors.New("store.path is not set and no data directory is available")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return project.OpenStore(ctx, cfg.Store.Path, logger)
}

// newProjectService opens the store and subscribes folder provisioning to
// project creation. The returned close function releases the store.
func newProjectService(
	ctx context.Context, cfg *config.Config, current func() *config.Config, logger *slog.Logger,
) (*project.Service, func() error, error) {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	wf, err := buildWorkflow(cfg, current, logger)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	svc := project.NewService(store, logger)
	svc.Subscribe(project.NewFolderListener(wf, store, logger))

	return svc, store.Close, nil
}

func runProjectCreate(cmd *cobra.Command, args []string) error {
	logger := buildLogger()
	ctx := shutdownContext(cmd.Context(), logger)
	cfg := resolvedCfg

	comment, err := cmd.Flags().GetString("comment")
	if err != nil {
		return err
	}

	svc, closeStore, err := newProjectService(ctx, cfg, func() *config.Config { return cfg }, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	res, err := svc.Create(ctx, args[0], comment)
	if err != nil {
		return err
	}

	return printResult(res)
}

func runProjectReprovision(cmd *cobra.Command, args []string) error {
	id, err := parseProjectID(args[0])
	if err != nil {
		return err
	}

	logger := buildLogger()
	ctx := shutdownContext(cmd.Context(), logger)
	cfg := resolvedCfg

	svc, closeStore, err := newProjectService(ctx, cfg, func() *config.Config { return cfg }, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	res, err := svc.Reprovision(ctx, id)
	if err != nil {
		return err
	}

	return printResult(res)
}

func runProjectList(cmd *cobra.Command, _ []string) error {
	store, err := openStore(cmd.Context(), resolvedCfg, buildLogger())
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.List(cmd.Context())
	if err != nil {
		return err
	}

	if flagJSON {
		if list == nil {
			list = []*project.Project{}
		}

		return printJSON(list)
	}

	rows := make([][]string, 0, len(list))
	for _, p := range list {
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10), p.Name, string(p.FolderStatus),
			formatTime(p.CreatedAt), formatTime(p.FolderCheckedAt),
		})
	}

	printTable(os.Stdout, []string{"ID", "NAME", "FOLDER", "CREATED", "CHECKED"}, rows)

	return nil
}

func runProjectShow(cmd *cobra.Command, args []string) error {
	id, err := parseProjectID(args[0])
	if err != nil {
		return err
	}

	store, err := openStore(cmd.Context(), resolvedCfg, buildLogger())
	if err != nil {
		return err
	}
	defer store.Close()

	p, err := store.Get(cmd.Context(), id)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(p)
	}

	printProject(p)

	return nil
}

func parseProjectID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid project id %q", s)
	}

	return id, nil
}

func printResult(res *project.Result) error {
	if flagJSON {
		return printJSON(res)
	}

	printProject(res.Project)

	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}

	return nil
}

func printProject(p *project.Project) {
	checked := ""
	if !p.FolderCheckedAt.IsZero() {
		checked = p.FolderCheckedAt.Local().Format(time.DateTime)
	}

	printFields(os.Stdout, []field{
		{"ID", strconv.FormatInt(p.ID, 10)},
		{"Name", p.Name},
		{"Comment", p.Comment},
		{"Created", p.CreatedAt.Local().Format(time.DateTime)},
		{"Folder", string(p.FolderStatus)},
		{"Error", p.FolderError},
		{"Checked", checked},
	})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}

	return nil
}
