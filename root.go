package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/projectfolders/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// resolvedCfg and resolvedCfgPath hold the effective configuration loaded by
// PersistentPreRunE. They are available to all subcommands afterwards.
var (
	resolvedCfg     *config.Config
	resolvedCfgPath string
)

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projectfolders",
		Short: "Provision cloud folders for time-tracking projects",
		Long: `projectfolders creates a folder for every new project on a Seafile
library and, when content sync is enabled, fills it from a template folder
over WebDAV and renames the copied documents after the project.`,
		Version: version,
		// Silence Cobra's default error/usage printing; main handles it.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			closeLogFile()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newProvisionCmd())
	cmd.AddCommand(newCopyCmd())
	cmd.AddCommand(newRenameCmd())
	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newProjectCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVerifyCmd())
	cmd.AddCommand(newReloadCmd())
	cmd.AddCommand(newStopCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadConfig resolves the effective configuration and stores the result for
// use by subcommands.
func loadConfig(cmd *cobra.Command) error {
	cfg, err := loadConfigFrom(cmd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	closeLogFile()

	resolvedCfg = cfg
	resolvedCfgPath = config.ConfigPath(config.ReadEnvOverrides(), cliOverrides(cmd))

	return nil
}

// loadConfigFrom runs the override chain for cmd. Command-local flags that
// map onto config (--content-sync, --listen) are applied only when set.
func loadConfigFrom(cmd *cobra.Command) (*config.Config, error) {
	return config.Resolve(config.ReadEnvOverrides(), cliOverrides(cmd))
}

func cliOverrides(cmd *cobra.Command) config.CLIOverrides {
	cli := config.CLIOverrides{
		ConfigPath: flagConfigPath,
	}

	if f := cmd.Flags().Lookup("content-sync"); f != nil && f.Changed {
		if v, err := cmd.Flags().GetBool("content-sync"); err == nil {
			cli.EnableContentSync = &v
		}
	}

	if f := cmd.Flags().Lookup("listen"); f != nil && f.Changed {
		v := f.Value.String()
		cli.Listen = &v
	}

	return cli
}

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags. Config-file log level provides the baseline; --verbose and
// --quiet override it because CLI flags always win.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo
	format := "auto"

	var out io.Writer = os.Stderr

	if resolvedCfg != nil {
		switch resolvedCfg.Logging.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}

		format = resolvedCfg.Logging.LogFormat

		if resolvedCfg.Logging.LogFile != "" {
			f, err := openLogFile(resolvedCfg.Logging.LogFile)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: cannot open log file %s: %v\n", resolvedCfg.Logging.LogFile, err)
			} else {
				out = f
			}
		}
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if useJSONLogs(format, out) {
		return slog.New(slog.NewJSONHandler(out, opts))
	}

	return slog.New(slog.NewTextHandler(out, opts))
}

// logFile is the open logging.log_file, shared by every logger built for
// the current command.
var logFile struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// openLogFile returns the shared handle for path, reopening only when the
// configured path changes.
func openLogFile(path string) (*os.File, error) {
	logFile.mu.Lock()
	defer logFile.mu.Unlock()

	if logFile.f != nil && logFile.path == path {
		return logFile.f, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}

	if logFile.f != nil {
		logFile.f.Close()
	}

	logFile.path, logFile.f = path, f

	return f, nil
}

// closeLogFile releases the shared log file, if any.
func closeLogFile() {
	logFile.mu.Lock()
	defer logFile.mu.Unlock()

	if logFile.f != nil {
		logFile.f.Close()
		logFile.path, logFile.f = "", nil
	}
}

// useJSONLogs resolves log_format. "auto" means text for an interactive
// terminal and JSON for everything else (files, pipes, journald).
func useJSONLogs(format string, out io.Writer) bool {
	switch format {
	case "json":
		return true
	case "text":
		return false
	}

	f, ok := out.(*os.File)
	if !ok {
		return true
	}

	return !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
