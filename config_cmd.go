package main

import (
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/projectfolders/internal/config"
)

const redacted = "********"

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides (secrets redacted)",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	})

	return cmd
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	if resolvedCfg == nil {
		return fmt.Errorf("no configuration loaded")
	}

	cfg := redactSecrets(resolvedCfg)

	if flagJSON {
		return printJSON(cfg)
	}

	return renderConfig(os.Stdout, cfg)
}

// redactSecrets returns a copy of cfg with passwords masked. Unset secrets
// stay empty so missing settings remain visible.
func redactSecrets(cfg *config.Config) *config.Config {
	out := *cfg

	if out.WebDAV.Password != "" {
		out.WebDAV.Password = redacted
	}

	if out.Seafile.Password != "" {
		out.Seafile.Password = redacted
	}

	return &out
}

func renderConfig(w io.Writer, cfg *config.Config) error {
	fmt.Fprintf(w, "# config file: %s\n", resolvedCfgPath)

	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	return nil
}

func newReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Ask the running server to reload its configuration",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			info, err := signalServer(resolvedCfg.Server.PIDFile, syscall.SIGHUP)
			if err != nil {
				return err
			}

			statusf(flagQuiet, "Sent reload signal to server (PID %d, %s)\n", info.PID, info.Listen)

			return nil
		},
	}
}
