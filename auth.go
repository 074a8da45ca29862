package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/projectfolders/internal/tokenfile"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Obtain a Seafile API token and cache it on disk",
		Long: `Log in to the Seafile API with the configured username and password
and save the token to seafile.token_file. Later commands reuse the cached
token instead of logging in on every run.`,
		Args: cobra.NoArgs,
		RunE: runLogin,
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the cached Seafile token",
		Args:  cobra.NoArgs,
		RunE:  runLogout,
	}
}

func runLogin(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	cfg := resolvedCfg

	if cfg.Seafile.TokenFile == "" {
		return errors.New("login: seafile.token_file is not set and no data directory is available")
	}

	p, err := newSeafileTokenProvider(cfg, newHTTPClient(cfg), logger)
	if err != nil {
		return err
	}

	logger.Info("login started", "api_url", cfg.Seafile.APIURL, "username", cfg.Seafile.Username)

	if _, err := p.Login(cmd.Context(), cfg.Seafile.TokenFile); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	logger.Info("login successful", "token_file", cfg.Seafile.TokenFile)
	statusf(flagQuiet, "Login successful. Token saved to %s\n", cfg.Seafile.TokenFile)

	return nil
}

func runLogout(_ *cobra.Command, _ []string) error {
	path := resolvedCfg.Seafile.TokenFile
	if path == "" {
		return nil
	}

	if err := tokenfile.Remove(path); err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	statusf(flagQuiet, "Cached token removed.\n")

	return nil
}
