package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/projectfolders/internal/config"
)

// Global flag reset pattern: newRootCmd() binds flags via StringVar/BoolVar,
// which reset the global flag variables to their zero values. Tests must either:
//   - Set globals AFTER newRootCmd() returns (direct function tests), or
//   - Use cmd.SetArgs() + cmd.Execute() to let Cobra parse flags (integration tests).

// saveGlobals restores the package-level CLI state after a test.
func saveGlobals(t *testing.T) {
	t.Helper()

	oldCfg, oldPath := resolvedCfg, resolvedCfgPath
	oldConfigPath, oldJSON, oldVerbose, oldQuiet := flagConfigPath, flagJSON, flagVerbose, flagQuiet

	t.Cleanup(func() {
		resolvedCfg, resolvedCfgPath = oldCfg, oldPath
		flagConfigPath, flagJSON, flagVerbose, flagQuiet = oldConfigPath, oldJSON, oldVerbose, oldQuiet
	})
}

func TestBuildLogger_Levels(t *testing.T) {
	tests := []struct {
		name     string
		cfgLevel string
		verbose  bool
		quiet    bool
		enabled  slog.Level
		disabled slog.Level
	}{
		{"default info", "", false, false, slog.LevelInfo, slog.LevelDebug},
		{"config debug", "debug", false, false, slog.LevelDebug, slog.LevelDebug - 1},
		{"config warn", "warn", false, false, slog.LevelWarn, slog.LevelInfo},
		{"verbose overrides config", "error", true, false, slog.LevelDebug, slog.LevelDebug - 1},
		{"quiet overrides config", "debug", false, true, slog.LevelError, slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saveGlobals(t)

			resolvedCfg = nil
			if tt.cfgLevel != "" {
				resolvedCfg = config.DefaultConfig()
				resolvedCfg.Logging.LogLevel = tt.cfgLevel
			}

			flagVerbose = tt.verbose
			flagQuiet = tt.quiet

			logger := buildLogger()
			assert.True(t, logger.Handler().Enabled(context.Background(), tt.enabled))
			assert.False(t, logger.Handler().Enabled(context.Background(), tt.disabled))
		})
	}
}

func TestBuildLogger_LogFileGetsJSON(t *testing.T) {
	saveGlobals(t)

	logPath := filepath.Join(t.TempDir(), "pf.log")

	resolvedCfg = config.DefaultConfig()
	resolvedCfg.Logging.LogFile = logPath
	flagVerbose, flagQuiet = false, false

	buildLogger().Info("hello", slog.String("k", "v"))

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestBuildLogger_SharesOneLogFile(t *testing.T) {
	saveGlobals(t)
	t.Cleanup(closeLogFile)

	logPath := filepath.Join(t.TempDir(), "pf.log")

	resolvedCfg = config.DefaultConfig()
	resolvedCfg.Logging.LogFile = logPath

	buildLogger().Info("first")

	f1, err := openLogFile(logPath)
	require.NoError(t, err)

	buildLogger().Info("second")

	f2, err := openLogFile(logPath)
	require.NoError(t, err)
	assert.Same(t, f1, f2, "repeated loggers must reuse the open file")

	closeLogFile()

	// A closed handle is rejected by the OS, so the file really was released.
	_, err = f1.Write([]byte("x"))
	require.Error(t, err)

	buildLogger().Info("third")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"first"`)
	assert.Contains(t, string(data), `"msg":"third"`)
}

func TestUseJSONLogs(t *testing.T) {
	var buf bytes.Buffer

	assert.True(t, useJSONLogs("json", os.Stderr))
	assert.False(t, useJSONLogs("text", &buf))
	assert.True(t, useJSONLogs("auto", &buf), "non-file writers are never terminals")

	f, err := os.CreateTemp(t.TempDir(), "log")
	require.NoError(t, err)
	defer f.Close()

	assert.True(t, useJSONLogs("auto", f))
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	cmd := newRootCmd()

	expected := []string{
		"login", "logout", "provision", "copy", "rename", "ls", "project", "serve", "verify", "reload", "stop", "config",
	}
	for _, name := range expected {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}

	for _, name := range []string{"create", "list", "show", "reprovision"} {
		sub, _, err := cmd.Find([]string{"project", name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
}

func TestNewRootCmd_PersistentFlags(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{"config", "json", "verbose", "quiet"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "expected persistent flag %q", name)
	}
}

func TestLoadConfig_ValidTOML(t *testing.T) {
	saveGlobals(t)

	cfgFile := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`
[provisioning]
template_folder = "/vorlagen"
`), 0o600))

	cmd := newRootCmd()
	flagConfigPath = cfgFile

	require.NoError(t, loadConfig(cmd))
	require.NotNil(t, resolvedCfg)
	assert.Equal(t, "/vorlagen", resolvedCfg.Provisioning.TemplateFolder)
	assert.Equal(t, cfgFile, resolvedCfgPath)
}

func TestLoadConfig_ContentSyncFlag(t *testing.T) {
	saveGlobals(t)
	t.Setenv(config.EnvEnableContentSync, "false")
	t.Setenv(config.EnvSeafileAPIURL, "")
	t.Setenv(config.EnvSeafileUsername, "")

	cfgPath := filepath.Join(t.TempDir(), "none.toml")

	cmd := newRootCmd()
	// No Seafile settings: provision fails after config loading succeeds.
	cmd.SetArgs([]string{"--config", cfgPath, "provision", "--content-sync", "42"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrMissingSetting)

	require.NotNil(t, resolvedCfg)
	assert.True(t, resolvedCfg.Provisioning.EnableContentSync)
}

func TestLoadConfig_UnknownKeyFails(t *testing.T) {
	saveGlobals(t)

	cfgFile := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("[server]\nlistn = \":1\"\n"), 0o600))

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", cfgFile, "project", "list"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "listen"?`)
}
