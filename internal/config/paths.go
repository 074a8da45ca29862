package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	appName        = "projectfolders"
	configFileName = "config.toml"
)

// dirKind selects one of the per-user base directories.
type dirKind struct {
	xdgEnv   string   // Linux override variable
	fallback []string // below $HOME on Linux and other Unix systems
}

var (
	configDirKind = dirKind{xdgEnv: "XDG_CONFIG_HOME", fallback: []string{".config"}}
	dataDirKind   = dirKind{xdgEnv: "XDG_DATA_HOME", fallback: []string{".local", "share"}}
)

// appDir resolves the application directory of the given kind for goos.
// macOS keeps config and data together under Application Support.
func appDir(kind dirKind, goos, home string) string {
	if goos == "darwin" {
		return filepath.Join(home, "Library", "Application Support", appName)
	}

	if goos == "linux" {
		if xdg := os.Getenv(kind.xdgEnv); xdg != "" {
			return filepath.Join(xdg, appName)
		}
	}

	return filepath.Join(append(append([]string{home}, kind.fallback...), appName)...)
}

func userAppDir(kind dirKind) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return appDir(kind, runtime.GOOS, home)
}

// DefaultConfigDir is where config.toml lives when neither
// PROJECTFOLDERS_CONFIG nor --config names a file.
func DefaultConfigDir() string {
	return userAppDir(configDirKind)
}

// DefaultDataDir holds the project database, the cached Seafile token and
// the server PID file.
func DefaultDataDir() string {
	return userAppDir(dataDirKind)
}

// DefaultConfigPath returns the default config file, or "" without a home
// directory.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, configFileName)
}
