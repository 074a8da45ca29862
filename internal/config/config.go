// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for projectfolders. Values are layered
// defaults -> config file -> environment -> CLI flags.
package config

import "time"

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	WebDAV       WebDAVConfig       `toml:"webdav"`
	Seafile      SeafileConfig      `toml:"seafile"`
	Provisioning ProvisioningConfig `toml:"provisioning"`
	Network      NetworkConfig      `toml:"network"`
	Logging      LoggingConfig      `toml:"logging"`
	Store        StoreConfig        `toml:"store"`
	Server       ServerConfig       `toml:"server"`
}

// WebDAVConfig addresses the WebDAV endpoint used for listing, copying, and
// renaming. BaseURL is the collection root (including /remote.php/webdav or
// equivalent); Domain is the scheme://host[:port] prefix that listing hrefs
// are resolved against.
type WebDAVConfig struct {
	BaseURL  string `toml:"base_url"`
	Domain   string `toml:"domain"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// SeafileConfig addresses the Seafile library in which project folders are
// created.
type SeafileConfig struct {
	APIURL    string `toml:"api_url"`
	RepoID    string `toml:"repo_id"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	TokenFile string `toml:"token_file"`
}

// ProvisioningConfig controls what happens after the folder exists.
type ProvisioningConfig struct {
	EnableContentSync bool   `toml:"enable_content_sync"`
	TemplateFolder    string `toml:"template_folder"`
	Sentinel          string `toml:"sentinel"`
}

// NetworkConfig controls HTTP client behavior shared by both backends.
type NetworkConfig struct {
	ConnectTimeout    string  `toml:"connect_timeout"`
	DataTimeout       string  `toml:"data_timeout"`
	UserAgent         string  `toml:"user_agent"`
	MaxRetries        int     `toml:"max_retries"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// LoggingConfig controls log output: level, destination, and format.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFile   string `toml:"log_file"`
	LogFormat string `toml:"log_format"`
}

// StoreConfig locates the project database.
type StoreConfig struct {
	Path string `toml:"path"`
}

// ServerConfig controls the HTTP intake started by `serve`.
type ServerConfig struct {
	Listen          string  `toml:"listen"`
	RateLimit       float64 `toml:"rate_limit"`
	RateBurst       int     `toml:"rate_burst"`
	ShutdownTimeout string  `toml:"shutdown_timeout"`
	PIDFile         string  `toml:"pid_file"`
}

// CLIOverrides holds values from CLI flags. Pointer fields distinguish "not
// specified" (nil) from "explicitly set to the zero value".
type CLIOverrides struct {
	ConfigPath        string  // --config flag (empty = use default)
	EnableContentSync *bool   // --content-sync flag
	Listen            *string // --listen flag
}

// ConnectTimeoutDuration returns the parsed connect timeout. Validation has
// already rejected malformed values, so parse failures fall back to defaults.
func (n *NetworkConfig) ConnectTimeoutDuration() time.Duration {
	return durationOr(n.ConnectTimeout, defaultConnectTimeout)
}

// DataTimeoutDuration returns the parsed per-request timeout.
func (n *NetworkConfig) DataTimeoutDuration() time.Duration {
	return durationOr(n.DataTimeout, defaultDataTimeout)
}

// ShutdownTimeoutDuration returns the parsed graceful shutdown timeout.
func (s *ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return durationOr(s.ShutdownTimeout, defaultShutdownTimeout)
}

func durationOr(s, fallback string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}

	d, _ := time.ParseDuration(fallback)

	return d
}
