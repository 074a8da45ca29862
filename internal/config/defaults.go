package config

import "path/filepath"

// Default values for configuration options. These are layer 0 of the
// override chain.
const (
	defaultTemplateFolder   = "/default"
	defaultSentinel         = "S000xx"
	defaultRepoID           = "245cd1b3-01cc-40a8-94b8-9cb36daed4f7"
	defaultConnectTimeout   = "10s"
	defaultDataTimeout      = "60s"
	defaultMaxRetries       = 3
	defaultLogLevel         = "info"
	defaultLogFormat        = "auto"
	defaultListen           = "127.0.0.1:8080"
	defaultRateLimit        = 5.0
	defaultRateBurst        = 10
	defaultShutdownTimeout  = "10s"
	defaultTokenFileName    = "seafile-token.json"
	defaultDatabaseFileName = "projects.db"
	defaultPIDFileName      = "serve.pid"
)

// DefaultConfig returns a Config populated with all default values. It is
// the starting point for TOML decoding so unset fields retain defaults.
func DefaultConfig() *Config {
	return &Config{
		Seafile: SeafileConfig{
			RepoID:    defaultRepoID,
			TokenFile: defaultDataPath(defaultTokenFileName),
		},
		Provisioning: ProvisioningConfig{
			TemplateFolder: defaultTemplateFolder,
			Sentinel:       defaultSentinel,
		},
		Network: NetworkConfig{
			ConnectTimeout: defaultConnectTimeout,
			DataTimeout:    defaultDataTimeout,
			MaxRetries:     defaultMaxRetries,
		},
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
		Store: StoreConfig{
			Path: defaultDataPath(defaultDatabaseFileName),
		},
		Server: ServerConfig{
			Listen:          defaultListen,
			RateLimit:       defaultRateLimit,
			RateBurst:       defaultRateBurst,
			ShutdownTimeout: defaultShutdownTimeout,
			PIDFile:         defaultDataPath(defaultPIDFileName),
		},
	}
}

func defaultDataPath(name string) string {
	dir := DefaultDataDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, name)
}
