package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err)

	return path
}

func TestLoad_ValidFullConfig(t *testing.T) {
	path := writeTestConfig(t, `
[webdav]
base_url = "https://cloud.example.com/remote.php/webdav"
domain = "https://cloud.example.com"
username = "kimai"
password = "secret"

[seafile]
api_url = "https://files.example.com"
repo_id = "0b3c"
username = "kimai@example.com"
password = "secret2"
token_file = "/var/lib/projectfolders/token.json"

[provisioning]
enable_content_sync = true
template_folder = "/vorlagen"
sentinel = "_archiv"

[network]
connect_timeout = "5s"
data_timeout = "30s"
user_agent = "projectfolders-test"
max_retries = 2
requests_per_second = 4.5

[logging]
log_level = "debug"
log_file = "/tmp/projectfolders.log"
log_format = "json"

[store]
path = "/var/lib/projectfolders/projects.db"

[server]
listen = ":9000"
rate_limit = 1
rate_burst = 3
shutdown_timeout = "20s"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://cloud.example.com/remote.php/webdav", cfg.WebDAV.BaseURL)
	assert.Equal(t, "0b3c", cfg.Seafile.RepoID)
	assert.True(t, cfg.Provisioning.EnableContentSync)
	assert.Equal(t, "_archiv", cfg.Provisioning.Sentinel)
	assert.Equal(t, 5*time.Second, cfg.Network.ConnectTimeoutDuration())
	assert.Equal(t, 30*time.Second, cfg.Network.DataTimeoutDuration())
	assert.Equal(t, 2, cfg.Network.MaxRetries)
	assert.InDelta(t, 4.5, cfg.Network.RequestsPerSecond, 0.001)
	assert.Equal(t, "json", cfg.Logging.LogFormat)
	assert.Equal(t, ":9000", cfg.Server.Listen)
	assert.Equal(t, 20*time.Second, cfg.Server.ShutdownTimeoutDuration())
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	path := writeTestConfig(t, `
[provisioning]
enable_content_sync = true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Provisioning.EnableContentSync)
	assert.Equal(t, defaultTemplateFolder, cfg.Provisioning.TemplateFolder)
	assert.Equal(t, defaultSentinel, cfg.Provisioning.Sentinel)
	assert.Equal(t, defaultRepoID, cfg.Seafile.RepoID)
	assert.Equal(t, defaultMaxRetries, cfg.Network.MaxRetries)
}

func TestLoad_UnknownKeySuggestion(t *testing.T) {
	path := writeTestConfig(t, `
[webdav]
base_ulr = "https://cloud.example.com/remote.php/webdav"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown key "base_ulr" in [webdav]`)
	assert.Contains(t, err.Error(), `did you mean "base_url"?`)
}

func TestLoad_UnknownSectionSuggestion(t *testing.T) {
	path := writeTestConfig(t, `
[seafle]
repo_id = "x"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown config section "seafle", did you mean "seafile"?`)
}

func TestLoad_AccumulatesValidationErrors(t *testing.T) {
	path := writeTestConfig(t, `
[webdav]
base_url = "ftp://cloud.example.com"
domain = "https://cloud.example.com/sub"

[network]
connect_timeout = "soon"
max_retries = 99

[logging]
log_level = "trace"
`)

	_, err := Load(path)
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "webdav.base_url")
	assert.Contains(t, msg, "webdav.domain")
	assert.Contains(t, msg, "network.connect_timeout")
	assert.Contains(t, msg, "network.max_retries")
	assert.Contains(t, msg, "logging.log_level")
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := writeTestConfig(t, "[webdav\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Provisioning, cfg.Provisioning)
}

func TestResolve_Precedence(t *testing.T) {
	path := writeTestConfig(t, `
[webdav]
username = "from-file"

[provisioning]
enable_content_sync = false
`)

	env := EnvOverrides{
		ConfigPath:        path,
		EnableContentSync: "true",
		WebDAVUsername:    "from-env",
		SeafileAPIURL:     "https://files.example.com",
	}

	cfg, err := Resolve(env, CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.WebDAV.Username)
	assert.True(t, cfg.Provisioning.EnableContentSync)
	assert.Equal(t, "https://files.example.com", cfg.Seafile.APIURL)

	off := false
	listen := ":7000"

	cfg, err = Resolve(env, CLIOverrides{EnableContentSync: &off, Listen: &listen})
	require.NoError(t, err)
	assert.False(t, cfg.Provisioning.EnableContentSync)
	assert.Equal(t, ":7000", cfg.Server.Listen)
}

func TestResolve_CLIConfigPathWins(t *testing.T) {
	envPath := writeTestConfig(t, "[logging]\nlog_level = \"warn\"\n")
	cliPath := writeTestConfig(t, "[logging]\nlog_level = \"error\"\n")

	cfg, err := Resolve(EnvOverrides{ConfigPath: envPath}, CLIOverrides{ConfigPath: cliPath})
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Logging.LogLevel)
}

func TestResolve_BadEnvBool(t *testing.T) {
	_, err := Resolve(EnvOverrides{
		ConfigPath:        filepath.Join(t.TempDir(), "none.toml"),
		EnableContentSync: "sometimes",
	}, CLIOverrides{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvEnableContentSync)
}

func TestReadEnvOverrides(t *testing.T) {
	t.Setenv(EnvWebDAVBaseURL, "https://cloud.example.com/remote.php/webdav")
	t.Setenv(EnvSeafilePassword, "pw")
	t.Setenv(EnvSeafileRepoID, "")

	env := ReadEnvOverrides()
	assert.Equal(t, "https://cloud.example.com/remote.php/webdav", env.WebDAVBaseURL)
	assert.Equal(t, "pw", env.SeafilePassword)

	cfg := DefaultConfig()
	require.NoError(t, env.Apply(cfg))
	assert.Equal(t, defaultRepoID, cfg.Seafile.RepoID, "empty env var must not clear the default")
}

func TestRequireBackends(t *testing.T) {
	cfg := DefaultConfig()

	err := cfg.RequireWebDAV()
	require.ErrorIs(t, err, ErrMissingSetting)
	assert.Contains(t, err.Error(), "webdav.base_url")
	assert.Contains(t, err.Error(), "webdav.password")

	err = cfg.RequireSeafile()
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "seafile.repo_id")

	cfg.Seafile = SeafileConfig{APIURL: "https://f", RepoID: "r", Username: "u", Password: "p"}
	require.NoError(t, cfg.RequireSeafile())
	assert.False(t, errors.Is(cfg.RequireSeafile(), ErrMissingSetting))
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein("listen", "listen"))
	assert.Equal(t, 1, levenshtein("seafle", "seafile"))
	assert.Equal(t, 3, levenshtein("", "abc"))
	assert.Equal(t, "", closestMatch("completely_unrelated", sortedKeys(knownKeys)))
}
