package config

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variable names for overrides. The backend credentials keep the
// names the deployment already uses.
const (
	EnvConfig            = "PROJECTFOLDERS_CONFIG"
	EnvEnableContentSync = "PROJECTFOLDERS_ENABLE_CONTENT_SYNC"
	EnvWebDAVBaseURL     = "NEXTCLOUD_BASE_URL"
	EnvWebDAVDomain      = "NEXTCLOUD_DOMAIN"
	EnvWebDAVUsername    = "NEXTCLOUD_USERNAME"
	EnvWebDAVPassword    = "NEXTCLOUD_PASSWORD"
	EnvSeafileAPIURL     = "SEAFILEAPIURL"
	EnvSeafileUsername   = "SEAFILE_USERNAME"
	EnvSeafilePassword   = "SEAFILE_PASSWORD"
	EnvSeafileRepoID     = "SEAFILE_REPO_ID"
)

// EnvOverrides holds values derived from environment variables. Empty
// strings mean "not set".
type EnvOverrides struct {
	ConfigPath        string
	EnableContentSync string
	WebDAVBaseURL     string
	WebDAVDomain      string
	WebDAVUsername    string
	WebDAVPassword    string
	SeafileAPIURL     string
	SeafileUsername   string
	SeafilePassword   string
	SeafileRepoID     string
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. It does not modify a Config.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:        os.Getenv(EnvConfig),
		EnableContentSync: os.Getenv(EnvEnableContentSync),
		WebDAVBaseURL:     os.Getenv(EnvWebDAVBaseURL),
		WebDAVDomain:      os.Getenv(EnvWebDAVDomain),
		WebDAVUsername:    os.Getenv(EnvWebDAVUsername),
		WebDAVPassword:    os.Getenv(EnvWebDAVPassword),
		SeafileAPIURL:     os.Getenv(EnvSeafileAPIURL),
		SeafileUsername:   os.Getenv(EnvSeafileUsername),
		SeafilePassword:   os.Getenv(EnvSeafilePassword),
		SeafileRepoID:     os.Getenv(EnvSeafileRepoID),
	}
}

// Apply copies every set override into cfg.
func (e EnvOverrides) Apply(cfg *Config) error {
	setString(&cfg.WebDAV.BaseURL, e.WebDAVBaseURL)
	setString(&cfg.WebDAV.Domain, e.WebDAVDomain)
	setString(&cfg.WebDAV.Username, e.WebDAVUsername)
	setString(&cfg.WebDAV.Password, e.WebDAVPassword)
	setString(&cfg.Seafile.APIURL, e.SeafileAPIURL)
	setString(&cfg.Seafile.Username, e.SeafileUsername)
	setString(&cfg.Seafile.Password, e.SeafilePassword)
	setString(&cfg.Seafile.RepoID, e.SeafileRepoID)

	if e.EnableContentSync != "" {
		v, err := strconv.ParseBool(e.EnableContentSync)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvEnableContentSync, err)
		}

		cfg.Provisioning.EnableContentSync = v
	}

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
