package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validation range constants.
const (
	minConnectTimeout  = 1 * time.Second
	minDataTimeout     = 5 * time.Second
	minShutdownTimeout = 1 * time.Second
	maxRetries         = 10
	maxRateBurst       = 1000
)

// ErrMissingSetting is wrapped by the Require* checks when a value needed by
// the current command is empty.
var ErrMissingSetting = errors.New("missing setting")

// Validate checks all configuration values and returns all errors found, so
// users can fix every issue in one pass. Credentials are not required here;
// commands check what they need with RequireWebDAV and RequireSeafile.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateWebDAV(&cfg.WebDAV)...)
	errs = append(errs, validateSeafile(&cfg.Seafile)...)
	errs = append(errs, validateProvisioning(&cfg.Provisioning)...)
	errs = append(errs, validateNetwork(&cfg.Network)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateServer(&cfg.Server)...)

	return errors.Join(errs...)
}

// RequireWebDAV reports every WebDAV setting that is still empty.
func (c *Config) RequireWebDAV() error {
	return requireAll(
		"webdav.base_url", c.WebDAV.BaseURL,
		"webdav.domain", c.WebDAV.Domain,
		"webdav.username", c.WebDAV.Username,
		"webdav.password", c.WebDAV.Password,
	)
}

// RequireSeafile reports every Seafile setting that is still empty.
func (c *Config) RequireSeafile() error {
	return requireAll(
		"seafile.api_url", c.Seafile.APIURL,
		"seafile.repo_id", c.Seafile.RepoID,
		"seafile.username", c.Seafile.Username,
		"seafile.password", c.Seafile.Password,
	)
}

func requireAll(pairs ...string) error {
	var errs []error

	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			errs = append(errs, fmt.Errorf("%s: %w", pairs[i], ErrMissingSetting))
		}
	}

	return errors.Join(errs...)
}

func validateWebDAV(w *WebDAVConfig) []error {
	var errs []error

	errs = append(errs, validateHTTPURL("webdav.base_url", w.BaseURL)...)
	errs = append(errs, validateHTTPURL("webdav.domain", w.Domain)...)

	if w.Domain != "" {
		if u, err := url.Parse(w.Domain); err == nil && strings.Trim(u.Path, "/") != "" {
			errs = append(errs, fmt.Errorf("webdav.domain: must not contain a path, got %q", w.Domain))
		}
	}

	return errs
}

func validateSeafile(s *SeafileConfig) []error {
	return validateHTTPURL("seafile.api_url", s.APIURL)
}

// validateHTTPURL accepts an empty value; presence is checked per command.
func validateHTTPURL(field, value string) []error {
	if value == "" {
		return nil
	}

	u, err := url.Parse(value)
	if err != nil {
		return []error{fmt.Errorf("%s: invalid URL %q: %w", field, value, err)}
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return []error{fmt.Errorf("%s: scheme must be http or https, got %q", field, value)}
	}

	if u.Host == "" {
		return []error{fmt.Errorf("%s: missing host in %q", field, value)}
	}

	return nil
}

func validateProvisioning(p *ProvisioningConfig) []error {
	var errs []error

	if strings.Trim(p.TemplateFolder, "/ ") == "" {
		errs = append(errs, errors.New("provisioning.template_folder: must name a folder"))
	}

	if p.Sentinel == "" || strings.Contains(p.Sentinel, "/") {
		errs = append(errs, fmt.Errorf("provisioning.sentinel: must be a single non-empty name, got %q", p.Sentinel))
	}

	return errs
}

func validateNetwork(n *NetworkConfig) []error {
	var errs []error

	errs = append(errs, validateDurationMin("network.connect_timeout", n.ConnectTimeout, minConnectTimeout)...)
	errs = append(errs, validateDurationMin("network.data_timeout", n.DataTimeout, minDataTimeout)...)

	if n.MaxRetries < 0 || n.MaxRetries > maxRetries {
		errs = append(errs, fmt.Errorf("network.max_retries: must be between 0 and %d, got %d",
			maxRetries, n.MaxRetries))
	}

	if n.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("network.requests_per_second: must be >= 0, got %g", n.RequestsPerSecond))
	}

	return errs
}

func validateServer(s *ServerConfig) []error {
	var errs []error

	if s.Listen == "" {
		errs = append(errs, errors.New("server.listen: must not be empty"))
	}

	if s.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit: must be >= 0, got %g", s.RateLimit))
	}

	if s.RateLimit > 0 && (s.RateBurst < 1 || s.RateBurst > maxRateBurst) {
		errs = append(errs, fmt.Errorf("server.rate_burst: must be between 1 and %d, got %d",
			maxRateBurst, s.RateBurst))
	}

	errs = append(errs, validateDurationMin("server.shutdown_timeout", s.ShutdownTimeout, minShutdownTimeout)...)

	return errs
}

func validateDuration(field, value string, minimum time.Duration) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q: %w", field, value, err)
	}

	if d < minimum {
		return fmt.Errorf("%s: must be >= %s, got %s", field, minimum, d)
	}

	return nil
}

func validateDurationMin(field, value string, minimum time.Duration) []error {
	if err := validateDuration(field, value, minimum); err != nil {
		return []error{err}
	}

	return nil
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	errs = append(errs, validateLogLevel(l.LogLevel)...)
	errs = append(errs, validateLogFormat(l.LogFormat)...)

	return errs
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func validateLogLevel(level string) []error {
	if !validLogLevels[level] {
		return []error{fmt.Errorf("logging.log_level: must be one of debug, info, warn, error; got %q", level)}
	}

	return nil
}

var validLogFormats = map[string]bool{
	"auto": true,
	"text": true,
	"json": true,
}

func validateLogFormat(format string) []error {
	if !validLogFormats[format] {
		return []error{fmt.Errorf("logging.log_format: must be one of auto, text, json; got %q", format)}
	}

	return nil
}
