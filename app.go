package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/tonimelisma/projectfolders/internal/config"
	"github.com/tonimelisma/projectfolders/internal/provision"
	"github.com/tonimelisma/projectfolders/internal/remote"
	"github.com/tonimelisma/projectfolders/internal/seafile"
	"github.com/tonimelisma/projectfolders/internal/webdav"
)

// newHTTPClient builds the HTTP client shared by both backends. The connect
// timeout bounds dialing; the data timeout bounds each whole request.
func newHTTPClient(cfg *config.Config) *http.Client {
	dialer := &net.Dialer{Timeout: cfg.Network.ConnectTimeoutDuration()}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	transport.TLSHandshakeTimeout = cfg.Network.ConnectTimeoutDuration()

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Network.DataTimeoutDuration(),
	}
}

// maxRetries maps the config value onto remote.Options, where zero means
// "use the default" and a negative value disables retries.
func maxRetries(cfg *config.Config) int {
	if cfg.Network.MaxRetries == 0 {
		return -1
	}

	return cfg.Network.MaxRetries
}

func newWebDAVClient(cfg *config.Config, hc *http.Client, logger *slog.Logger) (*webdav.Client, error) {
	if err := cfg.RequireWebDAV(); err != nil {
		return nil, fmt.Errorf("webdav backend: %w", err)
	}

	return webdav.NewClient(webdav.Options{
		BaseURL:           cfg.WebDAV.BaseURL,
		Domain:            cfg.WebDAV.Domain,
		Username:          cfg.WebDAV.Username,
		Password:          cfg.WebDAV.Password,
		HTTPClient:        hc,
		Logger:            logger,
		UserAgent:         cfg.Network.UserAgent,
		MaxRetries:        maxRetries(cfg),
		RequestsPerSecond: cfg.Network.RequestsPerSecond,
	}), nil
}

func newSeafileClient(ctx context.Context, cfg *config.Config, hc *http.Client, logger *slog.Logger) (*seafile.Client, error) {
	if err := cfg.RequireSeafile(); err != nil {
		return nil, fmt.Errorf("seafile backend: %w", err)
	}

	return seafile.NewClient(ctx, seafile.Options{
		APIURL:            cfg.Seafile.APIURL,
		RepoID:            cfg.Seafile.RepoID,
		Username:          cfg.Seafile.Username,
		Password:          cfg.Seafile.Password,
		TokenPath:         cfg.Seafile.TokenFile,
		HTTPClient:        hc,
		Logger:            logger,
		UserAgent:         cfg.Network.UserAgent,
		MaxRetries:        maxRetries(cfg),
		RequestsPerSecond: cfg.Network.RequestsPerSecond,
	})
}

func newSeafileTokenProvider(cfg *config.Config, hc *http.Client, logger *slog.Logger) (*seafile.TokenProvider, error) {
	if err := cfg.RequireSeafile(); err != nil {
		return nil, fmt.Errorf("seafile backend: %w", err)
	}

	rc := remote.NewClient(remote.Options{
		HTTPClient: hc,
		Logger:     logger,
		UserAgent:  cfg.Network.UserAgent,
		MaxRetries: maxRetries(cfg),
	})

	return seafile.NewTokenProvider(cfg.Seafile.APIURL, cfg.Seafile.Username, cfg.Seafile.Password, rc, logger), nil
}

// settingsFunc adapts a config source to the workflow's per-run settings.
func settingsFunc(current func() *config.Config) func() provision.Settings {
	return func() provision.Settings {
		cfg := current()

		return provision.Settings{
			EnableContentSync: cfg.Provisioning.EnableContentSync,
			TemplateFolder:    cfg.Provisioning.TemplateFolder,
		}
	}
}

// lazyFolders logs in to Seafile on first use. A failed login fails that
// mkdir (and so only that project's folder step) and is retried next time.
type lazyFolders struct {
	connect func(ctx context.Context) (*seafile.Client, error)

	mu     sync.Mutex
	client *seafile.Client
}

func (l *lazyFolders) Mkdir(ctx context.Context, folderPath string) (bool, error) {
	l.mu.Lock()

	if l.client == nil {
		c, err := l.connect(ctx)
		if err != nil {
			l.mu.Unlock()
			return false, err
		}

		l.client = c
	}

	c := l.client
	l.mu.Unlock()

	return c.Mkdir(ctx, folderPath)
}

// buildWorkflow wires the backends into a provisioning workflow. Seafile is
// mandatory. WebDAV is only required when content sync is enabled; when it is
// not configured the workflow reports copy failures instead of refusing to
// start, so the switch can be flipped later by a config reload.
func buildWorkflow(
	cfg *config.Config, current func() *config.Config, logger *slog.Logger,
) (*provision.Workflow, error) {
	hc := newHTTPClient(cfg)

	if err := cfg.RequireSeafile(); err != nil {
		return nil, fmt.Errorf("seafile backend: %w", err)
	}

	sf := &lazyFolders{connect: func(ctx context.Context) (*seafile.Client, error) {
		return newSeafileClient(ctx, cfg, hc, logger)
	}}

	var (
		synchronizer *provision.Synchronizer
		renamer      *provision.Renamer
	)

	dav, err := newWebDAVClient(cfg, hc, logger)

	switch {
	case err == nil:
		synchronizer = provision.NewSynchronizer(dav, cfg.Provisioning.Sentinel, logger)
		renamer = provision.NewRenamer(dav, provision.DefaultPatterns, cfg.Provisioning.Sentinel, logger)
	case cfg.Provisioning.EnableContentSync:
		return nil, err
	default:
		logger.Debug("webdav backend not configured, content sync unavailable", slog.String("reason", err.Error()))
	}

	return provision.NewWorkflow(
		provision.NewProvisioner(sf, logger),
		synchronizer,
		renamer,
		settingsFunc(current),
		logger,
	), nil
}
