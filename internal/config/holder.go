package config

import (
	"log/slog"
	"sync"
)

// Holder is the live config of a long-running server. Readers take a
// snapshot per request; reloads swap the whole snapshot.
type Holder struct {
	mu   sync.RWMutex
	cfg  *Config
	path string
}

// NewHolder wraps the startup config and the file it was loaded from.
func NewHolder(cfg *Config, path string) *Holder {
	return &Holder{cfg: cfg, path: path}
}

// Config returns the current snapshot. Callers must not mutate it.
func (h *Holder) Config() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.cfg
}

// Path is the config file being watched, or "" when running on defaults.
func (h *Holder) Path() string {
	return h.path
}

// Swap installs cfg and returns the snapshot it replaced.
func (h *Holder) Swap(cfg *Config) *Config {
	h.mu.Lock()
	defer h.mu.Unlock()

	old := h.cfg
	h.cfg = cfg

	return old
}

// Apply swaps in cfg and logs what a reload changed. Only provisioning
// settings take effect without a restart; other changes are reported so
// the operator knows to restart.
func (h *Holder) Apply(cfg *Config, source string, logger *slog.Logger) {
	old := h.Swap(cfg)

	attrs := []any{
		slog.String("source", source),
		slog.Bool("enable_content_sync", cfg.Provisioning.EnableContentSync),
		slog.String("template_folder", cfg.Provisioning.TemplateFolder),
	}

	if restart := restartRequired(old, cfg); len(restart) > 0 {
		attrs = append(attrs, slog.Any("restart_required", restart))
	}

	logger.Info("config reloaded", attrs...)
}

// restartRequired lists the sections whose changes are only read at startup.
func restartRequired(old, cfg *Config) []string {
	var out []string

	if old.WebDAV != cfg.WebDAV {
		out = append(out, "webdav")
	}

	if old.Seafile != cfg.Seafile {
		out = append(out, "seafile")
	}

	if old.Network != cfg.Network {
		out = append(out, "network")
	}

	if old.Store != cfg.Store {
		out = append(out, "store")
	}

	if old.Server != cfg.Server {
		out = append(out, "server")
	}

	if old.Logging != cfg.Logging {
		out = append(out, "logging")
	}

	if old.Provisioning.Sentinel != cfg.Provisioning.Sentinel {
		out = append(out, "provisioning.sentinel")
	}

	return out
}
