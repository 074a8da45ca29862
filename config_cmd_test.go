package main

import (
	"bytes"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/projectfolders/internal/config"
)

func TestRedactSecrets(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.WebDAV.Password = "davpw"
	cfg.Seafile.Username = "bot@example.com"

	out := redactSecrets(cfg)
	assert.Equal(t, redacted, out.WebDAV.Password)
	assert.Empty(t, out.Seafile.Password, "unset secrets stay visible as empty")
	assert.Equal(t, "bot@example.com", out.Seafile.Username)
	assert.Equal(t, "davpw", cfg.WebDAV.Password, "original must not change")
}

func TestRenderConfig_ParsesBack(t *testing.T) {
	saveGlobals(t)

	resolvedCfgPath = "/etc/projectfolders/config.toml"
	cfg := config.DefaultConfig()
	cfg.Provisioning.EnableContentSync = true

	var buf bytes.Buffer
	require.NoError(t, renderConfig(&buf, redactSecrets(cfg)))
	assert.Contains(t, buf.String(), "# config file: /etc/projectfolders/config.toml")

	var back config.Config
	_, err := toml.Decode(buf.String(), &back)
	require.NoError(t, err)
	assert.True(t, back.Provisioning.EnableContentSync)
	assert.Equal(t, cfg.Server.Listen, back.Server.Listen)
}

func TestReloadCommand_NoServer(t *testing.T) {
	saveGlobals(t)

	resolvedCfg = config.DefaultConfig()
	resolvedCfg.Server.PIDFile = t.TempDir() + "/serve.pid"

	err := newReloadCmd().RunE(nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no running server")
}
