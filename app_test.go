package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/projectfolders/internal/config"
	"github.com/tonimelisma/projectfolders/internal/project"
	"github.com/tonimelisma/projectfolders/internal/provision"
	"github.com/tonimelisma/projectfolders/internal/remote"
	"github.com/tonimelisma/projectfolders/internal/seafile"
)

// cloud fakes a Seafile API and a WebDAV endpoint on one server.
type cloud struct {
	mu       sync.Mutex
	srv      *httptest.Server
	mkdirs   []string
	copies   []string
	moves    []string
	loginErr atomic.Bool
}

func newCloud(t *testing.T) *cloud {
	t.Helper()

	c := &cloud{}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api2/auth-token/", func(w http.ResponseWriter, _ *http.Request) {
		if c.loginErr.Load() {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		_, _ = w.Write([]byte(`{"token":"tok"}`))
	})

	mux.HandleFunc("POST /api2/repos/{repo}/dir/", func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		c.mkdirs = append(c.mkdirs, r.URL.Query().Get("p"))
		c.mu.Unlock()

		w.WriteHeader(http.StatusCreated)
	})

	mux.HandleFunc("/dav/", func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		defer c.mu.Unlock()

		switch r.Method {
		case "PROPFIND":
			w.WriteHeader(http.StatusMultiStatus)

			switch r.URL.Path {
			case "/dav/default":
				fmt.Fprint(w, `<d:multistatus xmlns:d="DAV:">
<d:response><d:href>/dav/default/</d:href></d:response>
<d:response><d:href>/dav/default/S000xx/</d:href></d:response>
<d:response><d:href>/dav/default/Auftrag_Vorlage.pdf</d:href></d:response>
</d:multistatus>`)
			default:
				fmt.Fprintf(w, `<d:multistatus xmlns:d="DAV:">
<d:response><d:href>%[1]s/</d:href></d:response>
<d:response><d:href>%[1]s/Auftrag_Vorlage.pdf</d:href></d:response>
</d:multistatus>`, r.URL.Path)
			}
		case "COPY":
			c.copies = append(c.copies, r.URL.Path+" -> "+r.Header.Get("Destination"))
			w.WriteHeader(http.StatusCreated)
		case "MOVE":
			c.moves = append(c.moves, r.URL.Path+" -> "+r.Header.Get("Destination"))
			w.WriteHeader(http.StatusCreated)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	c.srv = httptest.NewServer(mux)
	t.Cleanup(c.srv.Close)

	return c
}

func (c *cloud) writeConfig(t *testing.T, contentSync bool) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := fmt.Sprintf(`
[webdav]
base_url = "%[1]s/dav"
domain = "%[1]s"
username = "dav"
password = "davpw"

[seafile]
api_url = "%[1]s"
repo_id = "repo1"
username = "bot@example.com"
password = "pw"
token_file = "%[2]s"

[provisioning]
enable_content_sync = %[3]t

[network]
max_retries = 0

[store]
path = "%[4]s"
`, c.srv.URL, filepath.Join(dir, "token.json"), contentSync, filepath.Join(dir, "projects.db"))

	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestProvisionCommand_EndToEnd(t *testing.T) {
	saveGlobals(t)

	c := newCloud(t)
	cfgPath := c.writeConfig(t, true)

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", cfgPath, "--quiet", "provision", "42"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, []string{"/42"}, c.mkdirs)
	assert.Equal(t, []string{"/dav/default/Auftrag_Vorlage.pdf -> " + c.srv.URL + "/dav/42/Auftrag_Vorlage.pdf"}, c.copies)
	assert.Equal(t, []string{"/dav/42/Auftrag_Vorlage.pdf -> " + c.srv.URL + "/dav/42/Auftrag_42.pdf"}, c.moves)
}

func TestProvisionCommand_LoginFailureExitsNonZero(t *testing.T) {
	saveGlobals(t)

	c := newCloud(t)
	c.loginErr.Store(true)
	cfgPath := c.writeConfig(t, false)

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", cfgPath, "--quiet", "provision", "42"})

	err := cmd.Execute()
	require.ErrorIs(t, err, errProvisionFailed)
	assert.Empty(t, c.mkdirs)
}

func TestProjectCreate_KeepsProjectWhenFolderFails(t *testing.T) {
	saveGlobals(t)

	c := newCloud(t)
	c.loginErr.Store(true)
	cfgPath := c.writeConfig(t, false)

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", cfgPath, "--quiet", "project", "create", "Halle 3"})
	require.NoError(t, cmd.Execute())

	store, err := project.OpenStore(context.Background(), resolvedCfg.Store.Path, buildLogger())
	require.NoError(t, err)
	defer store.Close()

	list, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, project.FolderFailed, list[0].FolderStatus)

	// Once the backend recovers, reprovisioning fixes the folder.
	c.loginErr.Store(false)

	cmd = newRootCmd()
	cmd.SetArgs([]string{"--config", cfgPath, "--quiet", "project", "reprovision", "1"})
	require.NoError(t, cmd.Execute())

	p, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, project.FolderReady, p.FolderStatus)
	assert.Equal(t, []string{"/1"}, c.mkdirs)
}

func TestLazyFolders_RetriesLoginAndCachesClient(t *testing.T) {
	connects := 0
	calls := 0

	c := newCloud(t)
	l := &lazyFolders{connect: func(ctx context.Context) (*seafile.Client, error) {
		connects++
		if connects == 1 {
			return nil, &remote.AuthError{Message: "down"}
		}

		calls++

		return seafile.NewClient(ctx, seafile.Options{
			APIURL: c.srv.URL, RepoID: "r", Username: "u", Password: "p", MaxRetries: -1,
		})
	}}

	_, err := l.Mkdir(context.Background(), "1")
	require.Error(t, err)
	assert.Equal(t, remote.KindAuth, remote.KindOf(err))

	created, err := l.Mkdir(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, created)

	_, err = l.Mkdir(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, 2, connects)
	assert.Equal(t, 1, calls)
}

func TestBuildWorkflow_RequiresBackends(t *testing.T) {
	cfg := config.DefaultConfig()

	_, err := buildWorkflow(cfg, func() *config.Config { return cfg }, buildLogger())
	require.ErrorIs(t, err, config.ErrMissingSetting)
	assert.Contains(t, err.Error(), "seafile backend")

	cfg.Seafile = config.SeafileConfig{APIURL: "https://f.example", RepoID: "r", Username: "u", Password: "p"}

	wf, err := buildWorkflow(cfg, func() *config.Config { return cfg }, buildLogger())
	require.NoError(t, err, "webdav is optional while content sync is off")
	assert.NotNil(t, wf)

	cfg.Provisioning.EnableContentSync = true

	_, err = buildWorkflow(cfg, func() *config.Config { return cfg }, buildLogger())
	require.ErrorIs(t, err, config.ErrMissingSetting)
	assert.Contains(t, err.Error(), "webdav backend")
}

func TestMaxRetries(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Equal(t, 3, maxRetries(cfg))

	cfg.Network.MaxRetries = 0
	assert.Equal(t, -1, maxRetries(cfg))
}

func TestPrintReport(t *testing.T) {
	rep := &provision.Report{
		RunID:     "run",
		ProjectID: "42",
		Folder:    provision.StepSucceeded,
		Copy:      provision.StepFailed,
		Rename:    provision.StepSkipped,
		Warnings:  []string{provision.WarnCopyFailed},
		Err: &provision.OpError{Op: provision.OpCopyContents, Err: &remote.StatusError{
			StatusCode: http.StatusPreconditionFailed, Err: remote.ErrPreconditionFailed,
		}},
	}

	var text strings.Builder
	printReport(&text, rep)
	assert.Contains(t, text.String(), "copy_contents    failed")
	assert.Contains(t, text.String(), "Warning: "+provision.WarnCopyFailed)

	var js strings.Builder
	require.NoError(t, printReportJSON(&js, rep))
	assert.Contains(t, js.String(), `"copy": "failed"`)
	assert.Contains(t, js.String(), `"error_kind": "unexpected_status"`)
	assert.Contains(t, js.String(), `"http_status": 412`)
	assert.False(t, errors.Is(rep.Err, remote.ErrNotFound))
}
