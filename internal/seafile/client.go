package seafile

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/tonimelisma/projectfolders/internal/remote"
)

// Options configures a Client.
type Options struct {
	APIURL            string
	RepoID            string
	Username          string
	Password          string
	TokenPath         string // optional token cache written by login
	HTTPClient        *http.Client
	Logger            *slog.Logger
	UserAgent         string
	MaxRetries        int
	RequestsPerSecond float64
}

// Client creates directories in one Seafile library.
type Client struct {
	remote *remote.Client
	apiURL string
	repoID string
	logger *slog.Logger
}

// NewClient obtains the API token (from the cache at opts.TokenPath when it
// matches, otherwise by logging in) and returns a ready client. A failed login
// is returned as an *AuthError; without a token no mkdir can succeed.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	base := remote.Options{
		HTTPClient:        opts.HTTPClient,
		Logger:            logger,
		UserAgent:         opts.UserAgent,
		MaxRetries:        opts.MaxRetries,
		RequestsPerSecond: opts.RequestsPerSecond,
	}

	provider := NewTokenProvider(opts.APIURL, opts.Username, opts.Password, remote.NewClient(base), logger)

	tok, err := provider.CachedToken(opts.TokenPath)
	if err != nil {
		logger.Warn("token cache unreadable, logging in", slog.String("error", err.Error()))
	}

	if tok == nil {
		if tok, err = provider.FetchToken(ctx); err != nil {
			return nil, err
		}
	}

	// The source is always seeded, so it never fetches again. Its context
	// keeps ctx's values but not its deadline, because the client outlives
	// this call.
	return NewClientWithTokenSource(opts, NewTokenSource(context.WithoutCancel(ctx), tok, provider)), nil
}

// NewClientWithTokenSource builds a Client around an existing token source
// without contacting the server.
func NewClientWithTokenSource(opts Options, src oauth2.TokenSource) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		remote: remote.NewClient(remote.Options{
			HTTPClient:        opts.HTTPClient,
			Auth:              remote.TokenAuth{Source: src},
			Logger:            logger,
			UserAgent:         opts.UserAgent,
			MaxRetries:        opts.MaxRetries,
			RequestsPerSecond: opts.RequestsPerSecond,
		}),
		apiURL: strings.TrimRight(opts.APIURL, "/"),
		repoID: opts.RepoID,
		logger: logger,
	}
}

// Remote exposes the underlying HTTP client, mainly so tests can replace its
// retry sleep.
func (c *Client) Remote() *remote.Client {
	return c.remote
}

// dirURL builds the directory endpoint for folderPath, which Seafile expects
// as an absolute library path in the "p" query parameter.
func (c *Client) dirURL(folderPath string) string {
	q := url.Values{"p": []string{"/" + strings.TrimLeft(folderPath, "/")}}

	return fmt.Sprintf("%s/api2/repos/%s/dir/?%s", c.apiURL, url.PathEscape(c.repoID), q.Encode())
}

// Mkdir creates folderPath in the library. created is true for 201 and
// false for 405, which Seafile answers when the directory already exists.
// Any other status is a *remote.StatusError.
func (c *Client) Mkdir(ctx context.Context, folderPath string) (created bool, err error) {
	resp, err := c.remote.Do(ctx, &remote.Request{
		Method: http.MethodPost,
		URL:    c.dirURL(folderPath),
		Header: http.Header{"Content-Type": []string{"application/x-www-form-urlencoded"}},
		Body:   []byte(url.Values{"operation": []string{"mkdir"}}.Encode()),
		Accept: []int{http.StatusCreated, http.StatusMethodNotAllowed},
	})
	if err != nil {
		return false, fmt.Errorf("seafile: mkdir %s: %w", folderPath, err)
	}

	if resp.StatusCode == http.StatusMethodNotAllowed {
		c.logger.Info("folder already exists", slog.String("folder", folderPath))

		return false, nil
	}

	c.logger.Info("folder created", slog.String("folder", folderPath))

	return true, nil
}
