package webdav

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/tonimelisma/projectfolders/internal/remote"
)

// Methods not defined in net/http.
const (
	MethodPropfind = "PROPFIND"
	MethodCopy     = "COPY"
	MethodMove     = "MOVE"
)

// Options configures a Client.
type Options struct {
	BaseURL           string // WebDAV root, e.g. https://cloud.example.com/remote.php/dav/files/user
	Domain            string // scheme://host prefixed to listed hrefs
	Username          string
	Password          string
	HTTPClient        *http.Client
	Logger            *slog.Logger
	UserAgent         string
	MaxRetries        int
	RequestsPerSecond float64
}

// Client talks to a WebDAV server with basic authentication.
type Client struct {
	remote  *remote.Client
	baseURL string
	domain  string
	logger  *slog.Logger
}

// NewClient creates a WebDAV client.
func NewClient(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		remote: remote.NewClient(remote.Options{
			HTTPClient:        opts.HTTPClient,
			Auth:              remote.BasicAuth{Username: opts.Username, Password: opts.Password},
			Logger:            logger,
			UserAgent:         opts.UserAgent,
			MaxRetries:        opts.MaxRetries,
			RequestsPerSecond: opts.RequestsPerSecond,
		}),
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		domain:  strings.TrimRight(opts.Domain, "/"),
		logger:  logger,
	}
}

// Remote exposes the underlying HTTP client, mainly so tests can replace its
// retry sleep.
func (c *Client) Remote() *remote.Client {
	return c.remote
}

// FolderURL returns the absolute URL of a folder path relative to the WebDAV
// root. Leading slashes on folderPath are ignored; each segment is escaped.
func (c *Client) FolderURL(folderPath string) string {
	return c.baseURL + "/" + encodePathSegments(strings.TrimLeft(folderPath, "/"))
}

// ItemURL returns the absolute URL of a listed href. Hrefs are normally
// server-absolute paths; an href that is already a full URL is returned as is.
func (c *Client) ItemURL(href string) string {
	if u, err := url.Parse(href); err == nil && u.Scheme != "" {
		return href
	}

	return c.domain + href
}

// ChildURL appends an escaped leaf name to a folder URL.
func ChildURL(folderURL, name string) string {
	return strings.TrimRight(folderURL, "/") + "/" + url.PathEscape(name)
}

// ParentURL returns the URL of the collection containing itemURL, keeping
// scheme, host and port.
func ParentURL(itemURL string) (string, error) {
	u, err := url.Parse(itemURL)
	if err != nil {
		return "", fmt.Errorf("webdav: parsing %q: %w", itemURL, err)
	}

	dir := path.Dir(strings.TrimRight(u.EscapedPath(), "/"))
	if dir == "." {
		dir = "/"
	}

	parent := url.URL{Scheme: u.Scheme, User: u.User, Host: u.Host}

	return strings.TrimRight(parent.String()+dir, "/"), nil
}

// encodePathSegments URL-encodes each segment of a slash-separated path.
func encodePathSegments(p string) string {
	segments := strings.Split(p, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}

	return strings.Join(segments, "/")
}

// Propfind lists the resource at rawURL to the given depth. The listing
// includes the resource itself, as servers return it.
func (c *Client) Propfind(ctx context.Context, rawURL string, depth Depth) ([]Item, error) {
	c.logger.Debug("listing folder",
		slog.String("url", rawURL),
		slog.String("depth", string(depth)),
	)

	resp, err := c.remote.Do(ctx, &remote.Request{
		Method: MethodPropfind,
		URL:    rawURL,
		Header: http.Header{
			"Depth":        []string{string(depth)},
			"Content-Type": []string{"application/xml"},
		},
		Body:   []byte(propfindBody),
		Accept: []int{http.StatusMultiStatus},
	})
	if err != nil {
		return nil, fmt.Errorf("webdav: listing %s: %w", rawURL, err)
	}

	items, err := decodeMultistatus(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("webdav: listing %s: %w", rawURL, err)
	}

	c.logger.Debug("listed folder",
		slog.String("url", rawURL),
		slog.Int("items", len(items)),
	)

	return items, nil
}

// decodeMultistatus parses a 207 body into items.
func decodeMultistatus(body []byte) ([]Item, error) {
	var ms multistatus

	dec := xml.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&ms); err != nil {
		return nil, &remote.ParseError{What: "multistatus", Err: err}
	}

	items := make([]Item, 0, len(ms.Responses))
	for i := range ms.Responses {
		items = append(items, ms.Responses[i].toItem())
	}

	return items, nil
}

// Copy copies src to dst without overwriting. 201 and 204 are success.
func (c *Client) Copy(ctx context.Context, src, dst string) error {
	c.logger.Info("requesting copy",
		slog.String("source", src),
		slog.String("destination", dst),
	)

	if err := c.transfer(ctx, MethodCopy, src, dst); err != nil {
		return fmt.Errorf("webdav: copy %s to %s: %w", src, dst, err)
	}

	return nil
}

// Move moves src to dst without overwriting. A 403 is logged as a likely
// permission or path problem.
func (c *Client) Move(ctx context.Context, src, dst string) error {
	c.logger.Info("requesting move",
		slog.String("source", src),
		slog.String("destination", dst),
	)

	err := c.transfer(ctx, MethodMove, src, dst)
	if err == nil {
		return nil
	}

	if errors.Is(err, remote.ErrForbidden) {
		c.logger.Error("access denied while moving item, check permissions and paths",
			slog.String("source", src),
			slog.String("destination", dst),
		)
	}

	return fmt.Errorf("webdav: move %s to %s: %w", src, dst, err)
}

func (c *Client) transfer(ctx context.Context, method, src, dst string) error {
	resp, err := c.remote.Do(ctx, &remote.Request{
		Method: method,
		URL:    src,
		Header: http.Header{
			"Destination": []string{dst},
			"Overwrite":   []string{"F"},
		},
		Accept: []int{http.StatusCreated, http.StatusNoContent},
	})
	if err != nil {
		return err
	}

	c.logger.Debug("transfer response",
		slog.String("method", method),
		slog.Int("status", resp.StatusCode),
	)

	return nil
}
