// Package seafile provides the token-authenticated Seafile REST calls used to
// provision project folders: the auth-token login and directory creation.
package seafile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/tonimelisma/projectfolders/internal/remote"
	"github.com/tonimelisma/projectfolders/internal/tokenfile"
)

const authTokenPath = "/api2/auth-token/"

type authTokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authTokenResponse struct {
	Token string `json:"token"`
}

// TokenProvider logs in with username and password and returns the API token.
// Wrap it with NewTokenSource so the login happens once per process.
type TokenProvider struct {
	apiURL   string
	username string
	password string
	remote   *remote.Client
	logger   *slog.Logger
}

// NewTokenProvider creates a TokenProvider. The remote client must carry no
// Authorizer; credentials travel in the request body.
func NewTokenProvider(apiURL, username, password string, rc *remote.Client, logger *slog.Logger) *TokenProvider {
	if logger == nil {
		logger = slog.Default()
	}

	return &TokenProvider{
		apiURL:   strings.TrimRight(apiURL, "/"),
		username: username,
		password: password,
		remote:   rc,
		logger:   logger,
	}
}

// boundProvider adapts a TokenProvider to oauth2.TokenSource, whose Token
// method takes no context, by fixing the context of every fetch.
type boundProvider struct {
	ctx context.Context
	p   *TokenProvider
}

func (b boundProvider) Token() (*oauth2.Token, error) {
	return b.p.FetchToken(b.ctx)
}

// FetchToken posts the credentials to the auth-token endpoint. Any status
// other than 200, a transport failure, or an unusable body is an *AuthError.
// The returned token has no expiry.
func (p *TokenProvider) FetchToken(ctx context.Context) (*oauth2.Token, error) {
	body, err := json.Marshal(authTokenRequest{Username: p.username, Password: p.password})
	if err != nil {
		return nil, fmt.Errorf("seafile: encoding credentials: %w", err)
	}

	resp, err := p.remote.Do(ctx, &remote.Request{
		Method: http.MethodPost,
		URL:    p.apiURL + authTokenPath,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   body,
		Accept: []int{http.StatusOK},
	})
	if err != nil {
		authErr := &AuthError{Message: "auth-token request failed", Err: err}

		var statusErr *remote.StatusError
		if errors.As(err, &statusErr) {
			authErr.StatusCode = statusErr.StatusCode
			authErr.Message = statusErr.Body
		}

		p.logger.Error("failed to fetch token",
			slog.Int("status", authErr.StatusCode),
			slog.String("error", err.Error()),
		)

		return nil, authErr
	}

	var decoded authTokenResponse
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return nil, &AuthError{
			StatusCode: resp.StatusCode,
			Message:    "decoding token response",
			Err:        &remote.ParseError{What: "auth-token response", Err: err},
		}
	}

	if decoded.Token == "" {
		return nil, &AuthError{StatusCode: resp.StatusCode, Message: "token missing from response"}
	}

	p.logger.Info("token fetched successfully", slog.String("username", p.username))

	return &oauth2.Token{AccessToken: decoded.Token, TokenType: "Token"}, nil
}

// AuthError is remote.AuthError, re-exported for callers that only import
// this package.
type AuthError = remote.AuthError

// NewTokenSource returns a concurrency-safe source that serves initial (if
// non-nil) or else fetches once from p, then reuses that token for the life
// of the process. Seafile tokens carry no expiry, so there is no renewal.
// A lazy fetch runs under ctx, so ctx must live as long as the source.
func NewTokenSource(ctx context.Context, initial *oauth2.Token, p *TokenProvider) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(initial, boundProvider{ctx: ctx, p: p})
}

// Login fetches a fresh token and stores it at tokenPath.
func (p *TokenProvider) Login(ctx context.Context, tokenPath string) (*oauth2.Token, error) {
	tok, err := p.FetchToken(ctx)
	if err != nil {
		return nil, err
	}

	err = tokenfile.Save(tokenPath, &tokenfile.File{
		Token:      tok,
		APIURL:     p.apiURL,
		Username:   p.username,
		ObtainedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("seafile: saving token: %w", err)
	}

	p.logger.Info("login successful", slog.String("path", tokenPath))

	return tok, nil
}

// CachedToken returns the token stored at tokenPath if it was issued for
// this provider's server and account, or nil.
func (p *TokenProvider) CachedToken(tokenPath string) (*oauth2.Token, error) {
	if tokenPath == "" {
		return nil, nil //nolint:nilnil // no cache configured
	}

	tf, err := tokenfile.Load(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("seafile: %w", err)
	}

	if !tf.Matches(p.apiURL, p.username) {
		if tf != nil {
			p.logger.Warn("ignoring cached token issued for a different account",
				slog.String("path", tokenPath),
			)
		}

		return nil, nil //nolint:nilnil // no usable cached token
	}

	p.logger.Debug("using cached token", slog.String("path", tokenPath))

	return tf.Token, nil
}
