package remote

import (
	"errors"
	"net/http"

	"golang.org/x/oauth2"
)

// TokenAuth authorizes requests with "Authorization: Token <token>", the
// scheme used by the Seafile REST API. The token comes from Source, which is
// usually an oauth2.ReuseTokenSource so it is fetched once and shared.
type TokenAuth struct {
	Source oauth2.TokenSource
}

// Authorize implements Authorizer. A failure to obtain a token is always
// reported as an *AuthError so Client.Do does not retry it.
func (t TokenAuth) Authorize(req *http.Request) error {
	tok, err := t.Source.Token()
	if err != nil {
		var authErr *AuthError
		if errors.As(err, &authErr) {
			return err
		}

		return &AuthError{Message: "obtaining token", Err: err}
	}

	req.Header.Set("Authorization", "Token "+tok.AccessToken)

	return nil
}
