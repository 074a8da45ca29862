// Package remote provides the HTTP plumbing shared by the WebDAV and Seafile
// backends: authenticated requests, bounded retry with backoff, status
// normalization, and the error taxonomy callers classify with KindOf.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, remote.ErrForbidden) to check.
var (
	ErrBadRequest         = errors.New("remote: bad request")
	ErrUnauthorized       = errors.New("remote: unauthorized")
	ErrForbidden          = errors.New("remote: forbidden")
	ErrNotFound           = errors.New("remote: not found")
	ErrMethodNotAllowed   = errors.New("remote: method not allowed")
	ErrConflict           = errors.New("remote: conflict")
	ErrPreconditionFailed = errors.New("remote: precondition failed")
	ErrLocked             = errors.New("remote: resource locked")
	ErrThrottled          = errors.New("remote: throttled")
	ErrServerError        = errors.New("remote: server error")
	ErrUnexpectedStatus   = errors.New("remote: unexpected status")
)

// StatusError reports a response whose status code is outside the accepted
// set for the request. It wraps a sentinel for errors.Is().
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("remote: %s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
	}

	return fmt.Sprintf("remote: %s %s: HTTP %d", e.Method, e.URL, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// TransportError reports a network-level failure (DNS, TLS, timeout,
// connection reset) that persisted through all retries.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("remote: %s %s: transport failure: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AuthError reports a failed token fetch.
type AuthError struct {
	StatusCode int // 0 when the request never got a response
	Message    string
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote: authentication failed: HTTP %d: %s", e.StatusCode, e.Message)
	}

	return fmt.Sprintf("remote: authentication failed: %s", e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// ParseError reports a response body that could not be decoded.
type ParseError struct {
	What string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("remote: parsing %s: %v", e.What, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Kind is the coarse class of a failure.
type Kind int

// Failure kinds, ordered loosely from "try again later" to "fix something".
const (
	KindNone Kind = iota
	KindCanceled
	KindTransport
	KindStatus
	KindAuth
	KindParse
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindCanceled:
		return "canceled"
	case KindTransport:
		return "transport"
	case KindStatus:
		return "unexpected_status"
	case KindAuth:
		return "auth"
	case KindParse:
		return "parse"
	default:
		return "other"
	}
}

// KindOf classifies err. Auth is checked before transport because a token
// fetch that failed on the network is still an authentication failure.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}

	var (
		authErr      *AuthError
		statusErr    *StatusError
		transportErr *TransportError
		parseErr     *ParseError
	)

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.As(err, &authErr):
		return KindAuth
	case errors.As(err, &statusErr):
		return KindStatus
	case errors.As(err, &transportErr):
		return KindTransport
	case errors.As(err, &parseErr):
		return KindParse
	default:
		return KindOther
	}
}

// StatusCodeOf returns the HTTP status carried by err, or 0.
func StatusCodeOf(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}

	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.StatusCode
	}

	return 0
}

// classifyStatus maps an HTTP status code to a sentinel error.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusMethodNotAllowed:
		return ErrMethodNotAllowed
	case http.StatusConflict:
		return ErrConflict
	case http.StatusPreconditionFailed:
		return ErrPreconditionFailed
	case http.StatusLocked:
		return ErrLocked
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return ErrUnexpectedStatus
	}
}

// isRetryable reports whether the given HTTP status code should be retried.
func isRetryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
