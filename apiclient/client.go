// Package apiclient sends requests to the resource server with the stored
// session's access token attached as a bearer credential.
package apiclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

var (
	ErrNoBaseURL = errors.New("api base url not configured")
	// ErrReauthenticationRequired is returned for a 401 response. There is
	// no refresh flow, so the caller must discard the session and sign in.
	ErrReauthenticationRequired = errors.New("re-authentication required")
)

// TokenSource returns the access token to attach, if any.
type TokenSource interface {
	ResolveAccessToken() (token string, ok bool, err error)
}

// Client is a thin wrapper over http.Client for the resource server.
type Client struct {
	baseURL string
	tokens  TokenSource
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		tokens:  tokens,
		http:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL joins the base URL and path with exactly one slash.
func (c *Client) URL(path string) (string, error) {
	if c.baseURL == "" {
		return "", ErrNoBaseURL
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path, nil
}

// NewRequest builds a request for path, resolving the access token
// immediately before returning it.
func (c *Client) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	u, err := c.URL(path)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("[apiclient NewRequest] %w", err)
	}
	token, ok, err := c.tokens.ResolveAccessToken()
	if err != nil {
		return nil, fmt.Errorf("[apiclient NewRequest] resolving token: %w", err)
	}
	if ok {
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		log.Debug().Str("path", path).Msg("[apiclient NewRequest] no usable access token, sending unauthenticated")
	}
	return req, nil
}

// Do sends req. A 401 response is closed and reported as
// ErrReauthenticationRequired.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		return nil, ErrReauthenticationRequired
	}
	return resp, nil
}

// Get is NewRequest plus Do for a GET.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := c.NewRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}
