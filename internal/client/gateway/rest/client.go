// Package rest implements gateway.Gateway against a hosted backend exposing
// a GoTrue-style auth API under /auth/v1 and a PostgREST-style table API
// under /rest/v1.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/kumo/internal/client/gateway"
	"github.com/dmitrijs2005/kumo/internal/client/models"
	"github.com/dmitrijs2005/kumo/internal/logging"
)

// Config configures a Client.
type Config struct {
	BaseURL string
	AnonKey string

	// HTTPClient defaults to a client with a 15s timeout.
	HTTPClient *http.Client

	// Storage persists the session across runs; nil keeps it in memory only.
	Storage gateway.SessionStorage

	// RefreshMargin is how long before expiry a session is refreshed.
	RefreshMargin time.Duration

	Logger logging.Logger
}

// Client talks to the hosted backend over HTTP. Safe for concurrent use.
type Client struct {
	base    *url.URL
	anonKey string
	http    *http.Client
	storage gateway.SessionStorage
	margin  time.Duration
	log     logging.Logger
	now     func() time.Time

	mu      sync.Mutex
	session *models.Session
	loaded  bool
	// forcedFrom is the rejected access token during a forced refresh.
	forcedFrom string

	// refreshMu serializes refreshes so concurrent callers reuse one result.
	refreshMu sync.Mutex

	listeners gateway.Listeners
}

var _ gateway.Gateway = (*Client)(nil)

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("backend url is required")
	}
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", cfg.BaseURL)
	}
	if cfg.AnonKey == "" {
		return nil, errors.New("anon key is required")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	margin := cfg.RefreshMargin
	if margin <= 0 {
		margin = time.Minute
	}
	return &Client{
		base:    u,
		anonKey: cfg.AnonKey,
		http:    hc,
		storage: cfg.Storage,
		margin:  margin,
		log:     log.With("component", "gateway"),
		now:     time.Now,
	}, nil
}

// request describes one HTTP call.
type request struct {
	method string
	path   string
	query  url.Values
	body   any
	header http.Header
	// anon forces the anon key as bearer even when a session exists.
	anon bool
}

// apiError is a non-2xx response.
type apiError struct {
	status  int
	message string
}

func (e *apiError) Error() string { return e.message }

func (c *Client) do(ctx context.Context, r request, out any) error {
	u := *c.base
	u.Path = c.base.Path + r.path
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		return err
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	bearer := c.anonKey
	if !r.anon {
		if tok := c.AccessToken(); tok != "" {
			bearer = tok
		}
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &apiError{status: resp.StatusCode, message: errorMessage(resp.StatusCode, raw)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage extracts the backend's message from an error body.
func errorMessage(status int, raw []byte) string {
	var body map[string]any
	if json.Unmarshal(raw, &body) == nil {
		for _, k := range []string{"msg", "message", "error_description", "error"} {
			if s, ok := body[k].(string); ok && s != "" {
				return s
			}
		}
	}
	return fmt.Sprintf("request failed with status %d", status)
}

func isUnauthorized(err error) bool {
	var ae *apiError
	return errors.As(err, &ae) && ae.status == http.StatusUnauthorized
}
