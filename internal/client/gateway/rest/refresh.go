package rest

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/kumo/internal/client/gateway"
	"github.com/dmitrijs2005/kumo/internal/client/models"
)

// Refresh exchanges the refresh token for a new session and emits
// EventTokenRefreshed. It is a no-op while the current session is still
// valid, unless the backend just rejected it.
func (c *Client) Refresh(ctx context.Context) (*models.Session, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	cur, err := c.loadSession(ctx)
	if err != nil {
		return nil, err
	}
	if cur == nil || cur.RefreshToken == "" {
		return nil, gateway.NewAuthError("no session to refresh", nil)
	}
	if c.stillValid(cur) {
		return cur, nil
	}

	var s models.Session
	err = c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"refresh_token"}},
		body:   map[string]string{"refresh_token": cur.RefreshToken},
		anon:   true,
	}, &s)
	if err != nil {
		return nil, gateway.NewAuthError("", err)
	}
	if s.User.ID == "" {
		s.User = cur.User
	}

	c.establish(ctx, &s)
	c.listeners.Emit(ctx, gateway.EventTokenRefreshed, &s)
	return &s, nil
}

// stillValid is false when s is about to expire or is the token a forced
// refresh was started for. A concurrent refresh makes it true again.
func (c *Client) stillValid(s *models.Session) bool {
	if s.ExpiresWithin(c.now(), c.margin) {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.forcedFrom != s.AccessToken
}

// forceRefresh refreshes even though the token does not look expired; used
// after the backend rejected it with 401.
func (c *Client) forceRefresh(ctx context.Context, rejected string) error {
	c.mu.Lock()
	c.forcedFrom = rejected
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.forcedFrom = ""
		c.mu.Unlock()
	}()

	_, err := c.Refresh(ctx)
	return err
}

// StartAutoRefresh refreshes the session in the background whenever it is
// about to expire, checking every interval until ctx is done.
func (c *Client) StartAutoRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if _, err := c.CurrentSession(ctx); err != nil {
					c.log.Debug(ctx, "background session check failed", "error", err)
				}
			}
		}
	}()
}

// isNetworkFailure reports whether err never reached the backend.
func isNetworkFailure(err error) bool {
	var ae *apiError
	return !errors.As(err, &ae)
}
