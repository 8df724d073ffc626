package rest

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/kumo/internal/client/gateway"
	"github.com/dmitrijs2005/kumo/internal/client/models"
)

// AccessToken returns the current access token or "".
func (c *Client) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.AccessToken
}

func (c *Client) OnSessionChange(l gateway.SessionListener) func() {
	return c.listeners.Add(l)
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	var s models.Session
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"password"}},
		body:   map[string]string{"email": email, "password": password},
		anon:   true,
	}, &s)
	if err != nil {
		return nil, gateway.NewAuthError("", err)
	}

	c.establish(ctx, &s)
	c.listeners.Emit(ctx, gateway.EventSignedIn, &s)
	return &s, nil
}

type signUpResponse struct {
	models.Session
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (c *Client) SignUp(ctx context.Context, email, password string, fullName *string) (*models.SessionUser, *models.Session, error) {
	body := map[string]any{"email": email, "password": password}
	if fullName != nil {
		body["data"] = map[string]any{"full_name": *fullName}
	}

	var resp signUpResponse
	err := c.do(ctx, request{method: http.MethodPost, path: "/auth/v1/signup", body: body, anon: true}, &resp)
	if err != nil {
		return nil, nil, gateway.NewAuthError("", err)
	}

	// Without email confirmation the backend answers with a session; with
	// it, only the user object comes back.
	if resp.AccessToken == "" {
		user := &models.SessionUser{ID: resp.ID, Email: resp.Email, UserMetadata: resp.UserMetadata}
		if user.ID == "" {
			user = &resp.User
		}
		return user, nil, nil
	}

	s := resp.Session
	c.establish(ctx, &s)
	c.listeners.Emit(ctx, gateway.EventSignedIn, &s)
	user := s.User
	return &user, &s, nil
}

// SignOut revokes the session remotely. The local session is dropped and
// EventSignedOut emitted even when the remote call fails.
func (c *Client) SignOut(ctx context.Context) error {
	var remoteErr error
	if c.AccessToken() != "" {
		remoteErr = c.do(ctx, request{method: http.MethodPost, path: "/auth/v1/logout"}, nil)
	}

	c.forget(ctx)
	c.listeners.Emit(ctx, gateway.EventSignedOut, nil)

	if remoteErr != nil {
		return gateway.NewAuthError("", remoteErr)
	}
	return nil
}

func (c *Client) CurrentSession(ctx context.Context) (*models.Session, error) {
	s, err := c.loadSession(ctx)
	if err != nil || s == nil {
		return nil, err
	}
	if !s.ExpiresWithin(c.now(), c.margin) {
		return s, nil
	}
	if s.RefreshToken == "" {
		c.log.Info(ctx, "stored session expired")
		c.forget(ctx)
		return nil, nil
	}

	refreshed, err := c.Refresh(ctx)
	if err != nil {
		if gateway.IsAuthError(err) && !isNetworkFailure(err) {
			c.log.Warn(ctx, "session refresh rejected; signing out", "error", err)
			c.forget(ctx)
			c.listeners.Emit(ctx, gateway.EventSignedOut, nil)
			return nil, nil
		}
		return nil, err
	}
	return refreshed, nil
}

func (c *Client) RecoverPassword(ctx context.Context, email string) error {
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/recover",
		body:   map[string]string{"email": email},
		anon:   true,
	}, nil)
	if err != nil {
		return gateway.NewAuthError("", err)
	}
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.do(ctx, request{method: http.MethodGet, path: "/auth/v1/health", anon: true}, nil); err != nil {
		return gateway.NewAuthError("", err)
	}
	return nil
}

// loadSession returns the in-memory session, restoring it from storage the
// first time.
func (c *Client) loadSession(ctx context.Context) (*models.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		c.loaded = true
		if c.storage != nil {
			s, err := c.storage.Load(ctx)
			if err != nil {
				// A session sealed with another secret is useless; start over.
				c.log.Warn(ctx, "could not restore session", "error", err)
			} else if s != nil {
				c.session = s
			}
		}
	}
	if c.session == nil {
		return nil, nil
	}
	cp := *c.session
	return &cp, nil
}

// establish fills in the expiry, keeps s as the current session and
// persists it.
func (c *Client) establish(ctx context.Context, s *models.Session) {
	if s.ExpiresAt == 0 {
		if s.ExpiresIn > 0 {
			s.ExpiresAt = c.now().Add(time.Duration(s.ExpiresIn) * time.Second).Unix()
		} else if exp, err := gateway.TokenExpiry(s.AccessToken); err == nil && !exp.IsZero() {
			s.ExpiresAt = exp.Unix()
		}
	}

	c.mu.Lock()
	cp := *s
	c.session = &cp
	c.loaded = true
	c.mu.Unlock()

	if c.storage != nil {
		if err := c.storage.Save(ctx, *s); err != nil {
			c.log.Warn(ctx, "could not persist session", "error", err)
		}
	}
}

func (c *Client) forget(ctx context.Context) {
	c.mu.Lock()
	c.session = nil
	c.loaded = true
	c.mu.Unlock()

	if c.storage != nil {
		if err := c.storage.Clear(ctx); err != nil {
			c.log.Warn(ctx, "could not clear stored session", "error", err)
		}
	}
}
