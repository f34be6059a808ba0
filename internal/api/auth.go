package api

import (
	"context"
	"net/http"

	"github.com/costbuddy/costbuddy/internal/models"
)

// AuthResponse is the body returned by login and signup.
type AuthResponse struct {
	User   models.User      `json:"user"`
	Tokens models.TokenPair `json:"tokens"`
}

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   loginPath,
		route:  loginPath,
		body:   map[string]string{"email": email, "password": password},
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Signup registers a new account.
func (c *Client) Signup(ctx context.Context, name, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/auth/signup",
		route:  "/auth/signup",
		body:   map[string]string{"name": name, "email": email, "password": password},
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshAccessToken exchanges a refresh token for a new access token.
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	var out struct {
		AccessToken string `json:"access_token"`
	}
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   refreshPath,
		route:  refreshPath,
		body:   map[string]string{"refresh_token": refreshToken},
		out:    &out,
	})
	if err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

// Logout invalidates the session server-side. Best effort: the caller
// clears local auth state regardless of the result.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, call{
		method: http.MethodPost,
		path:   "/auth/logout",
		route:  "/auth/logout",
		auth:   true,
	})
}
