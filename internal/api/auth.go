package api

import (
	"context"
	"fmt"
)

// loginRequest is the credential payload for /auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login exchanges a username and password for a bearer token and the
// viewer's identity. The login endpoint replies without the standard
// envelope, so it is decoded directly.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var result LoginResult
	err := c.do(ctx, "POST", "/auth/login", loginRequest{
		Username: username,
		Password: password,
	}, &result, false)
	if err != nil {
		return nil, fmt.Errorf("logging in: %w", err)
	}
	if result.AccessToken == "" {
		return nil, &Error{Kind: KindUnauthenticated, Message: "login response missing access token"}
	}
	return &result, nil
}
