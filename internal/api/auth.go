package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/julianstephens/habitrack/internal/models"
)

// ErrMissingToken is returned when the server accepted credentials but issued no token.
var ErrMissingToken = errors.New("no token received")

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, creds models.Credentials) (string, error) {
	return c.authenticate(ctx, "/auth/login", creds)
}

// Signup registers a new account and returns its bearer token.
func (c *Client) Signup(ctx context.Context, creds models.Credentials) (string, error) {
	return c.authenticate(ctx, "/auth/signup", creds)
}

func (c *Client) authenticate(ctx context.Context, path string, creds models.Credentials) (string, error) {
	var resp models.AuthResponse
	err := c.do(ctx, request{method: http.MethodPost, path: path, body: creds, anonymous: true}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Token == nil || *resp.Token == "" {
		return "", ErrMissingToken
	}
	return *resp.Token, nil
}
