package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cuemby/timeclock/pkg/types"
)

// Credentials are the login form fields
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest creates a user account
type RegisterRequest struct {
	Username string     `json:"username" validate:"required"`
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required,min=6,max=20"`
	Role     types.Role `json:"role" validate:"required,oneof=admin user"`
}

// TokenResponse is returned by login and register
type TokenResponse struct {
	Token string     `json:"token" validate:"required"`
	Role  types.Role `json:"role,omitempty"`
}

// Login exchanges credentials for a bearer token
func (c *Client) Login(ctx context.Context, creds Credentials) (*TokenResponse, error) {
	if err := c.validate.Struct(creds); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", err)
	}

	req, err := c.jsonRequest("login", http.MethodPost, "/auth/login", creds)
	if err != nil {
		return nil, err
	}
	req.anonymous = true

	var resp TokenResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return nil, err
	}
	if err := c.check(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates a new account. Administrators use it to enroll employees.
func (c *Client) Register(ctx context.Context, r RegisterRequest) (*TokenResponse, error) {
	if err := c.validate.Struct(r); err != nil {
		return nil, fmt.Errorf("invalid registration: %w", err)
	}

	req, err := c.jsonRequest("register", http.MethodPost, "/auth/register", r)
	if err != nil {
		return nil, err
	}
	req.anonymous = true

	var resp TokenResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return nil, err
	}
	if err := c.check(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me fetches the authenticated user's profile
func (c *Client) Me(ctx context.Context) (*types.User, error) {
	req, err := c.jsonRequest("me", http.MethodGet, "/auth/me", nil)
	if err != nil {
		return nil, err
	}

	var user types.User
	if err := c.do(ctx, req, &user); err != nil {
		return nil, err
	}
	if err := c.check(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers lists every user with populated attendance (admin only)
func (c *Client) ListUsers(ctx context.Context) ([]*types.User, error) {
	req, err := c.jsonRequest("list_users", http.MethodGet, "/auth/users", nil)
	if err != nil {
		return nil, err
	}

	var users []*types.User
	if err := c.do(ctx, req, &users); err != nil {
		return nil, err
	}
	for _, u := range users {
		if err := c.check(u); err != nil {
			return nil, err
		}
	}
	return users, nil
}
