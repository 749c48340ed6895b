// Package identity resolves the authenticated principal for a request. The
// checkout core never trusts a client-asserted user id; the bearer token is
// verified against the login service on every request, with the credential
// carried per-request rather than in shared client state.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrUnauthenticated indicates the token was missing, expired, or invalid.
var ErrUnauthenticated = errors.New("unauthenticated")

// Principal is the verified identity attached to a checkout request.
type Principal struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
}

// Verifier turns a bearer token into a verified principal.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *Client) Verify(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthenticated
	default:
		return nil, fmt.Errorf("verify token: status %d", resp.StatusCode)
	}

	var principal Principal
	if err := json.NewDecoder(resp.Body).Decode(&principal); err != nil {
		return nil, fmt.Errorf("decode principal: %w", err)
	}
	if principal.UserID == "" {
		return nil, ErrUnauthenticated
	}
	return &principal, nil
}
