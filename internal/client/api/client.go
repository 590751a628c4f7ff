// Package api is the HTTP client for the auth endpoints. It carries the
// session cookie in a jar so the browser-equivalent credential flows on
// every call without the caller ever seeing it.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/orgscope-labs/orgscope-core/internal/core/domain"
	"github.com/orgscope-labs/orgscope-core/internal/core/ports/driving"
)

// Client calls the auth endpoints of an orgscope server
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the given server base URL
func NewClient(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
	}, nil
}

// BeginLogin asks the server to mint a login attempt and returns the
// authorize URL the popup should open. A non-2xx answer surfaces the
// server's error message.
func (c *Client) BeginLogin(ctx context.Context, req driving.BeginLoginRequest) (*driving.BeginLoginResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode login request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("login request failed: %s", errorMessage(resp))
	}

	var out driving.BeginLoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode login response: %w", err)
	}
	return &out, nil
}

// Status fetches the authoritative authentication state
func (c *Client) Status(ctx context.Context) (*domain.AuthStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/auth/status", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status request failed: %s", errorMessage(resp))
	}

	var out domain.AuthStatus
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}
	return &out, nil
}

// Refresh asks the server to rotate the session's access token
func (c *Client) Refresh(ctx context.Context) error {
	return c.post(ctx, "/api/auth/refresh")
}

// Logout destroys the server-side session
func (c *Client) Logout(ctx context.Context) error {
	return c.post(ctx, "/api/auth/logout")
}

func (c *Client) post(ctx context.Context, path string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request to %s failed: %s", path, errorMessage(resp))
	}
	return nil
}

// errorMessage extracts the {error} body the server writes, falling
// back to the HTTP status line.
func errorMessage(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil {
		var body struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &body) == nil && body.Error != "" {
			return body.Error
		}
	}
	return resp.Status
}
