package sessionsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is an HTTP client for the session daemon.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// APIKey authorizes the privileged endpoints (issue, revoke-all). Leave
	// empty for clients that only refresh, revoke and inspect their own
	// sessions.
	APIKey string
}

// NewClient creates a session daemon client with a sensible default timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// IssueSession starts a new session for an authenticated principal.
// Requires APIKey; the daemon trusts the caller to have performed the
// credential check.
func (c *Client) IssueSession(ctx context.Context, principalID string) (*SessionResponse, error) {
	var out SessionResponse
	err := c.postJSON(ctx, "/v1/session",
		IssueSessionRequest{PrincipalID: principalID},
		map[string]string{"X-API-Key": c.APIKey},
		&out,
	)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh redeems a refresh token for a new session pair. The old refresh
// token is invalidated on success.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*SessionResponse, error) {
	var out SessionResponse
	err := c.postJSON(ctx, "/v1/session/refresh",
		RefreshRequest{RefreshToken: refreshToken}, nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Revoke logs the session out. Succeeds even for unknown or already-revoked
// tokens.
func (c *Client) Revoke(ctx context.Context, refreshToken string) error {
	return c.postJSON(ctx, "/v1/session/revoke",
		RevokeRequest{RefreshToken: refreshToken}, nil, nil)
}

// RevokeAll signs the principal behind the access token out everywhere.
func (c *Client) RevokeAll(ctx context.Context, accessToken string) error {
	return c.postJSON(ctx, "/v1/session/revoke-all", nil,
		map[string]string{"Authorization": "Bearer " + accessToken}, nil)
}

// Whoami returns the principal behind a bearer access token.
func (c *Client) Whoami(ctx context.Context, accessToken string) (*WhoamiResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/whoami", nil,
		map[string]string{"Authorization": "Bearer " + accessToken})
	if err != nil {
		return nil, err
	}

	var out WhoamiResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetLiveness checks if the daemon is alive.
func (c *Client) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/livez", nil, nil)
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}

// GetReadiness checks if the daemon is ready to serve traffic.
func (c *Client) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/readyz", nil, nil)
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}

// postJSON sends a JSON body and optionally decodes a JSON response into out.
// A nil out expects a bodyless 200.
func (c *Client) postJSON(
	ctx context.Context,
	path string,
	body any,
	headers map[string]string,
	out any,
) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	if headers == nil {
		headers = map[string]string{}
	}
	headers["Content-Type"] = "application/json"

	resp, err := c.doRequest(ctx, http.MethodPost, path, reader, headers)
	if err != nil {
		return err
	}

	if out == nil {
		defer resp.Body.Close()
		bodyBytes, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			return parseErrorResponse(resp, bodyBytes)
		}
		return nil
	}

	return decodeJSON(resp, out, http.StatusOK)
}

// url builds a complete URL by appending the path to the base URL.
func (c *Client) url(path string) string {
	return c.BaseURL + path
}

// doRequest performs an HTTP request with the client's HTTP client.
func (c *Client) doRequest(
	ctx context.Context,
	method, path string,
	body io.Reader,
	headers map[string]string,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	return resp, nil
}

// decodeJSON decodes a JSON response into the target, returning a typed
// *APIError if the response status does not match expectedStatus.
func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		return parseErrorResponse(resp, bodyBytes)
	}

	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
