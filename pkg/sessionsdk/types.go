package sessionsdk

// ErrorResponse represents the daemon's error body.
// This is used internally for parsing HTTP error responses; client code
// should use the APIError type from errors.go instead.
type ErrorResponse struct {
	// Error is the machine-readable error code (e.g. "invalid_request", "token_revoked")
	Error string `json:"error"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description"`
}

// IssueSessionRequest starts a new session for an already-authenticated
// principal. This endpoint is for trusted callers (the identity service that
// performed the actual credential check) and requires an API key.
type IssueSessionRequest struct {
	// PrincipalID is the opaque identifier of the authenticated principal
	PrincipalID string `json:"principal_id"`
}

// RefreshRequest redeems a refresh token for a new session pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RevokeRequest invalidates the session behind a refresh token (logout).
type RevokeRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// SessionResponse is the access/refresh pair returned by the issue and
// refresh endpoints.
type SessionResponse struct {
	// AccessToken is the short-lived JWT used to authenticate API requests
	AccessToken string `json:"access_token"`

	// RefreshToken is the long-lived JWT used to obtain new session pairs
	RefreshToken string `json:"refresh_token"`

	// TokenType is always "Bearer"
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token
	ExpiresIn int `json:"expires_in"`
}

// WhoamiResponse identifies the principal behind a bearer access token.
type WhoamiResponse struct {
	PrincipalID string `json:"principal_id"`
}

// HealthResponse represents the response structure for health check
// endpoints. Used by both /livez and /readyz (readyz includes Checks).
type HealthResponse struct {
	// Status indicates the overall health status (e.g. "ok", "degraded")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g. "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	// Database indicates the session store connection status
	Database string `json:"database"`

	// Signer indicates the token signing capability status
	Signer string `json:"signer"`
}
