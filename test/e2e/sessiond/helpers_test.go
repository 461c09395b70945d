package sessiond_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/quollsec/sessiond/pkg/cryptox"
	"github.com/quollsec/sessiond/pkg/sessionsdk"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Common constants and helper functions for session daemon end-to-end tests.
 * This includes container setup, service operations, and assertions.
 */

const (
	testImageName = "sessiond-test:latest"

	testAPIKey = "e2e-issuer-api-key-12345"
	testIssuer = "sessiond-e2e"
)

// TestMain manages the test lifecycle, builds the Docker image once before
// all tests and cleans it up after all tests complete.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building session daemon Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up session daemon Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

// buildDockerImage builds the test Docker image if it doesn't exist.
func buildDockerImage() error {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/sessiond/Dockerfile",
		"../../../")
	cmd.Dir = "." // Ensure we're in the test directory
	cmd.Stdout = os.Stdout
	cmd.Stderr = nil

	return cmd.Run()
}

// cleanupDockerImage removes the test Docker image.
func cleanupDockerImage() {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // Ignore errors - image might not exist
}

// setupContainer starts the session daemon in a container and returns the
// base URL. Rate limits are relaxed so rapid test requests don't trip the
// production defaults; use setupContainerWithDefaultRateLimits to test the
// limiter itself.
func setupContainer(t *testing.T) (string, func()) {
	return startContainer(t, map[string]string{
		"RATELIMIT_STRICT_REQUESTS":   "1000",
		"RATELIMIT_STRICT_WINDOW_SEC": "60",
		"RATELIMIT_STRICT_BURST":      "1000",
		"RATELIMIT_MODERATE_REQUESTS": "1000",
		"RATELIMIT_MODERATE_BURST":    "1000",
	})
}

// setupContainerWithDefaultRateLimits starts the daemon with production rate
// limits for testing that rate limiting actually works.
func setupContainerWithDefaultRateLimits(t *testing.T) (string, func()) {
	return startContainer(t, nil)
}

func startContainer(t *testing.T, extraEnv map[string]string) (string, func()) {
	t.Helper()
	ctx := context.Background()

	apiKeyHash, err := cryptox.HashAPIKey(testAPIKey)
	require.NoError(t, err)

	env := map[string]string{
		"SESSION_ISSUER":        testIssuer,
		"SESSION_API_KEY_HASH":  apiKeyHash,
		"SESSION_DATABASE_FILE": "/tmp/sessiond.db",
		"ENV":                   "test",
		"LOG_LEVEL":             "info",
		"LOG_FORMAT":            "json",
	}
	for k, v := range extraEnv {
		env[k] = v
	}

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env:          env,
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	baseURL := fmt.Sprintf("http://%s:%s", host, mappedPort.Port())

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return baseURL, cleanup
}

// newTrustedClient returns an SDK client authorized for the privileged
// endpoints (session issuance).
func newTrustedClient(baseURL string) *sessionsdk.Client {
	client := sessionsdk.NewClient(baseURL)
	client.APIKey = testAPIKey
	return client
}

// assertSessionResponse verifies a session response has all required fields.
func assertSessionResponse(t *testing.T, resp *sessionsdk.SessionResponse) {
	t.Helper()
	require.NotNil(t, resp)
	require.NotEmpty(t, resp.AccessToken, "Access token should not be empty")
	require.NotEmpty(t, resp.RefreshToken, "Refresh token should not be empty")
	require.Equal(t, "Bearer", resp.TokenType, "Token type should be Bearer")
	require.Positive(t, resp.ExpiresIn, "ExpiresIn should be positive")
}

// assertAPIError checks that an error is an *sessionsdk.APIError with the
// given code.
func assertAPIError(t *testing.T, err error, code, context string) {
	t.Helper()
	require.Error(t, err, context)

	var apiErr *sessionsdk.APIError
	require.ErrorAs(t, err, &apiErr, context)
	require.Equal(t, code, apiErr.Code, context)
}

// assertHealthy verifies a health check response is OK.
func assertHealthy(t *testing.T, health *sessionsdk.HealthResponse, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, health)
	require.Equal(t, "ok", health.Status)
}
