package http

import (
	"net/http"
	"time"

	"github.com/quollsec/sessiond/internal/store"
	"github.com/quollsec/sessiond/pkg/httpx"
	"github.com/quollsec/sessiond/pkg/sessionsdk"
	"github.com/quollsec/sessiond/pkg/tokencodec"
)

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe endpoint returning service health status and checks for critical dependencies
//	@Description	Includes uptime, version, and status of the session store and token signer
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	sessionsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	sessionsdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	keys *tokencodec.Keyring,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &sessionsdk.HealthChecks{
			Database: "ok",
			Signer:   "ok",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		// Check session store connectivity
		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		// Check that a signing key is loaded
		if keys.ActiveKID() == "" {
			checks.Signer = "error: no active signing key"
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		response := sessionsdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		}
		httpx.WriteJSON(w, statusCode, response)
	}
}
