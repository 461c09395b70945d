package http

import (
	"net/http"

	"github.com/quollsec/sessiond/internal/authority"
	"github.com/quollsec/sessiond/pkg/httpx"
	"github.com/quollsec/sessiond/pkg/sessionsdk"
	"github.com/quollsec/sessiond/pkg/slogx"
)

// RevokeAllHandler serves POST /v1/session/revoke-all ("sign out
// everywhere"). The target principal is taken from the bearer access token,
// so a caller can only revoke their own sessions.
type RevokeAllHandler struct {
	Authority *authority.Authority
}

// ServeHTTP godoc
//
//	@Summary		Revoke All Sessions
//	@Description	Invalidates every session of the authenticated principal across all devices. Idempotent.
//	@Tags			Sessions
//	@Produce		json
//	@Success		200	"All sessions revoked"
//	@Failure		401	"missing or invalid bearer token"
//	@Failure		500	{object}	sessionsdk.ErrorResponse	"error, error_description"
//	@Security		BearerAuth
//	@Header			200	{string}	Cache-Control	"no-store"
//	@Router			/v1/session/revoke-all [post].
func (h *RevokeAllHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	principalID := httpx.PrincipalID(ctx)
	if principalID == "" {
		// AuthnMiddleware guarantees a principal; reaching here means the
		// route was wired without it.
		log.Error("revoke-all reached without authenticated principal")
		sessionsdk.ErrServerError.WriteError(w)
		return
	}

	if err := h.Authority.RevokeAll(ctx, principalID); err != nil {
		log.Error("revoke all sessions failed", "err", err)
		sessionsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("{}"))
}
