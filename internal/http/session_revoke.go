package http

import (
	"net/http"

	"github.com/quollsec/sessiond/internal/authority"
	"github.com/quollsec/sessiond/pkg/httpx"
	"github.com/quollsec/sessiond/pkg/sessionsdk"
	"github.com/quollsec/sessiond/pkg/slogx"
)

// RevokeHandler serves POST /v1/session/revoke (logout). It returns 200 OK
// even for invalid or unknown tokens so the endpoint cannot be used for
// token scanning, mirroring RFC 7009 semantics.
type RevokeHandler struct {
	Authority *authority.Authority
}

// ServeHTTP godoc
//
//	@Summary		Revoke Session
//	@Description	Invalidates the session behind a refresh token (logout).
//	@Description	Idempotent: returns 200 OK even for invalid, unknown or already-revoked tokens.
//	@Tags			Sessions
//	@Accept			json
//	@Produce		json
//	@Param			request	body	sessionsdk.RevokeRequest	true	"Refresh token to revoke"
//	@Success		200		"Session revoked (or was already invalid)"
//	@Failure		400		{object}	sessionsdk.ErrorResponse	"error, error_description"
//	@Failure		500		{object}	sessionsdk.ErrorResponse	"error, error_description"
//	@Header			200	{string}	Cache-Control	"no-store"
//	@Router			/v1/session/revoke [post].
func (h *RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req sessionsdk.RevokeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		sessionsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.Authority.Revoke(ctx, req.RefreshToken); err != nil {
		// Store failures only; bad tokens already succeed silently.
		log.Error("session revoke failed", "err", err)
		sessionsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("{}"))
}
