package http

import (
	"errors"
	"net/http"

	"github.com/quollsec/sessiond/internal/authority"
	"github.com/quollsec/sessiond/pkg/httpx"
	"github.com/quollsec/sessiond/pkg/sessionsdk"
	"github.com/quollsec/sessiond/pkg/slogx"
)

// RefreshHandler serves POST /v1/session/refresh. On success the presented
// refresh token is dead and the returned pair replaces it.
type RefreshHandler struct {
	Authority *authority.Authority
}

// ServeHTTP godoc
//
//	@Summary		Refresh Session
//	@Description	Redeems a refresh token for a new access/refresh pair. The presented token is invalidated; presenting it again afterwards revokes every session of its principal.
//	@Tags			Sessions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		sessionsdk.RefreshRequest	true	"Refresh token to redeem"
//	@Success		200		{object}	sessionsdk.SessionResponse	"access_token, refresh_token, token_type, expires_in"
//	@Failure		400		{object}	sessionsdk.ErrorResponse	"error, error_description"
//	@Failure		401		{object}	sessionsdk.ErrorResponse	"error, error_description"
//	@Failure		500		{object}	sessionsdk.ErrorResponse	"error, error_description"
//	@Header			200	{string}	Cache-Control	"no-store"
//	@Router			/v1/session/refresh [post].
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req sessionsdk.RefreshRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		sessionsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.Authority.Refresh(ctx, req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, authority.ErrExpired):
			sessionsdk.ErrTokenExpired.WriteError(w)
		case errors.Is(err, authority.ErrRevoked):
			sessionsdk.ErrTokenRevoked.WriteError(w)
		case errors.Is(err, authority.ErrInvalidToken),
			errors.Is(err, authority.ErrNotFound):
			// Unknown sessions are reported as plain invalid tokens so the
			// endpoint cannot be used to probe which sessions exist.
			sessionsdk.ErrInvalidToken.WriteError(w)
		default:
			log.Error("session refresh failed", "err", err)
			sessionsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, sessionsdk.SessionResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int(pair.ExpiresIn.Seconds()),
	})
}
