package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/quollsec/sessiond/internal/authority"
	"github.com/quollsec/sessiond/pkg/httpx"
	"github.com/quollsec/sessiond/pkg/sessionsdk"
	"github.com/quollsec/sessiond/pkg/slogx"
)

// IssueHandler serves POST /v1/session. The caller is a trusted identity
// service that has already authenticated the principal; this endpoint only
// mints the session pair.
type IssueHandler struct {
	Authority *authority.Authority
}

// ServeHTTP godoc
//
//	@Summary		Issue Session
//	@Description	Starts a new session for an already-authenticated principal and returns an access/refresh token pair.
//	@Description	The daemon performs no credential check; the API key identifies a trusted caller that has.
//	@Tags			Sessions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		sessionsdk.IssueSessionRequest	true	"Principal to start a session for"
//	@Success		200		{object}	sessionsdk.SessionResponse		"access_token, refresh_token, token_type, expires_in"
//	@Failure		400		{object}	sessionsdk.ErrorResponse		"error, error_description"
//	@Failure		401		"missing or invalid API key"
//	@Failure		500		{object}	sessionsdk.ErrorResponse		"error, error_description"
//	@Security		AdminKey
//	@Header			200	{string}	Cache-Control	"no-store"
//	@Router			/v1/session [post].
func (h *IssueHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req sessionsdk.IssueSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	principalID := strings.TrimSpace(req.PrincipalID)
	if principalID == "" {
		sessionsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.Authority.IssueSession(ctx, principalID)
	if err != nil {
		log.Error("session issue failed", "err", err)
		sessionsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, sessionsdk.SessionResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int(pair.ExpiresIn.Seconds()),
	})
}

// decodeBody enforces a JSON content type and decodes the request body,
// writing the appropriate error response on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/json") {
		sessionsdk.ErrInvalidContentType.WriteError(w)
		return false
	}

	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		sessionsdk.ErrInvalidJSONBody.WriteError(w)
		return false
	}
	return true
}
