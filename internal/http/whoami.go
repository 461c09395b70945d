package http

import (
	"net/http"

	"github.com/quollsec/sessiond/pkg/httpx"
	"github.com/quollsec/sessiond/pkg/sessionsdk"
)

// WhoamiHandler serves GET /v1/whoami. The heavy lifting happens in the
// authentication middleware; this just echoes the principal back.
type WhoamiHandler struct{}

// ServeHTTP godoc
//
//	@Summary		Whoami
//	@Description	Returns the principal behind the presented bearer access token.
//	@Tags			Sessions
//	@Produce		json
//	@Success		200	{object}	sessionsdk.WhoamiResponse	"principal_id"
//	@Failure		401	"missing, invalid or expired bearer token"
//	@Security		BearerAuth
//	@Router			/v1/whoami [get].
func (h *WhoamiHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, sessionsdk.WhoamiResponse{
		PrincipalID: httpx.PrincipalID(r.Context()),
	})
}
