package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/quollsec/sessiond/pkg/slogx"
)

// AccessVerifier checks a bearer access token and returns the principal it
// belongs to.
type AccessVerifier interface {
	VerifyAccess(token string) (principalID string, err error)
}

// AuthnMiddleware rejects requests without a valid bearer access token and
// injects the principal ID into the request context for downstream handlers.
func AuthnMiddleware(v AccessVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			principalID, err := v.VerifyAccess(raw)
			if err != nil {
				writeBearerError(w, "token verification failed")
				log.Warn("access token verify failed", "err", err)
				return
			}

			ctx = context.WithValue(ctx, CtxKeyPrincipalID, principalID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
