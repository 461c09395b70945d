package httpx

import (
	"net/http"

	"github.com/quollsec/sessiond/pkg/cryptox"
	"github.com/quollsec/sessiond/pkg/slogx"
)

// APIKeyMiddleware guards administrative endpoints with a static API key
// presented in the X-API-Key header and checked against an argon2id hash.
// An empty hash disables the endpoint entirely rather than leaving it open.
func APIKeyMiddleware(encodedHash string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			if encodedHash == "" {
				log.Warn("admin endpoint hit but no API key configured", "path", r.URL.Path)
				w.WriteHeader(http.StatusForbidden)
				return
			}

			key := r.Header.Get("X-API-Key")
			if key == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			if err := cryptox.VerifyAPIKey(key, encodedHash); err != nil {
				log.Warn("admin API key rejected", "path", r.URL.Path)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
