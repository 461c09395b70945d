package httpx_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quollsec/sessiond/pkg/cryptox"
	"github.com/quollsec/sessiond/pkg/httpx"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	principal string
	err       error
}

func (s stubVerifier) VerifyAccess(string) (string, error) {
	return s.principal, s.err
}

func TestChainOrder(t *testing.T) {
	var order []string

	mk := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}), mk("first"), mk("second"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"first", "second", "handler"}, order)
}

func TestAuthnMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(httpx.PrincipalID(r.Context())))
	})

	t.Run("injects principal on success", func(t *testing.T) {
		h := httpx.AuthnMiddleware(stubVerifier{principal: "user-42"})(inner)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer some-token")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "user-42", rec.Body.String())
	})

	t.Run("rejects missing header", func(t *testing.T) {
		h := httpx.AuthnMiddleware(stubVerifier{principal: "user-42"})(inner)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("rejects non-bearer scheme", func(t *testing.T) {
		h := httpx.AuthnMiddleware(stubVerifier{principal: "user-42"})(inner)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects verifier failure", func(t *testing.T) {
		h := httpx.AuthnMiddleware(stubVerifier{err: errors.New("boom")})(inner)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer some-token")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAPIKeyMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	hash, err := cryptox.HashAPIKey("super-secret")
	require.NoError(t, err)

	t.Run("accepts matching key", func(t *testing.T) {
		h := httpx.APIKeyMiddleware(hash)(inner)

		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-API-Key", "super-secret")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects wrong key", func(t *testing.T) {
		h := httpx.APIKeyMiddleware(hash)(inner)

		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-API-Key", "guess")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects missing key", func(t *testing.T) {
		h := httpx.APIKeyMiddleware(hash)(inner)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("forbids when no hash configured", func(t *testing.T) {
		h := httpx.APIKeyMiddleware("")(inner)

		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-API-Key", "super-secret")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}
