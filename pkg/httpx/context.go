package httpx

import "context"

type ctxKey string

const (
	CtxKeyPrincipalID ctxKey = "principal_id"
)

// PrincipalID returns the authenticated principal injected by
// AuthnMiddleware, or "" if the request is unauthenticated.
func PrincipalID(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyPrincipalID).(string); ok {
		return v
	}
	return ""
}
