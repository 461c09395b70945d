package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/quollsec/sessiond/internal/authority"
	"github.com/quollsec/sessiond/internal/store"
	"github.com/quollsec/sessiond/pkg/httpx"
	"github.com/quollsec/sessiond/pkg/slogx"
	"github.com/quollsec/sessiond/pkg/tokencodec"

	_ "github.com/quollsec/sessiond/api/sessiond" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	authority    *authority.Authority
	keys         *tokencodec.Keyring
	store        store.Store
	apiKeyHash   string
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
}

func NewRouter(
	auth *authority.Authority,
	keys *tokencodec.Keyring,
	st store.Store,
	apiKeyHash, buildVersion string,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		authority:    auth,
		keys:         keys,
		store:        st,
		apiKeyHash:   apiKeyHash,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSessions()
	r.registerWhoami()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Session Token Authority API
//	@version		0.1.0
//	@description	Session daemon minting short-lived access tokens and long-lived rotating refresh tokens for already-authenticated principals.
//	@description
//	@description				All tokens are signed using EdDSA (Ed25519). Access tokens are verified statelessly; refresh tokens rotate on every use and reuse of a rotated token revokes the whole session chain.
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
//
//	@securityDefinitions.apikey	AdminKey
//	@in							header
//	@name						X-API-Key
//	@description				Static API key for trusted callers (session issuance).
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSessions() {
	// POST /v1/session - trusted callers only (API key), strict limit by IP.
	// The daemon does not check credentials itself; the identity service that
	// holds the API key vouches for the principal.
	issueHandler := &IssueHandler{Authority: r.authority}
	r.Mux.Handle("POST /v1/session",
		httpx.Chain(issueHandler,
			httpx.APIKeyMiddleware(r.apiKeyHash),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /v1/session/refresh - strict rate limit by IP (rotation endpoint)
	refreshHandler := &RefreshHandler{Authority: r.authority}
	r.Mux.Handle("POST /v1/session/refresh",
		httpx.Chain(refreshHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /v1/session/revoke - moderate rate limit (logout)
	revokeHandler := &RevokeHandler{Authority: r.authority}
	r.Mux.Handle("POST /v1/session/revoke",
		httpx.Chain(revokeHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /v1/session/revoke-all - sign out everywhere for the bearer's principal
	revokeAllHandler := &RevokeAllHandler{Authority: r.authority}
	r.Mux.Handle("POST /v1/session/revoke-all",
		httpx.Chain(revokeAllHandler,
			httpx.AuthnMiddleware(r.authority),
			httpx.RateLimitByPrincipal(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerWhoami() {
	h := &WhoamiHandler{}

	secured := httpx.Chain(h,
		httpx.AuthnMiddleware(r.authority),
		httpx.RateLimitByPrincipal(httpx.LenientLimit),
	)

	r.Mux.Handle("GET /v1/whoami", secured)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
