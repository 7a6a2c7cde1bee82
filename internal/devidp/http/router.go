package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/authsession/internal/devidp/service"
	"github.com/aussiebroadwan/authsession/internal/devidp/store"
	"github.com/aussiebroadwan/authsession/pkg/authsdk"
	"github.com/aussiebroadwan/authsession/pkg/httpx"
	"github.com/aussiebroadwan/authsession/pkg/jwtx"
	"github.com/aussiebroadwan/authsession/pkg/slogx"
)

// Limits are the rate limit profiles applied per route group.
type Limits struct {
	Login     httpx.RateLimitConfig
	Authorize httpx.RateLimitConfig
	UserInfo  httpx.RateLimitConfig
	Public    httpx.RateLimitConfig
}

// DefaultLimits uses the httpx profiles.
func DefaultLimits() Limits {
	return Limits{
		Login:     httpx.StrictLimit,
		Authorize: httpx.LenientLimit,
		UserInfo:  httpx.ModerateLimit,
		Public:    httpx.PublicLimit,
	}
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	verifier     jwtx.Verifier
	issuer       string
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store            store.Store
	Limits           Limits
	LoginService     *service.LoginService
	AuthorizeService *service.AuthorizeService
}

// NewRouter creates a router. verifier must accept access tokens minted for
// the userinfo audience.
func NewRouter(
	keys *jwtx.KeySet,
	verifier jwtx.Verifier,
	issuer, buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		issuer:       strings.TrimSuffix(issuer, "/"),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		Limits:       DefaultLimits(),
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerOAuth2()
	r.registerUserInfo()
	r.registerWellKnown()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) secureCookies() bool {
	return strings.HasPrefix(r.issuer, "https://")
}

func (r *Router) registerOAuth2() {
	authorizeHandler := &AuthorizeHandler{
		AuthorizeService: r.AuthorizeService,
		SecureCookies:    r.secureCookies(),
	}

	// GET renders the login form or answers from the session cookie.
	r.Mux.Handle("GET "+authsdk.PathAuthorize,
		httpx.Chain(http.HandlerFunc(authorizeHandler.HandleGet),
			httpx.RateLimitByIP(r.Limits.Authorize),
		),
	)

	// POST carries credentials, limited per IP and username.
	r.Mux.Handle("POST "+authsdk.PathAuthorize,
		httpx.Chain(http.HandlerFunc(authorizeHandler.HandlePost),
			httpx.RateLimitByIPAndFormField(r.Limits.Login, "username"),
		),
	)

	logoutHandler := &LogoutHandler{
		LoginService:  r.LoginService,
		Store:         r.store,
		SecureCookies: r.secureCookies(),
	}
	r.Mux.Handle("GET "+authsdk.PathLogout,
		httpx.Chain(logoutHandler,
			httpx.RateLimitByIP(r.Limits.Authorize),
		),
	)
}

func (r *Router) registerUserInfo() {
	h := &UserInfoHandler{Store: r.store}

	secured := httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireAnyScope("openid"),
		httpx.RateLimitByUser(r.Limits.UserInfo),
	)

	r.Mux.Handle("GET "+authsdk.PathUserInfo, secured)
}

func (r *Router) registerWellKnown() {
	r.Mux.Handle("GET "+authsdk.PathJWKS,
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(r.Limits.Public),
		),
	)
	r.Mux.Handle("GET "+authsdk.PathDiscovery,
		httpx.Chain(DiscoveryHandler(r.issuer),
			httpx.RateLimitByIP(r.Limits.Public),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.Limits.Authorize),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.keys),
			httpx.RateLimitByIP(r.Limits.Authorize),
		),
	)
}
