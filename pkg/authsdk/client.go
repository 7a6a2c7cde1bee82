package authsdk

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aussiebroadwan/authsession/pkg/jwtx"
	"github.com/aussiebroadwan/authsession/pkg/session"
)

// Default endpoint paths, relative to BaseURL. Discover replaces them with
// whatever the provider advertises.
const (
	PathAuthorize = "/authorize"
	PathUserInfo  = "/userinfo"
	PathLogout    = "/v2/logout"
	PathJWKS      = "/.well-known/jwks.json"
	PathDiscovery = "/.well-known/openid-configuration"
)

// WebAuth is an HTTP client for a hosted-login identity provider using the
// implicit flow. It implements session.Provider.
type WebAuth struct {
	BaseURL    string
	HTTPClient *http.Client

	cfg       session.ProviderConfig
	navigator Navigator
	location  session.Location
	verifier  jwtx.Verifier
	logger    *slog.Logger

	mu        sync.Mutex
	endpoints endpoints
	pending   pendingRequest
}

// pendingRequest remembers the nonce of the last interactive authorize
// request so ParseHash can match the ID token against it.
type pendingRequest struct {
	nonce string
}

type endpoints struct {
	authorize string
	userinfo  string
	logout    string
	jwks      string
}

// Option configures a WebAuth.
type Option func(*WebAuth)

// WithHTTPClient replaces the default client. A client without a cookie jar
// cannot hold the provider session, so CheckSession will always report
// login_required.
func WithHTTPClient(c *http.Client) Option {
	return func(w *WebAuth) {
		if c != nil {
			w.HTTPClient = c
		}
	}
}

// WithNavigator sets how Authorize and Logout send the user to the provider.
func WithNavigator(n Navigator) Option {
	return func(w *WebAuth) {
		if n != nil {
			w.navigator = n
		}
	}
}

// WithLocation sets where ParseHash reads the callback fragment from.
func WithLocation(l session.Location) Option {
	return func(w *WebAuth) {
		if l != nil {
			w.location = l
		}
	}
}

// WithIDTokenVerifier enables ID token verification on ParseHash and
// CheckSession.
func WithIDTokenVerifier(v jwtx.Verifier) Option {
	return func(w *WebAuth) { w.verifier = v }
}

func WithLogger(l *slog.Logger) Option {
	return func(w *WebAuth) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWebAuth creates a provider client for cfg. Unless overridden, it uses a
// cookie-jar backed HTTP client with a 10s timeout, an empty Callback as its
// location and a navigator that fails every call.
func NewWebAuth(cfg session.ProviderConfig, opts ...Option) (*WebAuth, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ResponseType == "" {
		cfg.ResponseType = session.ResponseTypeImplicit
	}

	client, err := NewSessionClient()
	if err != nil {
		return nil, err
	}

	w := &WebAuth{
		BaseURL:    baseURL(cfg.Domain),
		HTTPClient: client,
		cfg:        cfg,
		navigator:  noNavigator{},
		location:   NewCallback(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "authsdk", "base_url", w.BaseURL)
	w.endpoints = endpoints{
		authorize: w.BaseURL + PathAuthorize,
		userinfo:  w.BaseURL + PathUserInfo,
		logout:    w.BaseURL + PathLogout,
		jwks:      w.BaseURL + PathJWKS,
	}
	return w, nil
}

// Factory adapts NewWebAuth to session.ProviderFunc.
func Factory(opts ...Option) session.ProviderFunc {
	return func(cfg session.ProviderConfig) (session.Provider, error) {
		return NewWebAuth(cfg, opts...)
	}
}

// Location returns the location ParseHash reads from.
func (w *WebAuth) Location() session.Location { return w.location }

func (w *WebAuth) endpointsSnapshot() endpoints {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.endpoints
}

func (w *WebAuth) setPending(p pendingRequest) {
	w.mu.Lock()
	w.pending = p
	w.mu.Unlock()
}

// takePending returns the pending interactive request and forgets it.
func (w *WebAuth) takePending() pendingRequest {
	w.mu.Lock()
	defer w.mu.Unlock()
	p := w.pending
	w.pending = pendingRequest{}
	return p
}

func baseURL(domain string) string {
	d := strings.TrimSuffix(strings.TrimSpace(domain), "/")
	if strings.Contains(d, "://") {
		return d
	}
	return "https://" + d
}

var _ session.Provider = (*WebAuth)(nil)
