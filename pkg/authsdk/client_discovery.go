package authsdk

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"github.com/aussiebroadwan/authsession/pkg/session"
)

// Discover fetches the provider's OpenID configuration and switches the
// client to the endpoints it advertises. Endpoints the document omits keep
// their current value.
func (w *WebAuth) Discover(ctx context.Context) (*OpenIDConfiguration, error) {
	resp, err := w.doRequest(ctx, w.HTTPClient, http.MethodGet, w.BaseURL+PathDiscovery, nil, map[string]string{
		"Accept": "application/json",
	})
	if err != nil {
		return nil, err
	}

	var doc OpenIDConfiguration
	if err := decodeJSON(resp, &doc, http.StatusOK); err != nil {
		return nil, err
	}

	if doc.Issuer == "" || doc.AuthorizationEndpoint == "" || doc.JWKSURI == "" {
		return nil, invalidResponse("incomplete discovery document from %s", w.BaseURL)
	}
	if len(doc.ResponseTypesSupported) > 0 && !slices.Contains(doc.ResponseTypesSupported, w.cfg.ResponseType) {
		return nil, fmt.Errorf("%w: provider does not support response_type %q",
			ErrUnsupportedResponseType, w.cfg.ResponseType)
	}

	w.mu.Lock()
	w.endpoints.authorize = doc.AuthorizationEndpoint
	w.endpoints.jwks = doc.JWKSURI
	if doc.UserinfoEndpoint != "" {
		w.endpoints.userinfo = doc.UserinfoEndpoint
	}
	if doc.EndSessionEndpoint != "" {
		w.endpoints.logout = doc.EndSessionEndpoint
	}
	w.mu.Unlock()

	w.logger.DebugContext(ctx, "discovery loaded", "issuer", doc.Issuer)
	return &doc, nil
}

// Config returns the provider configuration the client was built with.
func (w *WebAuth) Config() session.ProviderConfig { return w.cfg }
