package authsdk

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/authsession/pkg/jwtx"
)

// GetJWKS retrieves the provider's JSON Web Key Set.
func (w *WebAuth) GetJWKS(ctx context.Context) (jwtx.JWKS, error) {
	resp, err := w.doRequest(ctx, w.HTTPClient, http.MethodGet, w.endpointsSnapshot().jwks, nil, nil)
	if err != nil {
		return jwtx.JWKS{}, err
	}

	var jwks jwtx.JWKS
	if err := decodeJSON(resp, &jwks, http.StatusOK); err != nil {
		return jwtx.JWKS{}, err
	}

	return jwks, nil
}

// RefreshKeySet replaces the contents of keys with the provider's current
// key set. keys is left untouched on error.
func (w *WebAuth) RefreshKeySet(ctx context.Context, keys *jwtx.KeySet) error {
	jwks, err := w.GetJWKS(ctx)
	if err != nil {
		return err
	}
	if err := keys.ResetFromJWKS(jwks); err != nil {
		return fmt.Errorf("failed to load provider keys: %w", err)
	}
	w.logger.DebugContext(ctx, "provider keys refreshed", "keys", len(jwks.Keys))
	return nil
}
