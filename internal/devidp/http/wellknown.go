package http

import (
	"net/http"

	"github.com/aussiebroadwan/authsession/internal/devidp/service"
	"github.com/aussiebroadwan/authsession/pkg/authsdk"
	"github.com/aussiebroadwan/authsession/pkg/httpx"
	"github.com/aussiebroadwan/authsession/pkg/jwtx"
)

// JWKSHandler exposes the JSON Web Key Set for public key discovery.
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, keys.PublicJWKS())
	}
}

// DiscoveryHandler serves the OpenID provider configuration for issuer.
func DiscoveryHandler(issuer string) http.HandlerFunc {
	doc := authsdk.OpenIDConfiguration{
		Issuer:                 issuer,
		AuthorizationEndpoint:  issuer + authsdk.PathAuthorize,
		UserinfoEndpoint:       issuer + authsdk.PathUserInfo,
		JWKSURI:                issuer + authsdk.PathJWKS,
		EndSessionEndpoint:     issuer + authsdk.PathLogout,
		ResponseTypesSupported: service.SupportedResponseTypes,
		ScopesSupported:        []string{"openid", "profile", "email"},
		IDTokenSigningAlgs:     []string{"EdDSA"},
	}
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, doc)
	}
}
