package session

import (
	"fmt"
	"strings"
)

// ResponseTypeImplicit requests an opaque access token and an identity token
// directly in the redirect fragment.
const ResponseTypeImplicit = "token id_token"

// DefaultScope is requested by CheckSession when the caller passes none.
const DefaultScope = "openid"

// Properties are the identity-provider connection parameters a Manager is
// constructed with. They are stored verbatim and never change afterwards.
type Properties struct {
	// Domain is the provider host (e.g. "login.example.com"). A full URL
	// such as "http://127.0.0.1:9000" is accepted for local providers.
	Domain string

	// ClientID identifies this application to the provider.
	ClientID string

	// RedirectURI receives the authentication result in its fragment.
	RedirectURI string

	// Audience is requested on sign-in when set.
	Audience string

	// Scope is the space-delimited scope requested on sign-in.
	Scope string

	// ReturnTo is the default post-logout redirect target.
	ReturnTo string
}

// Validate reports whether the properties carry enough to reach a provider.
func (p Properties) Validate() error {
	if strings.TrimSpace(p.Domain) == "" {
		return fmt.Errorf("%w: domain is required", ErrInvalidProperties)
	}
	if strings.TrimSpace(p.ClientID) == "" {
		return fmt.Errorf("%w: client id is required", ErrInvalidProperties)
	}
	return nil
}

// ProviderConfig is handed to a ProviderFunc. It carries the caller's
// Properties plus the flow settings the Manager requires.
type ProviderConfig struct {
	Properties

	// ResponseType is always ResponseTypeImplicit when built by New.
	ResponseType string
}
