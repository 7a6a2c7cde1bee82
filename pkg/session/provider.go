package session

import "context"

// Provider is the identity-provider capability a Manager drives. Calls block
// until the provider round trip completes or ctx is done; the Manager adds no
// retries or timeouts of its own.
type Provider interface {
	// Authorize sends the user to the provider's hosted login.
	Authorize(ctx context.Context, opts AuthorizeOptions) error

	// Logout sends the user to the provider's logout endpoint.
	Logout(ctx context.Context, opts LogoutOptions) error

	// ParseHash decodes the authentication result carried in the current
	// location fragment.
	ParseHash(ctx context.Context) (*AuthResult, error)

	// CheckSession attempts a non-interactive authentication. When the user
	// has no provider session the returned error must report the
	// "login_required" code (see IsLoginRequired).
	CheckSession(ctx context.Context, opts CheckSessionOptions) (*AuthResult, error)

	// UserInfo fetches the profile that belongs to accessToken.
	UserInfo(ctx context.Context, accessToken string) (Profile, error)
}

// ProviderFunc builds a Provider for a Manager. New calls it exactly once.
type ProviderFunc func(ProviderConfig) (Provider, error)

// StaticProvider returns a ProviderFunc that ignores the config and hands back p.
func StaticProvider(p Provider) ProviderFunc {
	return func(ProviderConfig) (Provider, error) { return p, nil }
}

// Location is the part of the browser location API the session flow needs.
type Location interface {
	// Fragment returns the current fragment without the leading '#'.
	Fragment() string

	// ClearFragment removes the fragment so tokens do not linger in
	// history or referrers.
	ClearFragment()
}

// AuthorizeOptions tune a sign-in request. Empty fields fall back to the
// provider's configured defaults.
type AuthorizeOptions struct {
	Audience string
	Scope    string
	Prompt   string
	State    string
}

// LogoutOptions are passed to Provider.Logout.
type LogoutOptions struct {
	ReturnTo string
	ClientID string
}

// CheckSessionOptions are passed to Provider.CheckSession.
type CheckSessionOptions struct {
	Audience string
	Scope    string
}

// AuthResult is a successful authentication response.
type AuthResult struct {
	AccessToken string
	IDToken     string
	TokenType   string
	Scope       string
	State       string

	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64
}
