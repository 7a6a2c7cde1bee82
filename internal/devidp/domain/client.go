package domain

import "slices"

type Client struct {
	ID           string
	Name         string
	RedirectURIs []string

	// Audiences the client may request tokens for. Empty allows any.
	Audiences []string

	// Scopes the client may be granted. Empty allows any.
	Scopes []string
}

// AllowsRedirect reports whether uri exactly matches a registered redirect URI.
func (c Client) AllowsRedirect(uri string) bool {
	return uri != "" && slices.Contains(c.RedirectURIs, uri)
}

// AllowsAudience reports whether the client may request tokens for aud.
func (c Client) AllowsAudience(aud string) bool {
	return aud == "" || len(c.Audiences) == 0 || slices.Contains(c.Audiences, aud)
}

// GrantScopes narrows requested to the client's allowed scopes. "openid" is
// always granted.
func (c Client) GrantScopes(requested []string) []string {
	out := make([]string, 0, len(requested))
	for _, s := range requested {
		if slices.Contains(out, s) {
			continue
		}
		if s == "openid" || len(c.Scopes) == 0 || slices.Contains(c.Scopes, s) {
			out = append(out, s)
		}
	}
	return out
}
