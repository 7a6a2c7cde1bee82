package authsdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/authsession/pkg/cryptox"
	"github.com/aussiebroadwan/authsession/pkg/jwtx"
	"github.com/aussiebroadwan/authsession/pkg/session"
)

// AuthorizeRequest describes one call to the authorize endpoint.
type AuthorizeRequest struct {
	Audience string
	Scope    string
	Prompt   string
	State    string
	Nonce    string

	// ResponseMode is sent only when non-empty. Silent checks use "fragment".
	ResponseMode string
}

// BuildAuthorizeURL constructs the authorize URL for the implicit flow.
// Empty Audience and Scope fall back to the configured values, and the scope
// defaults to "openid".
//
// Example:
//
//	u := client.BuildAuthorizeURL(authsdk.AuthorizeRequest{
//		Audience: "urn:api",
//		Nonce:    nonce,
//	})
//	// https://login.example.com/authorize?audience=urn%3Aapi&client_id=...&nonce=...
func (w *WebAuth) BuildAuthorizeURL(req AuthorizeRequest) string {
	params := url.Values{}
	params.Set("response_type", w.cfg.ResponseType)
	params.Set("client_id", w.cfg.ClientID)

	if w.cfg.RedirectURI != "" {
		params.Set("redirect_uri", w.cfg.RedirectURI)
	}

	scope := firstNonEmpty(req.Scope, w.cfg.Scope, session.DefaultScope)
	params.Set("scope", scope)

	if aud := firstNonEmpty(req.Audience, w.cfg.Audience); aud != "" {
		params.Set("audience", aud)
	}
	if req.Nonce != "" {
		params.Set("nonce", req.Nonce)
	}
	if req.Prompt != "" {
		params.Set("prompt", req.Prompt)
	}
	if req.State != "" {
		params.Set("state", req.State)
	}
	if req.ResponseMode != "" {
		params.Set("response_mode", req.ResponseMode)
	}

	return w.endpointsSnapshot().authorize + "?" + params.Encode()
}

// Authorize sends the user to the hosted login through the configured
// Navigator. The nonce is remembered for the next ParseHash, and State is
// passed through unchecked.
func (w *WebAuth) Authorize(ctx context.Context, opts session.AuthorizeOptions) error {
	nonce, err := cryptox.NewNonce()
	if err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	authURL := w.BuildAuthorizeURL(AuthorizeRequest{
		Audience: opts.Audience,
		Scope:    opts.Scope,
		Prompt:   opts.Prompt,
		State:    opts.State,
		Nonce:    nonce,
	})

	w.setPending(pendingRequest{nonce: nonce})
	w.logger.DebugContext(ctx, "authorize redirect", "audience", firstNonEmpty(opts.Audience, w.cfg.Audience))

	if err := w.navigator.Navigate(ctx, authURL); err != nil {
		return fmt.Errorf("failed to navigate to authorize: %w", err)
	}
	return nil
}

// ParseHash reads the authentication result from the location fragment.
// It does not clear the fragment; the session manager does that once the
// result is accepted.
func (w *WebAuth) ParseHash(ctx context.Context) (*session.AuthResult, error) {
	pending := w.takePending()

	res, err := ParseFragment(w.location.Fragment())
	if err != nil {
		return nil, err
	}

	if err := w.verifyIDToken(res, pending.nonce); err != nil {
		return nil, err
	}
	return res, nil
}

// CheckSession asks the provider for tokens without user interaction. The
// request carries the cookie jar, so an existing provider session is reused.
// Redirects are not followed: the 302 Location fragment is the answer.
func (w *WebAuth) CheckSession(ctx context.Context, opts session.CheckSessionOptions) (*session.AuthResult, error) {
	nonce, err := cryptox.NewNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	authURL := w.BuildAuthorizeURL(AuthorizeRequest{
		Audience:     opts.Audience,
		Scope:        opts.Scope,
		Prompt:       "none",
		Nonce:        nonce,
		ResponseMode: "fragment",
	})

	resp, err := w.doRequest(ctx, w.noRedirectClient(), http.MethodGet, authURL, nil, nil)
	if err != nil {
		return nil, err
	}
	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusFound, http.StatusSeeOther, http.StatusTemporaryRedirect:
	default:
		if err := parseErrorResponse(resp, body); err != nil {
			return nil, err
		}
		return nil, invalidResponse("silent authorize returned status %d without a redirect", resp.StatusCode)
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return nil, invalidResponse("redirect response missing Location header")
	}
	_, fragment, _ := strings.Cut(location, "#")

	res, err := ParseFragment(fragment)
	if err != nil {
		return nil, err
	}
	if err := w.verifyIDToken(res, nonce); err != nil {
		return nil, err
	}

	w.logger.DebugContext(ctx, "silent authorize succeeded", "audience", opts.Audience)
	return res, nil
}

// BuildLogoutURL constructs the logout URL. An empty ClientID uses the
// configured one.
func (w *WebAuth) BuildLogoutURL(opts session.LogoutOptions) string {
	params := url.Values{}
	params.Set("client_id", firstNonEmpty(opts.ClientID, w.cfg.ClientID))
	if returnTo := firstNonEmpty(opts.ReturnTo, w.cfg.ReturnTo); returnTo != "" {
		params.Set("returnTo", returnTo)
	}
	return w.endpointsSnapshot().logout + "?" + params.Encode()
}

// Logout sends the user to the provider's logout endpoint.
func (w *WebAuth) Logout(ctx context.Context, opts session.LogoutOptions) error {
	if err := w.navigator.Navigate(ctx, w.BuildLogoutURL(opts)); err != nil {
		return fmt.Errorf("failed to navigate to logout: %w", err)
	}
	return nil
}

// verifyIDToken checks the ID token signature and claims when a verifier is
// configured. An empty nonce skips the nonce check.
func (w *WebAuth) verifyIDToken(res *session.AuthResult, nonce string) error {
	if w.verifier == nil {
		return nil
	}
	if res.IDToken == "" {
		return NewOAuth2Error(0, ErrorCodeInvalidToken, "id_token is missing")
	}

	claims, err := w.verifier.Verify(res.IDToken)
	if err != nil {
		return NewOAuth2Error(0, ErrorCodeInvalidToken, "id_token verification failed: "+err.Error())
	}
	if nonce != "" {
		if err := claims.ValidateNonce(nonce); err != nil {
			return NewOAuth2Error(0, ErrorCodeInvalidToken, "id_token nonce does not match")
		}
	}
	if claims.ATHash != "" && claims.ATHash != jwtx.AccessTokenHash(res.AccessToken) {
		return NewOAuth2Error(0, ErrorCodeInvalidToken, "id_token at_hash does not match access_token")
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
