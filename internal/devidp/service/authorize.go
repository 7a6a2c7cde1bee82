package service

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/aussiebroadwan/authsession/internal/devidp/domain"
	"github.com/aussiebroadwan/authsession/internal/devidp/store"
	"github.com/aussiebroadwan/authsession/pkg/slogx"
)

// AuthorizeService implements the implicit-grant authorize endpoint.
type AuthorizeService struct {
	Store  store.Store
	Login  *LoginService
	Tokens *TokenService
}

// AuthorizeRequest captures the inputs of one authorize call.
type AuthorizeRequest struct {
	ResponseType string
	ClientID     string
	RedirectURI  string
	Audience     string
	Scope        []string
	State        string
	Nonce        string
	Prompt       string

	// SessionToken is the session cookie value, if the browser sent one.
	SessionToken string

	// Username/password pair for interactive login.
	Username string
	Password string
}

// AuthorizeResponse is a successful authorization.
type AuthorizeResponse struct {
	RedirectURI string
	Fragment    url.Values

	// NewSession is set when this call logged the user in; the handler must
	// set it as the session cookie.
	NewSession *IssuedSession
}

// IssuedSession is a freshly minted login session.
type IssuedSession struct {
	Token   string
	Session domain.LoginSession
}

// Location returns the redirect target including the fragment.
func (r *AuthorizeResponse) Location() string {
	return FragmentRedirect(r.RedirectURI, r.Fragment)
}

// FragmentRedirect appends values to uri as its fragment.
func FragmentRedirect(uri string, values url.Values) string {
	base, _, _ := strings.Cut(uri, "#")
	return base + "#" + values.Encode()
}

// ParseResponseType splits an OIDC implicit response_type into its parts.
func ParseResponseType(rt string) (token, idToken bool, err error) {
	parts := strings.Fields(rt)
	if len(parts) == 0 || len(parts) > 2 {
		return false, false, ErrUnsupportedResponseType
	}
	for _, p := range parts {
		switch p {
		case "token":
			token = true
		case "id_token":
			idToken = true
		default:
			return false, false, ErrUnsupportedResponseType
		}
	}
	return token, idToken, nil
}

// Authorize validates req and, when the user is or becomes authenticated,
// mints the tokens for the redirect fragment.
//
// Errors:
//   - ErrInvalidRequest, ErrInvalidClient, ErrRedirectURIMismatch: the
//     redirect URI cannot be trusted and the caller must not redirect.
//   - *RedirectError wrapping ErrUnsupportedResponseType, ErrInvalidAudience,
//     ErrInvalidScope, ErrInvalidRequest or ErrLoginRequired: report through
//     the redirect URI.
//   - ErrInvalidCredentials: the submitted username/password were wrong.
func (s *AuthorizeService) Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResponse, error) {
	log := slogx.FromContext(ctx)

	if strings.TrimSpace(req.ClientID) == "" || strings.TrimSpace(req.RedirectURI) == "" {
		return nil, ErrInvalidRequest
	}

	client, err := s.Store.Clients().GetClientByID(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidClient
		}
		return nil, err
	}
	if !client.AllowsRedirect(req.RedirectURI) {
		log.Debug("redirect uri not registered", "client_id", client.ID, "redirect_uri", req.RedirectURI)
		return nil, ErrRedirectURIMismatch
	}

	redirect := func(err error) error {
		return &RedirectError{Err: err, RedirectURI: req.RedirectURI, State: req.State}
	}

	wantAccess, wantID, err := ParseResponseType(req.ResponseType)
	if err != nil {
		return nil, redirect(err)
	}
	if wantID && req.Nonce == "" {
		return nil, redirect(ErrInvalidRequest)
	}
	if !client.AllowsAudience(req.Audience) {
		return nil, redirect(ErrInvalidAudience)
	}

	requested := req.Scope
	if len(requested) == 0 {
		requested = []string{"openid"}
	}
	if wantID && !slices.Contains(requested, "openid") {
		return nil, redirect(ErrInvalidScope)
	}
	granted := client.GrantScopes(requested)
	if len(granted) == 0 {
		return nil, redirect(ErrInvalidScope)
	}

	user, sess, issued, err := s.authenticate(ctx, req)
	if err != nil {
		if errors.Is(err, ErrLoginRequired) {
			return nil, redirect(err)
		}
		return nil, err
	}

	tokens, err := s.Tokens.Issue(TokenRequest{
		User:          user,
		ClientID:      client.ID,
		SessionID:     sess.ID,
		Audience:      req.Audience,
		Scopes:        granted,
		Nonce:         req.Nonce,
		IncludeAccess: wantAccess,
		IncludeID:     wantID,
	})
	if err != nil {
		return nil, err
	}

	frag := url.Values{}
	if tokens.AccessToken != "" {
		frag.Set("access_token", tokens.AccessToken)
		frag.Set("token_type", "Bearer")
		frag.Set("expires_in", strconv.FormatInt(tokens.ExpiresIn, 10))
	}
	if tokens.IDToken != "" {
		frag.Set("id_token", tokens.IDToken)
	}
	frag.Set("scope", tokens.Scope)
	if req.State != "" {
		frag.Set("state", req.State)
	}

	log.Info("authorize succeeded",
		"client_id", client.ID,
		"user_id", user.ID,
		"audience", req.Audience,
		"silent", req.Prompt == "none",
	)

	return &AuthorizeResponse{
		RedirectURI: req.RedirectURI,
		Fragment:    frag,
		NewSession:  issued,
	}, nil
}

// authenticate resolves the user from credentials or the session cookie.
// Credentials win so a user can switch accounts; prompt=login ignores the
// cookie and prompt=none never accepts credentials.
func (s *AuthorizeService) authenticate(ctx context.Context, req AuthorizeRequest) (domain.User, domain.LoginSession, *IssuedSession, error) {
	if req.Username != "" && req.Prompt != "none" {
		user, err := s.Login.Authenticate(ctx, req.Username, req.Password)
		if err != nil {
			return domain.User{}, domain.LoginSession{}, nil, err
		}
		token, sess, err := s.Login.IssueSession(ctx, user.ID)
		if err != nil {
			return domain.User{}, domain.LoginSession{}, nil, err
		}
		return user, sess, &IssuedSession{Token: token, Session: sess}, nil
	}

	if req.Prompt == "login" {
		return domain.User{}, domain.LoginSession{}, nil, ErrLoginRequired
	}

	sess, user, err := s.Login.ResolveSession(ctx, req.SessionToken)
	if err != nil {
		return domain.User{}, domain.LoginSession{}, nil, err
	}
	return user, sess, nil, nil
}

// SupportedResponseTypes lists the response_type values Authorize accepts.
var SupportedResponseTypes = []string{"token id_token", "token", "id_token"}
