package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/authsession/internal/devidp/service"
	"github.com/aussiebroadwan/authsession/pkg/authsdk"
	"github.com/aussiebroadwan/authsession/pkg/httpx"
	"github.com/aussiebroadwan/authsession/pkg/slogx"
)

// SessionCookieName is the provider's login session cookie.
const SessionCookieName = "devidp_session"

// AuthorizeHandler serves the implicit-flow authorize endpoint and its
// hosted login form.
type AuthorizeHandler struct {
	AuthorizeService *service.AuthorizeService
	SecureCookies    bool
}

// HandleGet answers from the session cookie. Without a session it renders
// the login form, or redirects with login_required for prompt=none.
func (h *AuthorizeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if h.AuthorizeService == nil {
		authsdk.ErrServerError.WriteError(w)
		return
	}

	params := r.URL.Query()
	req := buildAuthorizeRequest(params)
	req.SessionToken = sessionToken(r)

	h.process(w, r, params, req)
}

// HandlePost accepts the login form. Parameters may come from the form body
// or the query string, with the body taking precedence.
func (h *AuthorizeHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	if h.AuthorizeService == nil {
		authsdk.ErrServerError.WriteError(w)
		return
	}

	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		authsdk.NewOAuth2Error(http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest,
			"content type must be application/x-www-form-urlencoded").WriteError(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		authsdk.NewOAuth2Error(http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest,
			"malformed form body").WriteError(w)
		return
	}

	// r.Form holds body values first, then the query.
	params := r.Form
	req := buildAuthorizeRequest(params)
	req.SessionToken = sessionToken(r)
	req.Username = strings.TrimSpace(params.Get("username"))
	req.Password = params.Get("password")

	if req.Username == "" {
		authsdk.NewOAuth2Error(http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest,
			"username is required").WriteError(w)
		return
	}

	h.process(w, r, params, req)
}

func buildAuthorizeRequest(params url.Values) service.AuthorizeRequest {
	get := func(key string) string { return strings.TrimSpace(params.Get(key)) }
	return service.AuthorizeRequest{
		ResponseType: get("response_type"),
		ClientID:     get("client_id"),
		RedirectURI:  get("redirect_uri"),
		Audience:     get("audience"),
		Scope:        httpx.ParseSpaceDelimitedFields(get("scope")),
		State:        get("state"),
		Nonce:        get("nonce"),
		Prompt:       get("prompt"),
	}
}

func (h *AuthorizeHandler) process(w http.ResponseWriter, r *http.Request, params url.Values, req service.AuthorizeRequest) {
	resp, err := h.AuthorizeService.Authorize(r.Context(), req)
	if err != nil {
		h.handleError(w, r, params, req, err)
		return
	}

	if resp.NewSession != nil {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookieName,
			Value:    resp.NewSession.Token,
			Path:     "/",
			Expires:  resp.NewSession.Session.ExpiresAt,
			HttpOnly: true,
			Secure:   h.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}

	httpx.NoCache(w)
	http.Redirect(w, r, resp.Location(), http.StatusFound)
}

func (h *AuthorizeHandler) handleError(w http.ResponseWriter, r *http.Request, params url.Values, req service.AuthorizeRequest, err error) {
	log := slogx.FromContext(r.Context())

	// An untrusted redirect URI is never redirected to; the error is shown
	// to the user instead.
	switch {
	case errors.Is(err, service.ErrRedirectURIMismatch):
		authsdk.NewOAuth2Error(http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest,
			"redirect_uri is not registered for this client").WriteError(w)
		return
	case errors.Is(err, service.ErrInvalidClient):
		authsdk.NewOAuth2Error(http.StatusBadRequest, authsdk.ErrorCodeUnauthorizedClient,
			"unknown client_id").WriteError(w)
		return
	case errors.Is(err, service.ErrInvalidCredentials):
		if acceptsHTML(r) {
			renderLogin(w, r, http.StatusUnauthorized, params, "", req.Username, "Wrong username or password.")
			return
		}
		authsdk.NewOAuth2Error(http.StatusUnauthorized, authsdk.ErrorCodeAccessDenied,
			"wrong username or password").WriteError(w)
		return
	}

	var re *service.RedirectError
	if !errors.As(err, &re) {
		if errors.Is(err, service.ErrInvalidRequest) {
			authsdk.NewOAuth2Error(http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest,
				"client_id and redirect_uri are required").WriteError(w)
			return
		}
		log.Error("authorize request failed", "error", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	if errors.Is(err, service.ErrLoginRequired) && req.Prompt != "none" {
		renderLogin(w, r, http.StatusOK, params, req.ClientID, "", "")
		return
	}

	code, desc := redirectErrorCode(re.Err)
	frag := url.Values{}
	frag.Set("error", code)
	frag.Set("error_description", desc)
	if re.State != "" {
		frag.Set("state", re.State)
	}

	log.Debug("authorize error redirect", "error_code", code, "client_id", req.ClientID)
	httpx.NoCache(w)
	http.Redirect(w, r, service.FragmentRedirect(re.RedirectURI, frag), http.StatusFound)
}

func redirectErrorCode(err error) (code, desc string) {
	switch {
	case errors.Is(err, service.ErrLoginRequired):
		return authsdk.ErrorCodeLoginRequired, "user authentication is required"
	case errors.Is(err, service.ErrUnsupportedResponseType):
		return authsdk.ErrorCodeUnsupportedResponseType, "response_type must be token, id_token or both"
	case errors.Is(err, service.ErrInvalidScope):
		return authsdk.ErrorCodeInvalidScope, "requested scope is not allowed"
	case errors.Is(err, service.ErrInvalidAudience):
		return authsdk.ErrorCodeAccessDenied, "audience is not allowed for this client"
	case errors.Is(err, service.ErrInvalidRequest):
		return authsdk.ErrorCodeInvalidRequest, "nonce is required when requesting an id_token"
	default:
		return authsdk.ErrorCodeServerError, "internal error"
	}
}

func sessionToken(r *http.Request) string {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func clearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func acceptsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
