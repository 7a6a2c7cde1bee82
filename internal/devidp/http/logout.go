package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/authsession/internal/devidp/service"
	"github.com/aussiebroadwan/authsession/internal/devidp/store"
	"github.com/aussiebroadwan/authsession/pkg/authsdk"
	"github.com/aussiebroadwan/authsession/pkg/httpx"
	"github.com/aussiebroadwan/authsession/pkg/slogx"
)

// LogoutHandler ends the login session and optionally returns the user to
// the application.
type LogoutHandler struct {
	LoginService  *service.LoginService
	Store         store.Store
	SecureCookies bool
}

// ServeHTTP handles GET /v2/logout?client_id=...&returnTo=....
// returnTo must be one of the client's registered redirect URIs.
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	q := r.URL.Query()
	clientID := q.Get("client_id")
	returnTo := q.Get("returnTo")

	if returnTo != "" {
		client, err := h.Store.Clients().GetClientByID(ctx, clientID)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				log.Error("failed to load client", "client_id", clientID, "error", err)
				authsdk.ErrServerError.WriteError(w)
				return
			}
			authsdk.NewOAuth2Error(http.StatusBadRequest, authsdk.ErrorCodeUnauthorizedClient,
				"unknown client_id").WriteError(w)
			return
		}
		if !client.AllowsRedirect(returnTo) {
			authsdk.NewOAuth2Error(http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest,
				"returnTo is not registered for this client").WriteError(w)
			return
		}
	}

	if err := h.LoginService.RevokeSession(ctx, sessionToken(r)); err != nil {
		log.Error("failed to revoke session", "error", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}
	clearSessionCookie(w, h.SecureCookies)

	if returnTo != "" {
		httpx.NoCache(w)
		http.Redirect(w, r, returnTo, http.StatusFound)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}
