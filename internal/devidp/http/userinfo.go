package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/authsession/internal/devidp/store"
	"github.com/aussiebroadwan/authsession/pkg/authsdk"
	"github.com/aussiebroadwan/authsession/pkg/httpx"
	"github.com/aussiebroadwan/authsession/pkg/slogx"
)

type UserInfoHandler struct {
	Store store.Store
}

// ServeHTTP returns the profile of the access token's subject. It runs
// behind AuthnMiddleware.
func (h *UserInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFrom(ctx)
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	user, err := h.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			authsdk.ErrInvalidToken.WriteError(w)
			return
		}
		log.Warn("failed to load user", "user_id", userID, "error", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.UserInfoResponse{
		Subject:           user.ID,
		Name:              user.Name,
		PreferredUsername: user.Username,
		Email:             user.Email,
	})
}
