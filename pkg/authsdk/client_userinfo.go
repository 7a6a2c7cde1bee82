package authsdk

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/authsession/pkg/session"
)

// UserInfo fetches the profile for accessToken from the userinfo endpoint.
// Every member of the response is kept, not only the standard claims.
func (w *WebAuth) UserInfo(ctx context.Context, accessToken string) (session.Profile, error) {
	resp, err := w.doRequest(ctx, w.HTTPClient, http.MethodGet, w.endpointsSnapshot().userinfo, nil, map[string]string{
		"Authorization": "Bearer " + accessToken,
		"Accept":        "application/json",
	})
	if err != nil {
		return nil, err
	}

	var profile session.Profile
	if err := decodeJSON(resp, &profile, http.StatusOK); err != nil {
		return nil, err
	}
	if profile.Subject() == "" {
		return nil, invalidResponse("userinfo response has no sub claim")
	}

	return profile, nil
}
