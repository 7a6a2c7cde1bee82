package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/authsession/pkg/httpx"
	"github.com/aussiebroadwan/authsession/pkg/jwtx"
)

// HealthResponse is the body of the health endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}

// LivezHandler always reports ok while the process is serving.
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// ReadyzHandler reports unavailable until a signing key is loaded.
func ReadyzHandler(startTime time.Time, version string, keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		}
		status := http.StatusOK
		if !keys.IsReady() {
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
		}
		httpx.WriteJSON(w, status, resp)
	}
}
