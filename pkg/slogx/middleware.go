package slogx

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/authsession/pkg/idx"
)

// HTTPMiddleware logs each request, echoes its request ID and attaches a
// contextual logger to the request context. Handler panics are logged and
// answered with a 500.
func HTTPMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" {
				reqID = idx.New().String()
			}
			rw.Header().Set("X-Request-ID", reqID)

			logger := base.With(
				"req_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			r = r.WithContext(WithContext(r.Context(), logger))

			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("http_panic", "panic", fmt.Sprint(rec))
					if !rw.wrote {
						http.Error(rw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					}
				}
				logger.Info("http_request",
					"status", rw.status,
					"duration_ms", time.Since(start).Milliseconds(),
					"user_agent", r.UserAgent(),
				)
			}()

			next.ServeHTTP(rw, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter

	status int
	wrote  bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wrote {
		return
	}
	rw.status = code
	rw.wrote = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wrote {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}
