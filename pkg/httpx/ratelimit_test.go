package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/authsession/pkg/httpx"
	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func hit(h http.Handler, target, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = remote
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIPKeyExtractor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"remote addr", nil, "192.168.1.1"},
		{"forwarded for wins", map[string]string{"X-Forwarded-For": "203.0.113.1, 192.168.1.1"}, "203.0.113.1"},
		{"real ip fallback", map[string]string{"X-Real-IP": "203.0.113.2"}, "203.0.113.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.168.1.1:12345"
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			require.Equal(t, tt.want, httpx.IPKeyExtractor(req))
		})
	}
}

func TestFormFieldKeyExtractor(t *testing.T) {
	t.Parallel()

	extract := httpx.FormFieldKeyExtractor("username")

	require.Equal(t, "alice", extract(httptest.NewRequest(http.MethodGet, "/?username=alice", nil)))
	require.Empty(t, extract(httptest.NewRequest(http.MethodGet, "/", nil)))

	form := url.Values{"username": {"bob"}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.Equal(t, "bob", extract(req))
}

func TestCompositeKeyExtractor(t *testing.T) {
	t.Parallel()

	extract := httpx.CompositeKeyExtractor(":", httpx.IPKeyExtractor, httpx.FormFieldKeyExtractor("username"))

	req := httptest.NewRequest(http.MethodGet, "/?username=alice", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	require.Equal(t, "192.168.1.1:alice", extract(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	require.Equal(t, "192.168.1.1", extract(req))
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("blocks requests over the burst", func(t *testing.T) {
		t.Parallel()
		h := httpx.RateLimitByIP(httpx.RateLimitConfig{RequestsPerWindow: 3, Window: time.Minute, Burst: 3})(okHandler)

		for i := range 3 {
			require.Equal(t, http.StatusOK, hit(h, "/", "192.168.1.1:1").Code, "request %d", i+1)
		}

		rec := hit(h, "/", "192.168.1.1:1")
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.NotEmpty(t, rec.Header().Get("Retry-After"))
		require.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
		require.Equal(t, "1m0s", rec.Header().Get("X-RateLimit-Window"))
		require.Contains(t, rec.Body.String(), "rate_limit_exceeded")
	})

	t.Run("keys are tracked separately", func(t *testing.T) {
		t.Parallel()
		h := httpx.RateLimitByIP(httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1})(okHandler)

		require.Equal(t, http.StatusOK, hit(h, "/", "10.0.0.1:1").Code)
		require.Equal(t, http.StatusTooManyRequests, hit(h, "/", "10.0.0.1:1").Code)
		require.Equal(t, http.StatusOK, hit(h, "/", "10.0.0.2:1").Code)
	})

	t.Run("ip and form field", func(t *testing.T) {
		t.Parallel()
		h := httpx.RateLimitByIPAndFormField(httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}, "username")(okHandler)

		require.Equal(t, http.StatusOK, hit(h, "/?username=alice", "10.0.0.1:1").Code)
		require.Equal(t, http.StatusTooManyRequests, hit(h, "/?username=alice", "10.0.0.1:1").Code)
		require.Equal(t, http.StatusOK, hit(h, "/?username=bob", "10.0.0.1:1").Code)
	})

	t.Run("empty key bypasses limiter", func(t *testing.T) {
		t.Parallel()
		none := func(*http.Request) string { return "" }
		h := httpx.RateLimitMiddleware(httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}, none)(okHandler)

		for range 3 {
			require.Equal(t, http.StatusOK, hit(h, "/", "10.0.0.1:1").Code)
		}
	})

	t.Run("disabled config passes through", func(t *testing.T) {
		t.Parallel()
		h := httpx.RateLimitByIP(httpx.RateLimitConfig{})(okHandler)

		for range 10 {
			require.Equal(t, http.StatusOK, hit(h, "/", "10.0.0.1:1").Code)
		}
	})
}

func TestRateLimitProfiles(t *testing.T) {
	t.Parallel()

	profiles := []httpx.RateLimitConfig{httpx.StrictLimit, httpx.ModerateLimit, httpx.LenientLimit, httpx.PublicLimit}
	for i, p := range profiles {
		require.True(t, p.Enabled(), "profile %d", i)
		if i > 0 {
			require.Less(t, profiles[i-1].RequestsPerWindow, p.RequestsPerWindow)
		}
	}
}

func TestRateLimitConfigFromEnv(t *testing.T) {
	t.Parallel()

	cfg := httpx.StrictLimit
	err := env.ParseWithOptions(&cfg, env.Options{
		Prefix: "RATELIMIT_STRICT_",
		Environment: map[string]string{
			"RATELIMIT_STRICT_REQUESTS": "50",
			"RATELIMIT_STRICT_WINDOW":   "2m",
		},
	})
	require.NoError(t, err)
	require.Equal(t, 50, cfg.RequestsPerWindow)
	require.Equal(t, 2*time.Minute, cfg.Window)
	require.Equal(t, httpx.StrictLimit.Burst, cfg.Burst)
}

func BenchmarkRateLimitMiddleware(b *testing.B) {
	h := httpx.RateLimitByIP(httpx.RateLimitConfig{RequestsPerWindow: 1000000, Window: time.Minute, Burst: 1000})(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:12345"

	for b.Loop() {
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
}
