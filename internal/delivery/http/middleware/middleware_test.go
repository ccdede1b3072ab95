package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventmanager/internal/delivery/http/helpers"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestLocale(t *testing.T) {
	catalog := testCatalog(t)
	tests := []struct {
		header string
		want   string
	}{
		{"", "en"},
		{"ar-SA,ar;q=0.9,en;q=0.8", "ar"},
		{"fr-FR, en;q=0.5", "en"},
		{"de", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			var got string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = helpers.LocaleFromContext(r.Context())
			})
			req := httptest.NewRequest(http.MethodGet, "/events", nil)
			req.Header.Set("Accept-Language", tt.header)
			rr := httptest.NewRecorder()

			Locale(catalog, next).ServeHTTP(rr, req)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, rr.Header().Get("Content-Language"))
		})
	}
}

func TestCORS(t *testing.T) {
	handler := CORS([]string{"https://app.example.com/"}, okHandler())

	t.Run("preflight from allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/events", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, corsAllowMethods, rr.Header().Get("Access-Control-Allow-Methods"))
	})

	t.Run("preflight from unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/events", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("simple request gets origin header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/events", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/events", nil)
		req.Header.Set("Origin", "https://any.example.org")
		rr := httptest.NewRecorder()
		CORS([]string{"*"}, okHandler()).ServeHTTP(rr, req)

		assert.Equal(t, "https://any.example.org", rr.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler := RateLimit(ctx, RateLimitConfig{RPS: 0.001, Burst: 2}, testCatalog(t))(okHandler())

	send := func(path, remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = remote
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusOK, send("/events", "10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusOK, send("/events", "10.0.0.1:1001").Code)
	rr := send("/events", "10.0.0.1:1002")
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	var envelope helpers.APIResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
	assert.Equal(t, helpers.ErrCodeTooManyRequests, envelope.Error.Code)

	assert.Equal(t, http.StatusOK, send("/events", "10.0.0.2:1000").Code, "other clients have their own bucket")
	assert.Equal(t, http.StatusOK, send("/healthz", "10.0.0.1:1003").Code, "health probes are exempt")
}

func TestRateLimit_Disabled(t *testing.T) {
	handler := RateLimit(context.Background(), RateLimitConfig{}, testCatalog(t))(okHandler())
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodGet, "/events", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
	}
}

func TestLimiterStore_Cleanup(t *testing.T) {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	store := newLimiterStore(RateLimitConfig{RPS: 1, Burst: 1})
	store.now = func() time.Time { return now }

	store.limiter("stale")
	now = now.Add(limiterTTL + time.Minute)
	store.limiter("fresh")
	store.cleanup()

	assert.NotContains(t, store.limiters, "stale")
	assert.Contains(t, store.limiters, "fresh")
}
