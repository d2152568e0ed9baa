package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCORSMiddleware(t *testing.T) {
	_, h := newTestServer(t, Config{CORSOrigin: "https://app.example"})

	t.Run("preflight", func(t *testing.T) {
		w := serve(h, httptest.NewRequest(http.MethodOptions, "/generate", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
		assert.Empty(t, w.Body.String())
	})

	t.Run("simple request", func(t *testing.T) {
		w := serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	s := NewServer(Config{}, nil)
	h := s.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("handler bug")
	}))

	w := httptest.NewRecorder()
	require.NotPanics(t, func() { h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil)) })
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"internal error"}`, w.Body.String())

	// The server keeps serving after a panic.
	w = httptest.NewRecorder()
	require.NotPanics(t, func() { h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil)) })
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRecoveryMiddleware_AfterHeaders(t *testing.T) {
	s := NewServer(Config{}, nil)
	h := s.recoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		panic("late bug")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestLoggingMiddleware_RecordsStatus(t *testing.T) {
	s := NewServer(Config{}, nil)
	var seen *responseWriter
	h := s.loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		seen = w.(*responseWriter)
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	require.NotNil(t, seen)
	assert.Equal(t, http.StatusTeapot, seen.statusCode)
}

func TestRateLimitMiddleware(t *testing.T) {
	_, h := newTestServer(t, Config{RateLimit: RateLimitConfig{Enabled: true, RequestsPerMinute: 2}})

	get := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/qr/public/", nil)
		req.Header.Set("X-Forwarded-For", ip)
		return serve(h, req)
	}

	assert.Equal(t, http.StatusOK, get("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, get("10.0.0.1").Code)

	w := get("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	resp := decodeBody[ErrorResponse](t, w)
	assert.Contains(t, resp.Error, "rate limit exceeded")

	assert.Equal(t, http.StatusOK, get("10.0.0.2").Code)

	// Health checks are never limited.
	for range 5 {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Forwarded-For", "10.0.0.1")
		assert.Equal(t, http.StatusOK, serve(h, req).Code)
	}
}

func TestRateLimitMiddleware_DataQuota(t *testing.T) {
	_, h := newTestServer(t, Config{RateLimit: RateLimitConfig{Enabled: true, MaxDataPerDay: 10}})

	req := jsonRequest(t, http.MethodPost, "/qr/validate/", ValidateRequest{Content: "a fairly long payload"})
	w := serve(h, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "10", w.Header().Get("X-Quota-Limit"))
	assert.NotEmpty(t, w.Header().Get("X-Quota-Resets"))
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{name: "remote addr", remoteAddr: "192.0.2.1:1234", want: "192.0.2.1"},
		{name: "remote addr without port", remoteAddr: "192.0.2.1", want: "192.0.2.1"},
		{name: "forwarded for", remoteAddr: "192.0.2.1:1234", headers: map[string]string{"X-Forwarded-For": "203.0.113.5"}, want: "203.0.113.5"},
		{name: "forwarded chain", remoteAddr: "192.0.2.1:1234", headers: map[string]string{"X-Forwarded-For": " 203.0.113.5 , 10.0.0.1"}, want: "203.0.113.5"},
		{name: "real ip", remoteAddr: "192.0.2.1:1234", headers: map[string]string{"X-Real-IP": "198.51.100.7"}, want: "198.51.100.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}
