package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lorrc/fieldservice-realtime/internal/auth"
	"github.com/lorrc/fieldservice-realtime/internal/infrastructure/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	userID string
	err    error
	got    string
}

func (s *stubResolver) Resolve(_ context.Context, cookieHeader string) (string, error) {
	s.got = cookieHeader
	return s.userID, s.err
}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded list", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.2:5000", "203.0.113.7"},
		{"forwarded with port", map[string]string{"X-Forwarded-For": "203.0.113.7:4431"}, "10.0.0.2:5000", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.4"}, "10.0.0.2:5000", "198.51.100.4"},
		{"remote addr", nil, "192.0.2.10:61000", "192.0.2.10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(r))
		})
	}
}

func TestRateLimiter_BlocksAfterBurst(t *testing.T) {
	cfg := DefaultRateLimiterConfig()
	cfg.RequestsPerSecond = 0.001
	cfg.BurstSize = 2
	rl := NewRateLimiter(cfg)
	h := rl.Middleware(http.HandlerFunc(okHandler))

	send := func(ip string) int {
		r := httptest.NewRequest(http.MethodPost, "/internal/v1/events/sms", nil)
		r.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("10.1.1.1"))
	assert.Equal(t, http.StatusOK, send("10.1.1.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.1.1.1"))
	assert.Equal(t, http.StatusOK, send("10.1.1.2"))
}

func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(RequestIDHeader, "req-42")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, "req-42", seen)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(RequestIDHeader, strings.Repeat("x", 200))
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.Len(t, seen, 36)
}

func TestServiceAuth(t *testing.T) {
	tm := auth.NewTokenManager("service-auth-test-secret", time.Minute)
	token, err := tm.GenerateToken("billing")
	require.NoError(t, err)

	var service string
	h := ServiceAuth(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := GetServiceClaims(r.Context())
		require.True(t, ok)
		service = claims.Service
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"garbage", "Bearer not-a-token", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
		{"lowercase scheme", "bearer " + token, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
	assert.Equal(t, "billing", service)
}

func TestSessionAuth(t *testing.T) {
	t.Run("stores the user", func(t *testing.T) {
		resolver := &stubResolver{userID: "u1"}
		var got string
		h := SessionAuth(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, _ = GetSessionUserID(r.Context())
			assert.Equal(t, "u1", logging.GetUserID(r.Context()))
		}))

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Add("Cookie", "a=1")
		r.Header.Add("Cookie", "connect.sid=s%3Aabc.sig")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "u1", got)
		assert.Equal(t, "a=1; connect.sid=s%3Aabc.sig", resolver.got)
	})

	t.Run("rejects unresolved sessions", func(t *testing.T) {
		resolver := &stubResolver{err: errors.New("expired")}
		h := SessionAuth(resolver)(http.HandlerFunc(okHandler))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"Authentication required","code":"UNAUTHORIZED"}`, rec.Body.String())
	})
}

func TestRecoveryLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := RequestID(RecoveryLogger(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "boom")
	assert.Contains(t, buf.String(), rec.Header().Get(RequestIDHeader))
}
