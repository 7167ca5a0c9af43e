package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invopipe/invopipe/internal/config"
)

func TestNewRateLimiter(t *testing.T) {
	rl := NewRateLimiter(10, 1000, 1024*1024)

	assert.NotNil(t, rl)
	assert.Equal(t, 10, rl.requestsPerMinute)
	assert.Equal(t, 1000, rl.maxRequestsPerDay)
	assert.Equal(t, int64(1024*1024), rl.maxUploadPerDay)
	assert.NotNil(t, rl.clients)
}

func TestRateLimiterCheckNoLimits(t *testing.T) {
	rl := NewRateLimiter(0, 0, 0)

	err := rl.Check("client1", 100)
	assert.NoError(t, err)

	usage := rl.clients["client1"]
	require.NotNil(t, usage)
	assert.Equal(t, 1, usage.requestsToday)
	assert.Equal(t, int64(100), usage.uploadedToday)
}

func TestRateLimiterCheckRequestsPerMinute(t *testing.T) {
	rl := NewRateLimiter(2, 0, 0)

	clientID := "client1"

	err := rl.Check(clientID, 0)
	assert.NoError(t, err)
	err = rl.Check(clientID, 0)
	assert.NoError(t, err)

	// Third request within the same minute should fail
	err = rl.Check(clientID, 0)
	assert.Error(t, err)

	rateErr := &RateLimitError{}
	ok := errors.As(err, &rateErr)
	require.True(t, ok)
	assert.Equal(t, 2, rateErr.Limit)
	assert.Positive(t, rateErr.RetryAfter)
}

func TestRateLimiterCheckDailyRequestQuota(t *testing.T) {
	rl := NewRateLimiter(0, 3, 0)

	clientID := "client1"

	for range 3 {
		err := rl.Check(clientID, 0)
		assert.NoError(t, err)
	}

	err := rl.Check(clientID, 0)
	assert.Error(t, err)

	quotaErr := &QuotaExceededError{}
	ok := errors.As(err, &quotaErr)
	require.True(t, ok)
	assert.Equal(t, "requests", quotaErr.Kind)
	assert.Equal(t, int64(3), quotaErr.Limit)
	assert.Equal(t, int64(3), quotaErr.Used)
	assert.True(t, quotaErr.Resets.After(time.Now()))
}

func TestRateLimiterCheckDailyUploadQuota(t *testing.T) {
	rl := NewRateLimiter(0, 0, 1000)

	clientID := "client1"

	err := rl.Check(clientID, 600)
	assert.NoError(t, err)

	// 600 + 500 exceeds the 1000-byte daily quota
	err = rl.Check(clientID, 500)
	assert.Error(t, err)

	quotaErr := &QuotaExceededError{}
	ok := errors.As(err, &quotaErr)
	require.True(t, ok)
	assert.Equal(t, "upload", quotaErr.Kind)
	assert.Equal(t, int64(1000), quotaErr.Limit)
	assert.Equal(t, int64(600), quotaErr.Used)
}

func TestRateLimiterTracksClientsIndependently(t *testing.T) {
	rl := NewRateLimiter(1, 0, 0)

	require.NoError(t, rl.Check("client1", 0))
	assert.Error(t, rl.Check("client1", 0))

	// A different client still has its full allowance
	assert.NoError(t, rl.Check("client2", 0))
}

func TestRateLimitErrorMessages(t *testing.T) {
	rateErr := &RateLimitError{Limit: 5, RetryAfter: 30 * time.Second}
	assert.Contains(t, rateErr.Error(), "rate limit exceeded")
	assert.Contains(t, rateErr.Error(), "5 per minute")

	quotaErr := &QuotaExceededError{
		Kind:   "upload",
		Limit:  1000,
		Used:   900,
		Resets: time.Date(2024, 4, 3, 0, 0, 0, 0, time.UTC),
	}
	assert.Contains(t, quotaErr.Error(), "daily upload quota exceeded")
	assert.Contains(t, quotaErr.Error(), "limit: 1000")
}

func TestExtractEndpointRateLimited(t *testing.T) {
	srv, err := NewServer(Config{
		CORSOrigin:         "*",
		MaxUploadMB:        10,
		DefaultTier:        "free",
		DefaultMode:        "standard",
		RateLimitPerMinute: 1,
		Acquisition:        config.DefaultConfig().Acquisition,
		Workers:            2,
		OCRLanguage:        "eng",
	})
	require.NoError(t, err)

	mux := http.NewServeMux()
	srv.SetupRoutes(mux)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/extract", nil)
		req.RemoteAddr = "203.0.113.7:51424"
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec
	}

	// First request passes the limiter (it fails later for lacking files,
	// which is fine here)
	first := send()
	assert.NotEqual(t, http.StatusTooManyRequests, first.Code)

	second := send()
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "remote addr with port",
			remoteAddr: "192.0.2.1:8080",
			want:       "192.0.2.1",
		},
		{
			name:       "x-forwarded-for single",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.5"},
			want:       "203.0.113.5",
		},
		{
			name:       "x-forwarded-for chain uses first hop",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.2"},
			want:       "203.0.113.5",
		},
		{
			name:       "x-real-ip",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			want:       "203.0.113.9",
		},
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
