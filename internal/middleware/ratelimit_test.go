package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/ovasylenko/contactbook-backend/internal/database"
)

func setupRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	database.RedisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr
}

func limitedHandler(limit int, window time.Duration) http.Handler {
	return RateLimit("login", limit, window)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func doRequest(handler http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_BlocksAfterLimit(t *testing.T) {
	setupRedis(t)
	handler := limitedHandler(3, time.Minute)

	for i := 0; i < 3; i++ {
		rec := doRequest(handler, "10.0.0.1:5000")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	rec := doRequest(handler, "10.0.0.1:5000")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "60", rec.Header().Get("Retry-After"))
	require.JSONEq(t,
		`{"success":false,"message":"Rate limit exceeded. Please try again later.","retry_after":60}`,
		rec.Body.String())
}

func TestRateLimit_PerClientCounters(t *testing.T) {
	setupRedis(t)
	handler := limitedHandler(1, time.Minute)

	require.Equal(t, http.StatusOK, doRequest(handler, "10.0.0.1:5000").Code)
	require.Equal(t, http.StatusTooManyRequests, doRequest(handler, "10.0.0.1:5000").Code)

	// A different client gets its own window
	require.Equal(t, http.StatusOK, doRequest(handler, "10.0.0.2:5000").Code)
}

func TestRateLimit_WindowResets(t *testing.T) {
	mr := setupRedis(t)
	handler := limitedHandler(1, time.Minute)

	require.Equal(t, http.StatusOK, doRequest(handler, "10.0.0.1:5000").Code)
	require.Equal(t, http.StatusTooManyRequests, doRequest(handler, "10.0.0.1:5000").Code)

	mr.FastForward(time.Minute + time.Second)

	require.Equal(t, http.StatusOK, doRequest(handler, "10.0.0.1:5000").Code)
}

func TestRateLimit_Headers(t *testing.T) {
	setupRedis(t)
	handler := limitedHandler(5, time.Minute)

	rec := doRequest(handler, "10.0.0.1:5000")
	require.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
	require.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
}

func TestRateLimit_FailsOpenWhenRedisDown(t *testing.T) {
	mr := setupRedis(t)
	handler := limitedHandler(1, time.Minute)
	mr.Close()

	// Limiting is a guard, not a dependency: requests pass when Redis is gone
	require.Equal(t, http.StatusOK, doRequest(handler, "10.0.0.1:5000").Code)
	require.Equal(t, http.StatusOK, doRequest(handler, "10.0.0.1:5000").Code)
}
