package httptransport

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/freetime/internal/auth"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
}

func withTenant(r *http.Request, tenant string) *http.Request {
	claims := &auth.Claims{Subject: "user-1", TenantID: tenant, ExpiresAt: time.Now().Add(time.Hour)}
	return r.WithContext(auth.WithClaims(r.Context(), claims))
}

func TestRateLimiterPerTenant(t *testing.T) {
	limiter := NewRateLimiter(0.001, 2)
	handler := limiter.Middleware(okHandler())

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, withTenant(httptest.NewRequest(http.MethodGet, "/v1/activities", nil), "tenant-a"))
		require.Equal(t, http.StatusTeapot, rr.Code)
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, withTenant(httptest.NewRequest(http.MethodGet, "/v1/activities", nil), "tenant-a"))
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.Equal(t, "1", rr.Header().Get("Retry-After"))
	require.Contains(t, rr.Body.String(), "rate_limited")

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, withTenant(httptest.NewRequest(http.MethodGet, "/v1/activities", nil), "tenant-b"))
	require.Equal(t, http.StatusTeapot, rr.Code)
}

func TestRateLimiterFallsBackToAddress(t *testing.T) {
	limiter := NewRateLimiter(0.001, 1)

	first := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	first.RemoteAddr = "10.0.0.1:5555"
	second := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	second.RemoteAddr = "10.0.0.1:6666"

	require.True(t, limiter.Allow(limiterKey(first)))
	require.False(t, limiter.Allow(limiterKey(second)))
}

func TestRateLimiterDisabled(t *testing.T) {
	limiter := NewRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		require.True(t, limiter.Allow("tenant:any"))
	}
}

func TestRateLimiterSweepsIdleClients(t *testing.T) {
	clock := time.Date(2025, time.June, 2, 7, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(1, 1)
	limiter.now = func() time.Time { return clock }

	handler := limiter.Middleware(okHandler())
	for i := 0; i < 100; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = fmt.Sprintf("10.0.%d.%d:5000", i/256, i%256)
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	require.Equal(t, 100, limiter.size())

	clock = clock.Add(2 * time.Minute)
	require.True(t, limiter.Allow("tenant:active"))
	require.Zero(t, limiter.Sweep())

	clock = clock.Add(DefaultLimiterIdleTTL)
	require.True(t, limiter.Allow("tenant:active"))
	require.Equal(t, 100, limiter.Sweep())
	require.Equal(t, 1, limiter.size())
}

func TestCORSPreflight(t *testing.T) {
	handler := CORS("http://localhost:3000")(okHandler())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/v1/activities", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/activities", nil))
	require.Equal(t, http.StatusTeapot, rr.Code)
}

func TestRequestLoggerRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogger(log.New(&buf, "", 0))(okHandler())

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/suggestions", nil))
	require.Contains(t, buf.String(), "POST /v1/suggestions 418")
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	Chain(okHandler(), mark("outer"), mark("inner")).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"outer", "inner"}, order)
}

func TestDefaultServerConfig(t *testing.T) {
	srv := NewServer(DefaultServerConfig(":8080"), okHandler())
	require.Equal(t, ":8080", srv.Addr)
	require.Equal(t, 10*time.Second, srv.WriteTimeout)
}
