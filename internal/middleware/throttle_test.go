package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"marketplace-service/pkg/config"
	"marketplace-service/prometheus"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	prometheus.InitMetrics(&config.Config{Metrics: config.MetricsConfig{Prefix: "middlewaretest"}})
	os.Exit(m.Run())
}

func throttledRequest(t *testing.T, throttler *Throttler, authorization string) int {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := throttler.Middleware(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	return rec.Code
}

func TestThrottlerLimitsAnonymousClients(t *testing.T) {
	throttler := NewThrottler(config.ThrottleConfig{
		Enabled:       true,
		AnonBurst:     2,
		AnonPerMinute: 1,
		UserBurst:     5,
		UserPerMinute: 1,
	})

	assert.Equal(t, http.StatusOK, throttledRequest(t, throttler, ""))
	assert.Equal(t, http.StatusOK, throttledRequest(t, throttler, ""))
	assert.Equal(t, http.StatusTooManyRequests, throttledRequest(t, throttler, ""))

	// Authenticated requests draw from their own bucket
	assert.Equal(t, http.StatusOK, throttledRequest(t, throttler, "Bearer abc"))
}

func TestThrottlerKeysUsersSeparately(t *testing.T) {
	throttler := NewThrottler(config.ThrottleConfig{
		Enabled:       true,
		AnonBurst:     1,
		AnonPerMinute: 1,
		UserBurst:     1,
		UserPerMinute: 1,
	})

	assert.Equal(t, http.StatusOK, throttledRequest(t, throttler, "Bearer first"))
	assert.Equal(t, http.StatusTooManyRequests, throttledRequest(t, throttler, "Bearer first"))
	assert.Equal(t, http.StatusOK, throttledRequest(t, throttler, "Bearer second"))
}

func TestThrottlerEvictsIdleClients(t *testing.T) {
	throttler := NewThrottler(config.ThrottleConfig{
		Enabled:       true,
		AnonBurst:     1,
		AnonPerMinute: 1,
		UserBurst:     1,
		UserPerMinute: 1,
	})

	assert.Equal(t, http.StatusOK, throttledRequest(t, throttler, "Bearer idle"))
	require.Len(t, throttler.clients, 1)

	// Age the entry past the TTL and force the next request to sweep
	throttler.mu.Lock()
	throttler.clients["user:Bearer idle"].lastSeen = time.Now().Add(-2 * clientTTL)
	throttler.lastSweep = time.Now().Add(-2 * sweepInterval)
	throttler.mu.Unlock()

	assert.Equal(t, http.StatusOK, throttledRequest(t, throttler, "Bearer fresh"))

	throttler.mu.Lock()
	_, stale := throttler.clients["user:Bearer idle"]
	_, fresh := throttler.clients["user:Bearer fresh"]
	throttler.mu.Unlock()
	assert.False(t, stale)
	assert.True(t, fresh)
}

func TestThrottlerDisabled(t *testing.T) {
	throttler := NewThrottler(config.ThrottleConfig{Enabled: false})
	for i := 0; i < 10; i++ {
		assert.Equal(t, http.StatusOK, throttledRequest(t, throttler, ""))
	}
}
