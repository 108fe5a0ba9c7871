package middleware

import (
	"net/http"
	"sync"
	"time"

	"marketplace-service/pkg/config"
	"marketplace-service/pkg/logger"
	"marketplace-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Idle buckets are dropped so the per-client map stays bounded. The
// TTL must exceed the longest burst refill window so eviction never
// resets a client mid-limit.
const (
	clientTTL     = 15 * time.Minute
	sweepInterval = time.Minute
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Throttler applies per-client token buckets: authenticated requests
// are keyed by bearer token, anonymous ones by IP, with separate
// burst and sustained rates per scope.
type Throttler struct {
	mu        sync.Mutex
	clients   map[string]*client
	lastSweep time.Time
	cfg       config.ThrottleConfig
}

// NewThrottler creates a throttler from configuration
func NewThrottler(cfg config.ThrottleConfig) *Throttler {
	return &Throttler{
		clients:   make(map[string]*client),
		lastSweep: time.Now(),
		cfg:       cfg,
	}
}

func (t *Throttler) limiter(key string, perMinute, burst int) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	if now.Sub(t.lastSweep) >= sweepInterval {
		for k, c := range t.clients {
			if now.Sub(c.lastSeen) >= clientTTL {
				delete(t.clients, k)
			}
		}
		t.lastSweep = now
	}

	c, ok := t.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)}
		t.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter
}

// Middleware returns the Echo middleware enforcing the limits
func (t *Throttler) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !t.cfg.Enabled {
			return next(c)
		}

		scope := "anon"
		key := "anon:" + c.RealIP()
		perMinute, burst := t.cfg.AnonPerMinute, t.cfg.AnonBurst
		if auth := c.Request().Header.Get("Authorization"); auth != "" {
			scope = "user"
			key = "user:" + auth
			perMinute, burst = t.cfg.UserPerMinute, t.cfg.UserBurst
		}

		if !t.limiter(key, perMinute, burst).Allow() {
			prometheus.ThrottledCounter.WithLabelValues(scope).Inc()
			logger.FromContext(c).Warn("Request throttled",
				zap.String("scope", scope),
				zap.String("path", c.Path()))
			return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "request was throttled"})
		}

		return next(c)
	}
}
