package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/medpanel/medpanel/internal/platform/monitor"
)

// RateLimitConfig bounds request throughput per client address.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimitConfig is generous enough for a single office's
// front-end polling every view.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
	}
}

// pruneInterval is how long an address may sit idle before its bucket
// is dropped. Any bucket idle that long has refilled completely anyway.
const pruneInterval = 10 * time.Minute

type client struct {
	tokens float64
	last   time.Time
}

// limiter tracks one token bucket per client address under a single
// lock. Buckets refill lazily when the address next appears.
type limiter struct {
	mu      sync.Mutex
	cfg     RateLimitConfig
	clients map[string]*client
	swept   time.Time
	now     func() time.Time
}

func newLimiter(cfg RateLimitConfig) *limiter {
	return &limiter{
		cfg:     cfg,
		clients: make(map[string]*client),
		swept:   time.Now(),
		now:     time.Now,
	}
}

// take spends one token for ip. When the bucket is empty it reports how
// many whole seconds until the next token becomes available.
func (l *limiter) take(ip string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cl, ok := l.clients[ip]
	if !ok {
		cl = &client{tokens: float64(l.cfg.BurstSize), last: now}
		l.clients[ip] = cl
	}

	cl.tokens += now.Sub(cl.last).Seconds() * l.cfg.RequestsPerSecond
	if burst := float64(l.cfg.BurstSize); cl.tokens > burst {
		cl.tokens = burst
	}
	cl.last = now

	l.prune(now)

	if cl.tokens < 1 {
		if l.cfg.RequestsPerSecond <= 0 {
			return false, 1
		}
		return false, int((1-cl.tokens)/l.cfg.RequestsPerSecond) + 1
	}
	cl.tokens--
	return true, 0
}

func (l *limiter) prune(now time.Time) {
	if now.Sub(l.swept) < pruneInterval {
		return
	}
	l.swept = now
	for ip, cl := range l.clients {
		if now.Sub(cl.last) > pruneInterval {
			delete(l.clients, ip)
		}
	}
}

// RateLimit rejects clients that exceed the per address budget. Every
// breach lands in the security log with the offending address.
func RateLimit(cfg RateLimitConfig, mon *monitor.Monitor) echo.MiddlewareFunc {
	l := newLimiter(cfg)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			allowed, retryAfter := l.take(ip)

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64))
			if !allowed {
				h.Set("Retry-After", strconv.Itoa(retryAfter))
				h.Set("X-RateLimit-Remaining", "0")
				mon.Security("rate_limit_exceeded", monitor.SeverityWarning, map[string]any{
					"remote_ip": ip,
					"path":      c.Request().URL.Path,
				})
				return c.JSON(http.StatusTooManyRequests,
					map[string]string{"error": "Demasiadas solicitudes. Intente más tarde"})
			}
			return next(c)
		}
	}
}
