package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/stockdaily/internal/domain/dto"
)

// client represents a rate-limited client with request count and window start.
type client struct {
	windowStart time.Time
	count       int
}

// window is the length of one counting window; tests shrink it.
var window = time.Minute

// limit is used when RateLimiter receives a non-positive value.
var limit = 60

// rateStore is the in-memory per-IP counter of a single limiter.
// NOTE: counters are per process; multiple API replicas each allow the full limit.
type rateStore struct {
	mu        sync.Mutex
	clients   map[string]*client
	lastSweep time.Time
}

func (s *rateStore) allow(ip string, now time.Time, max int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) > window {
		s.sweep(now)
	}

	cl, ok := s.clients[ip]
	if !ok || now.Sub(cl.windowStart) > window {
		s.clients[ip] = &client{windowStart: now, count: 1}
		return true
	}
	cl.count++
	return cl.count <= max
}

// sweep drops clients whose window has expired. Callers hold mu.
func (s *rateStore) sweep(now time.Time) {
	for ip, cl := range s.clients {
		if now.Sub(cl.windowStart) > window {
			delete(s.clients, ip)
		}
	}
	s.lastSweep = now
}

// RateLimiter is a simple in-memory middleware that limits the number of requests per client IP.
//
// Behavior:
//   - Allows up to perMinute requests per window (default window: 1 minute).
//   - perMinute <= 0 falls back to 60.
//   - Identifies clients by their IP address.
//   - If limit exceeded, returns HTTP 429 Too Many Requests with a dto.ErrorResponse body.
//
// Usage:
//
//	router := gin.New()
//	router.Use(middleware.RateLimiter(config.AppConfig.Server.RateLimitPerMinute))
func RateLimiter(perMinute int) gin.HandlerFunc {
	if perMinute <= 0 {
		perMinute = limit
	}
	store := &rateStore{clients: make(map[string]*client)}

	return func(c *gin.Context) {
		if !store.allow(c.ClientIP(), time.Now(), perMinute) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponse("rate limit exceeded", nil))
			return
		}
		c.Next()
	}
}
