// internal/server/middleware.go
package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	apperrors "inkbook/internal/common/errors"
	"inkbook/internal/common/logger"
	"inkbook/internal/recovery"
)

// ipLimiter hands out one token bucket per client IP.
type ipLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newIPLimiter(perSecond float64, burst int) *ipLimiter {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	return &ipLimiter{limit: limit, burst: burst, limiters: make(map[string]*rate.Limiter)}
}

func (l *ipLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[ip] = limiter
	}
	return limiter
}

// rateLimit rejects clients that exceed their per-IP budget.
func rateLimit(l *ipLimiter, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := clientIP(c)
		if !l.get(ip).Allow() {
			log.Warn("rate limit exceeded", map[string]interface{}{"ip": ip, "path": c.FullPath()})
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "RATE_LIMITED",
				"message": "Rate limit exceeded. Try again later.",
			})
			return
		}
		c.Next()
	}
}

func clientIP(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if xri := c.GetHeader("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(c.Request.RemoteAddr); err == nil {
		return host
	}
	return c.Request.RemoteAddr
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"latencyMs": time.Since(start).Milliseconds(),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Warn("request failed", fields)
			return
		}
		log.Debug("request served", fields)
	}
}

// guarded runs the rest of the chain inside the recovery boundary. A
// boundary that is not healthy answers 503 until it recovers.
func guarded(b *recovery.Boundary) gin.HandlerFunc {
	return func(c *gin.Context) {
		if state := b.State(); state != recovery.Healthy {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, faultBody(b, state))
			return
		}
		if b.Guard(c.Next) && !c.Writer.Written() {
			c.AbortWithStatusJSON(http.StatusInternalServerError, faultBody(b, b.State()))
		}
	}
}

func faultBody(b *recovery.Boundary, state recovery.State) gin.H {
	body := gin.H{
		"error":   string(apperrors.ErrCodeRenderFault),
		"state":   state.String(),
		"message": "The booking form hit an unexpected error. Retry or reset to continue.",
	}
	if f := b.Fault(); f != nil {
		body["faultAt"] = f.At
	}
	return body
}
