package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimiter stores rate limiters keyed by route and client IP
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	lastSeen map[string]time.Time
	mutex    sync.Mutex
	now      func() time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		now:      time.Now,
	}
}

// GetLimiterWithConfig returns a limiter for a composite key with dynamic limits
func (rl *RateLimiter) GetLimiterWithConfig(key string, limit rate.Limit, burst int) *rate.Limiter {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(limit, burst)
		rl.limiters[key] = limiter
	}
	rl.lastSeen[key] = rl.now()
	return limiter
}

// Cleanup removes limiters idle for longer than maxIdle and returns how many
// were dropped
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	removed := 0
	for key, t := range rl.lastSeen {
		if now.Sub(t) > maxIdle {
			delete(rl.limiters, key)
			delete(rl.lastSeen, key)
			removed++
		}
	}
	return removed
}

// Size returns the number of tracked keys
func (rl *RateLimiter) Size() int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	return len(rl.limiters)
}

// limitsFor picks the limit for a route.
func limitsFor(method, path string) (rate.Limit, int) {
	switch {
	case strings.HasPrefix(path, "/api/ws"):
		return rate.Every(time.Second), 5
	case path == "/api/worker/login" || path == "/api/worker/refresh":
		return rate.Every(time.Minute / 5), 5
	case method == http.MethodGet && strings.HasPrefix(path, "/api/tasks"):
		// dashboard polling
		return rate.Every(500 * time.Millisecond), 10
	default:
		return rate.Every(time.Minute / 30), 30
	}
}

// RateLimitMiddleware implements per route and IP rate limiting
func RateLimitMiddleware(rl *RateLimiter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		clientIP := c.ClientIP()

		lim, burst := limitsFor(c.Request.Method, path)
		limiter := rl.GetLimiterWithConfig(path+"|"+clientIP, lim, burst)

		if !limiter.Allow() {
			log.Warn("rate limit exceeded",
				zap.String("method", c.Request.Method),
				zap.String("path", path),
				zap.String("ip", clientIP),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"message":     "Too many requests. Please try again later.",
				"retry_after": 60,
			})
			return
		}

		c.Next()
	}
}

// SecurityHeadersMiddleware adds security headers
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'self'; img-src 'self' data: https:; connect-src 'self' ws: wss:;")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Header("Server", "")

		c.Next()
	}
}

// CORSMiddleware allows the configured dashboard origins
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With", "X-Admin-Key", RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", "Content-Disposition", RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}
	for _, o := range allowedOrigins {
		if o == "*" {
			cfg.AllowCredentials = false
			cfg.AllowAllOrigins = true
			return cors.New(cfg)
		}
	}
	cfg.AllowOrigins = allowedOrigins
	return cors.New(cfg)
}

// InputValidationMiddleware rejects oversized bodies and unexpected content types
func InputValidationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > 30*1024*1024 {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error":   "Request too large",
				"message": "Request body exceeds maximum size limit",
			})
			return
		}

		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if c.Request.ContentLength == 0 {
				break
			}
			contentType := c.GetHeader("Content-Type")
			if !strings.Contains(contentType, "application/json") &&
				!strings.Contains(contentType, "multipart/form-data") &&
				!strings.Contains(contentType, "application/x-www-form-urlencoded") {
				c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
					"error":   "Invalid content type",
					"message": "Content-Type must be application/json, multipart/form-data, or application/x-www-form-urlencoded",
				})
				return
			}
		}

		c.Next()
	}
}
