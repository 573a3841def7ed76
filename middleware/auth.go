package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"task-board-server/models"
)

// Context keys set by the auth middlewares.
const (
	ContextWorker   = "worker"
	ContextWorkerID = "worker_id"
)

// Authenticator resolves an access token to an active worker.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.Worker, error)
}

// AuthMiddleware validates Bearer tokens and sets the worker in the context
func AuthMiddleware(auth Authenticator, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Authorization header required",
				"message": "Please provide a valid token",
			})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid token format",
				"message": "Token must be in format: Bearer <token>",
			})
			return
		}

		authenticate(c, auth, log, tokenString)
	}
}

// WebSocketAuthMiddleware reads the token from the query string since
// browsers cannot set headers on websocket upgrades
func WebSocketAuthMiddleware(auth Authenticator, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Query("token")
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Token required",
				"message": "Please provide a valid token in query parameters",
			})
			return
		}

		authenticate(c, auth, log, tokenString)
	}
}

func authenticate(c *gin.Context, auth Authenticator, log *zap.Logger, tokenString string) {
	worker, err := auth.Authenticate(c.Request.Context(), tokenString)
	if err != nil {
		log.Debug("authentication failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", RequestID(c)),
			zap.Error(err),
		)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":   "Invalid token",
			"message": "Token is invalid or expired",
		})
		return
	}

	c.Set(ContextWorker, worker)
	c.Set(ContextWorkerID, worker.WorkerID)
	c.Next()
}

// AdminKeyMiddleware guards admin routes with a shared key in X-Admin-Key.
// Admin routes are disabled when no key is configured.
func AdminKeyMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error":   "Admin API disabled",
				"message": "ADMIN_API_KEY is not configured",
			})
			return
		}
		provided := c.GetHeader("X-Admin-Key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid admin key",
				"message": "A valid X-Admin-Key header is required",
			})
			return
		}
		c.Next()
	}
}

// CurrentWorker returns the authenticated worker, if any
func CurrentWorker(c *gin.Context) (*models.Worker, bool) {
	v, ok := c.Get(ContextWorker)
	if !ok {
		return nil, false
	}
	w, ok := v.(*models.Worker)
	return w, ok
}
