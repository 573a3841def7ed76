package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"task-board-server/services"
)

type loginRequest struct {
	WorkerID string `json:"workerId" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type pushTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

type testPushRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func deviceInfo(c *gin.Context) services.DeviceInfo {
	return services.DeviceInfo{
		DeviceID:  c.GetHeader("X-Device-ID"),
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	}
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "workerId and password are required"})
		return
	}

	res, err := h.Auth.Login(c.Request.Context(), req.WorkerID, req.Password, deviceInfo(c))
	if err != nil {
		status, msg := h.classify(c, err, "Login failed")
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *Handler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refresh_token is required"})
		return
	}

	pair, err := h.Auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		status, msg := h.classify(c, err, "Failed to refresh token")
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, pair)
}

func (h *Handler) logout(c *gin.Context) {
	var req logoutRequest
	// body is optional; without a refresh token every session is revoked
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body")
			return
		}
	}

	if err := h.Auth.Logout(c.Request.Context(), sessionWorker(c), req.RefreshToken); err != nil {
		h.fail(c, err, "Failed to log out")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out"})
}

func (h *Handler) me(c *gin.Context) {
	worker, err := h.Auth.Me(c.Request.Context(), sessionWorker(c))
	if err != nil {
		h.fail(c, err, "Failed to fetch worker")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "worker": worker})
}

func (h *Handler) registerPushToken(c *gin.Context) {
	var req pushTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "token is required")
		return
	}

	if err := h.Notifications.RegisterPushToken(c.Request.Context(), sessionWorker(c), req.Token); err != nil {
		h.fail(c, err, "Failed to save push token")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Push token saved"})
}

func (h *Handler) sendTestPush(c *gin.Context) {
	var req testPushRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body")
			return
		}
	}

	sent, err := h.Notifications.SendTest(c.Request.Context(), sessionWorker(c), req.Title, req.Body)
	if err != nil {
		h.fail(c, err, "Failed to send notification")
		return
	}
	if !sent {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Notification was not delivered"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Notification sent"})
}
