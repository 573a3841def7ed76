package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WorkerHandler serves the worker realtime endpoint. The worker id is set on
// the gin context by the websocket auth middleware.
type WorkerHandler struct {
	hub      *Hub
	upgrader *websocket.Upgrader
	log      *zap.Logger
}

func NewWorkerHandler(hub *Hub, allowedOrigins []string, log *zap.Logger) *WorkerHandler {
	return &WorkerHandler{hub: hub, upgrader: NewUpgrader(allowedOrigins), log: log}
}

func (h *WorkerHandler) HandleWorker(c *gin.Context) {
	workerID := c.GetString("worker_id")
	if workerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := ServeWebSocket(h.hub, h.upgrader, c.Writer, c.Request, workerID); err != nil {
		h.log.Warn("worker websocket failed", zap.String("worker", workerID), zap.Error(err))
	}
}
