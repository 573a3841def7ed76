package routes

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"task-board-server/middleware"
	"task-board-server/models"
	"task-board-server/services"
	"task-board-server/websocket"
)

type TaskResponder interface {
	Respond(ctx context.Context, in services.RespondInput) (*models.Task, error)
}

type TaskManager interface {
	Create(ctx context.Context, in services.CreateTaskInput) (*models.Task, error)
	GetForWorker(ctx context.Context, id uint, workerID string) (*models.Task, error)
	ListForWorker(ctx context.Context, workerID string) ([]models.Task, error)
	ListAll(ctx context.Context) ([]models.Task, error)
	Assign(ctx context.Context, taskID uint, workerIDs []string) (*models.Task, []string, error)
	Cancel(ctx context.Context, taskID uint) (*models.Task, error)
}

type WorkerAuth interface {
	middleware.Authenticator
	Login(ctx context.Context, workerID, password string, device services.DeviceInfo) (*services.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, workerID, refreshToken string) error
	Me(ctx context.Context, workerID string) (*models.Worker, error)
}

type PushNotifier interface {
	RegisterPushToken(ctx context.Context, workerID, token string) error
	SendTest(ctx context.Context, workerID, title, body string) (bool, error)
}

type ProofUploader interface {
	UploadProof(ctx context.Context, taskID uint, workerID string, files []services.ProofFile) (*models.Task, error)
}

type TaskExporter interface {
	ExportTasks(ctx context.Context, w io.Writer) (int, error)
}

// Handler serves the task board API
type Handler struct {
	Tasks         TaskManager
	Responder     TaskResponder
	Auth          WorkerAuth
	Notifications PushNotifier
	Proofs        ProofUploader
	Exporter      TaskExporter
	WebSocket     *websocket.WorkerHandler
	Hub           *websocket.Hub

	AdminKey string
	Log      *zap.Logger
}

// Register registers all API routes
func (h *Handler) Register(router *gin.Engine) {
	router.GET("/health", h.health)

	api := router.Group("/api")
	auth := middleware.AuthMiddleware(h.Auth, h.Log)

	// Public
	api.POST("/worker/login", h.login)
	api.POST("/worker/refresh", h.refresh)
	api.POST("/tasks", h.createOrder)

	// Worker session
	worker := api.Group("/")
	worker.Use(auth)
	{
		worker.GET("/worker/me", h.me)
		worker.POST("/worker/logout", h.logout)
		worker.POST("/worker/push-token", h.registerPushToken)
		worker.POST("/send-push", h.sendTestPush)

		worker.GET("/tasks", h.listTasks)
		worker.GET("/tasks/:id", h.getTask)
		worker.PATCH("/tasks/respond", h.respond)
		worker.POST("/tasks/:id/proof", h.uploadProof)
	}

	if h.WebSocket != nil {
		api.GET("/ws/worker", middleware.WebSocketAuthMiddleware(h.Auth, h.Log), h.WebSocket.HandleWorker)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AdminKeyMiddleware(h.AdminKey))
	{
		admin.GET("/tasks", h.adminListTasks)
		admin.POST("/tasks", h.adminCreateTask)
		admin.POST("/tasks/:id/assign", h.adminAssign)
		admin.POST("/tasks/:id/cancel", h.adminCancel)
		admin.GET("/tasks/export", h.adminExport)
	}
}

func (h *Handler) health(c *gin.Context) {
	resp := gin.H{"status": "ok", "time": time.Now().UTC()}
	if h.Hub != nil {
		resp["websocket_workers"] = len(h.Hub.ConnectedWorkers())
	}
	c.JSON(http.StatusOK, resp)
}

// classify maps service errors to a status and a client-facing message.
// Unknown errors are logged and reported with the fallback message.
func (h *Handler) classify(c *gin.Context, err error, fallback string) (int, string) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		return http.StatusNotFound, "Task not found"
	case errors.Is(err, services.ErrWorkerNotFound):
		return http.StatusNotFound, "Worker not found"
	case errors.Is(err, services.ErrWorkerNotAssigned):
		return http.StatusForbidden, "Worker not assigned to this task"
	case errors.Is(err, services.ErrNotAccepted):
		return http.StatusForbidden, "Only the worker who accepted the task can do this"
	case errors.Is(err, services.ErrTaskAlreadyResolved):
		return http.StatusConflict, "Task has already been resolved"
	case errors.Is(err, services.ErrTaskCanceled):
		return http.StatusConflict, "Task has been canceled"
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, services.ErrInvalidToken):
		return http.StatusUnauthorized, "Invalid or expired token"
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	}

	h.Log.Error(fallback,
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", middleware.RequestID(c)),
		zap.Error(err),
	)
	return http.StatusInternalServerError, fallback
}

func (h *Handler) fail(c *gin.Context, err error, fallback string) {
	status, msg := h.classify(c, err, fallback)
	c.JSON(status, gin.H{"success": false, "message": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": msg})
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		badRequest(c, "Invalid task ID")
		return 0, false
	}
	return uint(id), true
}

func sessionWorker(c *gin.Context) string {
	return c.GetString(middleware.ContextWorkerID)
}
