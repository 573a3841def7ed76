package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"task-board-server/config"
	"task-board-server/database"
	"task-board-server/events"
	"task-board-server/jobs"
	"task-board-server/logger"
	"task-board-server/middleware"
	"task-board-server/repository"
	"task-board-server/routes"
	"task-board-server/services"
	ws "task-board-server/websocket"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using system environment variables")
	}

	config.Load()
	cfg := config.AppConfig

	log := logger.New(cfg.Server.Env)
	defer log.Sync()

	if len(os.Args) > 1 && os.Args[1] == "seed" {
		if err := seedWorkers(context.Background(), cfg, log); err != nil {
			log.Fatal("failed to seed workers", zap.Error(err))
		}
		return
	}

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	if err := database.Initialize(cfg.Database, log); err != nil {
		return err
	}
	defer database.Close()
	db := database.GetDB()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores
	taskRepo := repository.NewTaskRepository(db)
	workerRepo := repository.NewWorkerRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)

	// Outbound integrations
	sender, err := services.NewPushSender(cfg.Push, log.Named("push"))
	if err != nil {
		return err
	}
	publisher := newPublisher(cfg.RabbitMQ, log.Named("events"))
	defer publisher.Close()

	hub := ws.NewHub(log.Named("ws"))
	go hub.Run(ctx)

	// Services
	jwtService := services.NewJWTService(cfg.JWT, tokenRepo, log)
	authService := services.NewAuthService(workerRepo, jwtService, log)
	notificationService := services.NewNotificationService(workerRepo, notificationRepo, sender, cfg.Push, log.Named("push"))
	taskService := services.NewTaskService(taskRepo, workerRepo, notificationService, hub, publisher, log)
	assignmentService := services.NewAssignmentService(taskRepo, hub, publisher, cfg.Assignment.StrictWorkerMatch, log)
	proofService := services.NewProofService(taskRepo, services.NewCloudinaryUploader(cfg.Cloudinary, log), log)
	exportService := services.NewExportService(taskRepo, log)

	// Set Gin mode
	if cfg.Server.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false

	limiter := middleware.NewRateLimiter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestLogger(log.Named("http")))
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(middleware.InputValidationMiddleware())
	router.Use(middleware.RateLimitMiddleware(limiter, log))

	handler := &routes.Handler{
		Tasks:         taskService,
		Responder:     assignmentService,
		Auth:          authService,
		Notifications: notificationService,
		Proofs:        proofService,
		Exporter:      exportService,
		WebSocket:     ws.NewWorkerHandler(hub, cfg.Server.AllowedOrigins, log.Named("ws")),
		Hub:           hub,
		AdminKey:      cfg.Admin.APIKey,
		Log:           log,
	}
	handler.Register(router)

	if cfg.Admin.APIKey == "" {
		log.Warn("ADMIN_API_KEY not set, admin routes are disabled")
	}

	cleanup := jobs.NewCleanupJob(jwtService, limiter, jobs.DefaultCleanupInterval, log.Named("jobs"))
	cleanup.Start()
	defer cleanup.Stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("🚀 server starting", zap.String("port", cfg.Server.Port), zap.String("env", cfg.Server.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	log.Info("🛑 shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newPublisher connects to RabbitMQ when configured. Events are optional, so
// a missing or unreachable broker falls back to dropping them.
func newPublisher(cfg config.RabbitMQConfig, log *zap.Logger) events.Publisher {
	if cfg.URL == "" {
		log.Info("RABBITMQ_URL not set, task events disabled")
		return events.NoopPublisher{}
	}
	pub, err := events.NewAMQPPublisher(cfg.URL, cfg.Exchange, log)
	if err != nil {
		log.Warn("rabbitmq unavailable, task events disabled", zap.Error(err))
		return events.NoopPublisher{}
	}
	return pub
}
