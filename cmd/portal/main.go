package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/hostel-leave-api/api/swagger"
	"github.com/noah-isme/hostel-leave-api/internal/handler"
	"github.com/noah-isme/hostel-leave-api/internal/middleware"
	"github.com/noah-isme/hostel-leave-api/internal/models"
	"github.com/noah-isme/hostel-leave-api/internal/repository"
	"github.com/noah-isme/hostel-leave-api/internal/service"
	"github.com/noah-isme/hostel-leave-api/pkg/cache"
	"github.com/noah-isme/hostel-leave-api/pkg/config"
	"github.com/noah-isme/hostel-leave-api/pkg/database"
	"github.com/noah-isme/hostel-leave-api/pkg/export"
	"github.com/noah-isme/hostel-leave-api/pkg/jobs"
	"github.com/noah-isme/hostel-leave-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/hostel-leave-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/hostel-leave-api/pkg/middleware/requestid"
	"github.com/noah-isme/hostel-leave-api/pkg/storage"
)

// @title Hostel Leave API
// @version 1.0.0
// @description Role-based hostel leave request and out-pass service
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	exportStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	leaveRepo := repository.NewLeaveRepository(db)
	sessionRepo := repository.NewSessionRepository(redisClient)
	auditRepo := repository.NewAuditRepository(db)
	reportRepo := repository.NewReportRepository(db)

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, sessionRepo, auditRepo,
		&service.GoogleVerifier{ClientID: cfg.Google.ClientID},
		validate, logr, service.AuthConfig{
			SessionSecret: cfg.Session.Secret,
			SessionTTL:    cfg.Session.TTL,
			Issuer:        cfg.Session.Issuer,
			DevTokens:     cfg.Google.DevTokens,
		})
	leaveSvc := service.NewLeaveService(leaveRepo, userRepo, auditRepo, metricsSvc, validate, logr)
	rosterSvc := service.NewRosterService(userRepo, leaveRepo, logr)
	allowListSvc := service.NewAllowListService(userRepo, auditRepo, validate, logr)

	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	exportSvc := service.NewExportService(leaveRepo, exportStore, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Reports.SignedURLTTL,
	}, logr)

	worker := service.NewReportWorker(reportRepo, exportSvc, cfg.Reports.WorkerRetries, logr)
	queue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})

	reportSvc := service.NewReportService(reportRepo, queue, exportSvc, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
		MaxRetries:      cfg.Reports.WorkerRetries,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)
	defer queue.Stop()
	reportSvc.RecoverPendingJobs(ctx)
	reportSvc.StartCleanup(ctx)

	authHandler := handler.NewAuthHandler(authSvc)
	leaveHandler := handler.NewLeaveHandler(leaveSvc, export.NewSlipRenderer("Student Hostel Office", "Leave and out-pass desk"))
	rosterHandler := handler.NewRosterHandler(rosterSvc)
	allowListHandler := handler.NewAllowListHandler(allowListSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/verify", authHandler.Verify)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
			auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
		}

		authed := api.Group("", middleware.JWT(authSvc))
		{
			authed.POST("/requests", middleware.RequireRoles(models.RoleStudent), leaveHandler.Submit)
			authed.GET("/requests/my", middleware.RequireRoles(models.RoleStudent), leaveHandler.ListOwn)
			authed.GET("/requests/pending", middleware.RequireRoles(models.RoleAdmin), leaveHandler.ListPending)
			authed.POST("/requests/:id/approve", middleware.RequireRoles(models.RoleAdmin), leaveHandler.Approve)
			authed.POST("/requests/:id/reject", middleware.RequireRoles(models.RoleAdmin), leaveHandler.Reject)
			authed.GET("/requests/:id/slip", leaveHandler.GetSlip)
			authed.GET("/requests/:id/slip.pdf", leaveHandler.GetSlipPDF)

			authed.GET("/students/status", middleware.RequireRoles(models.RoleStaff, models.RoleAdmin), rosterHandler.Get)

			admin := authed.Group("", middleware.RequireRoles(models.RoleAdmin))
			{
				admin.POST("/allowlist", allowListHandler.Add)
				admin.GET("/allowlist", allowListHandler.List)
				admin.DELETE("/allowlist/:id", allowListHandler.Remove)
				admin.POST("/allowlist/import", allowListHandler.Import)

				admin.POST("/reports", reportHandler.Create)
				admin.GET("/reports/:id", reportHandler.Status)
			}
		}

		// Download tokens are self-authenticating; no session required.
		api.GET("/export/:token", reportHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
