package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/gp-portal/gpms-api/api/swagger"
	"github.com/gp-portal/gpms-api/internal/handler"
	internalmiddleware "github.com/gp-portal/gpms-api/internal/middleware"
	"github.com/gp-portal/gpms-api/internal/models"
	"github.com/gp-portal/gpms-api/internal/repository"
	"github.com/gp-portal/gpms-api/internal/service"
	"github.com/gp-portal/gpms-api/pkg/cache"
	"github.com/gp-portal/gpms-api/pkg/config"
	"github.com/gp-portal/gpms-api/pkg/database"
	"github.com/gp-portal/gpms-api/pkg/export"
	"github.com/gp-portal/gpms-api/pkg/jobs"
	"github.com/gp-portal/gpms-api/pkg/logger"
	corsmiddleware "github.com/gp-portal/gpms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/gp-portal/gpms-api/pkg/middleware/requestid"
	"github.com/gp-portal/gpms-api/pkg/storage"
)

// @title GPMS API
// @version 1.0.0
// @description Graduation project management portal
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

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	periodRepo := repository.NewPeriodRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, true)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "gpms-api",
	})

	userSvc := service.NewUserService(userRepo, validate, logr)
	router := service.NewApprovalRouter()
	periodSvc := service.NewPeriodService(periodRepo, cacheRepo, userRepo, validate, cfg.Periods.CacheTTL, logr)
	requestSvc := service.NewRequestService(requestRepo, userRepo, periodSvc, router, validate, logr,
		service.WithRequestMetrics(metricsSvc))
	eligibilitySvc := service.NewEligibilityService(studentRepo, logr)
	projectSvc := service.NewProjectService(projectRepo, studentRepo, eligibilitySvc, periodSvc, userRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Requests: requestRepo,
		Projects: projectRepo,
		Periods:  periodSvc,
		Cache:    cacheSvc,
		Logger:   logr,
		Config:   service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})

	fileStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init report storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	exportSvc := service.NewExportService(requestRepo, projectRepo, fileStore, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Reports.SignedURLTTL,
	}, logr, export.NewCSVExporter(), export.NewPDFExporter())

	reportWorker := service.NewReportWorker(reportRepo, exportSvc, cfg.Reports.WorkerRetries, logr)
	reportQueue := jobs.NewQueue("reports", reportWorker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		RetryDelay: 5 * time.Second,
		Logger:     logr,
	})
	reportSvc := service.NewReportService(reportRepo, reportQueue, exportSvc, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if cfg.Reports.Enabled {
		reportQueue.Start(ctx)
		defer reportQueue.Stop()
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	requestHandler := handler.NewRequestHandler(requestSvc)
	periodHandler := handler.NewPeriodHandler(periodSvc)
	projectHandler := handler.NewProjectHandler(projectSvc)
	eligibilityHandler := handler.NewEligibilityHandler(eligibilitySvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	userHandler := handler.NewUserHandler(userSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", internalmiddleware.JWT(authSvc), authHandler.Logout)
	auth.POST("/change-password", internalmiddleware.JWT(authSvc), authHandler.ChangePassword)

	secured := api.Group("", internalmiddleware.JWT(authSvc))

	requests := secured.Group("/requests")
	requests.POST("", internalmiddleware.RequireRoles(models.RoleStudent), requestHandler.Create)
	requests.GET("", requestHandler.List)
	requests.GET("/queue/supervisor", internalmiddleware.RequireRoles(models.RoleSupervisor, models.RoleAdmin), requestHandler.SupervisorQueue)
	requests.GET("/queue/committee", internalmiddleware.RequireRoles(models.RoleCommittee, models.RoleAdmin), requestHandler.CommitteeQueue)
	requests.GET("/:id", requestHandler.Get)
	requests.DELETE("/:id", internalmiddleware.RequireRoles(models.RoleStudent), requestHandler.Withdraw)
	requests.POST("/:id/supervisor-approval", internalmiddleware.RequireRoles(models.RoleSupervisor), requestHandler.SupervisorApprove)
	requests.POST("/:id/supervisor-rejection", internalmiddleware.RequireRoles(models.RoleSupervisor), requestHandler.SupervisorReject)
	requests.POST("/:id/committee-approval", internalmiddleware.RequireRoles(models.RoleCommittee), requestHandler.CommitteeApprove)
	requests.POST("/:id/committee-rejection", internalmiddleware.RequireRoles(models.RoleCommittee), requestHandler.CommitteeReject)

	periods := secured.Group("/periods")
	periods.GET("/status", periodHandler.Status)
	periods.GET("", periodHandler.List)
	periods.GET("/:id", periodHandler.Get)
	periodAdmin := periods.Group("", internalmiddleware.RequireRoles(models.RoleCommittee, models.RoleAdmin))
	periodAdmin.POST("", periodHandler.Create)
	periodAdmin.PUT("/:id", periodHandler.Update)
	periodAdmin.DELETE("/:id", periodHandler.Delete)

	projects := secured.Group("/projects")
	projects.POST("/register", internalmiddleware.RequireRoles(models.RoleStudent), projectHandler.Register)
	projects.GET("", projectHandler.List)
	projects.GET("/:id", projectHandler.Get)

	users := secured.Group("/users", internalmiddleware.RequireRoles(models.RoleAdmin))
	users.GET("", userHandler.List)
	users.GET("/:id", userHandler.Get)
	users.POST("", userHandler.Create)

	secured.GET("/students/:id/eligibility",
		internalmiddleware.RBAC("SELF", string(models.RoleSupervisor), string(models.RoleCommittee), string(models.RoleAdmin)),
		eligibilityHandler.Check)

	if cfg.Dashboard.Enabled {
		secured.GET("/dashboard",
			internalmiddleware.RequireRoles(models.RoleCommittee, models.RoleAdmin),
			dashboardHandler.Summary)
	}

	if cfg.Reports.Enabled {
		reports := secured.Group("/reports")
		reports.POST("",
			internalmiddleware.RequireRoles(models.RoleCommittee, models.RoleAdmin),
			internalmiddleware.Audit(userRepo, "REPORT_REQUEST", "reports"),
			reportHandler.Create)
		reports.GET("/:id", reportHandler.Status)
		// Download is authenticated by the signed token itself.
		api.GET("/reports/download", reportHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
