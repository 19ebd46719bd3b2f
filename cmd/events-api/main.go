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

	_ "github.com/noah-isme/sma-events-api/api/swagger"
	"github.com/noah-isme/sma-events-api/internal/handler"
	"github.com/noah-isme/sma-events-api/internal/middleware"
	"github.com/noah-isme/sma-events-api/internal/repository"
	"github.com/noah-isme/sma-events-api/internal/service"
	"github.com/noah-isme/sma-events-api/pkg/config"
	"github.com/noah-isme/sma-events-api/pkg/database"
	"github.com/noah-isme/sma-events-api/pkg/export"
	"github.com/noah-isme/sma-events-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-events-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-events-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-events-api/pkg/storage"
)

// @title SMA Events API
// @version 1.0.0
// @description School event scheduling with blackout-window conflict checks
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	db, err := database.NewPostgres(context.Background(), cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database unavailable", "error", err, "host", cfg.Database.Host)
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			logr.Sugar().Fatalw("migration failed", "error", err)
		}
		logr.Info("database migrations applied")
	}

	files, err := storage.NewLocalStorage(cfg.Files.DownloadDir, cfg.Files.MaxUploadBytes)
	if err != nil {
		logr.Sugar().Fatalw("storage unavailable", "error", err, "dir", cfg.Files.DownloadDir)
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	eventRepo := repository.NewEventRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	participationRepo := repository.NewParticipationRepository(db)
	fileRepo := repository.NewFileRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	userRepo := repository.NewUserRepository(db)

	ids := service.NewIDAllocator(eventRepo, fileRepo, feedbackRepo)
	availability := service.NewAvailabilityService(availabilityRepo, eventRepo, cfg.Scheduling.BlackoutDays, logr)
	eventSvc := service.NewEventService(db, eventRepo, userRepo, participationRepo, fileRepo, feedbackRepo, availability, ids, validate, logr, metrics)
	assignmentSvc := service.NewAssignmentService(db, eventRepo, userRepo, participationRepo, availability, validate, logr, metrics)
	fileSvc := service.NewFileService(db, fileRepo, feedbackRepo, eventRepo, userRepo, participationRepo, ids, files, cfg.Files.MaxUploadBytes, validate, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(db, userRepo, validate, logr)
	exportSvc := service.NewExportService(eventRepo, participationRepo, export.NewCSVExporter(), export.NewPDFExporter(), logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(metrics))
	r.MaxMultipartMemory = cfg.Files.MaxUploadBytes

	metricsHandler := handler.NewMetricsHandler(metrics, db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Auth:        handler.NewAuthHandler(authSvc),
		Events:      handler.NewEventHandler(eventSvc, availability),
		Assignments: handler.NewAssignmentHandler(assignmentSvc),
		Files:       handler.NewFileHandler(fileSvc, cfg.Files.MaxUploadBytes),
		Users:       handler.NewUserHandler(userSvc),
		Export:      handler.NewExportHandler(exportSvc),
	}, middleware.JWT(authSvc))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "route not found"}})
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "blackout_days", cfg.Scheduling.BlackoutDays)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
