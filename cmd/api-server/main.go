package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/gradsmart-api/api/swagger"
	"github.com/noah-isme/gradsmart-api/internal/repository"
	"github.com/noah-isme/gradsmart-api/internal/service"
	"github.com/noah-isme/gradsmart-api/pkg/cache"
	"github.com/noah-isme/gradsmart-api/pkg/config"
	"github.com/noah-isme/gradsmart-api/pkg/database"
	"github.com/noah-isme/gradsmart-api/pkg/logger"
	"github.com/noah-isme/gradsmart-api/pkg/storage"
)

// @title GradSmart API
// @version 1.0.0
// @description Classroom classwork, submissions, grading and notifications.
// @BasePath /api
// @schemes http https
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.Migrations.AutoRun {
		if err := database.RunMigrations(db.DB, logr); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	caps, err := database.ProbeSchema(ctx, db, cfg.Features, logr)
	if err != nil {
		logr.Warn("schema probe failed, using feature flags only", zap.Error(err))
		caps = database.Capabilities{
			Classwork:     cfg.Features.Classwork,
			Submissions:   cfg.Features.Submissions,
			Gradebook:     cfg.Features.Gradebook,
			Instructors:   cfg.Features.Instructors,
			Notifications: cfg.Features.Notifications,
			AcademicYears: cfg.Features.AcademicYears,
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, continuing without cache and live notifications", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	store, err := storage.NewLocalStorage(cfg.Storage.AttachmentsDir)
	if err != nil {
		logr.Fatal("failed to prepare attachment storage", zap.Error(err))
	}
	yearStore, err := storage.NewLocalStorage(cfg.Storage.AcademicYearsDir)
	if err != nil {
		logr.Fatal("failed to prepare academic year storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)

	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	classRepo := repository.NewClassRepository(db)
	classworkRepo := repository.NewClassworkRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	gradebookRepo := repository.NewGradebookRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	academicYearRepo := repository.NewAcademicYearRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, "gradsmart")
	broker := repository.NewNotificationBroker(redisClient)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Gradebook.CacheTTL, logr, cfg.Gradebook.CacheEnabled && redisClient != nil)
	notificationSvc := service.NewNotificationService(notificationRepo, broker, caps, metrics, validate, logr, service.NotificationOptions{
		Enabled: cfg.Notifications.Enabled,
		Workers: cfg.Notifications.Workers,
		Retries: cfg.Notifications.Retries,
	})
	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()

	gradeSummarySvc := service.NewGradeSummaryService(classRepo, classworkRepo, submissionRepo, caps, logr)
	gradebookSvc := service.NewGradebookService(gradebookRepo, gradeSummarySvc, cacheSvc, cfg.Gradebook.CacheTTL, caps, logr)
	if err := gradebookSvc.ResetCache(ctx); err != nil {
		logr.Warn("stale gradebook cache entries kept", zap.Error(err))
	}

	services := routeServices{
		auth: service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
			AccessTokenSecret: cfg.JWT.Secret,
			AccessTokenExpiry: cfg.JWT.Expiration,
			Issuer:            cfg.JWT.Issuer,
		}),
		users:        service.NewUserService(userRepo, logr),
		classes:      service.NewClassService(classRepo, caps, notificationSvc, validate, logr),
		classwork:    service.NewClassworkService(classworkRepo, classRepo, caps, notificationSvc, validate, logr),
		gradeSummary: gradeSummarySvc,
		gradebook:    gradebookSvc,
		submissions: service.NewSubmissionService(submissionRepo, classworkRepo, store, signer, caps, notificationSvc, metrics, validate, logr, service.SubmissionOptions{
			MaxFiles:     cfg.Storage.MaxFilesPerSubmit,
			MaxFileSize:  cfg.Storage.MaxFileSizeBytes,
			FilesBaseURL: cfg.APIPrefix + "/files/submissions",
		}),
		notifications: notificationSvc,
		calendar:      service.NewCalendarService(classworkRepo, caps, cfg.Calendar.EventLimit, logr),
		metrics:       metrics,
		academicYears: service.NewAcademicYearService(academicYearRepo, userRepo, yearStore, signer, caps, validate, logr, service.AcademicYearOptions{
			MaxFileSize:  cfg.Storage.MaxFileSizeBytes,
			FilesBaseURL: cfg.APIPrefix + "/files/academic-years",
		}),
	}

	router := newRouter(cfg, logr, db, caps, services)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
