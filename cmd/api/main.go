package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/coursepass-api/api/swagger"
	"github.com/noah-isme/coursepass-api/internal/handler"
	"github.com/noah-isme/coursepass-api/internal/middleware"
	"github.com/noah-isme/coursepass-api/internal/repository"
	"github.com/noah-isme/coursepass-api/internal/service"
	"github.com/noah-isme/coursepass-api/pkg/cache"
	"github.com/noah-isme/coursepass-api/pkg/config"
	"github.com/noah-isme/coursepass-api/pkg/database"
	"github.com/noah-isme/coursepass-api/pkg/logger"
	"github.com/noah-isme/coursepass-api/pkg/mail"
	"github.com/noah-isme/coursepass-api/pkg/payment"
)

// @title CoursePass API
// @version 1.0.0
// @description Course enrollment, payment-gated student access and grade submission.
// @BasePath /
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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, "up"); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		logr.Info("database migrated")
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	tokens, err := service.NewTokenService(service.TokenConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	if err != nil {
		return err
	}

	validate := validator.New()
	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Grades.CacheTTL, logr, cacheRepo.Available())

	adminRepo := repository.NewAdminRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	gateway := payment.NewStripeGateway(cfg.Stripe)
	notifications := service.NewNotificationService(mail.New(cfg.Mail, logr), service.NotificationConfig{
		Workers: cfg.Mail.Workers,
		Retries: cfg.Mail.Retries,
	}, metrics, logr)

	studentSvc := service.NewStudentService(studentRepo, enrollmentRepo, gateway, tokens, notifications, auditRepo,
		metrics, validate, logr, service.StudentConfig{AccessValidity: cfg.Access.Validity})
	adminSvc := service.NewAdminService(adminRepo, studentSvc, tokens, auditRepo, metrics, validate, logr)
	gradeSvc := service.NewGradeService(gradeRepo, studentRepo, cacheSvc, auditRepo, metrics, validate, logr)
	paymentSvc := service.NewPaymentService(gateway, studentRepo, cacheSvc, notifications, auditRepo, metrics, logr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := adminSvc.EnsureSuperAdmin(ctx, cfg.SuperAdmin.Name, cfg.SuperAdmin.Password); err != nil {
		return fmt.Errorf("bootstrap superadmin: %w", err)
	}

	notifications.Start(context.Background())

	checks := map[string]handler.ReadinessCheck{
		"database": db.PingContext,
	}
	if cacheRepo.Available() {
		checks["redis"] = cacheRepo.Ping
	}

	router := handler.NewRouter(handler.RouterConfig{
		Env:            cfg.Env,
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logr,
		Metrics:        metrics,
		Tokens:         tokens,
		Policies:       middleware.DefaultPolicies(),
		Admins:         handler.NewAdminHandler(adminSvc),
		Students:       handler.NewStudentHandler(studentSvc),
		Grades:         handler.NewGradeHandler(gradeSvc),
		Payments:       handler.NewPaymentHandler(paymentSvc),
		Health:         handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown incomplete", zap.Error(err))
	}
	if err := notifications.Stop(shutdownCtx); err != nil {
		logr.Warn("mail queue not drained", zap.Error(err))
	}
	return nil
}
