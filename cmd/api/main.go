package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lifelink/donor-api/internal/config"
	"github.com/lifelink/donor-api/internal/email"
	auditHandler "github.com/lifelink/donor-api/internal/handler/audit"
	authHandler "github.com/lifelink/donor-api/internal/handler/auth"
	donorHandler "github.com/lifelink/donor-api/internal/handler/donor"
	emailqueueHandler "github.com/lifelink/donor-api/internal/handler/emailqueue"
	pageHandler "github.com/lifelink/donor-api/internal/handler/page"
	"github.com/lifelink/donor-api/internal/middleware"
	"github.com/lifelink/donor-api/internal/repository/postgres"
	"github.com/lifelink/donor-api/internal/router"
	auditService "github.com/lifelink/donor-api/internal/service/audit"
	authService "github.com/lifelink/donor-api/internal/service/auth"
	donorService "github.com/lifelink/donor-api/internal/service/donor"
	mailerService "github.com/lifelink/donor-api/internal/service/mailer"
	pageService "github.com/lifelink/donor-api/internal/service/page"
	jwtauth "github.com/lifelink/donor-api/pkg/auth"
	"github.com/lifelink/donor-api/pkg/logger"
	"github.com/lifelink/donor-api/pkg/metrics"
	"github.com/lifelink/donor-api/pkg/security"
	"github.com/lifelink/donor-api/pkg/validator"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		appLogger.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	if err := validator.RegisterCustom(); err != nil {
		appLogger.Fatal(err, "failed to register validators")
	}

	appMetrics := metrics.New("donor_api")

	// Repositories
	baseRepo := postgres.NewBaseRepository(db)
	queueRepo := postgres.NewEmailQueueRepository(baseRepo)
	donorRepo := postgres.NewDonorRepository(baseRepo)
	auditRepo := postgres.NewAuditRepository(baseRepo)
	pageRepo := postgres.NewPageRepository(baseRepo)
	adminRepo := postgres.NewAdminRepository(baseRepo)

	// Email delivery chain
	providers, err := email.BuildProviders(cfg.Email)
	if err != nil {
		appLogger.Fatal(err, "failed to build email providers")
	}
	deliveryRouter := email.NewRouter(providers, appLogger, appMetrics)

	// Services
	auditSvc := auditService.NewService(auditRepo)
	mailerSvc := mailerService.NewService(deliveryRouter, queueRepo, cfg.Email.RetryAttempts, appLogger)
	donorSvc := donorService.NewService(donorRepo, mailerSvc, auditSvc, appLogger)
	pageSvc := pageService.NewService(pageRepo, auditSvc)

	jwtSvc := jwtauth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	hasher := security.NewBcryptHasher(12)
	authSvc := authService.NewService(adminRepo, jwtSvc, hasher, auditSvc, mailerSvc)

	// Handlers
	authH := authHandler.NewHandler(authSvc)
	donorH := donorHandler.NewHandler(donorSvc)
	pageH := pageHandler.NewHandler(pageSvc)
	auditH := auditHandler.NewHandler(auditSvc)
	emailQueueH := emailqueueHandler.NewHandler(queueRepo)

	authMiddleware := middleware.NewAuthMiddleware(authSvc)

	r := router.NewRouter(authMiddleware, authH, donorH, pageH, auditH, emailQueueH)
	r.Setup(router.Config{
		RegistrationPerMinute: 10,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		appLogger.Info("starting API server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal(err, "server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	appLogger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(err, "graceful shutdown failed")
	}
}
