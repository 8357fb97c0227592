// @title MeetSync API
// @version 1.0
// @description Events, invitations, profiles and subscriptions for MeetSync.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"meetsync/config"
	"meetsync/internal/adapters/auth"
	"meetsync/internal/adapters/email"
	"meetsync/internal/adapters/payments"
	deliveryhttp "meetsync/internal/delivery/http"
	"meetsync/internal/delivery/http/controllers"
	"meetsync/internal/delivery/http/middleware"
	"meetsync/internal/realtime"
	"meetsync/internal/repository/postgres"
	"meetsync/internal/services"
	"meetsync/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := config.NewLogger()
	if err := run(logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		return err
	}
	defer db.Close()

	startupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(startupCtx); err != nil {
		return err
	}
	if err := migrations.Apply(startupCtx, db); err != nil {
		return err
	}

	// Adapters
	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:             cfg.Email.AWSRegion,
			AccessKeyID:        cfg.Email.AWSAccessKeyID,
			SecretAccessKey:    cfg.Email.AWSSecretAccessKey,
			InsecureSkipVerify: cfg.Email.SESInsecureSkipVerify,
		},
	}, logger)
	if err != nil {
		return err
	}
	verifier := auth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTAudience)
	broker := realtime.NewBroker()

	// Repositories
	eventRepo := postgres.NewEventRepository(db)
	invitationRepo := postgres.NewInvitationRepository(db)
	profileRepo := postgres.NewProfileRepository(db)

	// Services
	emailSvc := services.NewEmailService(mailer, email.NewTemplateRenderer(), logger)
	eventSvc := services.NewEventService(eventRepo, cfg.RequestTimeout)
	invitationSvc := services.NewInvitationService(eventRepo, invitationRepo, profileRepo, emailSvc, broker, cfg.SiteURL, logger, cfg.RequestTimeout)
	profileSvc := services.NewProfileService(profileRepo, cfg.RequestTimeout)
	trophySvc := services.NewTrophyService(eventRepo, invitationRepo, cfg.RequestTimeout)
	billingSvc := services.NewBillingService(
		payments.NewWebhookVerifier(cfg.StripeWebhookSecret),
		payments.NewStripeProvider(cfg.StripeSecretKey, nil),
		profileRepo,
		cfg.Catalog,
		cfg.SiteURL,
		logger,
		cfg.RequestTimeout,
	)

	origins := middleware.NewOriginSet(cfg.CORSOrigins)
	mux := deliveryhttp.NewRouter(deliveryhttp.Controllers{
		Events:        controllers.NewEventController(logger, eventSvc),
		Invitations:   controllers.NewInvitationController(logger, invitationSvc),
		Profiles:      controllers.NewProfileController(logger, profileSvc, trophySvc),
		Notifications: controllers.NewNotificationController(logger, emailSvc, eventSvc, cfg.SiteURL),
		Billing:       controllers.NewBillingController(logger, billingSvc),
		Realtime:      controllers.NewRealtimeController(logger, invitationSvc, origins),
	}, deliveryhttp.RouterConfig{
		Verifier:           verifier,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	handler := middleware.LoggingMiddleware(logger, middleware.CORS(origins, mux))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RealtimeListen {
		listener := realtime.NewPGListener(cfg.DBUrl, broker, logger)
		go func() {
			if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("realtime listener stopped", "err", err)
			}
		}()
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		logger.Info("api listening", "port", cfg.Port, "env", cfg.Environment)
		srvErr <- server.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("server stopped")
	return nil
}
