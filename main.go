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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"practice-server/internal/config"
	"practice-server/internal/events"
	"practice-server/internal/gateway"
	"practice-server/internal/handlers"
	"practice-server/internal/jobs"
	"practice-server/internal/middleware"
	"practice-server/internal/models"
	"practice-server/internal/mq"
	"practice-server/internal/notifier"
	"practice-server/internal/obs"
	"practice-server/internal/repository"
	"practice-server/internal/routes"
	"practice-server/internal/services"
)

func main() {
	// .env is optional; real deployments pass the environment directly
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, cfg.Tracing.Endpoint, cfg.Tracing.ServiceName, cfg.Environment)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	db, err := models.InitDB(models.DatabaseConfig{DSN: cfg.Database.DSN})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	appointmentRepo := repository.NewAppointmentRepository(db)
	serviceRepo := repository.NewServiceOfferingRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	webhookRepo := repository.NewWebhookEventRepository(db)
	trackingRepo := repository.NewTrackingRepository(db)
	transactor := repository.NewTransactor(db)

	gw := newGateway(cfg, logger)

	publisher, notif, closeMQ, err := newMessaging(cfg, logger)
	if err != nil {
		return err
	}
	defer closeMQ()

	confirmationService := services.NewConfirmationService(
		appointmentRepo, paymentRepo, serviceRepo, publisher, trackingRepo, notif, logger.Named("confirmation"),
	)
	paymentService := services.NewPaymentService(
		appointmentRepo, serviceRepo, paymentRepo, gw, cfg.Gateway.ReturnURL, logger.Named("payments"),
	)
	webhookService := services.NewWebhookService(
		transactor, webhookRepo, paymentRepo, confirmationService, logger.Named("webhooks"),
	)
	reconciler := services.NewReconciler(paymentRepo, confirmationService, logger.Named("reconciler"))

	scheduler, err := jobs.NewScheduler(jobs.Config{
		ReconcileInterval: cfg.Jobs.ReconcileInterval,
		PruneInterval:     cfg.Jobs.PruneInterval,
		Retention:         cfg.Webhook.Retention,
	}, reconciler, webhookService, logger.Named("jobs"))
	if err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			logger.Warn("scheduler shutdown", zap.Error(err))
		}
	}()

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(logger.Named("http")))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", handlers.IdempotencyKeyHeader}
	router.Use(cors.New(corsConfig))

	h := routes.Handlers{
		Payments:     handlers.NewPaymentHandler(paymentService, paymentRepo, logger),
		Webhooks:     handlers.NewWebhookHandler(webhookService, logger),
		Appointments: handlers.NewAppointmentHandler(appointmentRepo, confirmationService, logger),
	}
	if cfg.Gateway.Mode == config.GatewayModeSandbox {
		h.Sandbox = handlers.NewSandboxHandler(webhookService, logger)
	}
	routes.SetupRoutes(router, h, routes.Options{
		JWTSecret:     cfg.JWTSecret,
		WebhookSecret: cfg.Webhook.Secret,
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("gateway", cfg.Gateway.Mode),
		)
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

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newGateway(cfg *config.Config, logger *zap.Logger) gateway.Gateway {
	if cfg.Gateway.Mode == config.GatewayModeYooKassa {
		return gateway.NewYooKassaClient(gateway.ClientConfig{
			BaseURL:        cfg.Gateway.BaseURL,
			ShopID:         cfg.Gateway.ShopID,
			SecretKey:      cfg.Gateway.SecretKey,
			MaxRetries:     cfg.Gateway.MaxRetries,
			RequestTimeout: cfg.Gateway.Timeout,
		}, logger.Named("yookassa"))
	}
	logger.Warn("sandbox payment gateway active, no real payments are taken")
	return gateway.NewSandbox(cfg.AppURL, logger.Named("sandbox"))
}

// newMessaging connects the RabbitMQ publishers, or falls back to log-only
// implementations when no broker is configured
func newMessaging(cfg *config.Config, logger *zap.Logger) (services.EventPublisher, services.Notifier, func(), error) {
	if cfg.Messaging.RabbitURL == "" {
		logger.Info("RABBIT_URL not set, events and notifications are logged only")
		return events.NewLogPublisher(logger.Named("events")), notifier.NewConsole(logger.Named("notifier")), func() {}, nil
	}

	eventsPub, err := mq.NewPublisher(cfg.Messaging.RabbitURL, cfg.Messaging.EventsExchange)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("events publisher: %w", err)
	}
	notifyPub, err := mq.NewPublisher(cfg.Messaging.RabbitURL, cfg.Messaging.NotificationsExchange)
	if err != nil {
		_ = eventsPub.Close()
		return nil, nil, nil, fmt.Errorf("notifications publisher: %w", err)
	}

	closeAll := func() {
		if err := eventsPub.Close(); err != nil {
			logger.Warn("close events publisher", zap.Error(err))
		}
		if err := notifyPub.Close(); err != nil {
			logger.Warn("close notifications publisher", zap.Error(err))
		}
	}
	return events.NewMQPublisher(eventsPub), notifier.NewMQNotifier(notifyPub), closeAll, nil
}
