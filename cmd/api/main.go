package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tenderspro/backend/internal/config"
	"github.com/tenderspro/backend/internal/db"
	"github.com/tenderspro/backend/internal/feed"
	"github.com/tenderspro/backend/internal/handler"
	"github.com/tenderspro/backend/internal/imageproc"
	"github.com/tenderspro/backend/internal/mailer"
	"github.com/tenderspro/backend/internal/push"
	"github.com/tenderspro/backend/internal/repository"
	"github.com/tenderspro/backend/internal/scheduler"
	"github.com/tenderspro/backend/internal/service"
	"github.com/tenderspro/backend/internal/storage"
	"github.com/tenderspro/backend/internal/tendersource"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup structured logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close() }()

	if err := db.Migrate(database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repositories
	tenderRepo := repository.NewTenderRepository(database)
	alertRepo := repository.NewAlertRepository(database)
	notificationRepo := repository.NewNotificationRepository(database)
	subscriptionRepo := repository.NewSubscriptionRepository(database)
	profileRepo := repository.NewProfileRepository(database)
	pushRepo := repository.NewPushRepository(database)

	// Outbound clients
	sourceClient := tendersource.NewClient(cfg.Source)
	storageClient := storage.NewClient(cfg.Storage)
	mail := mailer.New(cfg.Mail)
	fcmSender := push.NewFCMSender(cfg.Push.FCMEndpoint, cfg.Push.FCMServerKey)
	webPushSender := push.NewWebPushSender(cfg.Push.VAPIDSubject, cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey)

	// Image pipeline
	fetcher := imageproc.NewFetcher(cfg.Image.ProxyURLs, cfg.Image.FetchTimeout, cfg.Source.StaticOrigin)
	remover := imageproc.NewRemover(cfg.Image.RemovalAPIURL, cfg.Image.RemovalAPIKey)
	processor := imageproc.NewProcessor(tenderRepo, fetcher, remover, storageClient,
		cfg.Image.WatermarkText, cfg.Source.StaticOrigin, logger)

	// Initialize services
	notificationService := service.NewNotificationService(
		notificationRepo, alertRepo, tenderRepo, profileRepo, pushRepo,
		mail, fcmSender, webPushSender, logger, cfg.FrontendURL)
	ingestService := service.NewIngestService(sourceClient, tenderRepo, notificationService, cfg.Source, logger)
	imageService := service.NewImageService(processor, cfg.Image.BatchSize, logger)
	alertService := service.NewAlertService(alertRepo)
	billingService := service.NewBillingService(cfg.Billing, cfg.FrontendURL,
		subscriptionRepo, profileRepo, alertRepo, logger)
	pushService := service.NewPushService(pushRepo, webPushSender)
	tenderService := service.NewTenderService(tenderRepo)

	// Initialize handlers
	scraperHandler := handler.NewScraperHandler(ingestService)
	imageHandler := handler.NewImageHandler(imageService)
	alertHandler := handler.NewAlertHandler(alertService)
	billingHandler := handler.NewBillingHandler(billingService)
	pushHandler := handler.NewPushHandler(pushService)
	tenderHandler := handler.NewTenderHandler(tenderService)

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	// CORS - allow frontend origin from env or default
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Public routes
	r.Get("/api/tenders", tenderHandler.List)
	r.Get("/api/tenders/{id}", tenderHandler.Get)
	r.Get("/api/push/vapid-public-key", pushHandler.VAPIDPublicKey)
	r.Post("/api/webhooks/payment", billingHandler.Webhook)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(handler.AuthMiddleware)

		// Alerts
		r.Get("/api/alerts", alertHandler.List)
		r.Post("/api/alerts", alertHandler.Create)
		r.Put("/api/alerts/{id}", alertHandler.Update)
		r.Delete("/api/alerts/{id}", alertHandler.Delete)

		// Ingestion control
		r.Post("/api/scraper/run", scraperHandler.Run)
		r.Post("/api/scraper/stop", scraperHandler.Stop)
		r.Get("/api/scraper/status", scraperHandler.Status)
		r.Post("/api/scraper/check", scraperHandler.Check)

		// Image pipeline
		r.Post("/api/images/process", imageHandler.Process)
		r.Post("/api/images/process-all", imageHandler.ProcessAll)
		r.Post("/api/images/watermark", imageHandler.Watermark)
		r.Post("/api/images/convert-png", imageHandler.ConvertPNG)
		r.Post("/api/images/reprocess", imageHandler.Reprocess)

		// Subscriptions
		r.Post("/api/subscriptions/checkout", billingHandler.Checkout)
		r.Post("/api/subscriptions/trial", billingHandler.Trial)
		r.Get("/api/subscriptions", billingHandler.Subscription)

		// Push registration
		r.Post("/api/push/register", pushHandler.RegisterToken)
		r.Delete("/api/push/unregister", pushHandler.UnregisterToken)
		r.Post("/api/push/web/subscribe", pushHandler.Subscribe)
		r.Delete("/api/push/web/unsubscribe", pushHandler.Unsubscribe)
	})

	// Notification feed - LISTEN/NOTIFY driven dispatch
	feedCtx, feedCancel := context.WithCancel(context.Background())
	defer feedCancel()
	listener := feed.NewListener(cfg.DatabaseURL, notificationService, logger)
	go func() {
		if err := listener.Run(feedCtx); err != nil && err != context.Canceled {
			logger.Error("Notification feed stopped", slog.String("error", err.Error()))
		}
	}()

	// Scheduler for the incremental check and the image batch
	schedCfg := scheduler.Config{
		CheckerSchedule: cfg.CheckerSchedule,
		ImageSchedule:   cfg.ImageSchedule,
		ImageBatchSize:  cfg.Image.BatchSize,
		Timeout:         cfg.JobTimeout,
		Enabled:         cfg.CheckerEnabled,
	}
	jobScheduler := scheduler.New(schedCfg, ingestService, imageService, logger)
	if err := jobScheduler.Start(); err != nil {
		logger.Error("Failed to start scheduler", slog.String("error", err.Error()))
	}

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	// Create server
	server := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down server...")

		feedCancel()

		// Stop scheduler first
		ctx := jobScheduler.Stop()
		<-ctx.Done()
		logger.Info("Scheduler stopped")

		// Shutdown HTTP server
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("Server shutdown error", slog.String("error", err.Error()))
		}
	}()

	log.Printf("Server starting on port %s", port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("Server failed: %v", err)
	}
}
