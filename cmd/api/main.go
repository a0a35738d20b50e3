package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/ds0903/cosmetology-bot-backend/cmd/mainconfig"
	"github.com/ds0903/cosmetology-bot-backend/internal/api/router"
	"github.com/ds0903/cosmetology-bot-backend/internal/availability"
	"github.com/ds0903/cosmetology-bot-backend/internal/booking"
	appconfig "github.com/ds0903/cosmetology-bot-backend/internal/config"
	"github.com/ds0903/cosmetology-bot-backend/internal/feedsync"
	"github.com/ds0903/cosmetology-bot-backend/internal/http/handlers"
	"github.com/ds0903/cosmetology-bot-backend/internal/nlu"
	"github.com/ds0903/cosmetology-bot-backend/internal/observability/metrics"
	"github.com/ds0903/cosmetology-bot-backend/internal/projects"
	"github.com/ds0903/cosmetology-bot-backend/internal/reminders"
	"github.com/ds0903/cosmetology-bot-backend/internal/sheets"
	"github.com/ds0903/cosmetology-bot-backend/internal/transcripts"
	"github.com/ds0903/cosmetology-bot-backend/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking backend API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Relational store.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	repo := booking.NewRepository(pool)

	// Project configuration cache.
	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()
	projectStore := projects.NewStore(redisClient)

	// External availability ledger.
	sheetsOpts := []option.ClientOption{}
	if cfg.SheetsCredentialsFile != "" {
		sheetsOpts = append(sheetsOpts, option.WithCredentialsFile(cfg.SheetsCredentialsFile))
	}
	sheetsSvc, err := sheetsapi.NewService(ctx, sheetsOpts...)
	if err != nil {
		logger.Error("failed to create sheets service", "error", err)
		os.Exit(1)
	}
	feed := sheets.NewClient(sheetsSvc, cfg.SheetsSpreadsheetID, cfg.SheetsScheduleRange,
		cfg.SlotUnitMinutes, cfg.SheetsTimeout, logger)

	checker := availability.NewChecker(feed, repo, logger)

	// AWS side services.
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	reminderSink := reminders.NewSQSSink(sqs.NewFromConfig(awsCfg), cfg.ReminderQueueURL)
	transcriptExporter := transcripts.NewS3Exporter(s3.NewFromConfig(awsCfg), cfg.TranscriptBucket, logger.Logger)

	var resolver nlu.ServiceNameResolver = nlu.StaticResolver{}
	if cfg.BedrockModelID != "" {
		resolver = nlu.NewBedrockResolver(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID)
	}

	// Ledger sync retry loop.
	syncStore := feedsync.NewStore(pool)
	deliverer := feedsync.NewDeliverer(syncStore, feedsync.NewApplier(feed), logger).
		WithBatchSize(int32(cfg.SyncRetryBatchSize)).
		WithInterval(cfg.SyncRetryInterval)
	go deliverer.Start(ctx)

	// Metrics.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	bookingMetrics := metrics.NewBookingMetrics(registry)

	svc := booking.NewService(booking.ServiceDeps{
		Repo:        repo,
		Feedback:    repo,
		Checker:     checker,
		Feed:        feed,
		Reminders:   reminderSink,
		Transcripts: transcriptExporter,
		Resolver:    resolver,
		SyncQueue:   syncStore,
		Metrics:     bookingMetrics,
		Logger:      logger,
	})

	r := router.New(&router.Config{
		Logger:          logger,
		BookingActions:  handlers.NewBookingActionsHandler(svc, projectStore, logger),
		ClientBookings:  handlers.NewClientBookingsHandler(svc, logger),
		Feedback:        handlers.NewFeedbackHandler(svc, logger),
		AdminStats:      handlers.NewAdminStatsHandler(svc, logger),
		AdminAuthSecret: cfg.AdminJWTSecret,
		MetricsHandler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
