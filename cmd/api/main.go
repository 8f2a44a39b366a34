package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/healthbridge/HealthBridge/backend/internal/adapters/cache"
	"github.com/healthbridge/HealthBridge/backend/internal/adapters/database"
	"github.com/healthbridge/HealthBridge/backend/internal/adapters/events"
	"github.com/healthbridge/HealthBridge/backend/internal/api/handlers"
	"github.com/healthbridge/HealthBridge/backend/internal/api/routes"
	"github.com/healthbridge/HealthBridge/backend/internal/application/services"
	"github.com/healthbridge/HealthBridge/backend/internal/domain/providers"
	"github.com/healthbridge/HealthBridge/backend/internal/infrastructure/clients/openai"
	"github.com/healthbridge/HealthBridge/backend/internal/infrastructure/clients/postgres"
	"github.com/healthbridge/HealthBridge/backend/internal/infrastructure/clients/redis"
	"github.com/healthbridge/HealthBridge/backend/internal/infrastructure/notifications"
	"github.com/healthbridge/HealthBridge/backend/internal/infrastructure/observability"
	"github.com/healthbridge/HealthBridge/backend/internal/triage"
	"github.com/healthbridge/HealthBridge/backend/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)
	logger := observability.GetLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			logger.Info().Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	// Infrastructure clients
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()
	logger.Info().Msg("PostgreSQL client initialized")

	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize Redis client")
	}
	defer redisClient.Close()
	logger.Info().Msg("Redis client initialized")

	analysisClient, err := openai.NewClient(&cfg.Analysis)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize analysis client")
	}

	keywordTable, err := triage.LoadTable(cfg.Triage.KeywordTablePath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Triage.KeywordTablePath).Msg("Failed to load severity keyword table")
	}
	logger.Info().
		Int("version", keywordTable.Version).
		Int("keywords", len(keywordTable.Keywords)).
		Msg("Severity keyword table loaded")

	// Adapters
	conversationAdapter := database.NewConversationAdapter(pgClient)
	decisionAdapter := database.NewRoutingDecisionAdapter(pgClient)
	notificationAdapter := database.NewWorkerNotificationAdapter(pgClient)
	workerAdapter := database.NewWorkerAdapter(pgClient)
	facilityAdapter := database.NewFacilityAdapter(pgClient)
	dispatchGuard := cache.NewRedisDispatchGuard(redisClient)
	eventBus := events.NewRedisEventBus(redisClient)
	defer eventBus.Close()

	// Notification channel senders. SMS and voice are optional: an
	// unconfigured gateway just drops that channel from dispatch.
	senders := []providers.ChannelSender{
		notifications.NewInAppSender(eventBus),
	}
	if smsSender, err := notifications.NewSMSGatewaySender(&cfg.SMS); err != nil {
		logger.Warn().Err(err).Msg("SMS channel disabled")
	} else {
		senders = append(senders, smsSender)
	}
	if voiceSender, err := notifications.NewVoiceCallSender(&cfg.Voice); err != nil {
		logger.Warn().Err(err).Msg("Voice channel disabled")
	} else {
		senders = append(senders, voiceSender)
	}

	// Services
	severityService := services.NewSeverityService(keywordTable)
	routingService := services.NewRoutingService(facilityAdapter)
	dispatchService := services.NewDispatchService(
		notificationAdapter,
		workerAdapter,
		dispatchGuard,
		senders,
		cfg.Dispatch.QueueSize,
		metrics,
	)
	dispatchService.Start(cfg.Dispatch.Workers)
	defer dispatchService.Stop()

	triageService := services.NewTriageService(
		analysisClient,
		severityService,
		routingService,
		dispatchService,
		conversationAdapter,
		decisionAdapter,
		metrics,
	)

	// HTTP layer
	triageHandler := handlers.NewTriageHandler(triageService)
	notificationHandler := handlers.NewNotificationHandler(dispatchService)
	healthHandler := handlers.NewHealthHandler(pgClient, redisClient, cfg.Analysis.APIKey != "")

	router := routes.NewRouter(triageHandler, notificationHandler, healthHandler, metrics)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}
}
