package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/focus-quest/internal/config"
	"github.com/benvon/focus-quest/internal/database"
	"github.com/benvon/focus-quest/internal/logger"
	"github.com/benvon/focus-quest/internal/queue"
	"github.com/benvon/focus-quest/internal/services/ai"
	"github.com/benvon/focus-quest/internal/telemetry"
	"github.com/benvon/focus-quest/internal/workers"
	"go.uber.org/zap"
)

const (
	serviceName             = "focus-quest-worker"
	rabbitMQConnectAttempts = 10
	// Tasks younger than this are still owned by their enrich job.
	backfillMinAge = 15 * time.Minute
	dlqInterval    = time.Hour
	dlqRetention   = 24 * time.Hour
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.New(cfg.DatabaseURL, serviceName, debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.String("ai_provider", cfg.AIProvider),
		zap.String("ai_model", cfg.AIModel),
	)
	if cfg.RabbitMQURL == "" {
		zapLogger.Fatal("rabbitmq_url_required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OTELEnabled && cfg.OTELEndpoint != "" {
		tp, err := telemetry.InitTracer(ctx, telemetry.Config{
			ServiceName: serviceName,
			Endpoint:    cfg.OTELEndpoint,
			Insecure:    cfg.OTELInsecure,
		})
		if err != nil {
			zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = telemetry.Shutdown(shutdownCtx, tp)
			}()
		}
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	taskRepo := database.NewTaskRepository(db)
	taskRepo.SetLogger(zapLogger)

	jobQueue, err := queue.Connect(ctx, cfg.RabbitMQURL, rabbitMQConnectAttempts, zapLogger.Named("queue"))
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	aiClient, err := ai.NewProviderClient(cfg.AIProvider, ai.ProviderConfig{
		APIKey:  cfg.OpenAIKey,
		BaseURL: cfg.AIBaseURL,
		Model:   cfg.AIModel,
		Timeout: cfg.AITimeout,
		Logger:  zapLogger.Named("ai"),
		Debug:   debugMode,
	})
	if err != nil {
		zapLogger.Fatal("unsupported_ai_provider", zap.String("provider", cfg.AIProvider), zap.Error(err))
	}
	if !aiClient.Enabled() {
		zapLogger.Warn("ai_disabled_jobs_keep_default_metadata")
	}

	enricher := workers.NewTaskEnricher(aiClient, taskRepo, jobQueue, zapLogger.Named("enricher"))
	backfill := workers.NewBackfill(taskRepo, jobQueue, backfillMinAge, zapLogger.Named("backfill"))
	gc := queue.NewGarbageCollector(jobQueue, dlqInterval, dlqRetention, zapLogger)

	for name, run := range map[string]func(context.Context) error{"backfill": backfill.Start, "dlq_gc": gc.Start} {
		go func() {
			if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zapLogger.Error("background_loop_stopped", zap.String("loop", name), zap.Error(err))
			}
		}()
	}

	msgChan, errChan, err := jobQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("failed_to_start_consuming", zap.Error(err))
	}
	zapLogger.Info("worker_started", zap.Int("prefetch", cfg.RabbitMQPrefetch))

	for {
		select {
		case <-ctx.Done():
			zapLogger.Info("worker_stopped")
			return
		case err, ok := <-errChan:
			if !ok {
				errChan = nil
				continue
			}
			zapLogger.Error("queue_error", zap.Error(err))
		case msg, ok := <-msgChan:
			if !ok {
				zapLogger.Info("message_channel_closed")
				return
			}
			if err := enricher.ProcessJob(ctx, msg); err != nil {
				zapLogger.Error("failed_to_process_job",
					zap.Error(err),
					zap.String("job_id", msg.GetJob().ID.String()),
					zap.String("job_type", string(msg.GetJob().Type)),
				)
			}
		}
	}
}
