package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/focus-quest/api"
	"github.com/benvon/focus-quest/internal/config"
	"github.com/benvon/focus-quest/internal/database"
	"github.com/benvon/focus-quest/internal/handlers"
	"github.com/benvon/focus-quest/internal/logger"
	"github.com/benvon/focus-quest/internal/middleware"
	"github.com/benvon/focus-quest/internal/queue"
	"github.com/benvon/focus-quest/internal/services/ai"
	"github.com/benvon/focus-quest/internal/session"
	"github.com/benvon/focus-quest/internal/services/tasks"
	"github.com/benvon/focus-quest/internal/telemetry"
	"github.com/redis/go-redis/v9"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// Set at build time with -ldflags "-X main.version=... -X main.commit=...".
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

const (
	rabbitMQConnectAttempts = 10
	rateLimitReloadInterval = time.Minute
	dlqInterval             = time.Hour
	dlqRetention            = 24 * time.Hour
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.New(cfg.DatabaseURL, serviceName, debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	zapLogger.Info("starting_server",
		zap.String("version", version),
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.Strings("frontend_urls", cfg.FrontendURLs),
		zap.String("ai_provider", cfg.AIProvider),
		zap.String("ai_model", cfg.AIModel),
		zap.String("timezone", cfg.Location.String()),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp := initTracing(ctx, cfg, zapLogger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
			zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
		}
	}()

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	if cfg.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			zapLogger.Fatal("failed_to_migrate_database", zap.Error(err))
		}
	}
	zapLogger.Info("connected_to_database", zap.String("dialect", string(db.Dialect())))

	// Redis backs session flags and the rate limiter when configured
	var redisClient *redis.Client
	var flags session.FlagStore = session.NewMemoryFlagStore(cfg.SessionFlagTTL)
	var redisFlags *session.RedisFlagStore
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("invalid_redis_url", zap.Error(err))
		}
		redisClient = redis.NewClient(opts)
		defer func() {
			if err := redisClient.Close(); err != nil {
				zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
			}
		}()
		redisFlags = session.NewRedisFlagStore(redisClient, cfg.SessionFlagTTL)
		flags = redisFlags
		zapLogger.Info("connected_to_redis")
	}

	// The queue is optional; without it AI tasks are enriched inline
	var jobQueue tasks.Enqueuer
	var rabbit *queue.RabbitMQQueue
	if cfg.RabbitMQURL != "" {
		rabbit, err = queue.Connect(ctx, cfg.RabbitMQURL, rabbitMQConnectAttempts, zapLogger.Named("queue"))
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries", zap.Error(err))
		}
		defer func() {
			if err := rabbit.Close(); err != nil {
				zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
			}
		}()
		jobQueue = rabbit
	}

	aiClient, err := ai.NewProviderClient(cfg.AIProvider, ai.ProviderConfig{
		APIKey:  cfg.OpenAIKey,
		BaseURL: cfg.AIBaseURL,
		Model:   cfg.AIModel,
		Timeout: cfg.AITimeout,
		Logger:  zapLogger.Named("ai"),
		Debug:   debugMode,
	})
	if err != nil {
		zapLogger.Warn("failed_to_create_ai_provider_ai_features_disabled", zap.Error(err))
		aiClient = ai.NewClient(nil, cfg.AITimeout, zapLogger)
	}

	svc := newServices(db, flags, aiClient, jobQueue, cfg.Location, zapLogger)

	limiterStore, err := middleware.NewLimiterStore(redisClient)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limit_store", zap.Error(err))
	}
	rateLimiter := middleware.NewRateLimitReloader(limiterStore, database.NewRatelimitConfigRepository(db), cfg.RateLimit, zapLogger, rateLimitReloadInterval)

	openAPIHandler, err := handlers.NewOpenAPIHandler(api.Docs, "openapi.yaml")
	if err != nil {
		zapLogger.Warn("openapi_document_unavailable", zap.Error(err))
	}

	verifier, provider := newVerifier(cfg.OIDC, nil)
	var login handlers.LoginConfigProvider
	if provider != nil {
		login = provider
	} else {
		zapLogger.Warn("oidc_not_configured_all_tokens_rejected")
	}

	checks := map[string]handlers.Checker{"database": db}
	if redisFlags != nil {
		checks["redis"] = redisFlags
	}
	if rabbit != nil {
		checks["queue"] = rabbit
	}

	router := newRouter(routerDeps{
		cfg:       cfg,
		logger:    zapLogger,
		svc:       svc,
		health:    handlers.NewHealthChecker(checks),
		openapi:   openAPIHandler,
		login:     login,
		verifier:  verifier,
		rateLimit: rateLimiter.Middleware(),
		version:   handlers.VersionInfo{Version: version, Commit: commit, BuildTime: buildTime},
		tracing:   tp != nil,
	})

	go rateLimiter.Start(ctx)
	if rabbit != nil {
		gc := queue.NewGarbageCollector(rabbit, dlqInterval, dlqRetention, zapLogger)
		go func() {
			if err := gc.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("server_shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}
	zapLogger.Info("server_exited")
}

func initTracing(ctx context.Context, cfg *config.Config, zapLogger *zap.Logger) *sdktrace.TracerProvider {
	if !cfg.OTELEnabled {
		return nil
	}
	if cfg.OTELEndpoint == "" {
		zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		return nil
	}
	tp, err := telemetry.InitTracer(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Endpoint:       cfg.OTELEndpoint,
		Insecure:       cfg.OTELInsecure,
	})
	if err != nil {
		zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		return nil
	}
	zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
	return tp
}
