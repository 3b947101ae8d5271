package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DatabaseURL      string
	AutoMigrate      bool
	ServerPort       string
	BaseURL          string
	FrontendURLs     []string
	OpenAIKey        string
	AIProvider       string
	AIModel          string
	AIBaseURL        string
	AITimeout        time.Duration
	EnableHSTS       bool
	OIDC             OIDCConfig
	RedisURL         string
	RateLimit        string
	RabbitMQURL      string
	RabbitMQPrefetch int
	Location         *time.Location
	SessionFlagTTL   time.Duration
	WorkerDebugMode  bool
	ServerDebugMode  bool
	OTELEnabled      bool
	OTELEndpoint     string
	OTELInsecure     bool
}

// OIDCConfig configures bearer token verification and the login redirect.
type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	JWKSURL      string
}

// Enabled reports whether an issuer is configured.
func (c OIDCConfig) Enabled() bool {
	return c.Issuer != ""
}

// Load loads configuration from a .env file, when present, and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	e := env{getenv: getenv}
	cfg := &Config{
		DatabaseURL:      e.get("DATABASE_URL", ""),
		AutoMigrate:      e.bool("AUTO_MIGRATE", true),
		ServerPort:       e.get("SERVER_PORT", "8080"),
		BaseURL:          e.get("BASE_URL", "http://localhost:8080"),
		FrontendURLs:     splitList(e.get("FRONTEND_URL", "http://localhost:3000")),
		OpenAIKey:        e.get("OPENAI_API_KEY", ""),
		AIProvider:       e.get("AI_PROVIDER", "openai"),
		AIModel:          e.get("AI_MODEL", "gpt-4o-mini"),
		AIBaseURL:        e.get("AI_BASE_URL", ""),
		EnableHSTS:       e.bool("ENABLE_HSTS", false),
		RedisURL:         e.get("REDIS_URL", ""),
		RateLimit:        e.get("RATE_LIMIT", "20-S"),
		RabbitMQURL:      e.get("RABBITMQ_URL", ""),
		RabbitMQPrefetch: e.int("RABBITMQ_PREFETCH", 1),
		WorkerDebugMode:  e.bool("WORKER_DEBUG_MODE", false),
		ServerDebugMode:  e.bool("SERVER_DEBUG_MODE", false),
		OTELEnabled:      e.bool("OTEL_ENABLED", false),
		OTELEndpoint:     e.get("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:     e.bool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OIDC: OIDCConfig{
			Issuer:       strings.TrimSuffix(e.get("OIDC_ISSUER", ""), "/"),
			ClientID:     e.get("OIDC_CLIENT_ID", ""),
			ClientSecret: e.get("OIDC_CLIENT_SECRET", ""),
			RedirectURI:  e.get("OIDC_REDIRECT_URI", ""),
			JWKSURL:      e.get("OIDC_JWKS_URL", ""),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.OIDC.JWKSURL == "" && cfg.OIDC.Issuer != "" {
		cfg.OIDC.JWKSURL = cfg.OIDC.Issuer + "/.well-known/jwks.json"
	}

	loc, err := time.LoadLocation(e.get("APP_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}
	cfg.Location = loc

	if cfg.AITimeout, err = e.duration("AI_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.SessionFlagTTL, err = e.duration("SESSION_FLAG_TTL", time.Hour); err != nil {
		return nil, err
	}

	return cfg, nil
}

type env struct {
	getenv func(string) string
}

func (e env) get(key, defaultValue string) string {
	if value := e.getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (e env) bool(key string, defaultValue bool) bool {
	if value := e.getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func (e env) int(key string, defaultValue int) int {
	if value := e.getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (e env) duration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := e.getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
