package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/benvon/focus-quest/internal/config"
	"github.com/benvon/focus-quest/internal/database"
	"github.com/benvon/focus-quest/internal/handlers"
	"github.com/benvon/focus-quest/internal/middleware"
	"github.com/benvon/focus-quest/internal/services/ai"
	"github.com/benvon/focus-quest/internal/services/gamification"
	"github.com/benvon/focus-quest/internal/services/oidc"
	"github.com/benvon/focus-quest/internal/services/plans"
	"github.com/benvon/focus-quest/internal/services/tasks"
	"github.com/benvon/focus-quest/internal/services/teams"
	"github.com/benvon/focus-quest/internal/session"
	"github.com/benvon/focus-quest/internal/telemetry"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const serviceName = "focus-quest-api"

// services are the domain services shared by the HTTP handlers.
type services struct {
	tasks  *tasks.Service
	plans  *plans.Service
	teams  *teams.Service
	engine *gamification.Engine
	ai     *ai.Client
	users  *database.UserRepository
}

// newServices wires repositories into services. jobQueue may be nil, in which case
// AI tasks are enriched inline.
func newServices(db *database.DB, flags session.FlagStore, aiClient *ai.Client, jobQueue tasks.Enqueuer, loc *time.Location, logger *zap.Logger) *services {
	taskRepo := database.NewTaskRepository(db)
	taskRepo.SetLogger(logger)
	planRepo := database.NewStudyPlanRepository(db)
	teamRepo := database.NewTeamRepository(db)
	userRepo := database.NewUserRepository(db)

	engine := gamification.NewEngine(
		database.NewProfileRepository(db),
		database.NewBadgeRepository(db),
		taskRepo,
		loc,
		logger.Named("gamification"),
	)

	var enricher tasks.Enricher
	if aiClient.Enabled() {
		enricher = aiClient
	}

	return &services{
		tasks: tasks.NewService(tasks.Deps{
			Tx:       db,
			Tasks:    taskRepo,
			Plans:    planRepo,
			Teams:    teamRepo,
			Gamifier: engine,
			Flags:    flags,
			Enricher: enricher,
			Queue:    jobQueue,
			Location: loc,
			Logger:   logger.Named("tasks"),
		}),
		plans:  plans.NewService(db, planRepo, taskRepo, aiClient, flags, loc, logger.Named("plans")),
		teams:  teams.NewService(db, teamRepo, userRepo, taskRepo, loc, logger.Named("teams")),
		engine: engine,
		ai:     aiClient,
		users:  userRepo,
	}
}

// routerDeps are everything newRouter mounts.
type routerDeps struct {
	cfg       *config.Config
	logger    *zap.Logger
	svc       *services
	health    *handlers.HealthChecker
	openapi   *handlers.OpenAPIHandler
	login     handlers.LoginConfigProvider
	verifier  middleware.TokenVerifier
	rateLimit func(http.Handler) http.Handler
	version   handlers.VersionInfo
	tracing   bool
}

// newRouter builds the HTTP surface. Router-level middleware runs outermost first.
func newRouter(d routerDeps) *mux.Router {
	r := mux.NewRouter()

	if d.tracing {
		r.Use(telemetry.Middleware(serviceName))
	}
	r.Use(middleware.SecurityHeaders(d.cfg.EnableHSTS))
	r.Use(middleware.CORS(d.cfg.FrontendURLs))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(middleware.DefaultRequestTimeout))
	r.Use(middleware.Recover(d.logger))
	r.Use(middleware.Audit(d.logger))
	r.Use(middleware.Logging(d.logger))

	r.HandleFunc("/healthz", d.health.HealthCheck).Methods("GET")
	r.HandleFunc("/version", handlers.Version(d.version)).Methods("GET")
	if d.openapi != nil {
		d.openapi.RegisterRoutes(r)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	authHandler := handlers.NewAuthHandler(d.login)

	// Public login, limited per client IP
	authRouter := api.PathPrefix("/auth").Subrouter()
	publicAuth := authRouter.NewRoute().Subrouter()
	publicAuth.Use(d.rateLimit)
	authHandler.RegisterPublicRoutes(publicAuth)

	// Everything else needs a bearer token and is limited per user
	authMW := middleware.Auth(d.verifier, d.svc.users, d.logger)
	protectedAuth := authRouter.NewRoute().Subrouter()
	protectedAuth.Use(authMW, d.rateLimit)
	authHandler.RegisterRoutes(protectedAuth)

	protected := api.NewRoute().Subrouter()
	protected.Use(authMW, d.rateLimit)
	handlers.NewTaskHandler(d.svc.tasks, d.logger).RegisterRoutes(protected)
	handlers.NewProfileHandler(d.svc.engine, d.svc.ai, d.logger).RegisterRoutes(protected)
	handlers.NewPlanHandler(d.svc.plans, d.logger).RegisterRoutes(protected)
	handlers.NewTeamHandler(d.svc.teams, d.logger).RegisterRoutes(protected)

	// Preflight requests need a matching route for the CORS middleware to run.
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}

// newVerifier returns the OIDC token verifier, or one that rejects every token when
// no issuer is configured.
func newVerifier(cfg config.OIDCConfig, httpClient *http.Client) (middleware.TokenVerifier, *oidc.Provider) {
	if !cfg.Enabled() {
		return rejectAll{}, nil
	}
	settings := oidc.Settings{
		Issuer:       cfg.Issuer,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
		JWKSURL:      cfg.JWKSURL,
	}
	jwks := oidc.NewJWKSManager(time.Hour, httpClient)
	return oidc.NewVerifier(jwks, settings), oidc.NewProvider(settings, httpClient)
}

type rejectAll struct{}

func (rejectAll) Verify(context.Context, string) (*oidc.Claims, error) {
	return nil, errors.New("oidc is not configured")
}
