package server

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hexacore/hexacore/internal/action"
	"github.com/hexacore/hexacore/internal/config"
	"github.com/hexacore/hexacore/internal/policy"
	"github.com/hexacore/hexacore/internal/resource"
	"github.com/hexacore/hexacore/internal/routing"
	"github.com/hexacore/hexacore/internal/stats"
	"github.com/hexacore/hexacore/modules/entity/domain/ports"
	"github.com/hexacore/hexacore/modules/entity/infrastructure/persistence"
	"github.com/hexacore/hexacore/modules/entity/services"
	"github.com/hexacore/hexacore/pkg/authz"
	"github.com/hexacore/hexacore/pkg/ratelimit"
)

// HandlerOptions lets tests and embedders swap any dependency. Nil
// fields get production defaults: a pgx pool when a database is
// configured, in-memory stores otherwise.
type HandlerOptions struct {
	Config           config.Config
	Store            ports.Store
	Registry         *resource.Registry
	Authorizer       *authz.Authorizer
	IdentityProvider identityProvider
	Logger           *zap.Logger
}

func NewHandler(cfg config.Config) (http.Handler, error) {
	return NewHandlerWithOptions(HandlerOptions{Config: cfg})
}

func NewHandlerWithOptions(opts HandlerOptions) (http.Handler, error) {
	cfg := opts.Config

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	store := opts.Store
	if store == nil {
		if cfg.Database.URL == "" {
			cfg.Database.URL = dbDSNFromEnv()
		}
		pool, err := pgxpool.New(context.Background(), cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		store = persistence.NewPGStore(pool)
	}

	registry := opts.Registry
	if registry == nil && cfg.Resources.Path != "" {
		r, err := resource.LoadRegistry(cfg.Resources.Path)
		if err != nil {
			return nil, err
		}
		registry = &r
	}

	authorizer := opts.Authorizer
	if authorizer == nil && cfg.Authz.ModelPath != "" {
		mode, err := authz.ParseMode(cfg.Authz.Mode)
		if err != nil {
			return nil, err
		}
		a, err := authz.NewAuthorizer(cfg.Authz.ModelPath, cfg.Authz.PolicyPath, mode)
		if err != nil {
			return nil, err
		}
		authorizer = a
	}

	provider := opts.IdentityProvider
	if provider == nil {
		provider = headerIdentityProvider{}
	}

	svc := services.NewService(store)
	ttl := time.Duration(cfg.Confirmation.TTLSeconds) * time.Second
	api := &resourceAPI{
		registry: registry,
		gateway:  policy.NewGateway(authorizer, log),
		resolver: stats.NewResolver(store),
		executor: action.NewExecutor(svc, action.NewConfirmationStore(ttl), log),
		svc:      svc,
		log:      log,
	}

	router := routing.NewRouter()
	router.Handle(routing.RouteClassOps, http.MethodGet, "/health", http.HandlerFunc(handleHealth))
	router.Handle(routing.RouteClassOps, http.MethodGet, "/healthz", http.HandlerFunc(handleHealth))
	router.Handle(routing.RouteClassPublicAPI, http.MethodGet, "/api/v1/org/{orgId}/resource/{resourceId}", http.HandlerFunc(api.handleGetResource))
	router.Handle(routing.RouteClassPublicAPI, http.MethodGet, "/api/v1/org/{orgId}/resource/{resourceId}/stats", http.HandlerFunc(api.handleGetStats))
	router.Handle(routing.RouteClassPublicAPI, http.MethodGet, "/api/v1/org/{orgId}/resource/{resourceId}/explain", http.HandlerFunc(api.handleExplain))
	router.Handle(routing.RouteClassPublicAPI, http.MethodPost, "/api/v1/org/{orgId}/resource/{resourceId}/action/{actionId}", http.HandlerFunc(api.handleAction))

	limiter := ratelimit.New(cfg.RateLimit.Limit, time.Duration(cfg.RateLimit.WindowSeconds)*time.Second)

	// Identity runs first so both the limiter key and the request log
	// can use it.
	var h http.Handler = router
	h = rateLimitMiddleware(limiter, h)
	h = telemetryMiddleware(log, h)
	h = identityMiddleware(provider, h)
	return h, nil
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	routing.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
