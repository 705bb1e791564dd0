// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/propertyhub/internal/app/engine/assignment"
	"github.com/dalemusser/propertyhub/internal/app/engine/reconcile"
	adminfeature "github.com/dalemusser/propertyhub/internal/app/features/admin"
	analyticsfeature "github.com/dalemusser/propertyhub/internal/app/features/analytics"
	healthfeature "github.com/dalemusser/propertyhub/internal/app/features/health"
	loginfeature "github.com/dalemusser/propertyhub/internal/app/features/login"
	propertiesfeature "github.com/dalemusser/propertyhub/internal/app/features/properties"
	qualificationfeature "github.com/dalemusser/propertyhub/internal/app/features/qualification"
	tenanciesfeature "github.com/dalemusser/propertyhub/internal/app/features/tenancies"
	tenantsfeature "github.com/dalemusser/propertyhub/internal/app/features/tenants"
	"github.com/dalemusser/propertyhub/internal/app/notify"
	"github.com/dalemusser/propertyhub/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. PropertyHub wires the token manager, the
// websocket hub and its read-model notifier, the assignment engine, and the
// reconciliation service, then mounts a feature router per application area.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	authMgr, err := auth.NewManager(appCfg.AuthSecret, appCfg.AuthTokenTTL, logger)
	if err != nil {
		logger.Error("auth manager init failed", zap.Error(err))
		return nil, err
	}

	db := deps.PropertyHubMongoDatabase

	hub := notify.NewHub(logger)
	notifier := notify.NewReadModelNotifier(db, hub, logger)

	engine := assignment.New(
		deps.PropertyHubMongoClient,
		db,
		notifier,
		assignment.Policy{RequireQualification: appCfg.RequireQualification},
		logger,
	)
	reconciler := reconcile.New(db, logger)

	r := chi.NewRouter()

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.PropertyHubMongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Authentication
	loginHandler := loginfeature.NewHandler(db, authMgr, logger)
	r.Mount("/auth", loginfeature.Routes(loginHandler, authMgr))

	// Property and tenant records
	propertiesHandler := propertiesfeature.NewHandler(db, logger)
	r.Mount("/properties", propertiesfeature.Routes(propertiesHandler, authMgr))

	// Tenancy transitions (the assignment engine's HTTP surface)
	tenanciesHandler := tenanciesfeature.NewHandler(engine, logger)
	r.Mount("/tenancies", tenanciesfeature.Routes(tenanciesHandler, authMgr))

	// Tenant records, plus the tenant-shaped engine and qualification routes.
	// They hang off the tenants subrouter so the /tenants prefix has exactly
	// one owner.
	tenantsHandler := tenantsfeature.NewHandler(db, logger)
	qualificationHandler := qualificationfeature.NewHandler(db, logger)
	tenantsRouter := tenantsfeature.Routes(tenantsHandler, authMgr)
	tenantsRouter.Post("/{id}/force-unassign", tenanciesHandler.HandleForceUnassign)
	tenantsRouter.Get("/{id}/qualification", qualificationHandler.HandleCheck)
	r.Mount("/tenants", tenantsRouter)

	// Portfolio analytics: one-shot summary plus the websocket stream
	analyticsHandler := analyticsfeature.NewHandler(db, hub, logger)
	r.Mount("/analytics", analyticsfeature.Routes(analyticsHandler, authMgr))
	r.With(authMgr.RequireUser).Get("/ws/analytics", analyticsHandler.HandleStream)

	// Admin operations
	adminHandler := adminfeature.NewHandler(reconciler, logger)
	r.Mount("/admin", adminfeature.Routes(adminHandler, authMgr))

	return r, nil
}
