// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"

	governanceapi "github.com/dalemusser/civic/internal/app/features/governance"
	healthfeature "github.com/dalemusser/civic/internal/app/features/health"
	"github.com/dalemusser/civic/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for the civic
// service.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed. The session cookie is issued by the identity
// front end that shares session_key; this service only reads it.
//
// Routes:
//   - /api/groups: the governance JSON API
//   - /health: liveness and database reachability
//   - /metrics: Prometheus exposition
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	if svc == nil {
		return nil, errors.New("BuildHandler called before Startup")
	}

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	return newRouter(svc, sessionMgr, deps, logger), nil
}

func newRouter(s *service, sessionMgr *auth.SessionManager, deps DBDeps, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	// Loads SessionUser into context if signed in; the governance routes
	// require it.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.CivicMongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	govHandler := governanceapi.NewHandler(s.engine, logger.Named("api"))
	govHandler.Limiter = s.limiter
	r.Mount("/api/groups", governanceapi.Routes(govHandler))

	return r
}
