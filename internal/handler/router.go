package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/segyhp/repayment-engine/internal/metrics"
)

// RouterConfig collects what NewRouter mounts. Auth and Metrics may be nil.
type RouterConfig struct {
	Billing *BillingHandler
	Health  *HealthHandler
	Auth    *Authenticator
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// NewRouter serves health and metrics at the root and the API under /api/v1.
// Only the API is behind authentication. CORS wraps the router so preflight
// requests are answered before route matching.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := mux.NewRouter()
	r.Use(RecoverMiddleware(log), LoggingMiddleware(log, cfg.Metrics))

	if cfg.Health != nil {
		r.HandleFunc("/health", cfg.Health.Health).Methods(http.MethodGet)
		r.HandleFunc("/health/ready", cfg.Health.Ready).Methods(http.MethodGet)
	}
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	if cfg.Auth != nil {
		api.Use(cfg.Auth.Middleware)
	}
	cfg.Billing.RegisterRoutes(api)
	return CORSMiddleware(r)
}
