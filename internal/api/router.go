package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/Meet-BS/form-scanner-poc/internal/analyzer"
	"github.com/Meet-BS/form-scanner-poc/internal/api/handlers"
	"github.com/Meet-BS/form-scanner-poc/internal/api/middleware"
	"github.com/Meet-BS/form-scanner-poc/internal/observability"
	"github.com/Meet-BS/form-scanner-poc/internal/scanner"
	"github.com/Meet-BS/form-scanner-poc/internal/testpages"
	"github.com/Meet-BS/form-scanner-poc/pkg/httputil"
)

// Router holds the HTTP router and its dependencies
type Router struct {
	chi.Router
	logger    *zap.Logger
	ratelimit *middleware.RateLimitMiddleware
}

// Close releases router-owned background resources, currently the rate
// limiter's eviction loop.
func (rt *Router) Close() {
	if rt.ratelimit != nil {
		rt.ratelimit.Stop()
	}
}

// RouterConfig contains configuration for the router
type RouterConfig struct {
	Aggregator *scanner.Aggregator
	Analyzer   *analyzer.Analyzer
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	EnableCORS bool
	Timeout    time.Duration

	// RateLimitRPM is the per-client request budget; 0 disables limiting.
	RateLimitRPM int
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	if cfg.Timeout == 0 {
		// Analysis requests hold two sequential model round trips.
		cfg.Timeout = 5 * time.Minute
	}

	// Base middleware stack
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware(cfg.Logger).Handler)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Handler)
	r.Use(cfg.Metrics.HTTPMiddleware)
	r.Use(chimw.Timeout(cfg.Timeout))

	var ratelimit *middleware.RateLimitMiddleware
	if cfg.RateLimitRPM > 0 {
		ratelimit = middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, 10)
		r.Use(ratelimit.Handler)
	}

	if cfg.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", healthHandler)
	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	// Synthetic form pages served by the harness
	r.Mount("/pages", http.StripPrefix("/pages", testpages.Handler()))

	// Analysis API
	scanHandler := handlers.NewScanHandler(cfg.Aggregator, cfg.Analyzer, cfg.Metrics, cfg.Logger)
	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", scanHandler.AnalyzeHTML)
		r.Post("/analyze-url", scanHandler.AnalyzeURL)
		r.Post("/generate-values", scanHandler.GenerateValues)
		r.Post("/fetch", scanHandler.FetchAggregate)
	})

	return &Router{
		Router:    r,
		logger:    cfg.Logger,
		ratelimit: ratelimit,
	}
}

// healthHandler returns basic health status
func healthHandler(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "form-scanner-api",
	})
}
