package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Lnando2k21/projetofinal/internal/domain"
	"github.com/Lnando2k21/projetofinal/internal/service"
	"github.com/Lnando2k21/projetofinal/pkg/health"
	"github.com/Lnando2k21/projetofinal/pkg/middleware"
)

// Services bundles the application services exposed over HTTP.
type Services struct {
	Catalog  *service.CatalogService
	Requests *service.RequestService
	Reviews  *service.ReviewService
	Users    *service.UserService
}

// RouterConfig holds the transport settings of the router.
type RouterConfig struct {
	ServiceName    string
	CORS           middleware.CORSConfig
	RateLimitRPS   float64
	RateLimitBurst int
	// PublicCacheMaxAge is the Cache-Control max-age of anonymous catalog
	// reads, in seconds. Zero disables the header.
	PublicCacheMaxAge int
	PprofAllowedCIDRs []string
}

// NewRouter creates a chi router with all marketplace routes registered.
func NewRouter(
	svcs Services,
	validate middleware.TokenValidator,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)

	catalogHandler := NewCatalogHandler(svcs.Catalog, logger)
	requestHandler := NewRequestHandler(svcs.Requests, logger)
	reviewHandler := NewReviewHandler(svcs.Reviews, logger)
	userHandler := NewUserHandler(svcs.Users, logger)

	authenticated := func(r chi.Router) {
		r.Use(middleware.Auth(validate))
		// Re-derive the request logger so it carries the actor.
		r.Use(middleware.RequestLogger(logger))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger))
		r.Use(ContentTypeJSON)

		// Public reads
		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(cfg.PublicCacheMaxAge))
			r.Get("/services", catalogHandler.ListServices)
			r.Get("/services/{id}", catalogHandler.GetService)
			r.Get("/services/{id}/reviews", reviewHandler.ListByService)
			r.Get("/reviews/{id}", reviewHandler.GetReview)
			r.Get("/users/{id}", userHandler.GetProfile)
		})

		r.Group(func(r chi.Router) {
			authenticated(r)

			r.With(middleware.RequireRole(domain.RoleProvider)).Post("/services", catalogHandler.CreateService)
			r.Put("/services/{id}", catalogHandler.UpdateService)
			r.Delete("/services/{id}", catalogHandler.DeleteService)

			r.Post("/requests", requestHandler.CreateRequest)
			r.Get("/requests/mine", requestHandler.ListMine)
			r.Get("/requests/received", requestHandler.ListReceived)
			r.Get("/requests/{id}", requestHandler.GetRequest)
			r.Put("/requests/{id}/accept", requestHandler.Transition(domain.ActionAccept))
			r.Put("/requests/{id}/reject", requestHandler.Transition(domain.ActionReject))
			r.Put("/requests/{id}/complete", requestHandler.Transition(domain.ActionComplete))
			r.Put("/requests/{id}/cancel", requestHandler.Transition(domain.ActionCancel))

			r.Post("/reviews", reviewHandler.CreateReview)
			r.Get("/reviews/mine", reviewHandler.ListMine)
			r.Put("/reviews/{id}", reviewHandler.UpdateReview)
			r.Delete("/reviews/{id}", reviewHandler.DeleteReview)
		})
	})

	return r
}
