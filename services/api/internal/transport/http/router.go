package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/estatehub/marketplace/services/api/internal/clock"
)

// ListingService is the listing read/write surface served under /v1/listings.
type ListingService interface {
	ListingCreator
	ListingGetter
	NearbyFinder
}

type RouterConfig struct {
	Listings  ListingService
	Status    ListingStatusService
	Expiry    ExpiryRunner
	Reviewers ReviewerChecker
	Clock     clock.Clock
	DB        Pinger

	JWTSecret   []byte
	CORSOrigins []string
	Logger      *zap.Logger

	// Optional Prometheus wiring.
	MetricsHandler    http.Handler
	MetricsMiddleware func(http.Handler) http.Handler
}

// NewRouter builds the full HTTP handler: CORS outermost, then request id,
// logging, panic recovery and metrics, then the routes.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(func(next http.Handler) http.Handler { return RequestLogger(next, cfg.Logger) })
	r.Use(middleware.Recoverer)
	if cfg.MetricsMiddleware != nil {
		r.Use(cfg.MetricsMiddleware)
	}

	r.NotFound(NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(MethodNotAllowedHandler().ServeHTTP)

	r.Get("/health", HandleHealth(cfg.DB))
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(Authenticate(cfg.JWTSecret))

		r.Route("/listings", func(r chi.Router) {
			r.Post("/", HandleCreateListing(cfg.Listings))
			r.Get("/nearby", HandleNearby(cfg.Listings))

			r.Route("/{listingID}", func(r chi.Router) {
				r.Get("/", HandleGetListing(cfg.Listings))
				r.Get("/status", HandleCurrentStatus(cfg.Status))
				r.Get("/history", HandleHistory(cfg.Status))
				r.Get("/transitions", HandleValidTransitions(cfg.Status))
				r.Post("/transitions", HandleRequestTransition(cfg.Status))
			})
		})

		r.Post("/admin/expire", HandleRunExpiry(cfg.Expiry, cfg.Reviewers, cfg.Clock))
	})

	return CORS(cfg.CORSOrigins, r)
}
