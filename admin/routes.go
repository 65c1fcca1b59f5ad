package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/maxpert/sqlmap/telemetry"
	"github.com/rs/zerolog/log"
)

// NewRouter builds the admin API router
func NewRouter(handlers *AdminHandlers) chi.Router {
	r := chi.NewRouter()

	// Metrics stay unauthenticated for scrapers
	if metrics := telemetry.GetMetricsHandler(); metrics != nil {
		r.Handle("/metrics", metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware)

		r.Route("/sql/{id}", func(r chi.Router) {
			r.Get("/", handlers.handleResolve)
			r.Post("/build", handlers.handleBuild)
		})
		r.Get("/check", handlers.handleCheck)
		r.Post("/reload", handlers.handleReload)
	})

	return r
}

// RegisterRoutes mounts the admin API on mux
func RegisterRoutes(mux *http.ServeMux, handlers *AdminHandlers) {
	mux.Handle("/", NewRouter(handlers))
	log.Info().Msg("Admin endpoints enabled at /sql/{id}, /check, /reload, /metrics")
}
