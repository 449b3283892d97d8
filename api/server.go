/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request, attached to handler log lines
  4. CORS:       Cross-origin requests from case-worker frontends

ROUTE GROUPS:
  /api/regler/*         Rule listing and version resolution
  /api/beregninger/*    Calculations
  /api/scenarier/*      Worked cases
  /metrics              Prometheus (when enabled)

SECURITY NOTE:
  No authentication middleware. The service is meant to run behind the
  platform's ingress, which authenticates callers.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures the parts of the router that vary per deployment.
type RouterOptions struct {
	AllowedOrigins []string

	// MetricsHandler is mounted at MetricsPath when not nil.
	MetricsHandler http.Handler
	MetricsPath    string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/regler", func(r chi.Router) {
			r.Get("/", h.ListRegler)
			r.Get("/{id}/versjon", h.GetVersjon)
			r.Get("/{id}/beregninger", h.ListBeregninger)
		})

		r.Route("/beregninger", func(r chi.Router) {
			r.Get("/{beregningID}", h.GetBeregning)
			r.Post("/{ytelse}/{id}", h.Beregn)
			r.Post("/{ytelse}/{id}/batch", h.BeregnBatch)
		})

		r.Route("/scenarier", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/{scenarioID}", h.RunScenario)
		})
	})

	if opts.MetricsHandler != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, opts.MetricsHandler)
	}

	return r
}
