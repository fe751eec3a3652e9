// Package http assembles the REST API: routes, middleware and the server.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/IUPAC-InChI/RInChI/internal/config"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/logging"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/prometheus"
	"github.com/IUPAC-InChI/RInChI/internal/interfaces/http/handlers"
	"github.com/IUPAC-InChI/RInChI/internal/interfaces/http/middleware"
)

// RouterConfig holds the handlers to mount. Nil handlers leave their routes
// unregistered.
type RouterConfig struct {
	RInChIHandler   *handlers.RInChIHandler
	ReactionHandler *handlers.ReactionHandler
	JobHandler      *handlers.JobHandler
	HealthHandler   *handlers.HealthHandler

	Server config.ServerConfig
	// Limiter applies when Server.RateLimit is positive.
	Limiter middleware.Limiter

	Logger         logging.Logger
	Metrics        *prometheus.AppMetrics
	MetricsHandler http.Handler
	MetricsPath    string
}

var healthPaths = []string{"/healthz", "/readyz", "/metrics"}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins)))
	r.Use(middleware.RequestLogging(cfg.Logger.Named("http"), cfg.Metrics, middleware.DefaultLoggingConfig()))
	if cfg.Limiter != nil && cfg.Server.RateLimit > 0 {
		r.Use(middleware.RateLimit(cfg.Limiter, cfg.Server.RateLimitBurst, healthPaths))
	}

	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.APIKeyAuth(middleware.AuthConfig{Keys: cfg.Server.APIKeys}, cfg.Logger))

		registerRInChIRoutes(api, cfg.RInChIHandler)
		registerReactionRoutes(api, cfg.ReactionHandler)
		registerJobRoutes(api, cfg.JobHandler)
	})

	return r
}

func registerRInChIRoutes(r chi.Router, h *handlers.RInChIHandler) {
	if h == nil {
		return
	}
	r.Route("/rinchi", func(rr chi.Router) {
		rr.Post("/from-file", h.FromFile)
		rr.Post("/key-from-file", h.KeyFromFile)
		rr.Post("/to-file", h.ToFile)
		rr.Post("/decompose", h.Decompose)
		rr.Post("/from-inchis", h.FromInChIs)
		rr.Post("/key", h.Key)
		rr.Post("/keys", h.Keys)
	})
}

func registerReactionRoutes(r chi.Router, h *handlers.ReactionHandler) {
	if h == nil {
		return
	}
	r.Route("/reactions", func(rr chi.Router) {
		rr.Get("/", h.List)
		rr.Post("/", h.Register)
		rr.Get("/lookup", h.Lookup)
		rr.Get("/successors", h.Successors)

		rr.Route("/{id}", func(item chi.Router) {
			item.Get("/", h.Get)
			item.Delete("/", h.Delete)
		})
	})
	r.Route("/molecules/{inchikey}", func(mr chi.Router) {
		mr.Get("/reactions", h.ByComponent)
		mr.Get("/participations", h.Participations)
	})
}

func registerJobRoutes(r chi.Router, h *handlers.JobHandler) {
	if h == nil {
		return
	}
	r.Route("/jobs", func(jr chi.Router) {
		jr.Post("/", h.Submit)
		jr.Get("/{id}", h.Get)
		jr.Get("/{id}/result", h.Result)
	})
}
