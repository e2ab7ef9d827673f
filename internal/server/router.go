package server

import (
	"context"
	"net/http"
	"time"

	analytics_api "ms-gatepass/internal/analytics/api"
	"ms-gatepass/internal/logger"
	"ms-gatepass/internal/middleware"
	"ms-gatepass/internal/passes/pass_api"
	"ms-gatepass/internal/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Pinger reports whether the store is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Options struct {
	Logger         *logger.Logger
	Passes         *pass_api.Handler
	Analytics      *analytics_api.Handler
	Store          Pinger
	AllowedOrigins []string
	// Auth guards every /api route, nil leaves them open
	Auth func(http.Handler) http.Handler
}

// NewRouter wires the middleware stack and the /api and /healthz routes
func NewRouter(opts Options) chi.Router {
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(opts.Logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.NotFound(utils.NotFound)
	r.MethodNotAllowed(utils.MethodNotAllowed)

	r.Get("/healthz", healthHandler(opts.Store))

	r.Route("/api", func(r chi.Router) {
		if opts.Auth != nil {
			r.Use(opts.Auth)
		}
		if opts.Passes != nil {
			opts.Passes.RegisterRoutes(r)
		}
		if opts.Analytics != nil {
			opts.Analytics.RegisterRoutes(r)
		}
	})

	return r
}

func healthHandler(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := store.PingContext(ctx); err != nil {
				utils.WriteError(w, http.StatusServiceUnavailable, utils.CodeUnavailable, "database unreachable")
				return
			}
		}
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
