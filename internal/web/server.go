// Package web serves the JSON API, the plan change feed and the metrics
// endpoint.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"recipe-planner/internal/app"
	"recipe-planner/internal/config"
	"recipe-planner/internal/metrics"
)

// Server is the HTTP front of the application.
type Server struct {
	app        *app.App
	cfg        *config.Config
	log        *zap.Logger
	collectors *metrics.Collectors
	limiter    *rate.Limiter
	hub        *Hub
	router     *chi.Mux
	server     *http.Server

	unsubscribe func()
}

// NewServer builds the router and subscribes the change feed to the plan.
// A nil limiter uses the configured generation rate.
func NewServer(a *app.App, cfg *config.Config, collectors *metrics.Collectors, limiter *rate.Limiter, log *zap.Logger) *Server {
	if limiter == nil {
		limiter = NewGenerationLimiter(cfg.AIRatePerMinute)
	}
	s := &Server{
		app:        a,
		cfg:        cfg,
		log:        log,
		collectors: collectors,
		limiter:    limiter,
		hub:        NewHub(log),
	}
	s.unsubscribe = a.Subscribe(s.hub.Broadcast)
	s.router = s.setupRoutes()
	s.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(s.log, s.collectors))
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", s.handleHealth)
	if s.collectors != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.collectors.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/recipes", func(r chi.Router) {
			r.Get("/", s.handleListRecipes)
			r.Post("/", s.handleAddRecipe)
			r.Get("/stats", s.handleRecipeStats)
			r.Get("/export", s.handleExportRecipes)
			r.With(s.RateLimit(s.limiter)).Post("/generate", s.handleGenerateRecipe)
			r.With(s.RateLimit(s.limiter)).Post("/clip", s.handleClipRecipe)
			r.Get("/{id}", s.handleGetRecipe)
			r.Put("/{id}", s.handleUpdateRecipe)
			r.Delete("/{id}", s.handleDeleteRecipe)
		})

		r.Route("/plan", func(r chi.Router) {
			r.Get("/", s.handleGetPlan)
			r.Post("/move", s.handleMove)
			r.Delete("/slots/{day}/{mealType}", s.handleRemoveMeal)
			r.Post("/clear", s.handleClearPlan)
			r.Get("/stats", s.handlePlanStats)
			r.Get("/export", s.handleExportPlan)
			r.Get("/shopping-list", s.handleShoppingList)
			r.With(s.RateLimit(s.limiter)).Post("/generate", s.handleGeneratePlan)
			r.Get("/events", s.handlePlanEvents)
		})
	})

	return r
}

// Handle mounts an extra handler, such as the Telegram webhook.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.router.Handle(pattern, h)
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains the server and disconnects change-feed clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.unsubscribe()
	s.hub.Close()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.ok(w, map[string]any{
		"status": "healthy",
		"system": metrics.GetSysHealth(s.cfg.DatabasePath, s.cfg.StoragePath),
	})
}
