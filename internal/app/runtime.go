package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"recipe-planner/internal/clipper"
	"recipe-planner/internal/config"
	"recipe-planner/internal/database"
	"recipe-planner/internal/ghost"
	"recipe-planner/internal/llm"
	"recipe-planner/internal/metrics"
	"recipe-planner/internal/planner"
	"recipe-planner/internal/recipe"
	"recipe-planner/internal/storage"
)

// Runtime is a fully wired App together with the resources it owns.
type Runtime struct {
	App        *App
	DB         *database.DB
	Store      storage.Store
	Collectors *metrics.Collectors

	closers []func() error
}

// Bootstrap opens the database and record store, builds the configured
// text generator and wires the App. Close releases everything.
func Bootstrap(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Runtime, error) {
	rt := &Runtime{}

	slots, err := planner.NewSlotConfig(cfg.MealTypes)
	if err != nil {
		return nil, fmt.Errorf("invalid meal types: %w", err)
	}

	db, err := database.NewDB(cfg.DatabasePath, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	rt.DB = db
	rt.closers = append(rt.closers, db.Close)

	store, err := storage.NewFromConfig(ctx, cfg, db, log)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to initialize record store: %w", err)
	}
	rt.Store = store
	if c, ok := store.(io.Closer); ok {
		rt.closers = append(rt.closers, c.Close)
	}

	textGen, closer, err := llm.NewFromConfig(ctx, cfg)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to initialize text generator: %w", err)
	}
	rt.closers = append(rt.closers, closer.Close)
	if !cfg.AIEnabled() {
		log.Warn("AI provider disabled, generation requests will fail")
	}

	var gh ghost.Client
	if cfg.GhostURL != "" {
		gh = ghost.NewClient(cfg)
	}

	rt.Collectors = metrics.NewCollectors()
	recipeGen := recipe.NewGenerator(textGen)

	rt.App = New(Deps{
		Catalog:    recipe.NewCatalog(store, log),
		Plans:      planner.NewPlanStore(store, slots, log),
		RecipeGen:  recipeGen,
		PlanGen:    planner.NewGenerator(textGen, slots),
		Clipper:    clipper.NewClipper(recipeGen),
		Ghost:      gh,
		Usage:      metrics.NewStore(db),
		Collectors: rt.Collectors,
		AILimiter:  newAILimiter(cfg.AIRatePerMinute),
		Logger:     log,
	})
	return rt, nil
}

// Close releases resources in reverse order of acquisition.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

func newAILimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// Warm loads the catalog and the plan concurrently so seeding and legacy
// migration happen at startup rather than on the first request.
func (a *App) Warm(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		recipes, err := a.catalog.List(gctx)
		if err == nil {
			a.log.Info("catalog loaded", zap.Int("recipes", len(recipes)))
		}
		return err
	})
	g.Go(func() error {
		plan, err := a.plans.Load(gctx)
		if err == nil {
			a.log.Info("meal plan loaded", zap.Int("planned_meals", plan.CountMeals()))
			if a.collectors != nil {
				a.collectors.SetPlannedMeals(plan.CountMeals())
			}
		}
		return err
	})
	return g.Wait()
}
