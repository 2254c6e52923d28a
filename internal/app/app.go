// Package app is the application service shared by the HTTP server, the
// Telegram bot and the CLI. It owns the catalog, the plan store and the
// generators, and applies every user operation to them.
package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"recipe-planner/internal/apperr"
	"recipe-planner/internal/clipper"
	"recipe-planner/internal/ghost"
	"recipe-planner/internal/metrics"
	"recipe-planner/internal/planner"
	"recipe-planner/internal/recipe"
	"recipe-planner/internal/shared"
)

// UsageStore persists generator token usage.
type UsageStore interface {
	RecordMeta(ctx context.Context, meta shared.AgentMeta) error
	GetDailyUsage(ctx context.Context, days int) ([]metrics.DailyUsage, error)
	Cleanup(ctx context.Context, olderThanDays int) (int64, error)
}

// Deps are the collaborators of App. Ghost, Usage and Collectors are optional.
type Deps struct {
	Catalog    *recipe.Catalog
	Plans      *planner.PlanStore
	RecipeGen  *recipe.Generator
	PlanGen    *planner.Generator
	Clipper    *clipper.Clipper
	Ghost      ghost.Client
	Usage      UsageStore
	Collectors *metrics.Collectors
	// AILimiter paces bulk generation such as the Ghost import.
	AILimiter *rate.Limiter
	Logger    *zap.Logger
}

// App holds the application's dependencies.
type App struct {
	catalog    *recipe.Catalog
	plans      *planner.PlanStore
	recipeGen  *recipe.Generator
	planGen    *planner.Generator
	clipper    *clipper.Clipper
	ghost      ghost.Client
	usage      UsageStore
	collectors *metrics.Collectors
	limiter    *rate.Limiter
	log        *zap.Logger

	// planMu serializes load-modify-save cycles on the plan.
	planMu sync.Mutex

	recipeGuard InFlightGuard
	planGuard   InFlightGuard

	now func() time.Time
}

// New creates the application service.
func New(deps Deps) *App {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	limiter := deps.AILimiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}

	a := &App{
		catalog:    deps.Catalog,
		plans:      deps.Plans,
		recipeGen:  deps.RecipeGen,
		planGen:    deps.PlanGen,
		clipper:    deps.Clipper,
		ghost:      deps.Ghost,
		usage:      deps.Usage,
		collectors: deps.Collectors,
		limiter:    limiter,
		log:        log,
		now:        time.Now,
	}
	if a.collectors != nil {
		a.plans.Subscribe(func(p planner.WeeklyPlan) {
			a.collectors.SetPlannedMeals(p.CountMeals())
		})
	}
	return a
}

// Subscribe forwards to the plan store's change notification.
func (a *App) Subscribe(fn planner.Listener) (unsubscribe func()) {
	return a.plans.Subscribe(fn)
}

// SlotConfig returns the configured meal slots.
func (a *App) SlotConfig() planner.SlotConfig {
	return a.plans.Config()
}

// --- Catalog ---

// ListRecipes returns the catalog, filtered by query when it is not empty.
func (a *App) ListRecipes(ctx context.Context, query string) ([]recipe.Recipe, error) {
	return a.catalog.Search(ctx, query)
}

func (a *App) GetRecipe(ctx context.Context, id string) (recipe.Recipe, error) {
	return a.catalog.Get(ctx, id)
}

func (a *App) AddRecipe(ctx context.Context, in recipe.Input) (recipe.Recipe, error) {
	return a.catalog.Add(ctx, in)
}

// UpdateRecipe edits a recipe. Meals already planned keep their snapshot.
func (a *App) UpdateRecipe(ctx context.Context, id string, in recipe.Input) (recipe.Recipe, error) {
	return a.catalog.Update(ctx, id, in)
}

func (a *App) DeleteRecipe(ctx context.Context, id string) error {
	return a.catalog.Delete(ctx, id)
}

func (a *App) RecipeStats(ctx context.Context) (recipe.Stats, error) {
	return a.catalog.Stats(ctx)
}

// --- Plan ---

// DragRef is the wire form of a drag source: {"kind":"catalog","recipeId":...}
// or {"kind":"slot","day":...,"mealType":...}.
type DragRef struct {
	Kind     string           `json:"kind"`
	RecipeID string           `json:"recipeId,omitempty"`
	Day      planner.Day      `json:"day,omitempty"`
	MealType planner.MealType `json:"mealType,omitempty"`
}

// MoveRequest is one drag-and-drop gesture. A nil Target means the drop
// landed outside any slot.
type MoveRequest struct {
	Source DragRef          `json:"source"`
	Target *planner.SlotKey `json:"target"`
}

// Plan returns the current plan.
func (a *App) Plan(ctx context.Context) (planner.WeeklyPlan, error) {
	return a.plans.Load(ctx)
}

// PlanStats returns diagnostics about the stored plan.
func (a *App) PlanStats(ctx context.Context) (planner.PlanStats, error) {
	return a.plans.Stats(ctx)
}

// MovePlan applies a gesture and saves the result. Gestures that resolve to
// nothing return the current plan and an outcome carrying the reason.
func (a *App) MovePlan(ctx context.Context, req MoveRequest) (planner.WeeklyPlan, planner.MoveOutcome, error) {
	a.planMu.Lock()
	defer a.planMu.Unlock()

	plan, err := a.plans.Load(ctx)
	if err != nil {
		return planner.WeeklyPlan{}, planner.MoveOutcome{}, err
	}

	source, err := a.resolveSource(ctx, req.Source)
	if err != nil {
		return planner.WeeklyPlan{}, planner.MoveOutcome{}, err
	}

	next, outcome := planner.ApplyMove(plan, source, req.Target)
	if !outcome.Applied {
		a.log.Debug("drop ignored", zap.String("reason", string(outcome.Reason)))
		a.observeMutation("move", "noop")
		return next, outcome, nil
	}

	if err := a.plans.Save(ctx, next); err != nil {
		a.observeMutation("move", "failed")
		return planner.WeeklyPlan{}, planner.MoveOutcome{}, err
	}
	a.observeMutation("move", "applied")
	return next, outcome, nil
}

// resolveSource turns a wire reference into a drag source. References that
// cannot be resolved (unknown kind, deleted recipe) yield nil, which the
// engine treats as a no-op.
func (a *App) resolveSource(ctx context.Context, ref DragRef) (planner.DragSource, error) {
	switch strings.ToLower(ref.Kind) {
	case "catalog":
		r, err := a.catalog.Get(ctx, ref.RecipeID)
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return planner.FromCatalog{Recipe: r}, nil
	case "slot":
		return planner.FromSlot{Slot: planner.SlotKey{Day: ref.Day, MealType: ref.MealType}}, nil
	default:
		return nil, nil
	}
}

// RemoveMeal empties a slot. Removing an empty slot changes nothing and is
// not saved.
func (a *App) RemoveMeal(ctx context.Context, slot planner.SlotKey) (planner.WeeklyPlan, error) {
	a.planMu.Lock()
	defer a.planMu.Unlock()

	plan, err := a.plans.Load(ctx)
	if err != nil {
		return planner.WeeklyPlan{}, err
	}
	if plan.Meal(slot) == nil {
		a.observeMutation("remove", "noop")
		return plan, nil
	}

	next := planner.RemoveMeal(plan, slot)
	if err := a.plans.Save(ctx, next); err != nil {
		a.observeMutation("remove", "failed")
		return planner.WeeklyPlan{}, err
	}
	a.observeMutation("remove", "applied")
	return next, nil
}

// ClearPlan resets the plan to empty.
func (a *App) ClearPlan(ctx context.Context) (planner.WeeklyPlan, error) {
	a.planMu.Lock()
	defer a.planMu.Unlock()

	plan, err := a.plans.Clear(ctx)
	if err != nil {
		a.observeMutation("clear", "failed")
		return planner.WeeklyPlan{}, err
	}
	a.observeMutation("clear", "applied")
	return plan, nil
}

// --- Generation ---

// GeneratePlan asks the model for a plan, resolves it against the catalog
// and replaces the stored plan. Only one plan generation runs at a time.
// If ctx ends before the model answers, nothing is applied.
func (a *App) GeneratePlan(ctx context.Context, description string) (planner.WeeklyPlan, error) {
	release, ok := a.planGuard.TryAcquire()
	if !ok {
		return planner.WeeklyPlan{}, apperr.ErrGenerationInFlight
	}
	defer release()

	recipes, err := a.catalog.List(ctx)
	if err != nil {
		return planner.WeeklyPlan{}, err
	}

	start := time.Now()
	generated, meta, err := a.planGen.GeneratePlan(ctx, description, planner.CatalogEntries(recipes))
	a.recordGeneration(ctx, "MealPlanner", meta, start, err)
	if err != nil {
		return planner.WeeklyPlan{}, err
	}
	if err := ctx.Err(); err != nil {
		a.log.Info("discarding generated plan, request ended", zap.Error(err))
		return planner.WeeklyPlan{}, err
	}

	plan := planner.ResolveGenerated(generated, recipes, a.plans.Config())

	a.planMu.Lock()
	defer a.planMu.Unlock()
	if err := a.plans.Save(ctx, plan); err != nil {
		a.observeMutation("generate", "failed")
		return planner.WeeklyPlan{}, err
	}
	a.observeMutation("generate", "applied")
	a.log.Info("generated meal plan", zap.Int("planned_meals", plan.CountMeals()))
	return plan, nil
}

// GenerateRecipe drafts a recipe from a description. It shares the recipe
// form's in-flight guard with ClipRecipe.
func (a *App) GenerateRecipe(ctx context.Context, description string) (recipe.Draft, error) {
	release, ok := a.recipeGuard.TryAcquire()
	if !ok {
		return recipe.Draft{}, apperr.ErrGenerationInFlight
	}
	defer release()

	start := time.Now()
	draft, meta, err := a.recipeGen.GenerateDetails(ctx, description)
	a.recordGeneration(ctx, "RecipeGenerator", meta, start, err)
	if err != nil {
		return recipe.Draft{}, err
	}
	if err := ctx.Err(); err != nil {
		return recipe.Draft{}, err
	}
	return draft, nil
}

// ClipRecipe drafts a recipe from a web page.
func (a *App) ClipRecipe(ctx context.Context, url string) (recipe.Draft, error) {
	release, ok := a.recipeGuard.TryAcquire()
	if !ok {
		return recipe.Draft{}, apperr.ErrGenerationInFlight
	}
	defer release()

	start := time.Now()
	draft, meta, err := a.clipper.ClipURL(ctx, url)
	a.recordGeneration(ctx, "RecipeExtractor", meta, start, err)
	if err != nil {
		return recipe.Draft{}, err
	}
	return draft, nil
}

// PlanGenerationInFlight reports whether a plan is being generated.
func (a *App) PlanGenerationInFlight() bool {
	return a.planGuard.InFlight()
}

// --- Usage ---

// DailyUsage returns token usage per day, when usage is tracked.
func (a *App) DailyUsage(ctx context.Context, days int) ([]metrics.DailyUsage, error) {
	if a.usage == nil {
		return nil, nil
	}
	return a.usage.GetDailyUsage(ctx, days)
}

// CleanupUsage deletes usage records older than days.
func (a *App) CleanupUsage(ctx context.Context, days int) (int64, error) {
	if a.usage == nil {
		return 0, nil
	}
	return a.usage.Cleanup(ctx, days)
}

func (a *App) recordGeneration(ctx context.Context, agent string, meta shared.AgentMeta, start time.Time, err error) {
	if meta.AgentName == "" {
		meta.AgentName = agent
	}
	if a.collectors != nil {
		a.collectors.ObserveGeneration(meta.AgentName, err, time.Since(start), meta.Usage.PromptTokens, meta.Usage.CompletionTokens)
	}
	if err != nil {
		a.log.Warn("generation failed", zap.String("agent", meta.AgentName), zap.Error(err))
	}
	if a.usage == nil {
		return
	}
	// Usage is recorded even if the caller has gone away.
	if recErr := a.usage.RecordMeta(context.WithoutCancel(ctx), meta); recErr != nil {
		a.log.Warn("failed to record usage", zap.String("agent", meta.AgentName), zap.Error(recErr))
	}
}

func (a *App) observeMutation(operation, result string) {
	if a.collectors != nil {
		a.collectors.ObservePlanMutation(operation, result)
	}
}
