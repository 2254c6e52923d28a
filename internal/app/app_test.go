package app

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recipe-planner/internal/apperr"
	"recipe-planner/internal/clipper"
	"recipe-planner/internal/ghost"
	"recipe-planner/internal/llm"
	"recipe-planner/internal/metrics"
	"recipe-planner/internal/planner"
	"recipe-planner/internal/recipe"
	"recipe-planner/internal/shared"
	"recipe-planner/internal/storage"
)

// --- Mocks ---

type mockTextGenerator struct {
	mu      sync.Mutex
	respond func(ctx context.Context, prompt string) (string, error)
	calls   int
}

func (m *mockTextGenerator) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	content, err := m.respond(ctx, prompt)
	if err != nil {
		return llm.ContentResponse{}, err
	}
	return llm.ContentResponse{
		Content: content,
		Usage:   shared.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func respondWith(content string) func(context.Context, string) (string, error) {
	return func(context.Context, string) (string, error) { return content, nil }
}

type mockUsage struct {
	mu    sync.Mutex
	metas []shared.AgentMeta
}

func (m *mockUsage) RecordMeta(ctx context.Context, meta shared.AgentMeta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metas = append(m.metas, meta)
	return nil
}

func (m *mockUsage) GetDailyUsage(ctx context.Context, days int) ([]metrics.DailyUsage, error) {
	return nil, nil
}

func (m *mockUsage) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	return 0, nil
}

type mockGhost struct {
	posts     []ghost.Post
	fetchErr  error
	published []string
	html      string
}

func (m *mockGhost) FetchPosts(ctx context.Context) ([]ghost.Post, error) {
	return m.posts, m.fetchErr
}

func (m *mockGhost) CreatePost(ctx context.Context, title, html string, publish bool) (*ghost.Post, error) {
	m.published = append(m.published, title)
	m.html = html
	return &ghost.Post{ID: "post-1", Title: title}, nil
}

// --- Helpers ---

const recipeDraftJSON = `{
	"name": "Lemon Herb Chicken",
	"category": "Dinner",
	"prepTime": 15,
	"cookTime": 35,
	"servings": 4,
	"ingredients": ["4 chicken thighs", "1 lemon", "2 sprigs rosemary"],
	"instructions": ["Marinate the chicken for an hour.", "Roast for 35 minutes."],
	"tags": ["chicken", "easy"]
}`

type fixture struct {
	app     *App
	textGen *mockTextGenerator
	usage   *mockUsage
	ghost   *mockGhost
	plans   *planner.PlanStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	textGen := &mockTextGenerator{respond: respondWith(recipeDraftJSON)}
	usage := &mockUsage{}
	gh := &mockGhost{}
	cfg := planner.DefaultSlotConfig()
	plans := planner.NewPlanStore(store, cfg, zap.NewNop())
	recipeGen := recipe.NewGenerator(textGen)

	a := New(Deps{
		Catalog:    recipe.NewCatalog(store, zap.NewNop()),
		Plans:      plans,
		RecipeGen:  recipeGen,
		PlanGen:    planner.NewGenerator(textGen, cfg),
		Clipper:    clipper.NewClipper(recipeGen),
		Ghost:      gh,
		Usage:      usage,
		Collectors: metrics.NewCollectors(),
		Logger:     zap.NewNop(),
	})
	a.now = func() time.Time { return time.Date(2024, 3, 9, 18, 0, 0, 0, time.UTC) }
	return &fixture{app: a, textGen: textGen, usage: usage, ghost: gh, plans: plans}
}

func slot(day planner.Day, mt planner.MealType) *planner.SlotKey {
	return &planner.SlotKey{Day: day, MealType: mt}
}

func countSaves(f *fixture) *int {
	n := new(int)
	f.plans.Subscribe(func(planner.WeeklyPlan) { *n++ })
	return n
}

// --- Tests ---

func TestMovePlan(t *testing.T) {
	ctx := context.Background()

	t.Run("CatalogToSlot", func(t *testing.T) {
		f := newFixture(t)
		plan, outcome, err := f.app.MovePlan(ctx, MoveRequest{
			Source: DragRef{Kind: "catalog", RecipeID: "4"},
			Target: slot(planner.Monday, planner.Lunch),
		})
		require.NoError(t, err)
		assert.True(t, outcome.Applied)
		assert.Equal(t, "Tomato Basil Soup", plan.Days[planner.Monday][planner.Lunch].RecipeName)

		stored, err := f.app.Plan(ctx)
		require.NoError(t, err)
		assert.Equal(t, plan, stored)
	})

	t.Run("SlotToSlotSwaps", func(t *testing.T) {
		f := newFixture(t)
		_, _, err := f.app.MovePlan(ctx, MoveRequest{Source: DragRef{Kind: "catalog", RecipeID: "1"}, Target: slot(planner.Monday, planner.Breakfast)})
		require.NoError(t, err)
		_, _, err = f.app.MovePlan(ctx, MoveRequest{Source: DragRef{Kind: "catalog", RecipeID: "5"}, Target: slot(planner.Tuesday, planner.Dinner)})
		require.NoError(t, err)

		plan, outcome, err := f.app.MovePlan(ctx, MoveRequest{
			Source: DragRef{Kind: "slot", Day: planner.Monday, MealType: planner.Breakfast},
			Target: slot(planner.Tuesday, planner.Dinner),
		})
		require.NoError(t, err)
		assert.True(t, outcome.Swapped)
		assert.Equal(t, "5", plan.Days[planner.Monday][planner.Breakfast].RecipeID)
		assert.Equal(t, "1", plan.Days[planner.Tuesday][planner.Dinner].RecipeID)
	})

	t.Run("NoOpsAreNotSaved", func(t *testing.T) {
		f := newFixture(t)
		saves := countSaves(f)

		tests := []struct {
			name   string
			req    MoveRequest
			reason planner.NoOpReason
		}{
			{"DeletedRecipe", MoveRequest{Source: DragRef{Kind: "catalog", RecipeID: "gone"}, Target: slot(planner.Monday, planner.Lunch)}, planner.UnknownSource},
			{"UnknownKind", MoveRequest{Source: DragRef{Kind: "trash"}, Target: slot(planner.Monday, planner.Lunch)}, planner.UnknownSource},
			{"NoTarget", MoveRequest{Source: DragRef{Kind: "catalog", RecipeID: "1"}}, planner.NoTarget},
			{"EmptySource", MoveRequest{Source: DragRef{Kind: "slot", Day: planner.Monday, MealType: planner.Lunch}, Target: slot(planner.Friday, planner.Lunch)}, planner.EmptySource},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				_, outcome, err := f.app.MovePlan(ctx, tc.req)
				require.NoError(t, err)
				assert.False(t, outcome.Applied)
				assert.Equal(t, tc.reason, outcome.Reason)
			})
		}
		assert.Zero(t, *saves)
	})
}

func TestRemoveAndClear(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, _, err := f.app.MovePlan(ctx, MoveRequest{Source: DragRef{Kind: "catalog", RecipeID: "2"}, Target: slot(planner.Sunday, planner.Snack)})
	require.NoError(t, err)
	saves := countSaves(f)

	plan, err := f.app.RemoveMeal(ctx, *slot(planner.Sunday, planner.Snack))
	require.NoError(t, err)
	assert.Nil(t, plan.Days[planner.Sunday][planner.Snack])
	assert.Equal(t, 1, *saves)

	_, err = f.app.RemoveMeal(ctx, *slot(planner.Sunday, planner.Snack))
	require.NoError(t, err)
	assert.Equal(t, 1, *saves, "removing an empty slot saves nothing")

	cleared, err := f.app.ClearPlan(ctx)
	require.NoError(t, err)
	assert.Equal(t, planner.EmptyPlan(planner.DefaultSlotConfig()), cleared)
}

func TestGeneratePlan(t *testing.T) {
	ctx := context.Background()

	t.Run("ResolvesAgainstCatalog", func(t *testing.T) {
		f := newFixture(t)
		f.textGen.respond = respondWith(`{"monday": {"lunch": "4", "dinner": "no-such-id"}, "friday": {"breakfast": "1"}}`)

		plan, err := f.app.GeneratePlan(ctx, "light lunches")
		require.NoError(t, err)
		assert.Equal(t, "Tomato Basil Soup", plan.Days[planner.Monday][planner.Lunch].RecipeName)
		assert.Nil(t, plan.Days[planner.Monday][planner.Dinner])
		assert.Equal(t, "Classic Pancakes", plan.Days[planner.Friday][planner.Breakfast].RecipeName)

		stored, err := f.app.Plan(ctx)
		require.NoError(t, err)
		assert.Equal(t, plan, stored)

		require.Len(t, f.usage.metas, 1)
		assert.Equal(t, "MealPlanner", f.usage.metas[0].AgentName)
	})

	t.Run("RejectsConcurrentRequest", func(t *testing.T) {
		f := newFixture(t)
		started := make(chan struct{})
		unblock := make(chan struct{})
		f.textGen.respond = func(context.Context, string) (string, error) {
			close(started)
			<-unblock
			return `{"monday": {"lunch": "4"}}`, nil
		}

		done := make(chan error, 1)
		go func() {
			_, err := f.app.GeneratePlan(ctx, "first")
			done <- err
		}()
		<-started
		assert.True(t, f.app.PlanGenerationInFlight())

		_, err := f.app.GeneratePlan(ctx, "second")
		assert.ErrorIs(t, err, apperr.ErrGenerationInFlight)

		close(unblock)
		require.NoError(t, <-done)
		assert.False(t, f.app.PlanGenerationInFlight())
		assert.Equal(t, 1, f.textGen.calls)
	})

	t.Run("CancelledRequestIsDiscarded", func(t *testing.T) {
		f := newFixture(t)
		before, err := f.app.Plan(ctx)
		require.NoError(t, err)

		cctx, cancel := context.WithCancel(ctx)
		f.textGen.respond = func(context.Context, string) (string, error) {
			cancel()
			return `{"monday": {"lunch": "4"}}`, nil
		}

		_, err = f.app.GeneratePlan(cctx, "anything")
		assert.ErrorIs(t, err, context.Canceled)

		after, err := f.app.Plan(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("GenerationFailureKeepsPlan", func(t *testing.T) {
		f := newFixture(t)
		f.textGen.respond = func(context.Context, string) (string, error) { return "", errors.New("quota") }

		_, err := f.app.GeneratePlan(ctx, "anything")
		assert.True(t, apperr.Is(err, apperr.KindGeneration))
	})
}

func TestGenerateRecipe(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	draft, err := f.app.GenerateRecipe(ctx, "a zesty chicken dinner")
	require.NoError(t, err)
	assert.Equal(t, "Lemon Herb Chicken", draft.Name)

	t.Run("SharesGuardWithClipper", func(t *testing.T) {
		release, ok := f.app.recipeGuard.TryAcquire()
		require.True(t, ok)
		defer release()

		_, err := f.app.ClipRecipe(ctx, "https://example.com/recipe")
		assert.ErrorIs(t, err, apperr.ErrGenerationInFlight)
		_, err = f.app.GenerateRecipe(ctx, "soup")
		assert.ErrorIs(t, err, apperr.ErrGenerationInFlight)
	})
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	planExport, err := f.app.ExportPlan(ctx)
	require.NoError(t, err)
	assert.Equal(t, "meal_plan_database_2024-03-09.json", planExport.Filename)
	assert.Contains(t, string(planExport.Data), "\n  \"title\": \"My Weekly Meal Plan\"")

	catalogExport, err := f.app.ExportCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, "recipe_database_2024-03-09.json", catalogExport.Filename)

	var recipes []recipe.Recipe
	require.NoError(t, json.Unmarshal(catalogExport.Data, &recipes))
	assert.Len(t, recipes, 8)
}

func TestImportFromGhost(t *testing.T) {
	ctx := context.Background()

	t.Run("SkipsKnownAndReportsFailures", func(t *testing.T) {
		f := newFixture(t)
		f.ghost.posts = []ghost.Post{
			{ID: "p1", Title: "classic pancakes", HTML: "<p>already here</p>"},
			{ID: "p2", Title: "Lemon Herb Chicken", HTML: "<p>Roast the chicken.</p>", URL: "https://blog.example.com/chicken"},
			{ID: "p3", Title: "Mystery", HTML: "<p>BROKEN</p>"},
		}
		f.textGen.respond = func(_ context.Context, prompt string) (string, error) {
			if strings.Contains(prompt, "BROKEN") {
				return "not json at all", nil
			}
			return recipeDraftJSON, nil
		}

		result, err := f.app.ImportFromGhost(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"classic pancakes"}, result.Skipped)
		assert.Equal(t, []string{"Lemon Herb Chicken"}, result.Imported)
		assert.Equal(t, []string{"Mystery"}, result.Failed)

		found, err := f.app.ListRecipes(ctx, "lemon herb")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, recipe.Dinner, found[0].Category)
	})

	t.Run("Disabled", func(t *testing.T) {
		f := newFixture(t)
		f.app.ghost = nil
		_, err := f.app.ImportFromGhost(ctx)
		assert.ErrorIs(t, err, ErrGhostDisabled)
	})
}

func TestPublishRecipe(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	post, err := f.app.PublishRecipe(ctx, "4")
	require.NoError(t, err)
	assert.Equal(t, "post-1", post.ID)
	assert.Equal(t, []string{"Tomato Basil Soup"}, f.ghost.published)
	assert.Contains(t, f.ghost.html, "<h2>Ingredients</h2>")

	_, err = f.app.PublishRecipe(ctx, "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestInFlightGuard(t *testing.T) {
	var g InFlightGuard
	release, ok := g.TryAcquire()
	require.True(t, ok)

	_, ok = g.TryAcquire()
	assert.False(t, ok)

	release()
	release()
	assert.False(t, g.InFlight())

	release2, ok := g.TryAcquire()
	require.True(t, ok)
	release2()
}
