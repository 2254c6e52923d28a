package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"recipe-planner/internal/clipper"
	"recipe-planner/internal/ghost"
	"recipe-planner/internal/recipe"
)

const importConcurrency = 2

// ErrGhostDisabled is returned when no Ghost blog is configured.
var ErrGhostDisabled = errors.New("ghost integration is not configured")

// ImportResult summarizes a Ghost import.
type ImportResult struct {
	Imported []string `json:"imported"`
	Skipped  []string `json:"skipped"`
	Failed   []string `json:"failed"`
}

// ImportFromGhost extracts a recipe from every blog post whose title is not
// already in the catalog. A post that fails to extract is reported and the
// import continues.
func (a *App) ImportFromGhost(ctx context.Context) (ImportResult, error) {
	if a.ghost == nil {
		return ImportResult{}, ErrGhostDisabled
	}

	posts, err := a.ghost.FetchPosts(ctx)
	if err != nil {
		return ImportResult{}, err
	}

	existing, err := a.catalog.List(ctx)
	if err != nil {
		return ImportResult{}, err
	}
	known := make(map[string]bool, len(existing))
	for _, r := range existing {
		known[strings.ToLower(r.Name)] = true
	}

	var (
		mu     sync.Mutex
		result ImportResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(importConcurrency)

	for _, post := range posts {
		if known[strings.ToLower(strings.TrimSpace(post.Title))] {
			result.Skipped = append(result.Skipped, post.Title)
			continue
		}
		post := post
		g.Go(func() error {
			name, err := a.importPost(gctx, post)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				result.Imported = append(result.Imported, name)
			case gctx.Err() != nil:
				return gctx.Err()
			default:
				a.log.Warn("failed to import post", zap.String("title", post.Title), zap.Error(err))
				result.Failed = append(result.Failed, post.Title)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}
	a.log.Info("ghost import finished",
		zap.Int("imported", len(result.Imported)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

func (a *App) importPost(ctx context.Context, post ghost.Post) (string, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return "", err
	}

	page, err := clipper.PageFromHTML(post.Title, post.URL, post.HTML)
	if err != nil {
		return "", err
	}

	start := time.Now()
	draft, meta, err := a.recipeGen.Extract(ctx, page)
	a.recordGeneration(ctx, "RecipeExtractor", meta, start, err)
	if err != nil {
		return "", err
	}

	r, err := a.catalog.Add(ctx, draft.Input())
	if err != nil {
		return "", err
	}
	return r.Name, nil
}

// PublishRecipe renders a catalog recipe as HTML and publishes it as a
// Ghost post.
func (a *App) PublishRecipe(ctx context.Context, id string) (*ghost.Post, error) {
	if a.ghost == nil {
		return nil, ErrGhostDisabled
	}

	r, err := a.catalog.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	post, err := a.ghost.CreatePost(ctx, r.Name, r.HTML(""), true)
	if err != nil {
		return nil, err
	}
	a.log.Info("published recipe", zap.String("recipe_id", r.ID), zap.String("post_id", post.ID))
	return post, nil
}

// ensure the recipe generator satisfies the clipper's extractor.
var _ clipper.Extractor = (*recipe.Generator)(nil)
