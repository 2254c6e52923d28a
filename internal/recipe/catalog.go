package recipe

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"recipe-planner/internal/apperr"
	"recipe-planner/internal/storage"
)

// RecordKey is the storage key the catalog lives under.
const RecordKey = "recipes"

//go:embed default_recipes.json
var defaultRecipes []byte

// Stats summarizes the stored catalog.
type Stats struct {
	Total        int       `json:"total"`
	SizeBytes    int       `json:"sizeBytes"`
	LastModified time.Time `json:"lastModified"`
}

// Catalog is the recipe repository. The whole catalog is one ordered JSON
// array stored under RecordKey.
type Catalog struct {
	store storage.Store
	log   *zap.Logger
	mu    sync.Mutex
	newID func() string
}

// NewCatalog creates a catalog backed by store.
func NewCatalog(store storage.Store, log *zap.Logger) *Catalog {
	return &Catalog{
		store: store,
		log:   log,
		newID: func() string { return uuid.NewString() },
	}
}

// List returns every recipe in insertion order, seeding the defaults on
// first access.
func (c *Catalog) List(ctx context.Context) ([]Recipe, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx)
}

// Get returns the recipe with the given id.
func (c *Catalog) Get(ctx context.Context, id string) (Recipe, error) {
	recipes, err := c.List(ctx)
	if err != nil {
		return Recipe{}, err
	}
	for _, r := range recipes {
		if r.ID == id {
			return r, nil
		}
	}
	return Recipe{}, apperr.NotFound("recipe", id)
}

// Search matches term case-insensitively against names and tags.
// An empty term returns the whole catalog.
func (c *Catalog) Search(ctx context.Context, term string) ([]Recipe, error) {
	recipes, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return recipes, nil
	}

	matches := []Recipe{}
	for _, r := range recipes {
		if strings.Contains(strings.ToLower(r.Name), term) {
			matches = append(matches, r)
			continue
		}
		for _, tag := range r.Tags {
			if strings.Contains(strings.ToLower(tag), term) {
				matches = append(matches, r)
				break
			}
		}
	}
	return matches, nil
}

// Add validates the input and appends a new recipe.
func (c *Catalog) Add(ctx context.Context, in Input) (Recipe, error) {
	if err := in.Validate(); err != nil {
		return Recipe{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	recipes, err := c.load(ctx)
	if err != nil {
		return Recipe{}, err
	}
	rec := in.toRecipe(c.newID())
	if err := c.save(ctx, append(recipes, rec)); err != nil {
		return Recipe{}, err
	}
	c.log.Info("recipe added", zap.String("recipe_id", rec.ID), zap.String("name", rec.Name))
	return rec, nil
}

// Update replaces the recipe's content. Planned meals keep their snapshot.
func (c *Catalog) Update(ctx context.Context, id string, in Input) (Recipe, error) {
	if err := in.Validate(); err != nil {
		return Recipe{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	recipes, err := c.load(ctx)
	if err != nil {
		return Recipe{}, err
	}
	for i, r := range recipes {
		if r.ID != id {
			continue
		}
		recipes[i] = in.toRecipe(id)
		if err := c.save(ctx, recipes); err != nil {
			return Recipe{}, err
		}
		return recipes[i], nil
	}
	return Recipe{}, apperr.NotFound("recipe", id)
}

// Delete removes a recipe from the catalog.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	recipes, err := c.load(ctx)
	if err != nil {
		return err
	}
	kept := recipes[:0]
	for _, r := range recipes {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(recipes) {
		return apperr.NotFound("recipe", id)
	}
	return c.save(ctx, kept)
}

// Stats reports the catalog size as stored.
func (c *Catalog) Stats(ctx context.Context) (Stats, error) {
	recipes, err := c.List(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Total: len(recipes)}
	if stater, ok := c.store.(storage.Stater); ok {
		rec, err := stater.Stat(ctx, RecordKey)
		if err == nil {
			stats.SizeBytes = len(rec.Data)
			stats.LastModified = rec.UpdatedAt
		}
		return stats, nil
	}
	data, err := c.store.Get(ctx, RecordKey)
	if err == nil {
		stats.SizeBytes = len(data)
	}
	return stats, nil
}

func (c *Catalog) load(ctx context.Context) ([]Recipe, error) {
	data, err := c.store.Get(ctx, RecordKey)
	if errors.Is(err, storage.ErrNotFound) {
		return c.seed(ctx)
	}
	if err != nil {
		return nil, apperr.Storage("failed to load recipes", err)
	}

	var recipes []Recipe
	if err := json.Unmarshal(data, &recipes); err != nil {
		return nil, apperr.Storage("failed to load recipes", fmt.Errorf("failed to unmarshal recipes: %w", err))
	}
	return recipes, nil
}

func (c *Catalog) seed(ctx context.Context) ([]Recipe, error) {
	var recipes []Recipe
	if err := json.Unmarshal(defaultRecipes, &recipes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal default recipes: %w", err)
	}
	if err := c.save(ctx, recipes); err != nil {
		return nil, err
	}
	c.log.Info("seeded recipe catalog", zap.Int("count", len(recipes)))
	return recipes, nil
}

func (c *Catalog) save(ctx context.Context, recipes []Recipe) error {
	if recipes == nil {
		recipes = []Recipe{}
	}
	data, err := json.Marshal(recipes)
	if err != nil {
		return fmt.Errorf("failed to marshal recipes: %w", err)
	}
	if err := c.store.Put(ctx, RecordKey, data); err != nil {
		return apperr.Storage("failed to save recipes", err)
	}
	return nil
}
