package recipe

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"recipe-planner/internal/apperr"
	"recipe-planner/internal/llm"
	"recipe-planner/internal/shared"
)

//go:embed generator_prompt.md
var generatorPrompt string

//go:embed extractor_prompt.md
var extractorPrompt string

var (
	generatorTmpl = template.Must(template.New("RecipeGenerator").Parse(generatorPrompt))
	extractorTmpl = template.Must(template.New("RecipeExtractor").Parse(extractorPrompt))
)

// maxPageContent bounds the page text sent to the model.
const maxPageContent = 20000

// Page is source material a recipe is extracted from: a blog post or a
// clipped web page.
type Page struct {
	Title     string
	SourceURL string
	Content   string
}

// Generator turns descriptions and pages into recipe drafts.
type Generator struct {
	textGen llm.TextGenerator
}

// NewGenerator creates a Generator. A nil textGen yields a generator that
// reports every request as failed.
func NewGenerator(textGen llm.TextGenerator) *Generator {
	return &Generator{textGen: textGen}
}

// GenerateDetails writes a full recipe from a short description.
func (g *Generator) GenerateDetails(ctx context.Context, description string) (Draft, shared.AgentMeta, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return Draft{}, shared.AgentMeta{}, apperr.Validation(map[string]string{
			"description": "Please enter a description for the AI to generate a recipe.",
		})
	}

	var buf bytes.Buffer
	if err := generatorTmpl.Execute(&buf, struct{ Description string }{description}); err != nil {
		return Draft{}, shared.AgentMeta{}, fmt.Errorf("failed to build recipe prompt: %w", err)
	}
	return g.run(ctx, "RecipeGenerator", buf.String())
}

// Extract pulls a recipe out of a page. The draft's SourceURL is set from
// the page.
func (g *Generator) Extract(ctx context.Context, page Page) (Draft, shared.AgentMeta, error) {
	if len(page.Content) > maxPageContent {
		page.Content = page.Content[:maxPageContent]
	}

	var buf bytes.Buffer
	if err := extractorTmpl.Execute(&buf, page); err != nil {
		return Draft{}, shared.AgentMeta{}, fmt.Errorf("failed to build extractor prompt: %w", err)
	}

	draft, meta, err := g.run(ctx, "RecipeExtractor", buf.String())
	if err != nil {
		return Draft{}, meta, err
	}
	draft.SourceURL = page.SourceURL
	return draft, meta, nil
}

func (g *Generator) run(ctx context.Context, agent, prompt string) (Draft, shared.AgentMeta, error) {
	if g.textGen == nil {
		return Draft{}, shared.AgentMeta{}, apperr.Generation("AI generation is not configured", nil)
	}

	start := time.Now()
	resp, err := g.textGen.GenerateContent(ctx, prompt)
	if err != nil {
		return Draft{}, shared.AgentMeta{AgentName: agent}, apperr.Generation("failed to generate recipe details", err)
	}
	meta := shared.AgentMeta{
		AgentName: agent,
		Usage:     resp.Usage,
		Latency:   time.Since(start),
	}

	content := llm.CleanJSON(resp.Content)
	if content == "" {
		return Draft{}, meta, apperr.Generation("the model returned no content", nil)
	}

	var draft Draft
	if err := json.Unmarshal([]byte(content), &draft); err != nil {
		return Draft{}, meta, apperr.Generation("failed to parse recipe details", fmt.Errorf("failed to unmarshal draft: %w", err))
	}
	if err := draft.check(); err != nil {
		return Draft{}, meta, apperr.Generation("the model returned an unusable recipe", err)
	}
	return draft, meta, nil
}
