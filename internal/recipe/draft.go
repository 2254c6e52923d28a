package recipe

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
)

// Draft is recipe content produced by a generator or extracted from a page.
// It prefills the add-recipe form and is never stored directly.
type Draft struct {
	Name         string    `json:"name"`
	Category     Category  `json:"category"`
	PrepTime     int       `json:"prepTime"`
	CookTime     int       `json:"cookTime"`
	Servings     int       `json:"servings"`
	Ingredients  multiline `json:"ingredients"`
	Instructions multiline `json:"instructions"`
	Tags         []string  `json:"tags,omitempty"`
	ImageURL     string    `json:"imageUrl,omitempty"`
	SourceURL    string    `json:"sourceUrl,omitempty"`
}

// multiline accepts either a newline separated string or a list of strings.
type multiline string

func (m *multiline) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*m = multiline(s)
		return nil
	}
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("expected a string or a list of strings: %w", err)
	}
	*m = multiline(strings.Join(items, "\n"))
	return nil
}

// check rejects drafts no form could accept.
func (d Draft) check() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("draft has no name")
	}
	if !d.Category.Valid() {
		return fmt.Errorf("draft has unknown category %q", d.Category)
	}
	if d.PrepTime < 0 || d.CookTime < 0 || d.Servings < 0 {
		return fmt.Errorf("draft has negative timings or servings")
	}
	return nil
}

// Input converts the draft into form input.
func (d Draft) Input() Input {
	servings := d.Servings
	if servings < 1 {
		servings = 1
	}
	return Input{
		Name:         d.Name,
		Category:     string(d.Category),
		PrepTime:     d.PrepTime,
		CookTime:     d.CookTime,
		Servings:     servings,
		Ingredients:  string(d.Ingredients),
		Instructions: string(d.Instructions),
		ImageURL:     d.ImageURL,
		Tags:         strings.Join(d.Tags, ", "),
	}
}

// HTML renders the recipe as a blog post body.
func (r Recipe) HTML(sourceURL string) string {
	var sb strings.Builder
	if sourceURL != "" {
		u := html.EscapeString(sourceURL)
		fmt.Fprintf(&sb, "<p><i>Imported from: <a href=\"%s\">%s</a></i></p>", u, u)
	}
	if r.ImageURL != "" && r.ImageURL != PlaceholderImage && !strings.HasPrefix(r.ImageURL, "data:") {
		fmt.Fprintf(&sb, "<img src=\"%s\" alt=\"%s\">", html.EscapeString(r.ImageURL), html.EscapeString(r.Name))
	}

	sb.WriteString("<h2>Ingredients</h2><ul>")
	for _, ing := range r.IngredientLines() {
		fmt.Fprintf(&sb, "<li>%s</li>", html.EscapeString(ing))
	}
	sb.WriteString("</ul>")

	sb.WriteString("<h2>Instructions</h2><ol>")
	for _, step := range r.InstructionLines() {
		fmt.Fprintf(&sb, "<li>%s</li>", html.EscapeString(trimStepNumber(step)))
	}
	sb.WriteString("</ol>")

	sb.WriteString("<hr>")
	fmt.Fprintf(&sb, "<p><strong>Prep Time:</strong> %d min | <strong>Cook Time:</strong> %d min | <strong>Servings:</strong> %d</p>",
		r.PrepTime, r.CookTime, r.Servings)
	return sb.String()
}

// trimStepNumber drops a leading "1." or "1)" since the list is already ordered.
func trimStepNumber(step string) string {
	i := 0
	for i < len(step) && step[i] >= '0' && step[i] <= '9' {
		i++
	}
	if i > 0 && i < len(step) && (step[i] == '.' || step[i] == ')') {
		return strings.TrimSpace(step[i+1:])
	}
	return step
}
