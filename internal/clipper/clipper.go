// Package clipper turns a recipe web page into a recipe draft.
package clipper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"recipe-planner/internal/apperr"
	"recipe-planner/internal/recipe"
	"recipe-planner/internal/shared"
)

const maxPageBytes = 5 << 20

// Extractor turns page text into a recipe draft.
type Extractor interface {
	Extract(ctx context.Context, page recipe.Page) (recipe.Draft, shared.AgentMeta, error)
}

// Clipper handles fetching and extracting recipes from URLs.
type Clipper struct {
	extractor  Extractor
	httpClient *http.Client
}

// NewClipper creates a new Clipper instance.
func NewClipper(extractor Extractor) *Clipper {
	return &Clipper{
		extractor:  extractor,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// ClipURL fetches the page and extracts a draft from it. The page's
// og:image, when present, becomes the draft image.
func (c *Clipper) ClipURL(ctx context.Context, rawURL string) (recipe.Draft, shared.AgentMeta, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return recipe.Draft{}, shared.AgentMeta{}, apperr.Validation(map[string]string{
			"url": "Please enter a valid http(s) URL.",
		})
	}

	page, image, err := c.fetchPage(ctx, u.String())
	if err != nil {
		return recipe.Draft{}, shared.AgentMeta{}, apperr.Generation("failed to fetch recipe page", err)
	}

	draft, meta, err := c.extractor.Extract(ctx, page)
	if err != nil {
		return recipe.Draft{}, meta, err
	}
	if draft.ImageURL == "" {
		draft.ImageURL = image
	}
	return draft, meta, nil
}

// fetchPage downloads the URL and strips noise to save LLM tokens.
func (c *Clipper) fetchPage(ctx context.Context, pageURL string) (recipe.Page, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return recipe.Page{}, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "recipe-planner/1.0 (+recipe clipper)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return recipe.Page{}, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return recipe.Page{}, "", fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return recipe.Page{}, "", fmt.Errorf("failed to parse page: %w", err)
	}

	title := strings.TrimSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", ""))
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	image := strings.TrimSpace(doc.Find(`meta[property="og:image"]`).AttrOr("content", ""))
	if !strings.HasPrefix(image, "http://") && !strings.HasPrefix(image, "https://") {
		image = ""
	}

	doc.Find("script, style, nav, footer, header, iframe, noscript, form, ads, .ads, #ads, .advertisement, .comments, #comments").Remove()

	return recipe.Page{
		Title:     title,
		SourceURL: pageURL,
		Content:   collapseWhitespace(doc.Find("body").Text()),
	}, image, nil
}

func collapseWhitespace(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// PageFromHTML builds an extraction page from an HTML fragment such as a
// blog post body.
func PageFromHTML(title, sourceURL, html string) (recipe.Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return recipe.Page{}, fmt.Errorf("failed to parse html: %w", err)
	}
	doc.Find("script, style, iframe, noscript, form").Remove()
	return recipe.Page{
		Title:     strings.TrimSpace(title),
		SourceURL: sourceURL,
		Content:   collapseWhitespace(doc.Find("body").Text()),
	}, nil
}
