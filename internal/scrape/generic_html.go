package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/jobfinder/internal/interfaces"
	"github.com/ternarybob/jobfinder/internal/models"
	"github.com/ternarybob/jobfinder/internal/textutil"
)

// GenericHTMLConfig is the `{type:"html", ...}` shape a Source's config
// column decodes into (spec §4.2 point 2, §6 "html").
type GenericHTMLConfig struct {
	URL           string            `json:"url"`
	JobSelector   string            `json:"job_selector"`
	RequiresJS    bool              `json:"requires_js"`
	RenderWaitFor string            `json:"render_wait_for"`
	BaseURL       string            `json:"base_url"`
	Fields        GenericHTMLFields `json:"fields"`
}

// GenericHTMLFields maps a logical job field to a goquery selector. A
// selector of the form "a.title@href" reads the named attribute instead of
// the element's text (spec §4.2 point 2 "selector@attr form").
type GenericHTMLFields struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Location    string `json:"location"`
	PostedDate  string `json:"posted_date"`
}

// GenericHTMLAdapter scrapes a page whose structure is described entirely
// by configuration rather than a provider-specific response shape.
type GenericHTMLAdapter struct {
	SourceName string
	Config     GenericHTMLConfig

	fetch    *fetcher
	renderer interfaces.Renderer
}

func NewGenericHTMLAdapter(sourceName string, cfg GenericHTMLConfig, fetch *fetcher, renderer interfaces.Renderer) *GenericHTMLAdapter {
	return &GenericHTMLAdapter{SourceName: sourceName, Config: cfg, fetch: fetch, renderer: renderer}
}

var _ interfaces.Scraper = (*GenericHTMLAdapter)(nil)

// ParseGenericHTMLConfig decodes a Source's generic JSONMap config into a
// GenericHTMLConfig via a JSON round trip, since the stored config is an
// untyped map[string]interface{} (spec §6 "html").
func ParseGenericHTMLConfig(raw models.JSONMap) (GenericHTMLConfig, error) {
	var cfg GenericHTMLConfig
	b, err := json.Marshal(raw)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (g *GenericHTMLAdapter) Scrape(ctx context.Context) ([]models.ScrapedJob, error) {
	html, err := g.fetchHTML(ctx)
	if err != nil {
		return nil, err
	}

	if marker := DetectBotProtection(html); marker != "" {
		return nil, &ScrapeBotProtectionError{Source: g.SourceName, Marker: marker}
	}
	if marker := DetectAuthWall(html); marker != "" {
		return nil, &ScrapeAuthError{Source: g.SourceName, URL: g.Config.URL}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &ScrapeConfigError{Source: g.SourceName, Err: err}
	}

	selection := doc.Find(g.Config.JobSelector)
	if selection.Length() == 0 {
		return nil, g.zeroMatchDiagnostic(doc)
	}

	var jobs []models.ScrapedJob
	selection.Each(func(_ int, sel *goquery.Selection) {
		job := models.ScrapedJob{
			Title:       extractField(sel, g.Config.Fields.Title),
			URL:         resolveURL(g.Config.BaseURL, extractField(sel, g.Config.Fields.URL)),
			Description: textutil.SanitizeHTML(extractField(sel, g.Config.Fields.Description)),
			Location:    extractField(sel, g.Config.Fields.Location),
			PostedDate:  extractField(sel, g.Config.Fields.PostedDate),
			Company:     g.SourceName,
		}
		jobs = append(jobs, job)
	})
	return jobs, nil
}

func (g *GenericHTMLAdapter) fetchHTML(ctx context.Context) (string, error) {
	if !g.Config.RequiresJS || g.renderer == nil {
		body, err := g.fetch.Get(ctx, g.SourceName, g.Config.URL, nil)
		if err != nil {
			return "", err
		}
		return string(body), nil
	}

	result, err := g.renderer.Render(ctx, interfaces.RenderRequest{
		URL:             g.Config.URL,
		WaitForSelector: g.Config.RenderWaitFor,
		TimeoutMS:       15000,
	})
	if err != nil {
		return "", &ScrapeTransientError{Source: g.SourceName, Err: err}
	}
	switch result.Status {
	case interfaces.RenderOK, interfaces.RenderPartial:
		return result.HTML, nil
	case interfaces.RenderTimeout:
		if result.HTML != "" {
			return result.HTML, nil
		}
		return "", &ScrapeTransientError{Source: g.SourceName, Err: fmt.Errorf("render timeout with no partial html")}
	default:
		return "", &ScrapeTransientError{Source: g.SourceName, Err: fmt.Errorf("render error: %v", result.Errors)}
	}
}

// zeroMatchDiagnostic builds a structured error describing the page title
// and any selectors under which job-like elements were found, so an
// operator can see why a configured selector yielded nothing (spec §4.2
// "Zero-match diagnostics").
func (g *GenericHTMLAdapter) zeroMatchDiagnostic(doc *goquery.Document) error {
	pageTitle := strings.TrimSpace(doc.Find("title").First().Text())
	var candidates []string
	for _, sel := range []string{"[class*='job']", "[class*='position']", "[class*='posting']", "article", "li"} {
		if doc.Find(sel).Length() > 0 {
			candidates = append(candidates, sel)
		}
	}
	return &ScrapeConfigError{
		Source: g.SourceName,
		Err:    fmt.Errorf("selector %q matched zero elements on page %q; job-like elements found under: %s", g.Config.JobSelector, pageTitle, strings.Join(candidates, ", ")),
	}
}

// extractField reads sel's text, or an attribute value when selector has
// the "selector@attr" form. An empty selector targets sel itself.
func extractField(sel *goquery.Selection, selector string) string {
	if selector == "" {
		return strings.TrimSpace(sel.Text())
	}

	target, attr, hasAttr := strings.Cut(selector, "@")
	scope := sel
	if target != "" && target != "." {
		scope = sel.Find(target)
	}
	if hasAttr {
		v, _ := scope.Attr(attr)
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(scope.Text())
}

func resolveURL(base, href string) string {
	if href == "" || base == "" {
		return href
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	base = strings.TrimRight(base, "/")
	href = strings.TrimLeft(href, "/")
	return base + "/" + href
}
