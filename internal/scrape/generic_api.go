package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ternarybob/jobfinder/internal/interfaces"
	"github.com/ternarybob/jobfinder/internal/models"
	"github.com/ternarybob/jobfinder/internal/textutil"
)

// GenericAPIPaginationType selects how GenericAPIAdapter advances through
// multi-page responses (spec §4.2 point 3).
type GenericAPIPaginationType string

const (
	PaginationOffset  GenericAPIPaginationType = "offset"
	PaginationPageNum GenericAPIPaginationType = "page_num"
)

// GenericAPIPagination is the `pagination:{...}` sub-object.
type GenericAPIPagination struct {
	Type      GenericAPIPaginationType `json:"type"`
	Param     string                   `json:"param"`
	PageSize  int                      `json:"page_size"`
	MaxPages  int                      `json:"max_pages"`
	PageStart int                      `json:"page_start"`
}

// GenericAPIConfig is the `{type:"api", ...}` shape a Source's config
// column decodes into (spec §4.2 point 3, §6 "api").
type GenericAPIConfig struct {
	URL          string                `json:"url"`
	Method       string                `json:"method"`
	PostBody     string                `json:"post_body"`
	ResponsePath string                `json:"response_path"`
	Fields       GenericHTMLFields     `json:"fields"`
	Headers      map[string]string     `json:"headers"`
	Pagination   *GenericAPIPagination `json:"pagination"`
	BaseURL      string                `json:"base_url"`
}

// ParseGenericAPIConfig decodes a Source's generic JSONMap config into a
// GenericAPIConfig via a JSON round trip.
func ParseGenericAPIConfig(raw models.JSONMap) (GenericAPIConfig, error) {
	var cfg GenericAPIConfig
	b, err := json.Marshal(raw)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

const defaultGenericAPIMaxPages = 10

// GenericAPIAdapter scrapes a JSON endpoint whose response shape is
// described entirely by configuration: a dotted response_path locates the
// job array, fields maps each logical field to a dotted key within each
// element, and pagination advances via an offset or page-number query
// parameter up to a hard max_pages cap.
type GenericAPIAdapter struct {
	SourceName string
	Config     GenericAPIConfig
	fetch      *fetcher
}

func NewGenericAPIAdapter(sourceName string, cfg GenericAPIConfig, fetch *fetcher) *GenericAPIAdapter {
	return &GenericAPIAdapter{SourceName: sourceName, Config: cfg, fetch: fetch}
}

var _ interfaces.Scraper = (*GenericAPIAdapter)(nil)

func (g *GenericAPIAdapter) Scrape(ctx context.Context) ([]models.ScrapedJob, error) {
	method := strings.ToUpper(g.Config.Method)
	if method == "" {
		method = "GET"
	}

	maxPages := defaultGenericAPIMaxPages
	pageStart := 0
	pageSize := 0
	var pagType GenericAPIPaginationType
	var param string
	if p := g.Config.Pagination; p != nil {
		pagType = p.Type
		param = p.Param
		pageSize = p.PageSize
		pageStart = p.PageStart
		if p.MaxPages > 0 {
			maxPages = p.MaxPages
		}
	}

	var jobs []models.ScrapedJob
	for page := 0; page < maxPages; page++ {
		pageURL, err := g.buildPageURL(pagType, param, pageStart, pageSize, page)
		if err != nil {
			return nil, &ScrapeConfigError{Source: g.SourceName, Err: err}
		}

		var body []byte
		if method == "POST" {
			body, err = g.fetch.Post(ctx, g.SourceName, pageURL, g.Config.Headers, []byte(g.Config.PostBody))
		} else {
			body, err = g.fetch.Get(ctx, g.SourceName, pageURL, g.Config.Headers)
		}
		if err != nil {
			return nil, err
		}

		var generic interface{}
		if err := json.Unmarshal(body, &generic); err != nil {
			return nil, &ScrapeConfigError{Source: g.SourceName, Err: err}
		}

		items := walkResponsePath(generic, g.Config.ResponsePath)
		if len(items) == 0 {
			break
		}

		for _, item := range items {
			m, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			jobs = append(jobs, models.ScrapedJob{
				Title:       fieldAsString(m, g.Config.Fields.Title),
				URL:         resolveURL(g.Config.BaseURL, fieldAsString(m, g.Config.Fields.URL)),
				Description: textutil.SanitizeHTML(fieldAsString(m, g.Config.Fields.Description)),
				Location:    fieldAsString(m, g.Config.Fields.Location),
				PostedDate:  fieldAsString(m, g.Config.Fields.PostedDate),
				Company:     g.SourceName,
			})
		}

		if g.Config.Pagination == nil || pageSize <= 0 || len(items) < pageSize {
			break
		}
	}

	return jobs, nil
}

func (g *GenericAPIAdapter) buildPageURL(pagType GenericAPIPaginationType, param string, pageStart, pageSize, page int) (string, error) {
	if pagType == "" || param == "" {
		return g.Config.URL, nil
	}

	u, err := url.Parse(g.Config.URL)
	if err != nil {
		return "", err
	}
	q := u.Query()

	switch pagType {
	case PaginationOffset:
		q.Set(param, strconv.Itoa(pageStart+page*pageSize))
	case PaginationPageNum:
		q.Set(param, strconv.Itoa(pageStart+page))
	default:
		return "", fmt.Errorf("unknown pagination type %q", pagType)
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// walkResponsePath descends a dotted path ("data.jobs") through a decoded
// JSON value, returning the slice found there (or nil).
func walkResponsePath(v interface{}, path string) []interface{} {
	if path == "" {
		if arr, ok := v.([]interface{}); ok {
			return arr
		}
		return nil
	}
	cur := v
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur, ok = m[part]
		if !ok {
			return nil
		}
	}
	if arr, ok := cur.([]interface{}); ok {
		return arr
	}
	return nil
}

// fieldAsString reads a dotted key path ("location.name") out of a decoded
// JSON object, coercing non-string scalars to their string form.
func fieldAsString(m map[string]interface{}, path string) string {
	if path == "" {
		return ""
	}
	var cur interface{} = m
	for _, part := range strings.Split(path, ".") {
		asMap, ok := cur.(map[string]interface{})
		if !ok {
			return ""
		}
		cur, ok = asMap[part]
		if !ok {
			return ""
		}
	}
	switch v := cur.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
