package sources

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"streamvault/config"
	"streamvault/models"
)

// Generic is the selector-driven adapter: sites without a dedicated adapter
// are scraped entirely from the SelectorRules in the source catalog, so
// operators can onboard a new mirror with a config edit instead of a build.
type Generic struct {
	cfg   config.SourceSettings
	rules config.SelectorRules
}

func NewGeneric(cfg config.SourceSettings) *Generic {
	g := &Generic{cfg: cfg}
	if cfg.Selectors != nil {
		g.rules = *cfg.Selectors
	}
	return g
}

func (g *Generic) Name() string { return g.cfg.Name }

func (g *Generic) Category() models.ContentType {
	ct := models.ContentType(g.cfg.Category)
	if !ct.Valid() {
		return models.ContentTypeFilm
	}
	return ct
}

func (g *Generic) Targets(kind Kind, arg string, limit int) []FetchTarget {
	base := strings.TrimRight(g.cfg.BaseURL, "/")
	switch kind {
	case KindSearch:
		path := g.rules.SearchPath
		if path == "" {
			path = "/?s=%s"
		}
		return []FetchTarget{{
			URL:               base + fmt.Sprintf(path, url.QueryEscape(arg)),
			Kind:              KindSearch,
			ExpectedSelectors: g.rules.Item,
		}}
	case KindDetail:
		path := g.rules.DetailPath
		if path == "" {
			path = "/%s"
		}
		return []FetchTarget{{
			URL:  base + fmt.Sprintf(path, url.PathEscape(arg)),
			Kind: KindDetail,
		}}
	default:
		return []FetchTarget{{
			URL:               base + g.rules.ListPath,
			Kind:              KindList,
			ExpectedSelectors: g.rules.Item,
		}}
	}
}

func (g *Generic) Extract(body []byte, target FetchTarget) ([]models.RawItem, error) {
	doc, err := parseDoc(body)
	if err != nil {
		return nil, err
	}

	// Detail pages reuse the field chains against the whole document.
	if target.Kind == KindDetail {
		fields := g.extractFields(doc.Selection)
		if fields["title"] == nil {
			return nil, models.ErrExtractionEmpty
		}
		fields["url"] = target.URL
		fields["source_id"] = lastPathSegment(target.URL)
		return []models.RawItem{{Fields: fields, SourceURL: target.URL}}, nil
	}

	items := firstMatch(doc, g.rules.Item)
	if items == nil {
		return nil, models.ErrExtractionEmpty
	}

	var out []models.RawItem
	items.Each(func(_ int, s *goquery.Selection) {
		fields := g.extractFields(s)
		title, _ := fields["title"].(string)
		if title == "" {
			return
		}
		if year := yearFrom(title); year > 0 {
			cleaned, y := splitReleaseTitle(title)
			fields["title"], fields["year"] = cleaned, y
		}

		linkAttr := g.rules.LinkAttr
		if linkAttr == "" {
			linkAttr = "href"
		}
		href := chainAttr(s, linkAttr, "a")
		detailURL := resolveURL(&g.cfg, target.URL, href)
		if detailURL != "" {
			fields["url"] = detailURL
			fields["source_id"] = lastPathSegment(detailURL)
		}
		out = append(out, models.RawItem{Fields: fields, SourceURL: detailURL})
	})
	if len(out) == 0 {
		return nil, models.ErrExtractionEmpty
	}
	return out, nil
}

// extractFields runs every configured field chain against one selection.
// Fields named in Attrs read that attribute instead of the node text.
func (g *Generic) extractFields(s *goquery.Selection) map[string]any {
	fields := make(map[string]any, len(g.rules.Fields))
	for name, chain := range g.rules.Fields {
		if attr, ok := g.rules.Attrs[name]; ok {
			if val := chainAttr(s, attr, chain...); val != "" {
				fields[name] = val
			}
			continue
		}
		if val := chainText(s, chain...); val != "" {
			fields[name] = val
		}
	}
	// Attr-only fields with no text chain, e.g. poster -> img[src].
	for name, attr := range g.rules.Attrs {
		if _, configured := g.rules.Fields[name]; configured {
			continue
		}
		if _, done := fields[name]; done {
			continue
		}
		if val := chainAttr(s, attr, "img", "a"); val != "" {
			fields[name] = val
		}
	}
	return fields
}
