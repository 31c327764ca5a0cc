package sources

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"streamvault/config"
	"streamvault/models"
)

// AsianWiki is a MediaWiki-flavored metadata source: no player, but
// reliable cast/director/profile data that enriches the drama tables.
type AsianWiki struct {
	cfg config.SourceSettings
}

func NewAsianWiki(cfg config.SourceSettings) *AsianWiki {
	return &AsianWiki{cfg: cfg}
}

func (a *AsianWiki) Name() string { return a.cfg.Name }
func (a *AsianWiki) Category() models.ContentType { return models.ContentTypeDrama }

func (a *AsianWiki) Targets(kind Kind, arg string, limit int) []FetchTarget {
	base := strings.TrimRight(a.cfg.BaseURL, "/")
	switch kind {
	case KindSearch:
		return []FetchTarget{{
			URL:               base + "/index.php?title=Special:Search&search=" + url.QueryEscape(arg),
			Kind:              KindSearch,
			ExpectedSelectors: []string{"ul.mw-search-results li", "div.searchresults li"},
		}}
	case KindDetail:
		return []FetchTarget{{
			URL:               base + "/" + url.PathEscape(arg),
			Kind:              KindDetail,
			ExpectedSelectors: []string{"h1#firstHeading", "div#mw-content-text"},
		}}
	default:
		return []FetchTarget{{
			URL:               base + "/Category:Korean_Drama_-_2025",
			Kind:              KindList,
			ExpectedSelectors: []string{"div#mw-pages li", "div.mw-category li"},
		}}
	}
}

func (a *AsianWiki) Extract(body []byte, target FetchTarget) ([]models.RawItem, error) {
	doc, err := parseDoc(body)
	if err != nil {
		return nil, err
	}
	if target.Kind == KindDetail {
		return a.extractDetail(doc, target.URL)
	}

	items := firstMatch(doc, []string{
		"ul.mw-search-results li",
		"div.searchresults li",
		"div#mw-pages li",
		"div.mw-category li",
	})
	if items == nil {
		return nil, models.ErrExtractionEmpty
	}

	var out []models.RawItem
	items.Each(func(_ int, s *goquery.Selection) {
		link := s.Find("a").First()
		title := normSpace(link.Text())
		if title == "" {
			return
		}
		href, _ := link.Attr("href")
		detailURL := resolveURL(&a.cfg, target.URL, href)
		out = append(out, models.RawItem{
			Fields: map[string]any{
				"title":     title,
				"url":       detailURL,
				"source_id": lastPathSegment(detailURL),
			},
			SourceURL: detailURL,
		})
	})
	if len(out) == 0 {
		return nil, models.ErrExtractionEmpty
	}
	return out, nil
}

func (a *AsianWiki) extractDetail(doc *goquery.Document, pageURL string) ([]models.RawItem, error) {
	title := chainText(doc.Selection, "h1#firstHeading", "h1.firstHeading")
	if title == "" {
		return nil, models.ErrExtractionEmpty
	}

	fields := map[string]any{
		"title":     title,
		"url":       pageURL,
		"source_id": lastPathSegment(pageURL),
		"poster":    chainAttr(doc.Selection, "src", "div.thumb img", "a.image img"),
	}

	// Profile block is a bullet list of "Label: value" lines.
	doc.Find("div#mw-content-text ul li").Each(func(_ int, s *goquery.Selection) {
		text := normSpace(s.Text())
		label, value, found := strings.Cut(text, ":")
		if !found {
			return
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(label)) {
		case "drama", "movie", "title":
			// already have it from the heading
		case "director":
			fields["director"] = splitNames(value)
		case "episodes":
			if v, err := strconv.Atoi(value); err == nil {
				fields["episodes"] = v
			}
		case "release date", "airs":
			if year := yearFrom(value); year > 0 {
				fields["year"] = year
			}
		case "runtime", "duration":
			fields["duration"] = value
		case "genre":
			fields["genres"] = splitNames(value)
		}
	})

	// First paragraph after the profile serves as synopsis.
	if plot := chainText(doc.Selection, "div#mw-content-text > div > p", "div#mw-content-text p"); plot != "" {
		fields["plot"] = plot
	}

	var cast []string
	doc.Find("div#mw-content-text table td a").Each(func(_ int, s *goquery.Selection) {
		name := normSpace(s.Text())
		if name != "" && !strings.HasPrefix(name, "[") {
			cast = append(cast, name)
		}
	})
	if len(cast) > 0 {
		if len(cast) > 12 {
			cast = cast[:12]
		}
		fields["cast"] = cast
	}

	return []models.RawItem{{Fields: fields, SourceURL: pageURL}}, nil
}

func splitNames(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
