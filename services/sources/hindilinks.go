package sources

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"streamvault/config"
	"streamvault/models"
)

// HindiLinks scrapes hindilinks4u-style catalogs. Unlike the release-index
// sites these pages keep a structured info table, and watch pages embed a
// player iframe the stream extractor can lift.
type HindiLinks struct {
	cfg config.SourceSettings
}

func NewHindiLinks(cfg config.SourceSettings) *HindiLinks {
	return &HindiLinks{cfg: cfg}
}

func (h *HindiLinks) Name() string { return h.cfg.Name }
func (h *HindiLinks) Category() models.ContentType { return models.ContentTypeBollywood }

var hlItemSelectors = []string{
	"div.filmcontent div.moviefilm",
	"div.moviefilm",
	"div.items article",
}

func (h *HindiLinks) Targets(kind Kind, arg string, limit int) []FetchTarget {
	base := strings.TrimRight(h.cfg.BaseURL, "/")
	switch kind {
	case KindSearch:
		return []FetchTarget{{
			URL:               base + "/?s=" + url.QueryEscape(arg),
			Kind:              KindSearch,
			ExpectedSelectors: hlItemSelectors,
		}}
	case KindDetail:
		return []FetchTarget{{
			URL:               base + "/" + url.PathEscape(arg) + "/",
			Kind:              KindDetail,
			ExpectedSelectors: []string{"div.moviedescription", "h1"},
		}}
	default:
		return []FetchTarget{{
			URL:               base + "/category/hindi-movies/",
			Kind:              KindList,
			ExpectedSelectors: hlItemSelectors,
		}}
	}
}

func (h *HindiLinks) Extract(body []byte, target FetchTarget) ([]models.RawItem, error) {
	doc, err := parseDoc(body)
	if err != nil {
		return nil, err
	}
	if target.Kind == KindDetail {
		return h.extractDetail(doc, target.URL)
	}

	items := firstMatch(doc, hlItemSelectors)
	if items == nil {
		return nil, models.ErrExtractionEmpty
	}

	var out []models.RawItem
	items.Each(func(_ int, s *goquery.Selection) {
		rawTitle := chainText(s, "div.movief a", "h2 a", "a")
		if rawTitle == "" {
			rawTitle = chainAttr(s, "title", "a")
		}
		if rawTitle == "" {
			return
		}
		href := chainAttr(s, "href", "div.movief a", "h2 a", "a")
		detailURL := resolveURL(&h.cfg, target.URL, href)

		title, year := splitReleaseTitle(rawTitle)
		fields := map[string]any{
			"title":     title,
			"url":       detailURL,
			"source_id": lastPathSegment(detailURL),
			"poster":    chainAttr(s, "src", "img"),
		}
		if year > 0 {
			fields["year"] = year
		}
		out = append(out, models.RawItem{Fields: fields, SourceURL: detailURL})
	})
	if len(out) == 0 {
		return nil, models.ErrExtractionEmpty
	}
	return out, nil
}

func (h *HindiLinks) extractDetail(doc *goquery.Document, pageURL string) ([]models.RawItem, error) {
	rawTitle := chainText(doc.Selection, "div.moviedescription h1", "h1.entry-title", "h1")
	if rawTitle == "" {
		return nil, models.ErrExtractionEmpty
	}
	title, year := splitReleaseTitle(rawTitle)

	fields := map[string]any{
		"title":     title,
		"url":       pageURL,
		"source_id": lastPathSegment(pageURL),
		"poster":    chainAttr(doc.Selection, "src", "div.moviedescription img", "div.entry-content img"),
		"plot":      chainText(doc.Selection, "div.moviedescription p", "div.entry-content > p"),
	}
	if year > 0 {
		fields["year"] = year
	}

	doc.Find("div.moviedescription li, table.movieinfo tr").Each(func(_ int, s *goquery.Selection) {
		text := normSpace(s.Text())
		label, value, found := strings.Cut(text, ":")
		if !found {
			return
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(label)) {
		case "genre":
			fields["genres"] = splitNames(value)
		case "starcast", "cast", "starring":
			fields["cast"] = splitNames(value)
		case "director":
			fields["director"] = splitNames(value)
		case "duration", "length":
			fields["duration"] = value
		case "year", "release year":
			if y := yearFrom(value); y > 0 {
				fields["year"] = y
			}
		}
	})

	return []models.RawItem{{Fields: fields, SourceURL: pageURL}}, nil
}

// ExtractStream lifts the embedded player iframe from a watch page.
func (h *HindiLinks) ExtractStream(body []byte, pageURL string) (string, []models.Subtitle, error) {
	doc, err := parseDoc(body)
	if err != nil {
		return "", nil, err
	}
	src := chainAttr(doc.Selection, "src", "div.movieplay iframe", "div.player iframe", "iframe")
	if src == "" {
		return "", nil, models.ErrExtractionEmpty
	}
	return resolveURL(&h.cfg, pageURL, src), nil, nil
}

func (h *HindiLinks) StreamHeaders(pageURL string) map[string]string {
	return map[string]string{
		"Referer": strings.TrimRight(h.cfg.BaseURL, "/") + "/",
	}
}
