package sources

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"streamvault/config"
	"streamvault/models"
)

// BollyFlix scrapes bollyflix-style WordPress movie indexes. The markup is
// the common WP "article grid" theme, so the chains below also survive the
// periodic domain hops.
type BollyFlix struct {
	cfg config.SourceSettings
}

func NewBollyFlix(cfg config.SourceSettings) *BollyFlix {
	return &BollyFlix{cfg: cfg}
}

func (b *BollyFlix) Name() string { return b.cfg.Name }
func (b *BollyFlix) Category() models.ContentType { return models.ContentTypeBollywood }

var bfItemSelectors = []string{
	"div.post-cards article",
	"main article.post",
	"div.blog-items article",
}

func (b *BollyFlix) Targets(kind Kind, arg string, limit int) []FetchTarget {
	base := strings.TrimRight(b.cfg.BaseURL, "/")
	switch kind {
	case KindSearch:
		return []FetchTarget{{
			URL:               base + "/?s=" + url.QueryEscape(arg),
			Kind:              KindSearch,
			ExpectedSelectors: bfItemSelectors,
		}}
	case KindDetail:
		return []FetchTarget{{
			URL:               base + "/" + url.PathEscape(arg) + "/",
			Kind:              KindDetail,
			ExpectedSelectors: []string{"h1.entry-title", "div.entry-content"},
		}}
	default:
		targets := []FetchTarget{{
			URL:               base + "/movies/bollywood/",
			Kind:              KindList,
			ExpectedSelectors: bfItemSelectors,
		}}
		if limit > 20 {
			targets = append(targets, FetchTarget{
				URL:               base + "/movies/bollywood/page/2/",
				Kind:              KindList,
				ExpectedSelectors: bfItemSelectors,
			})
		}
		return targets
	}
}

func (b *BollyFlix) Extract(body []byte, target FetchTarget) ([]models.RawItem, error) {
	doc, err := parseDoc(body)
	if err != nil {
		return nil, err
	}
	if target.Kind == KindDetail {
		return b.extractDetail(doc, target.URL)
	}

	items := firstMatch(doc, bfItemSelectors)
	if items == nil {
		return nil, models.ErrExtractionEmpty
	}

	var out []models.RawItem
	items.Each(func(_ int, s *goquery.Selection) {
		rawTitle := chainText(s, "h2.entry-title a", "h2 a", "a.title")
		if rawTitle == "" {
			return
		}
		href := chainAttr(s, "href", "h2.entry-title a", "h2 a", "a")
		detailURL := resolveURL(&b.cfg, target.URL, href)

		title, year := splitReleaseTitle(rawTitle)
		fields := map[string]any{
			"title":     title,
			"url":       detailURL,
			"source_id": lastPathSegment(detailURL),
			"poster":    chainAttr(s, "data-src", "img"),
		}
		if fields["poster"] == "" {
			fields["poster"] = chainAttr(s, "src", "img")
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

func (b *BollyFlix) extractDetail(doc *goquery.Document, pageURL string) ([]models.RawItem, error) {
	rawTitle := chainText(doc.Selection, "h1.entry-title", "h1.post-title", "h1")
	if rawTitle == "" {
		return nil, models.ErrExtractionEmpty
	}
	title, year := splitReleaseTitle(rawTitle)

	fields := map[string]any{
		"title":     title,
		"url":       pageURL,
		"source_id": lastPathSegment(pageURL),
		"poster":    chainAttr(doc.Selection, "src", "div.entry-content img", "div.post-thumbnail img"),
	}
	if year > 0 {
		fields["year"] = year
	}

	// Release posts carry an "IMDb Rating:", "Genre:", "Starring:" info
	// block as bold-prefixed lines inside the content body.
	doc.Find("div.entry-content p, div.entry-content li").Each(func(_ int, s *goquery.Selection) {
		text := normSpace(s.Text())
		label, value, found := strings.Cut(text, ":")
		if !found {
			return
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(label)) {
		case "genre", "genres":
			fields["genres"] = splitNames(value)
		case "starring", "stars", "cast":
			fields["cast"] = splitNames(value)
		case "director":
			fields["director"] = splitNames(value)
		case "imdb rating", "rating":
			fields["rating_str"] = value
		case "duration", "runtime":
			fields["duration"] = value
		case "storyline", "synopsis", "plot":
			fields["plot"] = value
		case "release date", "released":
			if y := yearFrom(value); y > 0 {
				fields["year"] = y
			}
		}
	})

	if fields["plot"] == nil {
		if plot := chainText(doc.Selection, "div.entry-content h3 + p", "div.entry-content > p"); plot != "" {
			fields["plot"] = plot
		}
	}

	return []models.RawItem{{Fields: fields, SourceURL: pageURL}}, nil
}

// splitReleaseTitle strips the release-tag noise bollywood index posts pack
// into headings: "Jawan (2023) Hindi WEB-DL 1080p" -> ("Jawan", 2023).
func splitReleaseTitle(raw string) (string, int) {
	year := 0
	if idx := strings.Index(raw, "("); idx > 0 {
		if y := yearFrom(raw[idx:]); y > 0 {
			year = y
			raw = raw[:idx]
		}
	}
	title := normSpace(raw)
	// Trailing quality tags survive when there was no year to anchor on.
	for _, tag := range []string{"WEB-DL", "BluRay", "HDRip", "WEBRip", "Download", "Full Movie"} {
		if idx := strings.Index(title, tag); idx > 0 {
			title = normSpace(title[:idx])
		}
	}
	return title, year
}
