package sources

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"streamvault/config"
	"streamvault/models"
)

// MyDramaList scrapes mydramalist.com, the richest of the drama sources:
// list pages carry title/rating/synopsis, detail pages add cast, genres
// and episode counts.
type MyDramaList struct {
	cfg config.SourceSettings
}

func NewMyDramaList(cfg config.SourceSettings) *MyDramaList {
	return &MyDramaList{cfg: cfg}
}

func (m *MyDramaList) Name() string { return m.cfg.Name }
func (m *MyDramaList) Category() models.ContentType { return models.ContentTypeDrama }

// Item containers have been renamed twice across site revisions; every
// chain below carries the historical variants.
var mdlItemSelectors = []string{
	"div#content div.box",
	"div.m-container div.box-body",
	"div[id^='mdl-']",
}

func (m *MyDramaList) Targets(kind Kind, arg string, limit int) []FetchTarget {
	base := strings.TrimRight(m.cfg.BaseURL, "/")
	switch kind {
	case KindSearch:
		return []FetchTarget{{
			URL:               base + "/search?q=" + url.QueryEscape(arg),
			Kind:              KindSearch,
			ExpectedSelectors: mdlItemSelectors,
		}}
	case KindDetail:
		return []FetchTarget{{
			URL:               base + "/" + url.PathEscape(arg),
			Kind:              KindDetail,
			ExpectedSelectors: []string{"div.film-title", "h1.film-title"},
		}}
	default:
		// Two shows-per-page list endpoints; the second page is only
		// planned when the limit asks for more than one page's worth.
		targets := []FetchTarget{{
			URL:               base + "/shows/popular",
			Kind:              KindList,
			ExpectedSelectors: mdlItemSelectors,
		}}
		if limit > 20 {
			targets = append(targets, FetchTarget{
				URL:               base + "/shows/popular?page=2",
				Kind:              KindList,
				ExpectedSelectors: mdlItemSelectors,
			})
		}
		return targets
	}
}

func (m *MyDramaList) Extract(body []byte, target FetchTarget) ([]models.RawItem, error) {
	doc, err := parseDoc(body)
	if err != nil {
		return nil, err
	}
	if target.Kind == KindDetail {
		return m.extractDetail(doc, target.URL)
	}
	return m.extractList(doc, target.URL)
}

func (m *MyDramaList) extractList(doc *goquery.Document, pageURL string) ([]models.RawItem, error) {
	items := firstMatch(doc, mdlItemSelectors)
	if items == nil {
		return nil, models.ErrExtractionEmpty
	}

	var out []models.RawItem
	items.Each(func(_ int, s *goquery.Selection) {
		title := chainText(s, "h6.title a", "h6 a", "a.title")
		if title == "" {
			return
		}
		href := chainAttr(s, "href", "h6.title a", "h6 a", "a.title")
		detailURL := resolveURL(&m.cfg, pageURL, href)

		fields := map[string]any{
			"title":     title,
			"url":       detailURL,
			"source_id": lastPathSegment(detailURL),
			"poster":    chainAttr(s, "data-src", "img.lazy", "img"),
			"synopsis":  chainText(s, "p", "div.synopsis"),
		}
		if fields["poster"] == "" {
			fields["poster"] = chainAttr(s, "src", "img")
		}
		if rating := chainText(s, "span.score", "div.score"); rating != "" {
			if v, err := strconv.ParseFloat(rating, 64); err == nil {
				fields["rating"] = v
			}
		}
		// "Korean Drama - 2024, 16 episodes"
		if meta := chainText(s, "span.text-muted", "div.text-muted"); meta != "" {
			if year := yearFrom(meta); year > 0 {
				fields["year"] = year
			}
			if eps := episodesFrom(meta); eps > 0 {
				fields["episodes"] = eps
			}
		}
		out = append(out, models.RawItem{Fields: fields, SourceURL: detailURL})
	})
	if len(out) == 0 {
		return nil, models.ErrExtractionEmpty
	}
	return out, nil
}

func (m *MyDramaList) extractDetail(doc *goquery.Document, pageURL string) ([]models.RawItem, error) {
	title := chainText(doc.Selection, "h1.film-title a", "h1.film-title", "div.film-title")
	if title == "" {
		return nil, models.ErrExtractionEmpty
	}

	fields := map[string]any{
		"title":     title,
		"url":       pageURL,
		"source_id": lastPathSegment(pageURL),
		"synopsis":  chainText(doc.Selection, "div.show-synopsis p", "div.show-synopsis span"),
		"poster":    chainAttr(doc.Selection, "src", "div.film-cover img", "img.img-responsive"),
	}

	if native := chainText(doc.Selection, "b.inline:contains('Native Title:') + a", "li.list-item a[href*='native']"); native != "" {
		fields["original_title"] = native
	}
	if score := chainText(doc.Selection, "div.col-film-rating div", "div.deep-orange"); score != "" {
		if v, err := strconv.ParseFloat(score, 64); err == nil {
			fields["rating"] = v
		}
	}

	var genres []string
	doc.Find("li.show-genres a, div.show-genres a").Each(func(_ int, s *goquery.Selection) {
		if g := normSpace(s.Text()); g != "" {
			genres = append(genres, g)
		}
	})
	if len(genres) > 0 {
		fields["genres"] = genres
	}

	var cast []string
	doc.Find("ul.credits li a b, div.p-a-sm a.text-primary b").Each(func(_ int, s *goquery.Selection) {
		if c := normSpace(s.Text()); c != "" {
			cast = append(cast, c)
		}
	})
	if len(cast) > 0 {
		fields["cast"] = cast
	}

	doc.Find("ul.list li.list-item").Each(func(_ int, s *goquery.Selection) {
		label := strings.ToLower(chainText(s, "b.inline"))
		value := normSpace(strings.TrimPrefix(normSpace(s.Text()), chainText(s, "b.inline")))
		switch {
		case strings.HasPrefix(label, "episodes"):
			if v, err := strconv.Atoi(value); err == nil {
				fields["episodes"] = v
			}
		case strings.HasPrefix(label, "duration"):
			fields["duration"] = value
		case strings.HasPrefix(label, "director"):
			fields["director"] = strings.Split(value, ",")
		case strings.HasPrefix(label, "aired"), strings.HasPrefix(label, "release date"):
			if year := yearFrom(value); year > 0 {
				fields["year"] = year
			}
		}
	})

	return []models.RawItem{{Fields: fields, SourceURL: pageURL}}, nil
}

// yearFrom pulls the first plausible 4-digit year out of free text.
func yearFrom(s string) int {
	for i := 0; i+4 <= len(s); i++ {
		if v, err := strconv.Atoi(s[i : i+4]); err == nil && v >= 1950 && v <= 2100 {
			return v
		}
	}
	return 0
}

// episodesFrom parses "..., 16 episodes" style suffixes.
func episodesFrom(s string) int {
	lower := strings.ToLower(s)
	idx := strings.Index(lower, "episode")
	if idx < 0 {
		return 0
	}
	head := strings.TrimSpace(lower[:idx])
	if cut := strings.LastIndexAny(head, " ,"); cut >= 0 {
		head = head[cut+1:]
	}
	v, err := strconv.Atoi(head)
	if err != nil {
		return 0
	}
	return v
}
