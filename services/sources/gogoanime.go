package sources

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"streamvault/config"
	"streamvault/models"
)

// Gogoanime scrapes gogoanime-family mirrors. The markup is shared across
// the mirror fleet, which is why one adapter covers all the fallback URLs.
type Gogoanime struct {
	cfg config.SourceSettings
}

func NewGogoanime(cfg config.SourceSettings) *Gogoanime {
	return &Gogoanime{cfg: cfg}
}

func (g *Gogoanime) Name() string { return g.cfg.Name }
func (g *Gogoanime) Category() models.ContentType { return models.ContentTypeAnime }

var gogoItemSelectors = []string{
	"div.last_episodes ul.items li",
	"ul.items li",
	"div.main_body div.img",
}

func (g *Gogoanime) Targets(kind Kind, arg string, limit int) []FetchTarget {
	base := strings.TrimRight(g.cfg.BaseURL, "/")
	switch kind {
	case KindSearch:
		return []FetchTarget{{
			URL:               base + "/search.html?keyword=" + url.QueryEscape(arg),
			Kind:              KindSearch,
			ExpectedSelectors: gogoItemSelectors,
		}}
	case KindDetail:
		return []FetchTarget{{
			URL:               base + "/category/" + url.PathEscape(arg),
			Kind:              KindDetail,
			ExpectedSelectors: []string{"div.anime_info_body_bg", "div.anime_info_body"},
		}}
	default:
		return []FetchTarget{{
			URL:               base + "/popular.html",
			Kind:              KindList,
			ExpectedSelectors: gogoItemSelectors,
		}}
	}
}

func (g *Gogoanime) Extract(body []byte, target FetchTarget) ([]models.RawItem, error) {
	doc, err := parseDoc(body)
	if err != nil {
		return nil, err
	}
	if target.Kind == KindDetail {
		return g.extractDetail(doc, target.URL)
	}

	items := firstMatch(doc, gogoItemSelectors)
	if items == nil {
		return nil, models.ErrExtractionEmpty
	}

	var out []models.RawItem
	items.Each(func(_ int, s *goquery.Selection) {
		title := chainText(s, "p.name a", "p.name", "a")
		if title == "" {
			return
		}
		href := chainAttr(s, "href", "p.name a", "a")
		detailURL := resolveURL(&g.cfg, target.URL, href)

		fields := map[string]any{
			"title":     title,
			"url":       detailURL,
			"source_id": strings.TrimPrefix(lastPathSegment(detailURL), "category/"),
			"image":     chainAttr(s, "src", "div.img img", "img"),
		}
		if released := chainText(s, "p.released"); released != "" {
			if year := yearFrom(released); year > 0 {
				fields["year"] = year
			}
		}
		out = append(out, models.RawItem{Fields: fields, SourceURL: detailURL})
	})
	if len(out) == 0 {
		return nil, models.ErrExtractionEmpty
	}
	return out, nil
}

func (g *Gogoanime) extractDetail(doc *goquery.Document, pageURL string) ([]models.RawItem, error) {
	info := firstMatch(doc, []string{"div.anime_info_body_bg", "div.anime_info_body"})
	if info == nil {
		return nil, models.ErrExtractionEmpty
	}

	title := chainText(info, "h1", "h2")
	if title == "" {
		return nil, models.ErrExtractionEmpty
	}

	fields := map[string]any{
		"title":     title,
		"url":       pageURL,
		"source_id": lastPathSegment(pageURL),
		"image":     chainAttr(info, "src", "img"),
	}

	info.Find("p.type").Each(func(_ int, s *goquery.Selection) {
		label := strings.ToLower(chainText(s, "span"))
		value := normSpace(strings.TrimPrefix(normSpace(s.Text()), chainText(s, "span")))
		switch {
		case strings.HasPrefix(label, "plot summary"):
			fields["plot"] = value
		case strings.HasPrefix(label, "genre"):
			var genres []string
			s.Find("a").Each(func(_ int, a *goquery.Selection) {
				if g, ok := a.Attr("title"); ok && g != "" {
					genres = append(genres, g)
				}
			})
			fields["genres"] = genres
		case strings.HasPrefix(label, "released"):
			if year := yearFrom(value); year > 0 {
				fields["year"] = year
			}
		case strings.HasPrefix(label, "other name"):
			fields["original_title"] = value
		}
	})

	// Episode ranges live in a lazy-loaded list; the last range's upper
	// bound is the episode count.
	if lastEp, ok := doc.Find("ul#episode_page li a").Last().Attr("ep_end"); ok {
		fields["episodes_str"] = lastEp
	}

	return []models.RawItem{{Fields: fields, SourceURL: pageURL}}, nil
}

// ExtractStream pulls the active server's embed URL from a watch page.
func (g *Gogoanime) ExtractStream(body []byte, pageURL string) (string, []models.Subtitle, error) {
	doc, err := parseDoc(body)
	if err != nil {
		return "", nil, err
	}

	src := chainAttr(doc.Selection, "data-video", "div.anime_muti_link ul li.anime a", "li.vidcdn a", "li.streamsb a")
	if src == "" {
		src = chainAttr(doc.Selection, "src", "div.play-video iframe", "iframe")
	}
	if src == "" {
		return "", nil, models.ErrExtractionEmpty
	}
	return resolveURL(&g.cfg, pageURL, src), nil, nil
}

func (g *Gogoanime) StreamHeaders(pageURL string) map[string]string {
	return map[string]string{
		"Referer": strings.TrimRight(g.cfg.BaseURL, "/") + "/",
	}
}
