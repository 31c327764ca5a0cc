package sources

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"streamvault/config"
	"streamvault/models"
)

// DramaCool scrapes dramacool mirrors. List markup is thin (title, poster,
// episode badge); detail pages carry synopsis and genre links, and watch
// pages embed the player iframe this adapter can extract a stream from.
type DramaCool struct {
	cfg config.SourceSettings
}

func NewDramaCool(cfg config.SourceSettings) *DramaCool {
	return &DramaCool{cfg: cfg}
}

func (d *DramaCool) Name() string { return d.cfg.Name }
func (d *DramaCool) Category() models.ContentType { return models.ContentTypeDrama }

var dcItemSelectors = []string{
	"ul.list-episode-item li",
	"ul.switch-block li",
	"div.block-tab ul li",
}

func (d *DramaCool) Targets(kind Kind, arg string, limit int) []FetchTarget {
	base := strings.TrimRight(d.cfg.BaseURL, "/")
	switch kind {
	case KindSearch:
		return []FetchTarget{{
			URL:               base + "/search?type=drama&keyword=" + url.QueryEscape(arg),
			Kind:              KindSearch,
			ExpectedSelectors: dcItemSelectors,
		}}
	case KindDetail:
		return []FetchTarget{{
			URL:               base + "/drama-detail/" + url.PathEscape(arg),
			Kind:              KindDetail,
			ExpectedSelectors: []string{"div.info h1", "div.details h1"},
		}}
	default:
		return []FetchTarget{{
			URL:               base + "/most-popular-drama",
			Kind:              KindList,
			ExpectedSelectors: dcItemSelectors,
		}}
	}
}

func (d *DramaCool) Extract(body []byte, target FetchTarget) ([]models.RawItem, error) {
	doc, err := parseDoc(body)
	if err != nil {
		return nil, err
	}
	if target.Kind == KindDetail {
		return d.extractDetail(doc, target.URL)
	}

	items := firstMatch(doc, dcItemSelectors)
	if items == nil {
		return nil, models.ErrExtractionEmpty
	}

	var out []models.RawItem
	items.Each(func(_ int, s *goquery.Selection) {
		title := chainText(s, "h3.title", "h3", "a span.title")
		if title == "" {
			return
		}
		href := chainAttr(s, "href", "a")
		detailURL := resolveURL(&d.cfg, target.URL, href)

		poster := chainAttr(s, "data-original", "img")
		if poster == "" {
			poster = chainAttr(s, "src", "img")
		}

		out = append(out, models.RawItem{
			Fields: map[string]any{
				"title":     title,
				"url":       detailURL,
				"source_id": lastPathSegment(detailURL),
				"poster":    poster,
			},
			SourceURL: detailURL,
		})
	})
	if len(out) == 0 {
		return nil, models.ErrExtractionEmpty
	}
	return out, nil
}

func (d *DramaCool) extractDetail(doc *goquery.Document, pageURL string) ([]models.RawItem, error) {
	title := chainText(doc.Selection, "div.info h1", "div.details h1", "h1")
	if title == "" {
		return nil, models.ErrExtractionEmpty
	}

	fields := map[string]any{
		"title":     title,
		"url":       pageURL,
		"source_id": lastPathSegment(pageURL),
		"poster":    chainAttr(doc.Selection, "src", "div.img img", "div.details img"),
	}

	// Synopsis is the run of <p> after the "Description" header.
	var synopsis []string
	doc.Find("div.info p, div.details p").Each(func(_ int, s *goquery.Selection) {
		text := normSpace(s.Text())
		if text == "" || strings.Contains(text, ":") && len(text) < 40 {
			return
		}
		synopsis = append(synopsis, text)
	})
	if len(synopsis) > 0 {
		fields["description"] = strings.Join(synopsis, " ")
	}

	var genres []string
	doc.Find("a[href*='/genre/']").Each(func(_ int, s *goquery.Selection) {
		if g := normSpace(s.Text()); g != "" {
			genres = append(genres, g)
		}
	})
	if len(genres) > 0 {
		fields["genres"] = genres
	}

	doc.Find("div.info p span, div.details p span").Each(func(_ int, s *goquery.Selection) {
		label := strings.ToLower(normSpace(s.Text()))
		if strings.HasPrefix(label, "released") {
			if year := yearFrom(normSpace(s.Parent().Text())); year > 0 {
				fields["year"] = year
			}
		}
	})

	eps := doc.Find("ul.all-episode li, ul.list-episode-item-2 li").Length()
	if eps > 0 {
		fields["episodes"] = eps
	}

	return []models.RawItem{{Fields: fields, SourceURL: pageURL}}, nil
}

// ExtractStream pulls the player iframe source out of a watch page.
func (d *DramaCool) ExtractStream(body []byte, pageURL string) (string, []models.Subtitle, error) {
	doc, err := parseDoc(body)
	if err != nil {
		return "", nil, err
	}

	src := chainAttr(doc.Selection, "src", "div.watch-iframe iframe", "div.plyr-embed iframe", "iframe")
	if src == "" {
		src = chainAttr(doc.Selection, "data-src", "iframe")
	}
	if src == "" {
		return "", nil, models.ErrExtractionEmpty
	}
	streamURL := resolveURL(&d.cfg, pageURL, src)

	var subs []models.Subtitle
	doc.Find("track[kind='captions'], track[kind='subtitles']").Each(func(_ int, s *goquery.Selection) {
		subURL, _ := s.Attr("src")
		if subURL == "" {
			return
		}
		lang, _ := s.Attr("srclang")
		label, _ := s.Attr("label")
		subs = append(subs, models.Subtitle{
			Language: lang,
			Label:    label,
			URL:      resolveURL(&d.cfg, pageURL, subURL),
		})
	})

	return streamURL, subs, nil
}

// StreamHeaders returns the referer/origin the dramacool CDNs insist on.
func (d *DramaCool) StreamHeaders(pageURL string) map[string]string {
	return map[string]string{
		"Referer": d.cfg.BaseURL + "/",
		"Origin":  strings.TrimRight(d.cfg.BaseURL, "/"),
	}
}
