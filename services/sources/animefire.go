package sources

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"streamvault/config"
	"streamvault/models"
)

// AnimeFire scrapes animefire.plus. Search results come in two markup
// generations (row links and ani-cards); video URLs are served as a JSON
// quality list behind the player page.
type AnimeFire struct {
	cfg config.SourceSettings
}

func NewAnimeFire(cfg config.SourceSettings) *AnimeFire {
	return &AnimeFire{cfg: cfg}
}

func (a *AnimeFire) Name() string { return a.cfg.Name }
func (a *AnimeFire) Category() models.ContentType { return models.ContentTypeAnime }

var afItemSelectors = []string{
	"div.card_ani",
	"div.row.ml-1.mr-1 a",
	"article.cardUltimosEps",
}

func (a *AnimeFire) Targets(kind Kind, arg string, limit int) []FetchTarget {
	base := strings.TrimRight(a.cfg.BaseURL, "/")
	switch kind {
	case KindSearch:
		return []FetchTarget{{
			URL:               base + "/pesquisar/" + url.PathEscape(arg),
			Kind:              KindSearch,
			ExpectedSelectors: afItemSelectors,
		}}
	case KindDetail:
		return []FetchTarget{{
			URL:               base + "/animes/" + url.PathEscape(arg),
			Kind:              KindDetail,
			ExpectedSelectors: []string{"div.div_anime_names", "h1.quicksand400"},
		}}
	default:
		return []FetchTarget{{
			URL:               base + "/top-animes",
			Kind:              KindList,
			ExpectedSelectors: afItemSelectors,
		}}
	}
}

func (a *AnimeFire) Extract(body []byte, target FetchTarget) ([]models.RawItem, error) {
	doc, err := parseDoc(body)
	if err != nil {
		return nil, err
	}
	if target.Kind == KindDetail {
		return a.extractDetail(doc, target.URL)
	}

	var out []models.RawItem

	// Card markup first; it carries the poster.
	doc.Find("div.card_ani, article.cardUltimosEps").Each(func(_ int, s *goquery.Selection) {
		title := chainText(s, "div.ani_name a", "h3.animeTitle", "a")
		if title == "" {
			return
		}
		href := chainAttr(s, "href", "div.ani_name a", "a")
		detailURL := resolveURL(&a.cfg, target.URL, href)
		out = append(out, models.RawItem{
			Fields: map[string]any{
				"title":     title,
				"url":       detailURL,
				"source_id": lastPathSegment(detailURL),
				"image":     chainAttr(s, "src", "div.div_img img", "img"),
			},
			SourceURL: detailURL,
		})
	})

	// Older revisions render bare row links.
	if len(out) == 0 {
		doc.Find("div.row.ml-1.mr-1 a").Each(func(_ int, s *goquery.Selection) {
			title := normSpace(s.Text())
			href, ok := s.Attr("href")
			if title == "" || !ok {
				return
			}
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
	}

	if len(out) == 0 {
		return nil, models.ErrExtractionEmpty
	}
	return out, nil
}

func (a *AnimeFire) extractDetail(doc *goquery.Document, pageURL string) ([]models.RawItem, error) {
	title := chainText(doc.Selection, "div.div_anime_names h1", "h1.quicksand400", "h1")
	if title == "" {
		return nil, models.ErrExtractionEmpty
	}

	fields := map[string]any{
		"title":     title,
		"url":       pageURL,
		"source_id": lastPathSegment(pageURL),
		"image":     chainAttr(doc.Selection, "src", "div.sub_animepage_img img", "img.imgAnimes"),
		"plot":      chainText(doc.Selection, "div.divSinopse span.spanAnimeInfo", "div.divSinopse"),
	}

	if alt := chainText(doc.Selection, "div.div_anime_names h6"); alt != "" && alt != title {
		fields["original_title"] = alt
	}

	doc.Find("div.animeInfo").Each(func(_ int, s *goquery.Selection) {
		label := strings.ToLower(chainText(s, "b"))
		value := normSpace(strings.TrimPrefix(normSpace(s.Text()), chainText(s, "b")))
		switch {
		case strings.Contains(label, "gênero"), strings.Contains(label, "genero"):
			fields["genres"] = splitNames(value)
		case strings.Contains(label, "ano"):
			if year := yearFrom(value); year > 0 {
				fields["year"] = year
			}
		case strings.Contains(label, "episódio"), strings.Contains(label, "episodio"):
			fields["episodes_str"] = value
		}
	})

	eps := doc.Find("div.div_video_list a").Length()
	if eps > 0 {
		fields["episodes"] = eps
	}

	return []models.RawItem{{Fields: fields, SourceURL: pageURL}}, nil
}

// afVideoResponse is the player endpoint's quality list.
type afVideoResponse struct {
	Data []struct {
		Src   string `json:"src"`
		Label string `json:"label"`
	} `json:"data"`
}

// ExtractStream handles both response shapes the player serves: a JSON
// quality list, or an HTML page with a <video> element.
func (a *AnimeFire) ExtractStream(body []byte, pageURL string) (string, []models.Subtitle, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "{") {
		var vr afVideoResponse
		if err := json.Unmarshal(body, &vr); err == nil && len(vr.Data) > 0 {
			// Highest quality is listed last.
			return vr.Data[len(vr.Data)-1].Src, nil, nil
		}
	}

	doc, err := parseDoc(body)
	if err != nil {
		return "", nil, err
	}
	src := chainAttr(doc.Selection, "src", "video#my-video source", "video source", "video")
	if src == "" {
		src = chainAttr(doc.Selection, "data-video-src", "div#div_video", "video")
	}
	if src == "" {
		return "", nil, models.ErrExtractionEmpty
	}
	return resolveURL(&a.cfg, pageURL, src), nil, nil
}

func (a *AnimeFire) StreamHeaders(pageURL string) map[string]string {
	return map[string]string{
		"Referer": strings.TrimRight(a.cfg.BaseURL, "/") + "/",
	}
}
