package config

// DefaultSources is the shipped source catalog. Sources with a hand-written
// adapter carry no selector rules; the rest are driven by the generic
// selector adapter. Mirror lists are ordered by reliability.
func DefaultSources() []SourceSettings {
	return []SourceSettings{
		// Drama
		{
			Name: "mydramalist", Category: "drama",
			BaseURL:        "https://mydramalist.com",
			FallbackURLs:   []string{"https://mydramalist.info"},
			FetchPath:      FetchPathLocal,
			TimeoutSeconds: 30, MinIntervalMS: 1500, Enabled: true,
		},
		{
			Name: "dramacool", Category: "drama",
			BaseURL:        "https://dramacool.com.pa",
			FallbackURLs:   []string{"https://dramacool.sr", "https://dramacool9.io"},
			FetchPath:      FetchPathLocal,
			TimeoutSeconds: 30, MinIntervalMS: 2000, Enabled: true,
		},
		{
			Name: "asianwiki", Category: "drama",
			BaseURL:        "https://asianwiki.com",
			FetchPath:      FetchPathLocal,
			TimeoutSeconds: 30, MinIntervalMS: 1200, Enabled: true,
		},
		{
			Name: "kissasian", Category: "drama",
			BaseURL:        "https://kissasian.lu",
			FallbackURLs:   []string{"https://kissasian.pe", "https://kissasian.mx"},
			FetchPath:      FetchPathRelay, // heavy client-side rendering
			TimeoutSeconds: 60, MinIntervalMS: 2500, Enabled: true,
			Selectors: &SelectorRules{
				ListPath:   "/drama-list/most-popular-drama",
				SearchPath: "/search?q=%s",
				DetailPath: "/drama/%s",
				Item:       []string{"div.list-drama div.item", "div.listing div.item-list"},
				Fields: map[string][]string{
					"title":    {"a.title", "h3 a", "div.title"},
					"synopsis": {"p.des", "div.summary p"},
				},
				Attrs:    map[string]string{"poster": "src", "title_attr": "title"},
				LinkAttr: "href",
			},
		},
		{
			Name: "dramanice", Category: "drama",
			BaseURL:        "https://dramanice.video",
			FallbackURLs:   []string{"https://dramanice.sh"},
			FetchPath:      FetchPathLocal,
			TimeoutSeconds: 30, MinIntervalMS: 2000, Enabled: true,
			Selectors: &SelectorRules{
				ListPath:   "/popular-drama",
				SearchPath: "/search.html?keyword=%s",
				DetailPath: "/drama/%s",
				Item:       []string{"ul.listing li", "div.video-block"},
				Fields: map[string][]string{
					"title": {"a.name", "div.name", "h2 a"},
				},
				Attrs:    map[string]string{"poster": "src"},
				LinkAttr: "href",
			},
		},
		// Anime
		{
			Name: "gogoanime", Category: "anime",
			BaseURL:        "https://gogoanime3.co",
			FallbackURLs:   []string{"https://gogoanime.by", "https://anitaku.pe"},
			FetchPath:      FetchPathLocal,
			TimeoutSeconds: 30, MinIntervalMS: 1500, Enabled: true,
		},
		{
			Name: "animefire", Category: "anime",
			BaseURL:        "https://animefire.plus",
			FallbackURLs:   []string{"https://animefire.net"},
			FetchPath:      FetchPathLocal,
			TimeoutSeconds: 30, MinIntervalMS: 1500, Enabled: true,
		},
		{
			Name: "nineanime", Category: "anime",
			BaseURL:        "https://9animetv.to",
			FetchPath:      FetchPathRelay,
			TimeoutSeconds: 60, MinIntervalMS: 2500, Enabled: true,
			Selectors: &SelectorRules{
				ListPath:   "/most-popular",
				SearchPath: "/search?keyword=%s",
				DetailPath: "/watch/%s",
				Item:       []string{"div.flw-item", "div.film_list-wrap div.flw-item"},
				Fields: map[string][]string{
					"title":    {"h3.film-name a", "a.film-poster-ahref"},
					"duration": {"span.fdi-duration"},
				},
				Attrs:    map[string]string{"poster": "data-src"},
				LinkAttr: "href",
			},
		},
		{
			Name: "animepahe", Category: "anime",
			BaseURL:        "https://animepahe.ru",
			FallbackURLs:   []string{"https://animepahe.com"},
			FetchPath:      FetchPathBrowser, // API behind DDoS-Guard
			TimeoutSeconds: 60, MinIntervalMS: 3000, Enabled: false,
			Selectors: &SelectorRules{
				ListPath:   "/anime",
				SearchPath: "/api?m=search&q=%s",
				DetailPath: "/anime/%s",
				Item:       []string{"div.index-item", "div.col-12 a"},
				Fields: map[string][]string{
					"title": {"a", "h5"},
				},
				LinkAttr: "href",
			},
		},
		// Bollywood
		{
			Name: "bollyflix", Category: "bollywood",
			BaseURL:        "https://bollyflix.navy",
			FallbackURLs:   []string{"https://bollyflix.phd", "https://bollyflix.fi"},
			FetchPath:      FetchPathLocal,
			TimeoutSeconds: 30, MinIntervalMS: 2000, Enabled: true,
		},
		{
			Name: "hindilinks4u", Category: "bollywood",
			BaseURL:        "https://hindilinks4u.cv",
			FallbackURLs:   []string{"https://hindilinks4u.institute"},
			FetchPath:      FetchPathLocal,
			TimeoutSeconds: 30, MinIntervalMS: 2000, Enabled: true,
		},
		{
			Name: "filmyzilla", Category: "bollywood",
			BaseURL:        "https://filmyzilla.com.cv",
			FetchPath:      FetchPathLocal,
			TimeoutSeconds: 30, MinIntervalMS: 2500, Enabled: true,
			Selectors: &SelectorRules{
				ListPath:   "/category/bollywood-movies",
				SearchPath: "/search.php?q=%s",
				DetailPath: "/movie/%s",
				Item:       []string{"div.catRow", "div.fl"},
				Fields: map[string][]string{
					"title": {"a b", "a"},
				},
				LinkAttr: "href",
			},
		},
		{
			Name: "mkvcinemas", Category: "bollywood",
			BaseURL:        "https://mkvcinemas.cat",
			FallbackURLs:   []string{"https://mkvcinemas.boo"},
			FetchPath:      FetchPathLocal,
			TimeoutSeconds: 30, MinIntervalMS: 2000, Enabled: true,
			Selectors: &SelectorRules{
				ListPath:   "/category/bollywood",
				SearchPath: "/?s=%s",
				DetailPath: "/%s",
				Item:       []string{"article.post", "div.post-item"},
				Fields: map[string][]string{
					"title":    {"h2.entry-title a", "a.post-title"},
					"synopsis": {"div.entry-summary p"},
				},
				Attrs:    map[string]string{"poster": "src"},
				LinkAttr: "href",
			},
		},
		// Metadata
		{
			Name: "tmdb", Category: "film",
			BaseURL:        "https://api.themoviedb.org/3",
			FetchPath:      FetchPathLocal,
			TimeoutSeconds: 20, MinIntervalMS: 300, Enabled: true,
		},
		{
			Name: "imdb-lite", Category: "film",
			BaseURL:        "https://www.imdb.com",
			FetchPath:      FetchPathLocal,
			TimeoutSeconds: 30, MinIntervalMS: 2000, Enabled: false,
			Selectors: &SelectorRules{
				ListPath:   "/chart/moviemeter/",
				SearchPath: "/find/?q=%s",
				DetailPath: "/title/%s/",
				Item:       []string{"li.ipc-metadata-list-summary-item", "div.lister-item"},
				Fields: map[string][]string{
					"title":  {"h3.ipc-title__text", "a.ipc-title-link-wrapper"},
					"rating": {"span.ipc-rating-star--rating", "span.ipc-rating-star"},
				},
				Attrs:    map[string]string{"poster": "src"},
				LinkAttr: "href",
			},
		},
	}
}
