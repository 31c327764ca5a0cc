package sources

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamvault/config"
	"streamvault/models"
)

func TestRegistryResolvesKnownAndUnknown(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(config.DefaultSources())

	adapter, cfg, err := reg.Get("mydramalist")
	require.NoError(t, err)
	assert.Equal(t, "mydramalist", adapter.Name())
	assert.Equal(t, "mydramalist", cfg.Name)

	_, _, err = reg.Get("no-such-site")
	var unknown *models.UnknownSourceError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "no-such-site", unknown.Source)
	assert.Contains(t, unknown.Available, "mydramalist")
}

func TestRegistryUsesGenericForSelectorSources(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(config.DefaultSources())

	// dramanice has no dedicated adapter, only catalog selector rules.
	adapter, _, err := reg.Get("dramanice")
	require.NoError(t, err)
	_, ok := adapter.(*Generic)
	assert.True(t, ok)
}

func TestMyDramaListExtractList(t *testing.T) {
	t.Parallel()

	html := `<html><body><div id="content">
		<div class="box">
			<h6 class="title"><a href="/18452-queen-of-tears">Queen of Tears</a></h6>
			<img class="lazy" data-src="https://i.mydramalist.com/qot.jpg">
			<span class="score">8.8</span>
			<span class="text-muted">Korean Drama - 2024, 16 episodes</span>
			<p>A love story between heirs.</p>
		</div>
		<div class="box">
			<h6 class="title"><a href="/12345-vincenzo">Vincenzo</a></h6>
			<span class="text-muted">Korean Drama - 2021, 20 episodes</span>
		</div>
	</div></body></html>`

	adapter := NewMyDramaList(config.SourceSettings{Name: "mydramalist", BaseURL: "https://mydramalist.com"})
	target := adapter.Targets(KindList, "", 10)[0]

	items, err := adapter.Extract([]byte(html), target)
	require.NoError(t, err)
	require.Len(t, items, 2)

	first := items[0].Fields
	assert.Equal(t, "Queen of Tears", first["title"])
	assert.Equal(t, "https://mydramalist.com/18452-queen-of-tears", first["url"])
	assert.Equal(t, "18452-queen-of-tears", first["source_id"])
	assert.Equal(t, 8.8, first["rating"])
	assert.Equal(t, 2024, first["year"])
	assert.Equal(t, 16, first["episodes"])
}

func TestMyDramaListEmptyPageIsExtractionEmpty(t *testing.T) {
	t.Parallel()

	adapter := NewMyDramaList(config.SourceSettings{Name: "mydramalist", BaseURL: "https://mydramalist.com"})
	target := adapter.Targets(KindList, "", 10)[0]

	_, err := adapter.Extract([]byte("<html><body><div>nothing here</div></body></html>"), target)
	assert.ErrorIs(t, err, models.ErrExtractionEmpty)
}

func TestDramaCoolExtractStream(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<div class="watch-iframe">
			<iframe src="//embed.example.net/e/abc123"></iframe>
		</div>
		<track kind="captions" src="/subs/abc123.en.vtt" srclang="en" label="English">
	</body></html>`

	adapter := NewDramaCool(config.SourceSettings{Name: "dramacool", BaseURL: "https://dramacool.com.pa"})

	streamURL, subs, err := adapter.ExtractStream([]byte(html), "https://dramacool.com.pa/queen-of-tears-episode-1.html")
	require.NoError(t, err)
	assert.Equal(t, "https://embed.example.net/e/abc123", streamURL)
	require.Len(t, subs, 1)
	assert.Equal(t, "en", subs[0].Language)
	assert.Equal(t, "https://dramacool.com.pa/subs/abc123.en.vtt", subs[0].URL)

	headers := adapter.StreamHeaders("https://dramacool.com.pa/x")
	assert.Equal(t, "https://dramacool.com.pa", headers["Origin"])
}

func TestGogoanimeExtractDetail(t *testing.T) {
	t.Parallel()

	html := `<html><body><div class="anime_info_body_bg">
		<img src="https://gogocdn.net/cover/frieren.png">
		<h1>Sousou no Frieren</h1>
		<p class="type"><span>Plot Summary: </span>An elf mage outlives her party.</p>
		<p class="type"><span>Genre: </span><a title="Adventure">Adventure</a><a title="Fantasy">Fantasy</a></p>
		<p class="type"><span>Released: </span>2023</p>
	</div>
	<ul id="episode_page"><li><a ep_start="1" ep_end="14">1-14</a></li><li><a ep_start="15" ep_end="28">15-28</a></li></ul>
	</body></html>`

	adapter := NewGogoanime(config.SourceSettings{Name: "gogoanime", BaseURL: "https://anitaku.to"})
	target := adapter.Targets(KindDetail, "sousou-no-frieren", 0)[0]

	items, err := adapter.Extract([]byte(html), target)
	require.NoError(t, err)
	require.Len(t, items, 1)

	fields := items[0].Fields
	assert.Equal(t, "Sousou no Frieren", fields["title"])
	assert.Equal(t, "An elf mage outlives her party.", fields["plot"])
	assert.Equal(t, []string{"Adventure", "Fantasy"}, fields["genres"])
	assert.Equal(t, 2023, fields["year"])
	assert.Equal(t, "28", fields["episodes_str"])
}

func TestAnimeFireStreamFromJSON(t *testing.T) {
	t.Parallel()

	body := `{"data":[{"src":"https://cdn.animefire.plus/ep1-sd.mp4","label":"SD"},{"src":"https://cdn.animefire.plus/ep1-hd.mp4","label":"HD"}]}`

	adapter := NewAnimeFire(config.SourceSettings{Name: "animefire", BaseURL: "https://animefire.plus"})
	streamURL, _, err := adapter.ExtractStream([]byte(body), "https://animefire.plus/animes/frieren/1")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.animefire.plus/ep1-hd.mp4", streamURL)
}

func TestTMDBExtractListAndDetail(t *testing.T) {
	t.Parallel()

	adapter := NewTMDB(config.SourceSettings{Name: "tmdb", BaseURL: "https://api.themoviedb.org/3"})

	list := `{"results":[{"id":872585,"title":"Oppenheimer","overview":"The story of the bomb.","release_date":"2023-07-19","vote_average":8.1,"poster_path":"/opp.jpg"}]}`
	items, err := adapter.Extract([]byte(list), FetchTarget{Kind: KindList, URL: "https://api.themoviedb.org/3/movie/popular?page=1"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Oppenheimer", items[0].Fields["title"])
	assert.Equal(t, "872585", items[0].Fields["source_id"])
	assert.Equal(t, 2023, items[0].Fields["year"])
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/opp.jpg", items[0].Fields["poster"])

	detail := `{"id":872585,"title":"Oppenheimer","runtime":181,"genres":[{"name":"Drama"}],"credits":{"cast":[{"name":"Cillian Murphy"}],"crew":[{"name":"Christopher Nolan","job":"Director"}]}}`
	items, err = adapter.Extract([]byte(detail), FetchTarget{Kind: KindDetail, URL: "https://api.themoviedb.org/3/movie/872585"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "181 min", items[0].Fields["duration"])
	assert.Equal(t, []string{"Cillian Murphy"}, items[0].Fields["cast"])
	assert.Equal(t, []string{"Christopher Nolan"}, items[0].Fields["director"])

	_, err = adapter.Extract([]byte(`{"results":[]}`), FetchTarget{Kind: KindList})
	assert.ErrorIs(t, err, models.ErrExtractionEmpty)
}

func TestGenericAdapterExtractsFromRules(t *testing.T) {
	t.Parallel()

	cfg := config.SourceSettings{
		Name: "filmyzilla", Category: "bollywood",
		BaseURL: "https://filmyzilla.example",
		Selectors: &config.SelectorRules{
			ListPath: "/category/bollywood",
			Item:     []string{"article.post"},
			Fields: map[string][]string{
				"title":    {"h2.entry-title a"},
				"synopsis": {"div.entry-summary p"},
			},
			Attrs:    map[string]string{"poster": "src"},
			LinkAttr: "href",
		},
	}

	html := `<html><body>
	<article class="post">
		<h2 class="entry-title"><a href="/jawan-2023/">Jawan (2023) Hindi WEB-DL</a></h2>
		<div class="entry-summary"><p>A man on a mission.</p></div>
		<img src="/posters/jawan.jpg">
	</article>
	</body></html>`

	adapter := NewGeneric(cfg)
	target := adapter.Targets(KindList, "", 10)[0]
	assert.Equal(t, "https://filmyzilla.example/category/bollywood", target.URL)

	items, err := adapter.Extract([]byte(html), target)
	require.NoError(t, err)
	require.Len(t, items, 1)

	fields := items[0].Fields
	assert.Equal(t, "Jawan", fields["title"])
	assert.Equal(t, 2023, fields["year"])
	assert.Equal(t, "A man on a mission.", fields["synopsis"])
	assert.Equal(t, "https://filmyzilla.example/posters/jawan.jpg", fields["poster"])
	assert.Equal(t, "jawan-2023", fields["source_id"])
}

func TestSplitReleaseTitle(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in    string
		title string
		year  int
	}{
		{"Jawan (2023) Hindi WEB-DL 1080p", "Jawan", 2023},
		{"Pathaan Full Movie Download", "Pathaan", 0},
		{"3 Idiots (2009)", "3 Idiots", 2009},
		{"Dangal", "Dangal", 0},
	}
	for _, tc := range cases {
		title, year := splitReleaseTitle(tc.in)
		assert.Equal(t, tc.title, title, tc.in)
		assert.Equal(t, tc.year, year, tc.in)
	}
}

func TestYearAndEpisodeHelpers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2024, yearFrom("Korean Drama - 2024, 16 episodes"))
	assert.Equal(t, 0, yearFrom("no year here"))
	assert.Equal(t, 0, yearFrom("1234 too old"))

	assert.Equal(t, 16, episodesFrom("Korean Drama - 2024, 16 episodes"))
	assert.Equal(t, 0, episodesFrom("movie, no count"))
}

func TestFetchTargetWaitSelector(t *testing.T) {
	t.Parallel()

	target := FetchTarget{ExpectedSelectors: []string{"div.box", "div.item"}}
	assert.Equal(t, "div.box", target.WaitSelector())
	assert.Equal(t, "", FetchTarget{}.WaitSelector())
}

func TestStreamExtractorCapability(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(config.DefaultSources())

	dc, _, err := reg.Get("dramacool")
	require.NoError(t, err)
	_, ok := dc.(StreamExtractor)
	assert.True(t, ok, "dramacool should expose stream extraction")

	mdl, _, err := reg.Get("mydramalist")
	require.NoError(t, err)
	_, ok = mdl.(StreamExtractor)
	assert.False(t, ok, "mydramalist is metadata-only")

	var errUnknown *models.UnknownSourceError
	_, _, err = reg.Get("")
	assert.True(t, errors.As(err, &errUnknown))
}
