package sources

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"streamvault/config"
	"streamvault/models"
)

const tmdbImageBase = "https://image.tmdb.org/t/p"

// TMDB is the one JSON adapter in the fleet: it speaks the themoviedb.org
// v3 API instead of scraping HTML. The API key rides in the configured
// source headers as an Authorization bearer token.
type TMDB struct {
	cfg config.SourceSettings
}

func NewTMDB(cfg config.SourceSettings) *TMDB {
	return &TMDB{cfg: cfg}
}

func (t *TMDB) Name() string { return t.cfg.Name }
func (t *TMDB) Category() models.ContentType { return models.ContentTypeFilm }

func (t *TMDB) Targets(kind Kind, arg string, limit int) []FetchTarget {
	base := strings.TrimRight(t.cfg.BaseURL, "/")
	switch kind {
	case KindSearch:
		return []FetchTarget{{
			URL:  base + "/search/movie?query=" + url.QueryEscape(arg),
			Kind: KindSearch,
		}}
	case KindDetail:
		return []FetchTarget{{
			URL:  base + "/movie/" + url.PathEscape(arg) + "?append_to_response=credits",
			Kind: KindDetail,
		}}
	default:
		targets := []FetchTarget{{
			URL:  base + "/movie/popular?page=1",
			Kind: KindList,
		}}
		if limit > 20 {
			targets = append(targets, FetchTarget{
				URL:  base + "/movie/popular?page=2",
				Kind: KindList,
			})
		}
		return targets
	}
}

type tmdbListResponse struct {
	Results []tmdbMovie `json:"results"`
}

type tmdbMovie struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"original_title"`
	Overview      string  `json:"overview"`
	ReleaseDate   string  `json:"release_date"`
	VoteAverage   float64 `json:"vote_average"`
	PosterPath    string  `json:"poster_path"`
	BackdropPath  string  `json:"backdrop_path"`
	Runtime       int     `json:"runtime"`
	Genres        []struct {
		Name string `json:"name"`
	} `json:"genres"`
	Credits *struct {
		Cast []struct {
			Name string `json:"name"`
		} `json:"cast"`
		Crew []struct {
			Name string `json:"name"`
			Job  string `json:"job"`
		} `json:"crew"`
	} `json:"credits"`
}

func (t *TMDB) Extract(body []byte, target FetchTarget) ([]models.RawItem, error) {
	if target.Kind == KindDetail {
		var movie tmdbMovie
		if err := json.Unmarshal(body, &movie); err != nil {
			return nil, fmt.Errorf("tmdb detail decode: %w", err)
		}
		if movie.Title == "" {
			return nil, models.ErrExtractionEmpty
		}
		return []models.RawItem{t.toRaw(movie, target.URL)}, nil
	}

	var list tmdbListResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("tmdb list decode: %w", err)
	}
	if len(list.Results) == 0 {
		return nil, models.ErrExtractionEmpty
	}

	out := make([]models.RawItem, 0, len(list.Results))
	for _, movie := range list.Results {
		if movie.Title == "" {
			continue
		}
		out = append(out, t.toRaw(movie, target.URL))
	}
	if len(out) == 0 {
		return nil, models.ErrExtractionEmpty
	}
	return out, nil
}

func (t *TMDB) toRaw(movie tmdbMovie, pageURL string) models.RawItem {
	fields := map[string]any{
		"title":     movie.Title,
		"source_id": fmt.Sprintf("%d", movie.ID),
		"url":       "https://www.themoviedb.org/movie/" + fmt.Sprintf("%d", movie.ID),
		"synopsis":  movie.Overview,
		"rating":    movie.VoteAverage,
	}
	if movie.OriginalTitle != "" && movie.OriginalTitle != movie.Title {
		fields["original_title"] = movie.OriginalTitle
	}
	if year := yearFrom(movie.ReleaseDate); year > 0 {
		fields["year"] = year
	}
	if movie.PosterPath != "" {
		fields["poster"] = tmdbImageBase + "/w500" + movie.PosterPath
	}
	if movie.BackdropPath != "" {
		fields["backdrop"] = tmdbImageBase + "/w1280" + movie.BackdropPath
	}
	if movie.Runtime > 0 {
		fields["duration"] = fmt.Sprintf("%d min", movie.Runtime)
	}
	if len(movie.Genres) > 0 {
		genres := make([]string, 0, len(movie.Genres))
		for _, g := range movie.Genres {
			genres = append(genres, g.Name)
		}
		fields["genres"] = genres
	}
	if movie.Credits != nil {
		var cast []string
		for _, c := range movie.Credits.Cast {
			cast = append(cast, c.Name)
			if len(cast) == 12 {
				break
			}
		}
		if len(cast) > 0 {
			fields["cast"] = cast
		}
		var directors []string
		for _, c := range movie.Credits.Crew {
			if c.Job == "Director" {
				directors = append(directors, c.Name)
			}
		}
		if len(directors) > 0 {
			fields["director"] = directors
		}
	}
	return models.RawItem{Fields: fields, SourceURL: pageURL}
}
