package models

import "time"

// ContentType enumerates the relational tables content is persisted into.
type ContentType string

const (
	ContentTypeDrama     ContentType = "drama"
	ContentTypeAnime     ContentType = "anime"
	ContentTypeFilm      ContentType = "film"
	ContentTypeBollywood ContentType = "bollywood"
)

// ContentTypes lists every valid content type in table order.
var ContentTypes = []ContentType{ContentTypeDrama, ContentTypeAnime, ContentTypeFilm, ContentTypeBollywood}

// Valid reports whether t is one of the enumerated content types.
func (t ContentType) Valid() bool {
	switch t {
	case ContentTypeDrama, ContentTypeAnime, ContentTypeFilm, ContentTypeBollywood:
		return true
	}
	return false
}

// Table returns the relational table name for the content type.
func (t ContentType) Table() string {
	switch t {
	case ContentTypeDrama:
		return "dramas"
	case ContentTypeAnime:
		return "animes"
	case ContentTypeFilm:
		return "films"
	case ContentTypeBollywood:
		return "bollywood"
	}
	return ""
}

// ContentRecord is the canonical unit produced by the normalizer and
// persisted by the sink. ID is unique per logical title; re-scrapes of the
// same (source, source_id) upsert rather than duplicate.
type ContentRecord struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	OriginalTitle string      `json:"original_title,omitempty"`
	ContentType   ContentType `json:"content_type"`
	Year          int         `json:"year,omitempty"`
	Rating        float64     `json:"rating,omitempty"`
	Synopsis      string      `json:"synopsis,omitempty"`
	EpisodesCount int         `json:"episodes_count,omitempty"`
	Duration      string      `json:"duration,omitempty"`
	Genres        []string    `json:"genres,omitempty"`
	Cast          []string    `json:"cast,omitempty"`
	Director      []string    `json:"director,omitempty"`
	Poster        string      `json:"poster,omitempty"`
	Backdrop      string      `json:"backdrop,omitempty"`
	Source        string      `json:"source"`
	SourceID      string      `json:"source_id"`
	SourceURL     string      `json:"source_url,omitempty"`
	IsFallback    bool        `json:"is_fallback,omitempty"`
	ScrapedAt     time.Time   `json:"scraped_at"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// RawItem is a partial record extracted by a site adapter before
// normalization. Fields holds the site's raw field names; the normalizer
// resolves them through its alias table.
type RawItem struct {
	Fields    map[string]any
	SourceURL string
}

// RunStatus is the lifecycle state of a scrape run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusPartial   RunStatus = "partial"
	RunStatusError     RunStatus = "error"
)

// ScrapeRun is one append-only scraping_logs row per source invocation.
type ScrapeRun struct {
	ID          string      `json:"id"`
	Source      string      `json:"source"`
	ContentType ContentType `json:"content_type"`
	Status      RunStatus   `json:"status"`
	ItemsCount  int         `json:"items_count"`
	ErrorsCount int         `json:"errors_count"`
	DurationMS  int64       `json:"duration_ms"`
	Details     []RunError  `json:"details,omitempty"`
	StartedAt   time.Time   `json:"started_at"`
	FinishedAt  *time.Time  `json:"finished_at,omitempty"`
}

// RunError is one structured entry in a scrape run's error detail list.
type RunError struct {
	Kind    string `json:"kind"`
	URL     string `json:"url,omitempty"`
	Message string `json:"message"`
}

// Subtitle describes one subtitle track attached to a streaming entry.
type Subtitle struct {
	Language string `json:"language"`
	Label    string `json:"label,omitempty"`
	URL      string `json:"url"`
}

// StreamingInfo is the ephemeral cache entry the gateway hands to playback
// clients. Entries past ExpiresAt are never served; they trigger a refresh.
type StreamingInfo struct {
	ContentID      string            `json:"content_id"`
	StreamingURL   string            `json:"streaming_url"`
	Source         string            `json:"source"`
	Headers        map[string]string `json:"headers,omitempty"`
	Subtitles      []Subtitle        `json:"subtitles,omitempty"`
	ReferrerPolicy string            `json:"referrer_policy,omitempty"`
	ExpiresAt      time.Time         `json:"expires_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Expired reports whether the entry is no longer servable at now.
func (s *StreamingInfo) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// ImageSize enumerates the fixed variant set served by the image endpoint.
type ImageSize string

const (
	ImageSizeW200     ImageSize = "w200"
	ImageSizeW500     ImageSize = "w500"
	ImageSizeW1000    ImageSize = "w1000"
	ImageSizeOriginal ImageSize = "original"
)

// ParseImageSize validates a path segment against the variant set.
func ParseImageSize(s string) (ImageSize, bool) {
	switch ImageSize(s) {
	case ImageSizeW200, ImageSizeW500, ImageSizeW1000, ImageSizeOriginal:
		return ImageSize(s), true
	}
	return "", false
}

// Width returns the pixel width of the variant, 0 for original.
func (s ImageSize) Width() int {
	switch s {
	case ImageSizeW200:
		return 200
	case ImageSizeW500:
		return 500
	case ImageSizeW1000:
		return 1000
	}
	return 0
}
