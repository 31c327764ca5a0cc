// Package normalize maps per-site raw items onto the canonical content
// record. Every adapter speaks its own field dialect; the alias table here
// is the single place that dialect knowledge lives.
package normalize

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"streamvault/config"
	"streamvault/models"
)

// fieldAliases maps each canonical field to the raw names adapters emit,
// in preference order. The first present, non-empty alias wins.
var fieldAliases = map[string][]string{
	"title":          {"title", "name"},
	"original_title": {"original_title", "native_title", "other_name"},
	"synopsis":       {"synopsis", "description", "plot", "overview", "summary"},
	"poster":         {"poster", "poster_path", "image", "img", "thumbnail"},
	"backdrop":       {"backdrop", "backdrop_path", "cover", "banner"},
	"year":           {"year", "release_year"},
	"rating":         {"rating", "score", "rating_str", "vote_average"},
	"episodes":       {"episodes", "episodes_count", "episodes_str", "total_episodes"},
	"duration":       {"duration", "runtime", "length"},
	"genres":         {"genres", "genre", "categories"},
	"cast":           {"cast", "stars", "starring", "actors"},
	"director":       {"director", "directors"},
	"source_id":      {"source_id", "id", "slug"},
	"url":            {"url", "link", "source_url"},
	"content_type":   {"content_type", "type"},
}

// Normalizer converts raw items to content records. Construct once per
// process; safe for concurrent use.
type Normalizer struct {
	now func() time.Time
}

func New() *Normalizer {
	return &Normalizer{now: time.Now}
}

// NewWithClock is for tests that need deterministic timestamps.
func NewWithClock(now func() time.Time) *Normalizer {
	return &Normalizer{now: now}
}

// Normalize maps one raw item into a canonical record. category is the
// adapter's content type, used when the raw data carries no explicit type.
func (n *Normalizer) Normalize(raw models.RawItem, cfg config.SourceSettings, category models.ContentType) (models.ContentRecord, error) {
	title := n.str(raw, "title")
	if title == "" {
		return models.ContentRecord{}, &models.NormalizationError{Source: cfg.Name, Field: "title"}
	}

	rec := models.ContentRecord{
		Title:         title,
		OriginalTitle: n.str(raw, "original_title"),
		Synopsis:      n.str(raw, "synopsis"),
		Poster:        n.str(raw, "poster"),
		Backdrop:      n.str(raw, "backdrop"),
		Duration:      n.str(raw, "duration"),
		Year:          n.intval(raw, "year"),
		Rating:        n.floatval(raw, "rating"),
		EpisodesCount: n.intval(raw, "episodes"),
		Genres:        n.list(raw, "genres"),
		Cast:          n.list(raw, "cast"),
		Director:      n.list(raw, "director"),
		Source:        cfg.Name,
		SourceURL:     n.str(raw, "url"),
	}
	if rec.SourceURL == "" {
		rec.SourceURL = raw.SourceURL
	}

	rec.ContentType = n.contentType(raw, cfg, category)
	if !rec.ContentType.Valid() {
		return models.ContentRecord{}, &models.NormalizationError{Source: cfg.Name, Field: "content_type"}
	}

	rec.SourceID = n.str(raw, "source_id")
	if rec.SourceID == "" {
		rec.SourceID = contentHash(rec.Title, rec.Year)
	}
	rec.ID = recordID(rec.Source, rec.SourceID)

	now := n.now().UTC()
	rec.ScrapedAt = now
	rec.CreatedAt = now
	rec.UpdatedAt = now

	return rec, nil
}

// NormalizeBatch maps a run's raw items, collecting per-item errors instead
// of aborting: a malformed item never costs the rest of the batch.
func (n *Normalizer) NormalizeBatch(raws []models.RawItem, cfg config.SourceSettings, category models.ContentType) ([]models.ContentRecord, []error) {
	records := make([]models.ContentRecord, 0, len(raws))
	var errs []error

	seen := make(map[string]int, len(raws))
	for _, raw := range raws {
		rec, err := n.Normalize(raw, cfg, category)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		// Same (source, source_id) twice in one batch: keep the richer
		// record, which in practice is the later detail-page pass.
		if idx, dup := seen[rec.ID]; dup {
			if fieldCount(rec) >= fieldCount(records[idx]) {
				records[idx] = rec
			}
			continue
		}
		seen[rec.ID] = len(records)
		records = append(records, rec)
	}
	return records, errs
}

func (n *Normalizer) contentType(raw models.RawItem, cfg config.SourceSettings, category models.ContentType) models.ContentType {
	if explicit := n.str(raw, "content_type"); explicit != "" {
		if ct := models.ContentType(strings.ToLower(explicit)); ct.Valid() {
			return ct
		}
	}
	if ct := models.ContentType(cfg.Category); ct.Valid() {
		return ct
	}
	return category
}

// lookup returns the first present alias value for a canonical field.
func lookup(raw models.RawItem, field string) (any, bool) {
	for _, alias := range fieldAliases[field] {
		if v, ok := raw.Fields[alias]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func (n *Normalizer) str(raw models.RawItem, field string) string {
	v, ok := lookup(raw, field)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	default:
		return ""
	}
}

func (n *Normalizer) intval(raw models.RawItem, field string) int {
	v, ok := lookup(raw, field)
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return parsed
		}
	}
	return 0
}

func (n *Normalizer) floatval(raw models.RawItem, field string) float64 {
	v, ok := lookup(raw, field)
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case string:
		// "8.1/10" and "IMDb 8.1" both show up in the wild.
		fields := strings.FieldsFunc(strings.TrimSpace(t), func(r rune) bool {
			return (r < '0' || r > '9') && r != '.'
		})
		for _, f := range fields {
			if parsed, err := strconv.ParseFloat(f, 64); err == nil && parsed > 0 && parsed <= 10 {
				return parsed
			}
		}
	}
	return 0
}

func (n *Normalizer) list(raw models.RawItem, field string) []string {
	v, ok := lookup(raw, field)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case []string:
		return dedupeList(t)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return dedupeList(out)
	case string:
		parts := strings.Split(t, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return dedupeList(out)
	}
	return nil
}

func dedupeList(in []string) []string {
	if len(in) < 2 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

// contentHash derives a stable source id when the site exposes none:
// sha1 over the lowercased title and year, truncated. Deterministic so
// re-scrapes upsert instead of duplicating.
func contentHash(title string, year int) string {
	h := sha1.Sum([]byte(strings.ToLower(strings.TrimSpace(title)) + "|" + strconv.Itoa(year)))
	return hex.EncodeToString(h[:])[:12]
}

// recordID is the canonical id: "{source}:{source_id}". Stable across
// re-scrapes so it can double as the streaming-info cache key.
func recordID(source, sourceID string) string {
	return source + ":" + sourceID
}

func fieldCount(rec models.ContentRecord) int {
	count := 0
	for _, s := range []string{rec.OriginalTitle, rec.Synopsis, rec.Poster, rec.Backdrop, rec.Duration} {
		if s != "" {
			count++
		}
	}
	for _, l := range [][]string{rec.Genres, rec.Cast, rec.Director} {
		if len(l) > 0 {
			count++
		}
	}
	if rec.Year > 0 {
		count++
	}
	if rec.Rating > 0 {
		count++
	}
	if rec.EpisodesCount > 0 {
		count++
	}
	return count
}
