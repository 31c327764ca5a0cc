package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamvault/config"
	"streamvault/models"
)

var testClock = func() time.Time {
	return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
}

func dramaCfg() config.SourceSettings {
	return config.SourceSettings{Name: "mydramalist", Category: "drama"}
}

func TestNormalizeMapsAliases(t *testing.T) {
	t.Parallel()

	n := NewWithClock(testClock)
	raw := models.RawItem{
		Fields: map[string]any{
			"name":        "Queen of Tears",
			"poster_path": "https://img.example/qot.jpg",
			"overview":    "A love story between heirs.",
			"score":       "8.8",
			"episodes":    16,
			"genre":       "Romance, Drama, Romance",
			"url":         "https://mydramalist.com/18452-queen-of-tears",
		},
		SourceURL: "https://mydramalist.com/18452-queen-of-tears",
	}

	rec, err := n.Normalize(raw, dramaCfg(), models.ContentTypeDrama)
	require.NoError(t, err)

	assert.Equal(t, "Queen of Tears", rec.Title)
	assert.Equal(t, "https://img.example/qot.jpg", rec.Poster)
	assert.Equal(t, "A love story between heirs.", rec.Synopsis)
	assert.Equal(t, 8.8, rec.Rating)
	assert.Equal(t, 16, rec.EpisodesCount)
	assert.Equal(t, []string{"Romance", "Drama"}, rec.Genres, "duplicates collapse")
	assert.Equal(t, models.ContentTypeDrama, rec.ContentType)
	assert.Equal(t, testClock(), rec.ScrapedAt)
}

func TestNormalizeRequiresTitle(t *testing.T) {
	t.Parallel()

	n := NewWithClock(testClock)
	_, err := n.Normalize(models.RawItem{Fields: map[string]any{"poster": "x.jpg"}}, dramaCfg(), models.ContentTypeDrama)

	var nerr *models.NormalizationError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, "title", nerr.Field)
}

func TestNormalizeDerivesStableIDWithoutSourceID(t *testing.T) {
	t.Parallel()

	n := NewWithClock(testClock)
	raw := models.RawItem{Fields: map[string]any{"title": "Crash Landing on You", "year": 2019}}

	first, err := n.Normalize(raw, dramaCfg(), models.ContentTypeDrama)
	require.NoError(t, err)
	second, err := n.Normalize(raw, dramaCfg(), models.ContentTypeDrama)
	require.NoError(t, err)

	assert.NotEmpty(t, first.SourceID)
	assert.Equal(t, first.SourceID, second.SourceID, "re-scrapes must not mint new ids")
	assert.Equal(t, "mydramalist:"+first.SourceID, first.ID)
}

func TestNormalizeContentTypePrecedence(t *testing.T) {
	t.Parallel()

	n := NewWithClock(testClock)

	// Explicit raw field wins over the source category.
	raw := models.RawItem{Fields: map[string]any{"title": "X", "content_type": "anime"}}
	rec, err := n.Normalize(raw, dramaCfg(), models.ContentTypeDrama)
	require.NoError(t, err)
	assert.Equal(t, models.ContentTypeAnime, rec.ContentType)

	// Source category wins over the adapter fallback.
	raw = models.RawItem{Fields: map[string]any{"title": "Y"}}
	rec, err = n.Normalize(raw, config.SourceSettings{Name: "s", Category: "bollywood"}, models.ContentTypeFilm)
	require.NoError(t, err)
	assert.Equal(t, models.ContentTypeBollywood, rec.ContentType)

	// Invalid everywhere is a normalization error.
	_, err = n.Normalize(raw, config.SourceSettings{Name: "s", Category: "podcast"}, models.ContentType("weird"))
	var nerr *models.NormalizationError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, "content_type", nerr.Field)
}

func TestNormalizeRatingParsing(t *testing.T) {
	t.Parallel()

	n := NewWithClock(testClock)
	for _, tc := range []struct {
		raw  any
		want float64
	}{
		{"8.1/10", 8.1},
		{"IMDb 7.4", 7.4},
		{9.2, 9.2},
		{"not a rating", 0},
	} {
		rec, err := n.Normalize(models.RawItem{Fields: map[string]any{"title": "T", "rating": tc.raw}}, dramaCfg(), models.ContentTypeDrama)
		require.NoError(t, err)
		assert.Equal(t, tc.want, rec.Rating, "rating %v", tc.raw)
	}
}

func TestNormalizeBatchCollectsErrorsAndDedupes(t *testing.T) {
	t.Parallel()

	n := NewWithClock(testClock)
	raws := []models.RawItem{
		{Fields: map[string]any{"title": "Vincenzo", "source_id": "12345-vincenzo"}},
		{Fields: map[string]any{"poster": "orphan.jpg"}}, // no title
		// Detail pass for the same item, richer than the list entry.
		{Fields: map[string]any{
			"title":     "Vincenzo",
			"source_id": "12345-vincenzo",
			"synopsis":  "A consigliere returns to Seoul.",
			"episodes":  20,
		}},
		{Fields: map[string]any{"title": "Moving", "source_id": "776-moving"}},
	}

	records, errs := n.NormalizeBatch(raws, dramaCfg(), models.ContentTypeDrama)

	require.Len(t, errs, 1)
	require.Len(t, records, 2)
	assert.Equal(t, "Vincenzo", records[0].Title)
	assert.Equal(t, "A consigliere returns to Seoul.", records[0].Synopsis, "richer duplicate wins")
	assert.Equal(t, 20, records[0].EpisodesCount)
	assert.Equal(t, "Moving", records[1].Title)
}

func TestContentHashDeterministic(t *testing.T) {
	t.Parallel()

	assert.Equal(t, contentHash("Parasite", 2019), contentHash("  parasite ", 2019))
	assert.NotEqual(t, contentHash("Parasite", 2019), contentHash("Parasite", 2020))
	assert.Len(t, contentHash("Parasite", 2019), 12)
}
