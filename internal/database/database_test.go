package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamvault/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleRecord(sourceID string) models.ContentRecord {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	return models.ContentRecord{
		ID:            "mydramalist:" + sourceID,
		Title:         "Queen of Tears",
		ContentType:   models.ContentTypeDrama,
		Year:          2024,
		Rating:        8.8,
		Synopsis:      "A love story between heirs.",
		EpisodesCount: 16,
		Genres:        []string{"Romance", "Drama"},
		Cast:          []string{"Kim Soo-hyun", "Kim Ji-won"},
		Poster:        "https://img.example/qot.jpg",
		Source:        "mydramalist",
		SourceID:      sourceID,
		SourceURL:     "https://mydramalist.com/18452-queen-of-tears",
		ScrapedAt:     now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestUpsertBatchRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	rec := sampleRecord("18452-queen-of-tears")
	require.NoError(t, db.UpsertBatch(ctx, models.ContentTypeDrama, []models.ContentRecord{rec}))

	got, err := db.GetContent(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Title, got.Title)
	assert.Equal(t, rec.Genres, got.Genres)
	assert.Equal(t, rec.Cast, got.Cast)
	assert.Equal(t, models.ContentTypeDrama, got.ContentType)
	assert.Equal(t, 8.8, got.Rating)
}

func TestUpsertBatchIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	batch := []models.ContentRecord{sampleRecord("18452-queen-of-tears")}
	require.NoError(t, db.UpsertBatch(ctx, models.ContentTypeDrama, batch))

	// Same batch again with an updated rating must update, not duplicate.
	batch[0].Rating = 9.0
	require.NoError(t, db.UpsertBatch(ctx, models.ContentTypeDrama, batch))

	counts, err := db.CountContent(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["dramas"])

	got, err := db.GetContent(ctx, batch[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 9.0, got.Rating)
}

func TestUpsertBatchRejectsUnknownType(t *testing.T) {
	db := openTestDB(t)

	err := db.UpsertBatch(context.Background(), models.ContentType("podcast"), []models.ContentRecord{sampleRecord("x")})
	var perr *models.PersistenceError
	require.ErrorAs(t, err, &perr)
}

func TestGetContentNotFound(t *testing.T) {
	db := openTestDB(t)

	_, err := db.GetContent(context.Background(), "mydramalist:missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestListContentOrdersByScrapedAt(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	older := sampleRecord("older")
	older.ScrapedAt = older.ScrapedAt.Add(-time.Hour)
	newer := sampleRecord("newer")
	newer.ID = "mydramalist:newer"
	older.ID = "mydramalist:older"

	require.NoError(t, db.UpsertBatch(ctx, models.ContentTypeDrama, []models.ContentRecord{older, newer}))

	records, err := db.ListContent(ctx, models.ContentTypeDrama, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "mydramalist:newer", records[0].ID)
}

func TestRunLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	id, err := db.StartRun(ctx, "gogoanime", models.ContentTypeAnime)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	runs, err := db.RecentRuns(ctx, "gogoanime", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunStatusRunning, runs[0].Status)
	assert.Nil(t, runs[0].FinishedAt)

	require.NoError(t, db.FinalizeRun(ctx, models.ScrapeRun{
		ID:          id,
		Status:      models.RunStatusPartial,
		ItemsCount:  18,
		ErrorsCount: 2,
		DurationMS:  1234,
		Details: []models.RunError{
			{Kind: "network", URL: "https://anitaku.to/popular.html", Message: "connection refused"},
		},
	}))

	runs, err = db.RecentRuns(ctx, "gogoanime", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunStatusPartial, runs[0].Status)
	assert.Equal(t, 18, runs[0].ItemsCount)
	assert.NotNil(t, runs[0].FinishedAt)
	require.Len(t, runs[0].Details, 1)
	assert.Equal(t, "network", runs[0].Details[0].Kind)

	// Filter excludes other sources.
	runs, err = db.RecentRuns(ctx, "mydramalist", 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestStreamingInfoRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.GetStreamingInfo(ctx, "dramacool:qot-ep1")
	assert.ErrorIs(t, err, models.ErrNotFound)

	info := models.StreamingInfo{
		ContentID:    "dramacool:qot-ep1",
		StreamingURL: "https://embed.example.net/e/abc123",
		Source:       "dramacool",
		Headers:      map[string]string{"Referer": "https://dramacool.com.pa/"},
		Subtitles: []models.Subtitle{
			{Language: "en", Label: "English", URL: "https://dramacool.com.pa/subs/abc.vtt"},
		},
		ExpiresAt: time.Now().Add(2 * time.Hour).UTC().Truncate(time.Second),
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, db.PutStreamingInfo(ctx, info))

	got, err := db.GetStreamingInfo(ctx, info.ContentID)
	require.NoError(t, err)
	assert.Equal(t, info.StreamingURL, got.StreamingURL)
	assert.Equal(t, info.Headers, got.Headers)
	require.Len(t, got.Subtitles, 1)
	assert.Equal(t, "en", got.Subtitles[0].Language)

	// Refresh replaces in place.
	info.StreamingURL = "https://embed.example.net/e/def456"
	require.NoError(t, db.PutStreamingInfo(ctx, info))
	got, err = db.GetStreamingInfo(ctx, info.ContentID)
	require.NoError(t, err)
	assert.Equal(t, "https://embed.example.net/e/def456", got.StreamingURL)

	require.NoError(t, db.DeleteStreamingInfo(ctx, info.ContentID))
	_, err = db.GetStreamingInfo(ctx, info.ContentID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
