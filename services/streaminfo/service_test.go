package streaminfo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamvault/config"
	"streamvault/internal/database"
	"streamvault/models"
	"streamvault/services/fetch"
	"streamvault/services/sources"
)

const watchPageHTML = `<html><body>
	<div class="watch-iframe"><iframe src="https://embed.example.net/e/abc123"></iframe></div>
	<track kind="captions" src="/subs/abc.vtt" srclang="en" label="English">
</body></html>`

type stubFetcher struct {
	pages map[string]string
}

func (f *stubFetcher) Fetch(ctx context.Context, req fetch.Request) (*fetch.Result, error) {
	body, ok := f.pages[req.URL]
	if !ok {
		return nil, &models.NetworkError{URL: req.URL, Err: context.Canceled}
	}
	return &fetch.Result{Status: 200, Body: []byte(body), FinalURL: req.URL, Path: "local"}, nil
}

func testConfigs() []config.SourceSettings {
	return []config.SourceSettings{
		{Name: "dramacool", Category: "drama", BaseURL: "https://dramacool.com.pa", FetchPath: config.FetchPathLocal, Enabled: true, StreamTTLMinute: 120},
		{Name: "mydramalist", Category: "drama", BaseURL: "https://mydramalist.com", FetchPath: config.FetchPathLocal, Enabled: true},
	}
}

func newTestService(t *testing.T, fetcher fetch.Fetcher) (*Service, *database.DB) {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := NewService(
		db,
		sources.NewRegistry(testConfigs()),
		fetch.NewDispatcher(fetcher, nil, nil),
		config.StreamingSettings{TTLMinutes: 240},
		config.ImageSettings{
			StorageBaseURL: "https://assets.example",
			Fallbacks: map[string]string{
				"drama": "https://assets.example/defaults/drama.jpg",
			},
		},
	)
	return svc, db
}

func seedRecord(t *testing.T, db *database.DB, source, sourceID, sourceURL, poster string) models.ContentRecord {
	t.Helper()
	now := time.Now().UTC()
	rec := models.ContentRecord{
		ID:          source + ":" + sourceID,
		Title:       "Queen of Tears",
		ContentType: models.ContentTypeDrama,
		Source:      source,
		SourceID:    sourceID,
		SourceURL:   sourceURL,
		Poster:      poster,
		ScrapedAt:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, db.UpsertBatch(context.Background(), models.ContentTypeDrama, []models.ContentRecord{rec}))
	return rec
}

func TestResolveStreamFreshCacheHit(t *testing.T) {
	svc, db := newTestService(t, &stubFetcher{})
	ctx := context.Background()

	info := models.StreamingInfo{
		ContentID:    "dramacool:qot",
		StreamingURL: "https://embed.example.net/e/cached",
		Source:       "dramacool",
		Headers:      map[string]string{"Referer": "https://dramacool.com.pa/"},
		ExpiresAt:    time.Now().Add(time.Hour).UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	require.NoError(t, db.PutStreamingInfo(ctx, info))

	got, err := svc.ResolveStream(ctx, "dramacool:qot")
	require.NoError(t, err)
	assert.Equal(t, "https://embed.example.net/e/cached", got.StreamingURL)
	assert.NotEmpty(t, got.Headers["Referer"], "source headers must be attached")
}

func TestResolveStreamRefreshesExpiredEntry(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{
		"https://dramacool.com.pa/qot-episode-1.html": watchPageHTML,
	}}
	svc, db := newTestService(t, fetcher)
	ctx := context.Background()

	seedRecord(t, db, "dramacool", "qot", "https://dramacool.com.pa/qot-episode-1.html", "")
	require.NoError(t, db.PutStreamingInfo(ctx, models.StreamingInfo{
		ContentID:    "dramacool:qot",
		StreamingURL: "https://embed.example.net/e/stale",
		Source:       "dramacool",
		ExpiresAt:    time.Now().Add(-time.Hour).UTC(),
		UpdatedAt:    time.Now().Add(-3 * time.Hour).UTC(),
	}))

	got, err := svc.ResolveStream(ctx, "dramacool:qot")
	require.NoError(t, err)
	assert.Equal(t, "https://embed.example.net/e/abc123", got.StreamingURL, "stale URL must be re-extracted")
	assert.True(t, got.ExpiresAt.After(time.Now()), "refreshed entry carries a future expiry")
	require.Len(t, got.Subtitles, 1)
	assert.Equal(t, "en", got.Subtitles[0].Language)

	// TTL comes from the source override (120m), not the global default.
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), got.ExpiresAt, time.Minute)

	cached, err := db.GetStreamingInfo(ctx, "dramacool:qot")
	require.NoError(t, err)
	assert.Equal(t, got.StreamingURL, cached.StreamingURL)
}

func TestResolveStreamNeverServesExpired(t *testing.T) {
	// Source exists but its adapter cannot extract streams.
	svc, db := newTestService(t, &stubFetcher{})
	ctx := context.Background()

	seedRecord(t, db, "mydramalist", "qot", "https://mydramalist.com/18452", "")
	require.NoError(t, db.PutStreamingInfo(ctx, models.StreamingInfo{
		ContentID:    "mydramalist:qot",
		StreamingURL: "https://embed.example.net/e/stale",
		Source:       "mydramalist",
		ExpiresAt:    time.Now().Add(-time.Minute).UTC(),
		UpdatedAt:    time.Now().UTC(),
	}))

	_, err := svc.ResolveStream(ctx, "mydramalist:qot")
	assert.ErrorIs(t, err, models.ErrNeedsRefresh)
}

func TestResolveStreamUnknownContent(t *testing.T) {
	svc, _ := newTestService(t, &stubFetcher{})

	_, err := svc.ResolveStream(context.Background(), "dramacool:missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestResolveImageVariants(t *testing.T) {
	svc, db := newTestService(t, &stubFetcher{})
	ctx := context.Background()

	seedRecord(t, db, "dramacool", "qot", "https://dramacool.com.pa/qot", "https://img.example/qot.jpg")

	res, err := svc.ResolveImage(ctx, "dramacool:qot", models.ImageSizeW500)
	require.NoError(t, err)
	assert.False(t, res.Fallback)
	assert.Equal(t, "https://assets.example/poster/drama/dramacool_qot_w500.jpg", res.URL)
}

func TestResolveImageFallsBack(t *testing.T) {
	svc, db := newTestService(t, &stubFetcher{})
	ctx := context.Background()

	// Record with no stored artwork.
	seedRecord(t, db, "dramacool", "bare", "https://dramacool.com.pa/bare", "")

	res, err := svc.ResolveImage(ctx, "dramacool:bare", models.ImageSizeW200)
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Equal(t, "https://assets.example/defaults/drama.jpg", res.URL)

	// Unknown id degrades, never errors the caller.
	res, err = svc.ResolveImage(ctx, "dramacool:missing", models.ImageSizeOriginal)
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.NotEmpty(t, res.URL)
}
