package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamvault/api"
	"streamvault/config"
	"streamvault/handlers"
	"streamvault/internal/database"
	"streamvault/models"
	"streamvault/services/evasion"
	"streamvault/services/fetch"
	"streamvault/services/normalize"
	"streamvault/services/scraper"
	"streamvault/services/sources"
	"streamvault/services/streaminfo"
)

const listPageHTML = `<html><body><div id="content">
	<div class="box">
		<h6 class="title"><a href="/18452-queen-of-tears">Queen of Tears</a></h6>
		<span class="score">8.8</span>
		<span class="text-muted">Korean Drama - 2024, 16 episodes</span>
	</div>
	<div class="box">
		<h6 class="title"><a href="/12345-vincenzo">Vincenzo</a></h6>
		<span class="text-muted">Korean Drama - 2021, 20 episodes</span>
	</div>
</div></body></html>`

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

func newTestRouter(t *testing.T) (*mux.Router, *database.DB) {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	fetcher := &stubFetcher{pages: map[string]string{
		"https://mydramalist.com/shows/popular": listPageHTML,
	}}
	dispatcher := fetch.NewDispatcher(fetcher, nil, nil)
	registry := sources.NewRegistry([]config.SourceSettings{
		{
			Name:      "mydramalist",
			Category:  "drama",
			BaseURL:   "https://mydramalist.com",
			FetchPath: config.FetchPathLocal,
			Enabled:   true,
		},
		{
			Name:      "dramacool",
			Category:  "drama",
			BaseURL:   "https://dramacool.com.pa",
			FetchPath: config.FetchPathLocal,
			Enabled:   true,
		},
	})

	scraperService := scraper.NewService(
		registry,
		dispatcher,
		normalize.New(),
		db,
		evasion.NoDelay{},
		afero.NewMemMapFs(),
		config.ScraperSettings{DefaultLimit: 20, DefaultTimeoutSeconds: 5},
	)

	images := config.ImageSettings{
		StorageBaseURL: "https://assets.example",
		Fallbacks: map[string]string{
			"drama": "https://assets.example/defaults/drama.jpg",
		},
	}
	streamService := streaminfo.NewService(db, registry, dispatcher, config.StreamingSettings{TTLMinutes: 240}, images)

	r := mux.NewRouter()
	api.Register(r, api.Handlers{
		Scrape: handlers.NewScrapeHandler(scraperService, db),
		Stream: handlers.NewStreamHandler(streamService),
		Image:  handlers.NewImageHandler(streamService, images),
		Health: handlers.NewHealthHandler(db),
	})
	return r, db
}

func doJSON(t *testing.T, r *mux.Router, method, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, target, nil))

	var body map[string]interface{}
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func seedRecord(t *testing.T, db *database.DB, rec models.ContentRecord) {
	t.Helper()
	require.NoError(t, db.UpsertBatch(context.Background(), rec.ContentType, []models.ContentRecord{rec}))
}

func TestScrapeEndpointRequiresSource(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, body := doJSON(t, r, http.MethodGet, "/scrape")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["available_sources"], "mydramalist")
}

func TestScrapeEndpointRunsPipeline(t *testing.T) {
	r, db := newTestRouter(t)

	rec, body := doJSON(t, r, http.MethodGet, "/scrape?source=mydramalist&limit=10")
	require.Equal(t, http.StatusOK, rec.Code)

	results, ok := body["results"].([]interface{})
	require.True(t, ok)
	assert.Len(t, results, 2)

	meta, ok := body["metadata"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "mydramalist", meta["source"])
	assert.Equal(t, float64(2), meta["count"])

	counts, err := db.CountContent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, counts["dramas"])
}

func TestScrapeEndpointUnknownSource(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, body := doJSON(t, r, http.MethodGet, "/scrape?source=nope")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["available_sources"], "mydramalist")
}

func TestScrapeEndpointFailureWithDebugDetail(t *testing.T) {
	r, _ := newTestRouter(t)

	// The stub has no pages for search URLs, so the run fails.
	rec, body := doJSON(t, r, http.MethodGet, "/scrape?source=mydramalist&kind=search&query=x&debug=true")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "scrape failed", body["error"])
	assert.NotEmpty(t, body["detail"])
}

func TestSourcesEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, body := doJSON(t, r, http.MethodGet, "/sources")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body["sources"], "mydramalist")
	assert.Contains(t, body["enabled"], "mydramalist")
}

func TestLogsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, _ := doJSON(t, r, http.MethodGet, "/scrape?source=mydramalist")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := doJSON(t, r, http.MethodGet, "/scrape/logs?source=mydramalist")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])
}

func TestStreamEndpointServesCachedEntry(t *testing.T) {
	r, db := newTestRouter(t)
	ctx := context.Background()

	now := time.Now().UTC()
	seedRecord(t, db, models.ContentRecord{
		ID:          "mydramalist:qot",
		Title:       "Queen of Tears",
		ContentType: models.ContentTypeDrama,
		Source:      "mydramalist",
		SourceID:    "qot",
		ScrapedAt:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	require.NoError(t, db.PutStreamingInfo(ctx, models.StreamingInfo{
		ContentID:    "mydramalist:qot",
		StreamingURL: "https://cdn.example/qot/master.m3u8",
		Source:       "mydramalist",
		ExpiresAt:    now.Add(time.Hour),
		UpdatedAt:    now,
	}))

	rec, body := doJSON(t, r, http.MethodGet, "/stream/mydramalist:qot")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "https://cdn.example/qot/master.m3u8", body["streaming_url"])
}

func TestStreamEndpointUnknownContent(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, body := doJSON(t, r, http.MethodGet, "/stream/mydramalist:missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "content not found", body["message"])
	assert.Equal(t, "https://assets.example/defaults/drama.jpg", body["fallbackUrl"])
	assert.Nil(t, body["needsRefresh"])
}

func TestStreamEndpointNeedsRefresh(t *testing.T) {
	r, db := newTestRouter(t)

	// No stream extractor on this source path, so an uncached entry cannot
	// be refreshed.
	now := time.Now().UTC()
	seedRecord(t, db, models.ContentRecord{
		ID:          "mydramalist:vz",
		Title:       "Vincenzo",
		ContentType: models.ContentTypeDrama,
		Source:      "mydramalist",
		SourceID:    "vz",
		SourceURL:   "https://mydramalist.com/12345-vincenzo",
		ScrapedAt:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	})

	rec, body := doJSON(t, r, http.MethodGet, "/stream/mydramalist:vz")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "stream unavailable", body["message"])
	assert.Equal(t, true, body["needsRefresh"])
	assert.Equal(t, "https://assets.example/defaults/drama.jpg", body["fallbackUrl"])
}

func TestStreamEndpointRefreshFetchFailure(t *testing.T) {
	r, db := newTestRouter(t)

	// The source can extract streams, but its watch page is unreachable;
	// the expired entry must surface as refreshable, not as a server error.
	now := time.Now().UTC()
	seedRecord(t, db, models.ContentRecord{
		ID:          "dramacool:qot",
		Title:       "Queen of Tears",
		ContentType: models.ContentTypeDrama,
		Source:      "dramacool",
		SourceID:    "qot",
		SourceURL:   "https://dramacool.com.pa/queen-of-tears-episode-1.html",
		ScrapedAt:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	require.NoError(t, db.PutStreamingInfo(context.Background(), models.StreamingInfo{
		ContentID:    "dramacool:qot",
		StreamingURL: "https://cdn.example/old/master.m3u8",
		Source:       "dramacool",
		ExpiresAt:    now.Add(-time.Hour),
		UpdatedAt:    now.Add(-2 * time.Hour),
	}))

	rec, body := doJSON(t, r, http.MethodGet, "/stream/dramacool:qot")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, true, body["needsRefresh"])
	assert.Equal(t, "https://assets.example/defaults/drama.jpg", body["fallbackUrl"])
}

func TestImageEndpointRedirectsToStorage(t *testing.T) {
	r, db := newTestRouter(t)

	now := time.Now().UTC()
	seedRecord(t, db, models.ContentRecord{
		ID:          "mydramalist:qot",
		Title:       "Queen of Tears",
		ContentType: models.ContentTypeDrama,
		Source:      "mydramalist",
		SourceID:    "qot",
		Poster:      "https://upstream.example/qot.jpg",
		ScrapedAt:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	})

	rec, _ := doJSON(t, r, http.MethodGet, "/w500/mydramalist:qot")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://assets.example/poster/drama/mydramalist_qot_w500.jpg", rec.Header().Get("Location"))
	assert.Empty(t, rec.Header().Get("X-Image-Fallback"))
}

func TestImageEndpointFallsBackForUnknownContent(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, _ := doJSON(t, r, http.MethodGet, "/w200/mydramalist:missing")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://assets.example/defaults/drama.jpg", rec.Header().Get("Location"))
	assert.Equal(t, "true", rec.Header().Get("X-Image-Fallback"))
}

func TestHealthEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, body := doJSON(t, r, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["uptime"])
}
