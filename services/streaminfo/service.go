// Package streaminfo is the streaming gateway: it resolves playable stream
// URLs for content ids, owns the expiring streaming-info cache, and maps
// content ids onto object-storage image variants.
package streaminfo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"streamvault/config"
	"streamvault/internal/database"
	"streamvault/models"
	"streamvault/services/fetch"
	"streamvault/services/sources"
)

// Service resolves streams and image variants.
type Service struct {
	db         *database.DB
	registry   *sources.Registry
	dispatcher *fetch.Dispatcher
	defaultTTL time.Duration
	images     config.ImageSettings
	now        func() time.Time
}

func NewService(db *database.DB, registry *sources.Registry, dispatcher *fetch.Dispatcher, streaming config.StreamingSettings, images config.ImageSettings) *Service {
	ttl := time.Duration(streaming.TTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 4 * time.Hour
	}
	return &Service{
		db:         db,
		registry:   registry,
		dispatcher: dispatcher,
		defaultTTL: ttl,
		images:     images,
		now:        time.Now,
	}
}

// ResolveStream returns a servable streaming entry for a content id. A
// fresh cache hit is returned as-is; an expired or missing entry triggers
// a refresh through the source's stream extractor. An expired entry is
// never returned: when refresh is impossible the caller gets ErrNeedsRefresh.
func (s *Service) ResolveStream(ctx context.Context, contentID string) (*models.StreamingInfo, error) {
	cached, err := s.db.GetStreamingInfo(ctx, contentID)
	if err == nil && !cached.Expired(s.now()) {
		return cached, nil
	}
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	record, err := s.db.GetContent(ctx, contentID)
	if err != nil {
		return nil, err // ErrNotFound for unknown ids
	}

	info, err := s.refresh(ctx, record)
	if err != nil {
		if cached != nil {
			// Drop the stale row so the next attempt starts clean.
			_ = s.db.DeleteStreamingInfo(ctx, contentID)
		}
		return nil, err
	}
	return info, nil
}

// refresh re-extracts the stream URL from the source's watch page.
func (s *Service) refresh(ctx context.Context, record *models.ContentRecord) (*models.StreamingInfo, error) {
	adapter, cfg, err := s.registry.Get(record.Source)
	if err != nil {
		return nil, fmt.Errorf("%w: source %s no longer registered", models.ErrNeedsRefresh, record.Source)
	}

	extractor, ok := adapter.(sources.StreamExtractor)
	if !ok {
		return nil, fmt.Errorf("%w: %s cannot resolve streams", models.ErrNeedsRefresh, record.Source)
	}
	if record.SourceURL == "" {
		return nil, fmt.Errorf("%w: no source url for %s", models.ErrNeedsRefresh, record.ID)
	}

	fetcher := s.dispatcher.For(cfg.FetchPath)
	res, err := fetcher.Fetch(ctx, fetch.Request{
		URL:       record.SourceURL,
		Fallbacks: cfg.FallbackURLs,
		Headers:   cfg.Headers,
		Referer:   cfg.Referer,
		Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, err
	}

	streamURL, subtitles, err := extractor.ExtractStream(res.Body, res.FinalURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrNeedsRefresh, err)
	}

	ttl := s.defaultTTL
	if cfg.StreamTTLMinute > 0 {
		ttl = time.Duration(cfg.StreamTTLMinute) * time.Minute
	}

	now := s.now().UTC()
	info := &models.StreamingInfo{
		ContentID:      record.ID,
		StreamingURL:   streamURL,
		Source:         record.Source,
		Headers:        extractor.StreamHeaders(res.FinalURL),
		Subtitles:      subtitles,
		ReferrerPolicy: "origin",
		ExpiresAt:      now.Add(ttl),
		UpdatedAt:      now,
	}
	if err := s.db.PutStreamingInfo(ctx, *info); err != nil {
		// A failed cache write is not fatal; the URL is still good now.
		log.Printf("[streaminfo] cache write for %s: %v", record.ID, err)
	}
	return info, nil
}

// ImageResolution is the outcome of an image variant lookup.
type ImageResolution struct {
	URL      string `json:"url"`
	Fallback bool   `json:"fallback"` // type-specific default was substituted
}

// ResolveImage maps a content id and size variant onto the object-storage
// key {type}/{category}/{id}_{variant}.jpg. Unknown ids or ids with no
// stored artwork degrade to the content type's default image.
func (s *Service) ResolveImage(ctx context.Context, imageID string, size models.ImageSize) (*ImageResolution, error) {
	record, err := s.db.GetContent(ctx, imageID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return s.fallbackImage(""), nil
		}
		return nil, err
	}

	if record.Poster == "" {
		return s.fallbackImage(string(record.ContentType)), nil
	}

	key := fmt.Sprintf("poster/%s/%s_%s.jpg", record.ContentType, safeKey(record.ID), size)
	return &ImageResolution{
		URL: strings.TrimRight(s.images.StorageBaseURL, "/") + "/" + key,
	}, nil
}

// SourceImageURL returns the upstream artwork URL for proxy mode, where
// the variant is resized locally instead of redirecting.
func (s *Service) SourceImageURL(ctx context.Context, imageID string) (string, error) {
	record, err := s.db.GetContent(ctx, imageID)
	if err != nil {
		return "", err
	}
	if record.Poster == "" {
		return "", models.ErrNotFound
	}
	return record.Poster, nil
}

// ProxyEnabled reports whether variants are served locally.
func (s *Service) ProxyEnabled() bool { return s.images.ProxyEnabled }

// FallbackURL returns the type default artwork for a content id, used in
// error payloads when no stream can be served. Unknown ids get whatever
// default is configured.
func (s *Service) FallbackURL(ctx context.Context, contentID string) string {
	record, err := s.db.GetContent(ctx, contentID)
	if err != nil {
		return s.fallbackImage("").URL
	}
	return s.fallbackImage(string(record.ContentType)).URL
}

func (s *Service) fallbackImage(contentType string) *ImageResolution {
	if url, ok := s.images.Fallbacks[contentType]; ok {
		return &ImageResolution{URL: url, Fallback: true}
	}
	// Unknown type: any configured default beats an empty answer.
	for _, url := range s.images.Fallbacks {
		return &ImageResolution{URL: url, Fallback: true}
	}
	return &ImageResolution{Fallback: true}
}

// safeKey flattens the canonical id into a storage-key-safe token.
func safeKey(id string) string {
	return strings.NewReplacer(":", "_", "/", "_", " ", "_").Replace(id)
}
