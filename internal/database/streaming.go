package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"streamvault/models"
)

// GetStreamingInfo loads the cached streaming entry for a content id.
// Expiry is the gateway's call, not the store's: expired rows still load.
func (d *DB) GetStreamingInfo(ctx context.Context, contentID string) (*models.StreamingInfo, error) {
	var info models.StreamingInfo
	var headers, subtitles string
	err := d.conn.QueryRowContext(ctx, `
		SELECT content_id, streaming_url, source, headers, subtitles, referrer_policy, expires_at, updated_at
		FROM streaming_info WHERE content_id = ?`, contentID).
		Scan(&info.ContentID, &info.StreamingURL, &info.Source, &headers,
			&subtitles, &info.ReferrerPolicy, &info.ExpiresAt, &info.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, &models.PersistenceError{Table: "streaming_info", Err: err}
	}

	if headers != "" && headers != "{}" {
		_ = json.Unmarshal([]byte(headers), &info.Headers)
	}
	if subtitles != "" && subtitles != "[]" {
		_ = json.Unmarshal([]byte(subtitles), &info.Subtitles)
	}
	return &info, nil
}

// PutStreamingInfo writes (or refreshes) the cache entry for a content id.
func (d *DB) PutStreamingInfo(ctx context.Context, info models.StreamingInfo) error {
	headers, err := json.Marshal(info.Headers)
	if err != nil {
		headers = []byte("{}")
	}
	subtitles, err := json.Marshal(info.Subtitles)
	if err != nil {
		subtitles = []byte("[]")
	}

	_, err = d.conn.ExecContext(ctx, `
		INSERT INTO streaming_info (content_id, streaming_url, source, headers, subtitles, referrer_policy, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (content_id) DO UPDATE SET
			streaming_url = excluded.streaming_url,
			source = excluded.source,
			headers = excluded.headers,
			subtitles = excluded.subtitles,
			referrer_policy = excluded.referrer_policy,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		info.ContentID, info.StreamingURL, info.Source, string(headers),
		string(subtitles), info.ReferrerPolicy, info.ExpiresAt.UTC(), info.UpdatedAt.UTC())
	if err != nil {
		return &models.PersistenceError{Table: "streaming_info", Err: err}
	}
	return nil
}

// DeleteStreamingInfo drops a cache entry, used when a refresh fails and
// the stale URL should not linger.
func (d *DB) DeleteStreamingInfo(ctx context.Context, contentID string) error {
	_, err := d.conn.ExecContext(ctx, `DELETE FROM streaming_info WHERE content_id = ?`, contentID)
	if err != nil {
		return &models.PersistenceError{Table: "streaming_info", Err: err}
	}
	return nil
}
