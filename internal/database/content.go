package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"streamvault/models"
)

const contentColumns = `id, title, original_title, content_type, year, rating, synopsis,
	episodes_count, duration, genres, cast_names, director, poster, backdrop,
	source, source_id, source_url, is_fallback, scraped_at, created_at, updated_at`

// UpsertBatch writes a normalized batch into the content type's table in a
// single transaction: either every record lands or none do. Records are
// keyed on (source, source_id); re-running the same batch updates in place.
func (d *DB) UpsertBatch(ctx context.Context, contentType models.ContentType, records []models.ContentRecord) error {
	table := contentType.Table()
	if table == "" {
		return &models.PersistenceError{Table: string(contentType), Err: errors.New("unknown content type")}
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return &models.PersistenceError{Table: table, Err: fmt.Errorf("begin: %w", err)}
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source, source_id) DO UPDATE SET
			title = excluded.title,
			original_title = excluded.original_title,
			year = excluded.year,
			rating = excluded.rating,
			synopsis = excluded.synopsis,
			episodes_count = excluded.episodes_count,
			duration = excluded.duration,
			genres = excluded.genres,
			cast_names = excluded.cast_names,
			director = excluded.director,
			poster = excluded.poster,
			backdrop = excluded.backdrop,
			source_url = excluded.source_url,
			is_fallback = excluded.is_fallback,
			scraped_at = excluded.scraped_at,
			updated_at = excluded.updated_at`, table, contentColumns))
	if err != nil {
		return &models.PersistenceError{Table: table, Err: fmt.Errorf("prepare: %w", err)}
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx,
			rec.ID, rec.Title, rec.OriginalTitle, string(rec.ContentType), rec.Year,
			rec.Rating, rec.Synopsis, rec.EpisodesCount, rec.Duration,
			jsonList(rec.Genres), jsonList(rec.Cast), jsonList(rec.Director),
			rec.Poster, rec.Backdrop, rec.Source, rec.SourceID, rec.SourceURL,
			rec.IsFallback, rec.ScrapedAt, rec.CreatedAt, rec.UpdatedAt,
		); err != nil {
			return &models.PersistenceError{Table: table, Err: fmt.Errorf("upsert %s: %w", rec.ID, err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return &models.PersistenceError{Table: table, Err: fmt.Errorf("commit: %w", err)}
	}
	return nil
}

// GetContent looks a record up by canonical id across the content tables.
func (d *DB) GetContent(ctx context.Context, id string) (*models.ContentRecord, error) {
	for _, ct := range models.ContentTypes {
		query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", contentColumns, ct.Table())
		rec, err := scanRecord(d.conn.QueryRowContext(ctx, query, id))
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, &models.PersistenceError{Table: ct.Table(), Err: err}
		}
		return rec, nil
	}
	return nil, models.ErrNotFound
}

// ListContent returns the most recently scraped records of one type.
func (d *DB) ListContent(ctx context.Context, contentType models.ContentType, limit int) ([]models.ContentRecord, error) {
	table := contentType.Table()
	if table == "" {
		return nil, &models.PersistenceError{Table: string(contentType), Err: errors.New("unknown content type")}
	}
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY scraped_at DESC LIMIT ?", contentColumns, table)
	rows, err := d.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, &models.PersistenceError{Table: table, Err: err}
	}
	defer rows.Close()

	var out []models.ContentRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, &models.PersistenceError{Table: table, Err: err}
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// CountContent returns per-table row counts, used by the health endpoint.
func (d *DB) CountContent(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(models.ContentTypes))
	for _, ct := range models.ContentTypes {
		var n int
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", ct.Table())
		if err := d.conn.QueryRowContext(ctx, query).Scan(&n); err != nil {
			return nil, &models.PersistenceError{Table: ct.Table(), Err: err}
		}
		counts[ct.Table()] = n
	}
	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.ContentRecord, error) {
	var rec models.ContentRecord
	var contentType, genres, cast, director string
	if err := row.Scan(
		&rec.ID, &rec.Title, &rec.OriginalTitle, &contentType, &rec.Year,
		&rec.Rating, &rec.Synopsis, &rec.EpisodesCount, &rec.Duration,
		&genres, &cast, &director, &rec.Poster, &rec.Backdrop,
		&rec.Source, &rec.SourceID, &rec.SourceURL, &rec.IsFallback,
		&rec.ScrapedAt, &rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rec.ContentType = models.ContentType(contentType)
	rec.Genres = fromJSONList(genres)
	rec.Cast = fromJSONList(cast)
	rec.Director = fromJSONList(director)
	return &rec, nil
}

func jsonList(list []string) string {
	if len(list) == 0 {
		return "[]"
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func fromJSONList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "[]" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

// touch is a shared clock hook so tests can pin timestamps.
var touch = time.Now
