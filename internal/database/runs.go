package database

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"streamvault/models"
)

// StartRun inserts a running scraping_logs row and returns its id. A row
// exists for every invocation, including ones that later fail.
func (d *DB) StartRun(ctx context.Context, source string, contentType models.ContentType) (string, error) {
	id := uuid.NewString()
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO scraping_logs (id, source, content_type, status, started_at)
		VALUES (?, ?, ?, ?, ?)`,
		id, source, string(contentType), string(models.RunStatusRunning), touch().UTC())
	if err != nil {
		return "", &models.PersistenceError{Table: "scraping_logs", Err: err}
	}
	return id, nil
}

// FinalizeRun stamps the terminal status and counters on a run row.
func (d *DB) FinalizeRun(ctx context.Context, run models.ScrapeRun) error {
	details, err := json.Marshal(run.Details)
	if err != nil {
		details = []byte("[]")
	}
	now := touch().UTC()
	_, err = d.conn.ExecContext(ctx, `
		UPDATE scraping_logs
		SET status = ?, items_count = ?, errors_count = ?, duration_ms = ?, details = ?, finished_at = ?
		WHERE id = ?`,
		string(run.Status), run.ItemsCount, run.ErrorsCount, run.DurationMS, string(details), now, run.ID)
	if err != nil {
		return &models.PersistenceError{Table: "scraping_logs", Err: err}
	}
	return nil
}

// RecentRuns returns the newest run rows, optionally filtered by source.
func (d *DB) RecentRuns(ctx context.Context, source string, limit int) ([]models.ScrapeRun, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, source, content_type, status, items_count, errors_count, duration_ms, details, started_at, finished_at
		FROM scraping_logs`
	args := []any{}
	if source != "" {
		query += " WHERE source = ?"
		args = append(args, source)
	}
	query += " ORDER BY started_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &models.PersistenceError{Table: "scraping_logs", Err: err}
	}
	defer rows.Close()

	var out []models.ScrapeRun
	for rows.Next() {
		var run models.ScrapeRun
		var contentType, status, details string
		if err := rows.Scan(&run.ID, &run.Source, &contentType, &status,
			&run.ItemsCount, &run.ErrorsCount, &run.DurationMS, &details,
			&run.StartedAt, &run.FinishedAt); err != nil {
			return nil, &models.PersistenceError{Table: "scraping_logs", Err: err}
		}
		run.ContentType = models.ContentType(contentType)
		run.Status = models.RunStatus(status)
		if details != "" && details != "[]" {
			_ = json.Unmarshal([]byte(details), &run.Details)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
